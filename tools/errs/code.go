package errs

// 错误码分段：
//   1xxx 客户端参数/状态错误（API 层映射 4xx）
//   2xxx 资源不存在
//   5xxx 服务内部错误
const (
	ArgsError           = 1001 // 参数错误 / 非法状态迁移
	CursorError         = 1002 // 游标无法解码
	RecordNotFoundError = 2001
	DuplicateKeyError   = 1003
	ServerInternalError = 5000
)

var (
	ErrArgs           = NewCodeError(ArgsError, "args error")
	ErrCursor         = NewCodeError(CursorError, "invalid cursor")
	ErrRecordNotFound = NewCodeError(RecordNotFoundError, "record not found")
	ErrDuplicateKey   = NewCodeError(DuplicateKeyError, "duplicate key")
	ErrInternalServer = NewCodeError(ServerInternalError, "server internal error")
)
