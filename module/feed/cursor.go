package feed

import (
	"encoding/base64"
	"encoding/json"

	"DProject/tools/errs"
)

const cursorVersion = 1

const (
	DirNext = "next"
	DirPrev = "prev"
)

// Cursor 翻页游标：复合排序键 (created_at_ms, message_id) + 方向，带版本号。
// 对外是不透明 token；结构变更时 bump 版本即可拒绝旧端。
type Cursor struct {
	V   int    `json:"v"`
	TS  int64  `json:"ts"`
	ID  string `json:"id"`
	Dir string `json:"dir"`
}

// Encode 序列化为 URL 安全的 token。
func (c Cursor) Encode() string {
	c.V = cursorVersion
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor 解析 token。无法解码或版本不符一律返回 ErrCursor，
// 不做"静默从头开始"的降级（空 token 才表示从头开始）。
func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, errs.ErrCursor.WrapMsg("base64 decode", "token", token)
	}
	c := &Cursor{}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, errs.ErrCursor.WrapMsg("json decode")
	}
	if c.V != cursorVersion {
		return nil, errs.ErrCursor.WrapMsg("unsupported cursor version", "v", c.V)
	}
	if c.Dir != DirNext && c.Dir != DirPrev {
		return nil, errs.ErrCursor.WrapMsg("bad direction", "dir", c.Dir)
	}
	return c, nil
}
