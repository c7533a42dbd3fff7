package readstate

import (
	"context"
	"time"

	dialogmodel "DProject/module/dialog/model"
	statsmodel "DProject/module/stats/model"
	"DProject/tools/errs"
)

// UnreadStore 未读计数面，生产实现是 *stats.Store。
type UnreadStore interface {
	GetUserDialogStats(ctx context.Context, tenantID, dialogID, userID string) (*statsmodel.UserDialogStats, error)
	SetUnread(ctx context.Context, tenantID, dialogID, userID string, n int64) error
	DecUnreadClamped(ctx context.Context, tenantID, dialogID, userID string, delta int64) error
	GetActivity(ctx context.Context, tenantID, dialogID, userID string) (*statsmodel.UserDialogActivity, error)
	TouchLastSeen(ctx context.Context, tenantID, dialogID, userID string, tsMS int64) error
}

// ReceiptStore 回执面，生产实现是本包的 *Store。
type ReceiptStore interface {
	GetReceipt(ctx context.Context, tenantID, dialogID, messageID, userID string) (*dialogmodel.MessageReceipt, error)
	SetReceiptStatus(ctx context.Context, tenantID, dialogID, messageID, userID, status string, messageAtMS int64) error
	CreateTask(ctx context.Context, task *DialogReadTask) error
}

// Manager 阅读状态管理：未读回退守卫 + 单条回执状态机 + 批量已读任务投递。
type Manager struct {
	Unread   UnreadStore
	Receipts ReceiptStore

	now func() int64
}

func NewManager(unread UnreadStore, receipts ReceiptStore) *Manager {
	return &Manager{Unread: unread, Receipts: receipts, now: func() int64 { return time.Now().UnixMilli() }}
}

// SetUnreadCount 上报已读位置。newCount 只允许减小：把未读调大意味着客户端
// 试图回退状态，按客户端错误拒绝而不是静默忽略。
// readUntilMS > 0 且早于已知 last_seen 水位时，转为异步批量任务。
func (m *Manager) SetUnreadCount(ctx context.Context, tenantID, dialogID, userID string, newCount int64, readUntilMS int64) (*statsmodel.UserDialogStats, error) {
	if newCount < 0 {
		return nil, errs.ErrArgs.WrapMsg("unread count must be >= 0", "new_count", newCount)
	}
	cur, err := m.Unread.GetUserDialogStats(ctx, tenantID, dialogID, userID)
	if err != nil {
		return nil, err
	}
	if newCount > cur.UnreadCount {
		return nil, errs.ErrArgs.WrapMsg("unread count regression",
			"new_count", newCount, "current", cur.UnreadCount)
	}
	// 水位要在 TouchLastSeen 之前取：本次上报一旦把 last_seen 推到当前时刻，
	// 任何过去的 readUntil 都会显得"过期"，异步补齐会从例外变成常态
	var lastSeenMS int64
	if readUntilMS > 0 {
		activity, err := m.Unread.GetActivity(ctx, tenantID, dialogID, userID)
		if err != nil {
			return nil, err
		}
		lastSeenMS = activity.LastSeenAtMS
	}

	if err := m.Unread.SetUnread(ctx, tenantID, dialogID, userID, newCount); err != nil {
		return nil, err
	}
	nowMS := m.now()
	if err := m.Unread.TouchLastSeen(ctx, tenantID, dialogID, userID, nowMS); err != nil {
		return nil, err
	}

	if readUntilMS > 0 && readUntilMS < lastSeenMS {
		// 已读位置落后于上报前的已知水位，历史区间可能很大，不在请求里同步扫
		task := &DialogReadTask{
			TenantID:    tenantID,
			DialogID:    dialogID,
			UserID:      userID,
			ReadUntilMS: readUntilMS,
			Status:      TaskPending,
			CreatedAtMS: nowMS,
		}
		if err := m.Receipts.CreateTask(ctx, task); err != nil {
			return nil, err
		}
	}

	cur.UnreadCount = newCount
	return cur, nil
}

// MarkReceipt 单条消息状态机 unread → delivered → read，只许前进。
// 进入 read 时将该用户未读减一（钳 0）。
func (m *Manager) MarkReceipt(ctx context.Context, tenantID, dialogID, messageID, userID, status string, messageAtMS int64) error {
	if dialogmodel.ReceiptRank(status) == 0 && status != dialogmodel.ReceiptUnread {
		return errs.ErrArgs.WrapMsg("unknown receipt status", "status", status)
	}
	cur, err := m.Receipts.GetReceipt(ctx, tenantID, dialogID, messageID, userID)
	if err != nil {
		return err
	}
	curStatus := dialogmodel.ReceiptUnread
	if cur != nil {
		curStatus = cur.Status
	}
	if dialogmodel.ReceiptRank(status) < dialogmodel.ReceiptRank(curStatus) {
		return errs.ErrArgs.WrapMsg("receipt status regression",
			"from", curStatus, "to", status)
	}
	if status == curStatus {
		return nil // 重复上报，无操作
	}
	if err := m.Receipts.SetReceiptStatus(ctx, tenantID, dialogID, messageID, userID, status, messageAtMS); err != nil {
		return err
	}
	if status == dialogmodel.ReceiptRead {
		return m.Unread.DecUnreadClamped(ctx, tenantID, dialogID, userID, 1)
	}
	return nil
}
