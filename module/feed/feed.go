package feed

import (
	"context"

	"DProject/module/dialog/model"
	"DProject/tools/errs"
)

const (
	defaultLimit = 20
	maxLimit     = 100

	// 单次归并的扇出上限；超过时要求调用方用 UserID 收窄（开放问题的取值见 DESIGN.md）
	maxFanout = 256
)

// Bound 排除式边界：next 方向取 < bound，prev 方向取 > bound。
type Bound struct {
	TSMS      int64
	MessageID string
}

// Source 单会话消息的有序查询。每个会话独立取数，互不依赖。
type Source interface {
	ListMessages(ctx context.Context, tenantID, dialogID string, b *Bound, limit int64, asc bool) ([]*model.Message, error)
}

// PackIndex feed 需要的 pack 侧只读面。
type PackIndex interface {
	Exists(ctx context.Context, tenantID, packID string) (bool, error)
	ListDialogIDs(ctx context.Context, tenantID, packID string) ([]string, error)
}

// Membership 用户→会话，收窄可见范围用。
type Membership interface {
	ListDialogsForUser(ctx context.Context, tenantID, userID string) ([]string, error)
}

type Options struct {
	Limit  int64
	Cursor string // 空串 = 从头开始
	UserID string // 非空时只取该用户所属的会话
}

type CursorPair struct {
	Next *string `json:"next"`
	Prev *string `json:"prev"`
}

type Page struct {
	Data    []*model.Message `json:"data"`
	HasMore bool             `json:"has_more"`
	Cursor  CursorPair       `json:"cursor"`
}

// Feed 跨会话消息流：把 N 个会话的消息按 (created_at_ms desc, message_id desc)
// 合成一条可断点续传的全局序列。纯读路径，不持有任何锁。
type Feed struct {
	Packs   PackIndex
	Members Membership
	Source  Source
}

func New(packs PackIndex, members Membership, source Source) *Feed {
	return &Feed{Packs: packs, Members: members, Source: source}
}

// GetPackMessages pack 维度的合并消息流。pack 不存在返回 not-found，
// pack 存在但没有会话返回空页。
func (f *Feed) GetPackMessages(ctx context.Context, tenantID, packID string, opts Options) (*Page, error) {
	ok, err := f.Packs.Exists(ctx, tenantID, packID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrRecordNotFound.WrapMsg("pack not found", "pack_id", packID)
	}
	dialogIDs, err := f.Packs.ListDialogIDs(ctx, tenantID, packID)
	if err != nil {
		return nil, err
	}
	if opts.UserID != "" {
		userDialogs, err := f.Members.ListDialogsForUser(ctx, tenantID, opts.UserID)
		if err != nil {
			return nil, err
		}
		dialogIDs = intersect(dialogIDs, userDialogs)
	}
	return f.page(ctx, tenantID, dialogIDs, opts)
}

// GetUserMessages 用户所属全部会话的合并消息流。
func (f *Feed) GetUserMessages(ctx context.Context, tenantID, userID string, opts Options) (*Page, error) {
	dialogIDs, err := f.Members.ListDialogsForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	return f.page(ctx, tenantID, dialogIDs, opts)
}

func (f *Feed) page(ctx context.Context, tenantID string, dialogIDs []string, opts Options) (*Page, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	empty := &Page{Data: []*model.Message{}, HasMore: false}
	if len(dialogIDs) == 0 {
		return empty, nil
	}
	if len(dialogIDs) > maxFanout {
		return nil, errs.ErrArgs.WrapMsg("too many dialogs for one merge, narrow with user_id",
			"dialogs", len(dialogIDs), "max", maxFanout)
	}

	var bound *Bound
	firstPage := opts.Cursor == ""
	asc := false
	if !firstPage {
		c, err := DecodeCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}
		bound = &Bound{TSMS: c.TS, MessageID: c.ID}
		asc = c.Dir == DirPrev
	}

	// 每个会话各取 limit+1 条：limit+1 个候选即可判定 hasMore
	var lists [][]*model.Message
	total := 0
	for _, dialogID := range dialogIDs {
		msgs, err := f.Source.ListMessages(ctx, tenantID, dialogID, bound, limit+1, asc)
		if err != nil {
			return nil, err
		}
		total += len(msgs)
		lists = append(lists, msgs)
	}
	if total == 0 {
		return empty, nil
	}

	data := kMerge(lists, int(limit), asc)
	hasMore := total >= int(limit)+1
	if asc {
		// prev 方向按升序归并，返回前翻回全局降序
		reverse(data)
	}

	page := &Page{Data: data, HasMore: hasMore}
	if len(data) == 0 {
		return empty, nil
	}

	last := data[len(data)-1]
	first := data[0]
	if asc {
		// prev 页：hasMore 表示向新方向还有更多
		next := Cursor{TS: last.CreatedAtMS, ID: last.MessageID, Dir: DirNext}.Encode()
		page.Cursor.Next = &next
		if hasMore {
			prev := Cursor{TS: first.CreatedAtMS, ID: first.MessageID, Dir: DirPrev}.Encode()
			page.Cursor.Prev = &prev
		}
		return page, nil
	}

	if hasMore {
		next := Cursor{TS: last.CreatedAtMS, ID: last.MessageID, Dir: DirNext}.Encode()
		page.Cursor.Next = &next
	}
	if !firstPage {
		prev := Cursor{TS: first.CreatedAtMS, ID: first.MessageID, Dir: DirPrev}.Encode()
		page.Cursor.Prev = &prev
	}
	return page, nil
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func reverse(msgs []*model.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
