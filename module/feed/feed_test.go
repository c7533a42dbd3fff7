package feed

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"DProject/module/dialog/model"
	"DProject/tools/errs"
)

type fakeSource struct {
	byDialog map[string][]*model.Message
}

func (f *fakeSource) ListMessages(_ context.Context, _, dialogID string, b *Bound, limit int64, asc bool) ([]*model.Message, error) {
	all := append([]*model.Message(nil), f.byDialog[dialogID]...)
	sort.Slice(all, func(i, j int) bool {
		if asc {
			return keyLess(all[i], all[j])
		}
		return keyLess(all[j], all[i])
	})
	out := make([]*model.Message, 0, limit)
	for _, m := range all {
		if b != nil {
			bm := &model.Message{CreatedAtMS: b.TSMS, MessageID: b.MessageID}
			if asc && !keyLess(bm, m) {
				continue
			}
			if !asc && !keyLess(m, bm) {
				continue
			}
		}
		out = append(out, m)
		if int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

type fakePackIndex struct {
	dialogs map[string][]string // pack_id → dialog_ids
}

func (f *fakePackIndex) Exists(_ context.Context, _, packID string) (bool, error) {
	_, ok := f.dialogs[packID]
	return ok, nil
}

func (f *fakePackIndex) ListDialogIDs(_ context.Context, _, packID string) ([]string, error) {
	return f.dialogs[packID], nil
}

type fakeMembership struct {
	byUser map[string][]string
}

func (f *fakeMembership) ListDialogsForUser(_ context.Context, _, userID string) ([]string, error) {
	return f.byUser[userID], nil
}

// 两个会话各自有序、全局交错的标准布局：A(10,20,30) B(15,25)
func testFeed() *Feed {
	src := &fakeSource{byDialog: map[string][]*model.Message{
		"da": {msg("da", "100", 10), msg("da", "200", 20), msg("da", "300", 30)},
		"db": {msg("db", "150", 15), msg("db", "250", 25)},
	}}
	packs := &fakePackIndex{dialogs: map[string][]string{
		"p1":    {"da", "db"},
		"empty": {},
	}}
	members := &fakeMembership{byUser: map[string][]string{
		"u1": {"da", "db"},
		"u2": {"db"},
	}}
	return New(packs, members, src)
}

func TestGetPackMessagesPagination(t *testing.T) {
	f := testFeed()
	ctx := context.Background()

	p1, err := f.GetPackMessages(ctx, "t1", "p1", Options{Limit: 2})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if !equalIDs(p1.Data, []string{"300", "250"}) || !p1.HasMore {
		t.Fatalf("page 1 = %v hasMore=%v, want [300 250] true", ids(p1.Data), p1.HasMore)
	}
	if p1.Cursor.Next == nil || p1.Cursor.Prev != nil {
		t.Fatal("first page must carry next cursor only")
	}

	p2, err := f.GetPackMessages(ctx, "t1", "p1", Options{Limit: 2, Cursor: *p1.Cursor.Next})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if !equalIDs(p2.Data, []string{"200", "150"}) || !p2.HasMore {
		t.Fatalf("page 2 = %v hasMore=%v, want [200 150] true", ids(p2.Data), p2.HasMore)
	}

	p3, err := f.GetPackMessages(ctx, "t1", "p1", Options{Limit: 2, Cursor: *p2.Cursor.Next})
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if !equalIDs(p3.Data, []string{"100"}) || p3.HasMore {
		t.Fatalf("page 3 = %v hasMore=%v, want [100] false", ids(p3.Data), p3.HasMore)
	}
	if p3.Cursor.Next != nil {
		t.Fatal("exhausted page must not carry next cursor")
	}
	if p3.Cursor.Prev == nil {
		t.Fatal("non-first page must carry prev cursor")
	}

	// 往回翻：prev 页仍按全局降序返回
	back, err := f.GetPackMessages(ctx, "t1", "p1", Options{Limit: 2, Cursor: *p3.Cursor.Prev})
	if err != nil {
		t.Fatalf("prev page: %v", err)
	}
	if !equalIDs(back.Data, []string{"200", "150"}) {
		t.Fatalf("prev page = %v, want [200 150]", ids(back.Data))
	}
}

func TestFeedCompleteness(t *testing.T) {
	// 逐页走完，不丢不重
	f := testFeed()
	ctx := context.Background()
	var all []string
	cursor := ""
	for i := 0; i < 10; i++ {
		p, err := f.GetPackMessages(ctx, "t1", "p1", Options{Limit: 2, Cursor: cursor})
		if err != nil {
			t.Fatalf("walk: %v", err)
		}
		all = append(all, ids(p.Data)...)
		if p.Cursor.Next == nil {
			break
		}
		cursor = *p.Cursor.Next
	}
	want := []string{"300", "250", "200", "150", "100"}
	if fmt.Sprint(all) != fmt.Sprint(want) {
		t.Fatalf("walked = %v, want %v", all, want)
	}
}

func TestGetPackMessagesPackNotFound(t *testing.T) {
	f := testFeed()
	_, err := f.GetPackMessages(context.Background(), "t1", "nope", Options{})
	if err == nil || errs.Code(err) != errs.RecordNotFoundError {
		t.Fatalf("err = %v, want record not found", err)
	}
}

func TestGetPackMessagesEmptyPack(t *testing.T) {
	f := testFeed()
	p, err := f.GetPackMessages(context.Background(), "t1", "empty", Options{})
	if err != nil {
		t.Fatalf("empty pack: %v", err)
	}
	if len(p.Data) != 0 || p.HasMore || p.Cursor.Next != nil || p.Cursor.Prev != nil {
		t.Fatalf("empty pack page = %+v, want empty shape", p)
	}
}

func TestGetPackMessagesInvalidCursor(t *testing.T) {
	f := testFeed()
	_, err := f.GetPackMessages(context.Background(), "t1", "p1", Options{Cursor: "garbage!!"})
	if err == nil || errs.Code(err) != errs.CursorError {
		t.Fatalf("err = %v, want cursor error", err)
	}
}

func TestGetPackMessagesUserNarrowing(t *testing.T) {
	f := testFeed()
	p, err := f.GetPackMessages(context.Background(), "t1", "p1", Options{UserID: "u2"})
	if err != nil {
		t.Fatalf("narrowed: %v", err)
	}
	if !equalIDs(p.Data, []string{"250", "150"}) {
		t.Fatalf("narrowed = %v, want db only", ids(p.Data))
	}
}

func TestGetUserMessages(t *testing.T) {
	f := testFeed()
	p, err := f.GetUserMessages(context.Background(), "t1", "u1", Options{Limit: 3})
	if err != nil {
		t.Fatalf("user feed: %v", err)
	}
	if !equalIDs(p.Data, []string{"300", "250", "200"}) || !p.HasMore {
		t.Fatalf("user feed = %v hasMore=%v", ids(p.Data), p.HasMore)
	}
}

func TestFeedFanoutCap(t *testing.T) {
	dialogIDs := make([]string, maxFanout+1)
	for i := range dialogIDs {
		dialogIDs[i] = fmt.Sprintf("d%d", i)
	}
	f := New(
		&fakePackIndex{dialogs: map[string][]string{"big": dialogIDs}},
		&fakeMembership{},
		&fakeSource{byDialog: map[string][]*model.Message{}},
	)
	_, err := f.GetPackMessages(context.Background(), "t1", "big", Options{})
	if err == nil || errs.Code(err) != errs.ArgsError {
		t.Fatalf("err = %v, want args error on fanout cap", err)
	}
}
