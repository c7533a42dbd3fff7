package stats

import (
	"context"
	"testing"

	eventmodel "DProject/module/event/model"
	"DProject/module/stats/model"
	"DProject/tools/errs"
)

type fakeRepo struct {
	dialogStats map[string]*model.DialogStats
	unread      []*model.UserDialogStats

	packRows     []*model.PackStats
	userPackRows []*model.UserPackStats
	userRows     []*model.UserStats
	dialogRows   []*model.DialogStats
}

func (r *fakeRepo) ListDialogStats(_ context.Context, _ string, dialogIDs []string) (map[string]*model.DialogStats, error) {
	out := map[string]*model.DialogStats{}
	for _, id := range dialogIDs {
		if ds, ok := r.dialogStats[id]; ok {
			out[id] = ds
		}
	}
	return out, nil
}

func (r *fakeRepo) ListUnreadByDialogs(_ context.Context, _ string, dialogIDs []string) ([]*model.UserDialogStats, error) {
	set := map[string]bool{}
	for _, id := range dialogIDs {
		set[id] = true
	}
	var out []*model.UserDialogStats
	for _, row := range r.unread {
		if set[row.DialogID] {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListUnreadByUser(_ context.Context, _, userID string) ([]*model.UserDialogStats, error) {
	var out []*model.UserDialogStats
	for _, row := range r.unread {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeRepo) ReplaceDialogStats(_ context.Context, row *model.DialogStats) error {
	r.dialogRows = append(r.dialogRows, row)
	return nil
}

func (r *fakeRepo) ReplaceUserStats(_ context.Context, row *model.UserStats) error {
	r.userRows = append(r.userRows, row)
	return nil
}

func (r *fakeRepo) ReplacePackStats(_ context.Context, row *model.PackStats) error {
	r.packRows = append(r.packRows, row)
	return nil
}

func (r *fakeRepo) ReplaceUserPackStats(_ context.Context, row *model.UserPackStats) error {
	r.userPackRows = append(r.userPackRows, row)
	return nil
}

type fakePacks struct {
	dialogs     map[string][]string // pack_id → dialogs
	packsByDlg  map[string][]string // dialog_id → packs
	recalcCalls int
}

func (p *fakePacks) Exists(_ context.Context, _, packID string) (bool, error) {
	_, ok := p.dialogs[packID]
	return ok, nil
}

func (p *fakePacks) ListDialogIDs(_ context.Context, _, packID string) ([]string, error) {
	p.recalcCalls++
	return p.dialogs[packID], nil
}

func (p *fakePacks) ListPackIDsForDialog(_ context.Context, _, dialogID string) ([]string, error) {
	return p.packsByDlg[dialogID], nil
}

type fakeDialogs struct {
	members  map[string][]string
	topics   map[string][]string
	messages map[string]int64
}

func (d *fakeDialogs) ListMemberIDs(_ context.Context, _, dialogID string) ([]string, error) {
	return d.members[dialogID], nil
}

func (d *fakeDialogs) ListTopicIDs(_ context.Context, _, dialogID string) ([]string, error) {
	return d.topics[dialogID], nil
}

func (d *fakeDialogs) CountMembers(_ context.Context, _, dialogID string) (int64, error) {
	return int64(len(d.members[dialogID])), nil
}

func (d *fakeDialogs) CountTopics(_ context.Context, _, dialogID string) (int64, error) {
	return int64(len(d.topics[dialogID])), nil
}

func (d *fakeDialogs) CountMessages(_ context.Context, _, dialogID string) (int64, error) {
	return d.messages[dialogID], nil
}

func (d *fakeDialogs) CountMessagesBySender(_ context.Context, _, _ string) (int64, error) {
	return 0, nil
}

type fakeEmitter struct {
	events []*eventmodel.Event
}

func (e *fakeEmitter) EmitStatsEvent(_ context.Context, ev *eventmodel.Event) error {
	e.events = append(e.events, ev)
	return nil
}

func testEngine() (*Engine, *fakeRepo, *fakePacks, *fakeEmitter) {
	repo := &fakeRepo{
		dialogStats: map[string]*model.DialogStats{
			"d1": {TenantID: "t1", DialogID: "d1", MessageCount: 5},
			"d2": {TenantID: "t1", DialogID: "d2", MessageCount: 3},
		},
		unread: []*model.UserDialogStats{
			{TenantID: "t1", DialogID: "d1", UserID: "u1", UnreadCount: 2},
			{TenantID: "t1", DialogID: "d2", UserID: "u1", UnreadCount: 1},
		},
	}
	packs := &fakePacks{
		dialogs:    map[string][]string{"p1": {"d1", "d2"}},
		packsByDlg: map[string][]string{"d1": {"p1"}, "lonely": nil},
	}
	dialogs := &fakeDialogs{
		members: map[string][]string{"d1": {"u1", "u2"}, "d2": {"u1"}},
		topics:  map[string][]string{"d1": {"topic1"}},
	}
	emitter := &fakeEmitter{}
	return NewEngine(repo, packs, dialogs, emitter), repo, packs, emitter
}

func TestRecalculatePackStats(t *testing.T) {
	engine, repo, _, emitter := testEngine()

	row, err := engine.RecalculatePackStats(context.Background(), "t1", "p1", Options{
		SourceOperation: "message.create", SourceEntityID: "ev1",
	})
	if err != nil {
		t.Fatalf("recalc: %v", err)
	}
	if row.MessageCount != 8 {
		t.Errorf("message count = %d, want 8", row.MessageCount)
	}
	if len(repo.packRows) != 1 {
		t.Fatalf("wrote %d pack rows, want 1", len(repo.packRows))
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != eventmodel.EventPackStatsUpdated {
		t.Fatalf("expected one pack.stats.updated event, got %+v", emitter.events)
	}
}

func TestRecalculatePackStatsNotFound(t *testing.T) {
	engine, _, _, _ := testEngine()
	_, err := engine.RecalculatePackStats(context.Background(), "t1", "nope", Options{})
	if err == nil || errs.Code(err) != errs.RecordNotFoundError {
		t.Fatalf("err = %v, want record not found", err)
	}
}

func TestRecalculateUserPackStats(t *testing.T) {
	engine, repo, _, emitter := testEngine()

	rows, err := engine.RecalculateUserPackStats(context.Background(), "t1", "p1", Options{})
	if err != nil {
		t.Fatalf("recalc: %v", err)
	}
	if rows["u1"].UnreadCount != 3 {
		t.Errorf("u1 unread = %d, want 3", rows["u1"].UnreadCount)
	}
	if len(repo.userPackRows) != 2 {
		t.Errorf("wrote %d user pack rows, want one per member", len(repo.userPackRows))
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != eventmodel.EventUserPackStatsUpdated {
		t.Fatalf("expected one user.pack.stats.updated event, got %+v", emitter.events)
	}
}

func TestRecalculateForDialogNoPacks(t *testing.T) {
	engine, repo, packs, emitter := testEngine()

	if err := engine.RecalculateForDialog(context.Background(), "t1", "lonely", Options{}); err != nil {
		t.Fatalf("recalc: %v", err)
	}
	if packs.recalcCalls != 0 || len(repo.packRows) != 0 || len(emitter.events) != 0 {
		t.Fatal("dialog without packs must not trigger any recompute")
	}
}

func TestRecalculateForDialogCascades(t *testing.T) {
	engine, repo, _, _ := testEngine()

	if err := engine.RecalculateForDialog(context.Background(), "t1", "d1", Options{}); err != nil {
		t.Fatalf("recalc: %v", err)
	}
	if len(repo.packRows) != 1 {
		t.Errorf("wrote %d pack rows, want 1", len(repo.packRows))
	}
	if len(repo.userPackRows) != 2 {
		t.Errorf("wrote %d user pack rows, want 2", len(repo.userPackRows))
	}
}

func TestRecalculateDialogStats(t *testing.T) {
	engine, repo, _, _ := testEngine()

	row, err := engine.RecalculateDialogStats(context.Background(), "t1", "d1")
	if err != nil {
		t.Fatalf("recalc: %v", err)
	}
	if row.MemberCount != 2 || row.TopicCount != 1 {
		t.Errorf("row = %+v, want members=2 topics=1", row)
	}
	if len(repo.dialogRows) != 1 {
		t.Errorf("wrote %d dialog rows, want 1", len(repo.dialogRows))
	}
}

func TestRecalculateUserStats(t *testing.T) {
	engine, repo, _, _ := testEngine()

	row, err := engine.RecalculateUserStats(context.Background(), "t1", "u1")
	if err != nil {
		t.Fatalf("recalc: %v", err)
	}
	if row.DialogCount != 2 || row.TotalUnreadCount != 3 || row.UnreadDialogsCount != 2 {
		t.Errorf("row = %+v", row)
	}
	if len(repo.userRows) != 1 {
		t.Errorf("wrote %d user rows, want 1", len(repo.userRows))
	}
}
