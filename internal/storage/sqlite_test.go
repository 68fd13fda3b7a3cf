package storage

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	logx "motibot/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "subscribers.db"),
		BusyTimeout: time.Second,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSubscribeIdempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.Subscribe(ctx, 100, "Asha", "Asia/Kolkata"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	// Re-subscribing the same chat is a no-op, not an error.
	if err := st.Subscribe(ctx, 100, "Asha Again", "Asia/Kolkata"); err != nil {
		t.Fatalf("duplicate Subscribe: %v", err)
	}

	ids, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 1 || ids[0] != 100 {
		t.Fatalf("ids = %v, want [100]", ids)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.Unsubscribe(ctx, 999); err != nil {
		t.Fatalf("Unsubscribe of absent id: %v", err)
	}

	if err := st.Subscribe(ctx, 1, "A", "UTC"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := st.Unsubscribe(ctx, 1); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if err := st.Unsubscribe(ctx, 1); err != nil {
		t.Fatalf("second Unsubscribe: %v", err)
	}

	ids, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("ids = %v, want empty", ids)
	}
}

func TestMembershipFoldsLikeASet(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	ops := []struct {
		sub bool
		id  int64
	}{
		{true, 1}, {true, 2}, {true, 1}, {false, 3},
		{true, 3}, {false, 2}, {true, 2}, {false, 1},
	}
	want := map[int64]bool{}
	for _, op := range ops {
		if op.sub {
			if err := st.Subscribe(ctx, op.id, "", "UTC"); err != nil {
				t.Fatalf("Subscribe(%d): %v", op.id, err)
			}
			want[op.id] = true
		} else {
			if err := st.Unsubscribe(ctx, op.id); err != nil {
				t.Fatalf("Unsubscribe(%d): %v", op.id, err)
			}
			delete(want, op.id)
		}
	}

	ids, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	slices.Sort(ids)
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want members of %v", ids, want)
	}
	for _, id := range ids {
		if !want[id] {
			t.Fatalf("unexpected member %d", id)
		}
	}
}

func TestOpenSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subscribers.db")
	ctx := context.Background()

	st, err := Open(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Subscribe(ctx, 7, "B", "UTC"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st2, err := Open(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	ids, err := st2.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 1 || ids[0] != 7 {
		t.Fatalf("ids after reopen = %v, want [7]", ids)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty path")
	}
}
