package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/schedule"
	"github.com/jmylchreest/toastd/internal/toast"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(id string, kind model.Kind, closedAfter time.Duration) Record {
	return Record{
		ID:         id,
		Kind:       kind,
		Title:      "title " + id,
		Body:       "body " + id,
		DurationMs: 5000,
		Reason:     model.ReasonExpired,
		CreatedAt:  base,
		ClosedAt:   base.Add(closedAfter),
	}
}

func TestStore_AddAndGet(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	rec := testRecord("a", model.KindSuccess, 5*time.Second)
	require.NoError(t, s.Add(ctx, rec))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Kind, got.Kind)
	assert.Equal(t, rec.Title, got.Title)
	assert.Equal(t, rec.Reason, got.Reason)
	assert.True(t, rec.ClosedAt.Equal(got.ClosedAt))
	assert.Equal(t, 5*time.Second, got.Lifetime())

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_AddDuplicateIgnored(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, testRecord("a", model.KindInfo, time.Second)))
	require.NoError(t, s.Add(ctx, testRecord("a", model.KindError, time.Second)))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, model.KindInfo, got.Kind)
}

func TestStore_Recent(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	require.NoError(t, s.AddBatch(ctx, []Record{
		testRecord("a", model.KindSuccess, 1*time.Second),
		testRecord("b", model.KindError, 2*time.Second),
		testRecord("c", model.KindError, 3*time.Second),
		testRecord("d", model.KindInfo, 4*time.Second),
	}))

	tests := []struct {
		name string
		opts FilterOptions
		want []string
	}{
		{"all newest first", FilterOptions{}, []string{"d", "c", "b", "a"}},
		{"limit", FilterOptions{Limit: 2}, []string{"d", "c"}},
		{"kind", FilterOptions{Kind: model.KindError}, []string{"c", "b"}},
		{"since", FilterOptions{Since: base.Add(3 * time.Second)}, []string{"d", "c"}},
		{"search", FilterOptions{Search: "body b"}, []string{"b"}},
		{"reason", FilterOptions{Reason: model.ReasonDismissed}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := s.Recent(ctx, tt.opts)
			require.NoError(t, err)
			var ids []string
			for _, r := range recs {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_Prune(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	var recs []Record
	for i := range 10 {
		recs = append(recs, testRecord(fmt.Sprintf("r%02d", i), model.KindInfo, time.Duration(i)*time.Minute))
	}
	require.NoError(t, s.AddBatch(ctx, recs))

	deleted, err := s.Prune(ctx, base.Add(3*time.Minute), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	deleted, err = s.Prune(ctx, time.Time{}, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	left, err := s.Recent(ctx, FilterOptions{})
	require.NoError(t, err)
	require.Len(t, left, 4)
	assert.Equal(t, "r09", left[0].ID)
	assert.Equal(t, "r06", left[3].ID)
}

func TestStore_Clear(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, testRecord("a", model.KindInfo, 0)))
	require.NoError(t, s.Clear(ctx))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStore_Subscribe(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	ch := s.Subscribe()
	require.NoError(t, s.Add(ctx, testRecord("a", model.KindInfo, 0)))

	select {
	case ev := <-ch:
		assert.Equal(t, ChangeTypeAdd, ev.Type)
		assert.Equal(t, 1, ev.Count)
	case <-time.After(time.Second):
		t.Fatal("no change event")
	}

	s.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestStore_Closed(t *testing.T) {
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	ch := s.Subscribe()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, ok := <-ch
	assert.False(t, ok)
	assert.ErrorIs(t, s.Add(context.Background(), testRecord("a", model.KindInfo, 0)), ErrStoreClosed)
	_, err = s.Recent(context.Background(), FilterOptions{})
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestStore_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, testRecord("a", model.KindWarning, time.Second)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, model.KindWarning, got.Kind)
}

func TestWithTx_Rollback(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := WithTx(ctx, s.DB(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO history (id, kind, duration_ms, reason, created_at, closed_at)
			VALUES ('x', 'info', 0, 3, 0, 0)`); err != nil {
			return err
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRecordFromToast(t *testing.T) {
	tt := model.NewToast("id1", model.Options{Kind: "error", Title: "T"}, 5000, base)
	require.NoError(t, tt.Start(base))
	require.NoError(t, tt.BeginClose(base.Add(2*time.Second), model.ReasonDismissed))

	rec := RecordFromToast(tt)
	assert.Equal(t, "id1", rec.ID)
	assert.Equal(t, model.KindError, rec.Kind)
	assert.Equal(t, model.ReasonDismissed, rec.Reason)
	assert.Equal(t, 2*time.Second, rec.Lifetime())
}

func TestRecorder_RecordsDestroyedToasts(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	sched := schedule.NewFake(base)
	center := toast.New(sched, toast.DefaultConfig(), nil)
	rec := NewRecorder(s, 8, nil)
	center.Subscribe(rec.Listener())
	rec.Start(ctx)

	id := center.Show(model.Options{Kind: "success", Title: "done"})
	sched.Advance(6 * time.Second)
	require.Equal(t, 0, center.Len())

	rec.Stop()

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ReasonExpired, got.Reason)
	assert.Equal(t, "done", got.Title)
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	s := openTest(t)
	rec := NewRecorder(s, 1, nil)
	l := rec.Listener()

	tt := model.NewToast("a", model.Options{}, 0, base)
	l(toast.Event{Type: toast.EventDestroyed, Toast: tt})
	tt2 := model.NewToast("b", model.Options{}, 0, base)
	l(toast.Event{Type: toast.EventDestroyed, Toast: tt2})
	l(toast.Event{Type: toast.EventVisible, Toast: tt2})

	assert.Len(t, rec.queue, 1)
}
