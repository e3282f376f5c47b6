package discussion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/rate-my-mr/internal/core"
	"github.com/sevigo/rate-my-mr/mocks"
)

const (
	header  = "== HEADER ==\n"
	project = "group/app"
	iid     = 7
)

func newReconciler(client *mocks.MockPlatform) *Reconciler {
	return NewReconciler(client, header, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeThreads is a stateful in-memory discussion store.
type fakeThreads struct {
	threads []core.Thread
	writes  int
}

func (f *fakeThreads) install(m *mocks.MockPlatform) {
	m.EXPECT().ListThreads(gomock.Any(), project, iid).DoAndReturn(
		func(context.Context, string, int) ([]core.Thread, error) {
			out := make([]core.Thread, len(f.threads))
			for i, t := range f.threads {
				out[i] = core.Thread{ID: t.ID, Notes: append([]core.Note(nil), t.Notes...)}
			}
			return out, nil
		}).AnyTimes()
	m.EXPECT().CreateThread(gomock.Any(), project, iid, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, _ int, body string) error {
			f.writes++
			f.threads = append(f.threads, core.Thread{ID: "new", Notes: []core.Note{{ID: 100, Body: body}}})
			return nil
		}).AnyTimes()
	m.EXPECT().UpdateNote(gomock.Any(), project, iid, gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, _ int, threadID string, noteID int64, body string) error {
			f.writes++
			f.note(threadID, noteID).Body = body
			return nil
		}).AnyTimes()
	m.EXPECT().SetNoteResolved(gomock.Any(), project, iid, gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, _ int, threadID string, noteID int64, resolved bool) error {
			f.writes++
			f.note(threadID, noteID).Resolved = resolved
			return nil
		}).AnyTimes()
}

func (f *fakeThreads) note(threadID string, noteID int64) *core.Note {
	for i := range f.threads {
		if f.threads[i].ID != threadID {
			continue
		}
		for j := range f.threads[i].Notes {
			if f.threads[i].Notes[j].ID == noteID {
				return &f.threads[i].Notes[j]
			}
		}
	}
	panic("unknown note")
}

func TestReconcile_IdenticalReportTwice(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPlatform(ctrl)
	store := &fakeThreads{}
	store.install(client)
	r := newReconciler(client)

	body := header + "score 5/5"
	first, err := r.Reconcile(context.Background(), project, iid, body, false)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, 1, first.Mutations())

	second, err := r.Reconcile(context.Background(), project, iid, body, false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Mutations())
	assert.Equal(t, 1, store.writes)
	assert.Len(t, store.threads, 1)
}

func TestReconcile_PassToFailUnresolves(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPlatform(ctrl)
	store := &fakeThreads{threads: []core.Thread{
		{ID: "d1", Notes: []core.Note{{ID: 1, Body: header + "score 5/5", Resolved: true}}},
	}}
	store.install(client)

	out, err := newReconciler(client).Reconcile(context.Background(), project, iid, header+"score 1/5", true)
	require.NoError(t, err)
	assert.True(t, out.Unresolved)
	assert.True(t, out.Updated)
	assert.False(t, out.Resolved)

	n := store.note("d1", 1)
	assert.False(t, n.Resolved)
	assert.Equal(t, header+"score 1/5", n.Body)
}

func TestReconcile_FailToPassResolves(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPlatform(ctrl)
	store := &fakeThreads{threads: []core.Thread{
		{ID: "d1", Notes: []core.Note{{ID: 1, Body: header + "score 1/5"}}},
	}}
	store.install(client)

	out, err := newReconciler(client).Reconcile(context.Background(), project, iid, header+"score 5/5", false)
	require.NoError(t, err)
	assert.True(t, out.Updated)
	assert.True(t, out.Resolved)
	assert.Equal(t, "d1", out.ThreadID)
	assert.True(t, store.note("d1", 1).Resolved)
}

func TestReconcile_IdenticalResolvedBodyReopened(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPlatform(ctrl)
	body := header + "score 2/5"
	store := &fakeThreads{threads: []core.Thread{
		{ID: "d1", Notes: []core.Note{{ID: 1, Body: body, Resolved: true}}},
	}}
	store.install(client)

	out, err := newReconciler(client).Reconcile(context.Background(), project, iid, body, true)
	require.NoError(t, err)
	assert.True(t, out.Unresolved)
	assert.False(t, out.Updated)
	assert.Equal(t, 1, out.Mutations())
}

func TestReconcile_FirstOwnedThreadWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPlatform(ctrl)
	store := &fakeThreads{threads: []core.Thread{
		{ID: "other", Notes: []core.Note{{ID: 1, Body: "looks good to me"}, {ID: 2, Body: header + "quoted in a reply"}}},
		{ID: "owned", Notes: []core.Note{{ID: 3, Body: header + "old"}}},
		{ID: "dup", Notes: []core.Note{{ID: 4, Body: header + "older"}}},
		{ID: "empty"},
	}}
	store.install(client)

	out, err := newReconciler(client).Reconcile(context.Background(), project, iid, header+"new", true)
	require.NoError(t, err)
	assert.Equal(t, "owned", out.ThreadID)
	assert.Equal(t, header+"new", store.note("owned", 3).Body)
	assert.Equal(t, header+"older", store.note("dup", 4).Body)
	assert.Equal(t, header+"quoted in a reply", store.note("other", 2).Body)
}

func TestReconcile_FetchFailureIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPlatform(ctrl)
	boom := errors.New("502 bad gateway")
	client.EXPECT().ListThreads(gomock.Any(), project, iid).Return(nil, boom)

	out, err := newReconciler(client).Reconcile(context.Background(), project, iid, header+"x", false)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, out.Mutations())
}

func TestReconcile_UpdateFailureStopsBeforeResolve(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPlatform(ctrl)
	boom := errors.New("forbidden")
	client.EXPECT().ListThreads(gomock.Any(), project, iid).Return([]core.Thread{
		{ID: "d1", Notes: []core.Note{{ID: 1, Body: header + "old"}}},
	}, nil)
	client.EXPECT().UpdateNote(gomock.Any(), project, iid, "d1", int64(1), header+"new").Return(boom)

	_, err := newReconciler(client).Reconcile(context.Background(), project, iid, header+"new", false)
	require.ErrorIs(t, err, boom)
}

func TestReconcile_CreateFailureIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPlatform(ctrl)
	boom := errors.New("timeout")
	client.EXPECT().ListThreads(gomock.Any(), project, iid).Return(nil, nil)
	client.EXPECT().CreateThread(gomock.Any(), project, iid, header+"x").Return(boom)

	_, err := newReconciler(client).Reconcile(context.Background(), project, iid, header+"x", false)
	require.ErrorIs(t, err, boom)
}

func TestReconcile_RejectsBodyWithoutHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPlatform(ctrl)

	_, err := newReconciler(client).Reconcile(context.Background(), project, iid, "no header", false)
	require.ErrorIs(t, err, ErrMissingHeader)
}
