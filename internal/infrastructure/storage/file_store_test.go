package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WorkshopScheduler/internal/domain"
)

var (
	targetDate = time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC)
	fixedNow   = time.Date(2026, time.January, 5, 17, 0, 0, 0, time.UTC)
)

func clock(ts ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := ts[min(i, len(ts)-1)]
		i++
		return t
	}
}

func sampleProposal() domain.ScheduleProposal {
	return domain.ScheduleProposal{
		ID:         "p-1",
		TargetDate: targetDate,
		Roster:     []string{"R1", "R2"},
		Assignments: map[string][]domain.Assignment{
			"R1": {{Resource: "R1", Slot: "T1", ItemID: "c1", ReferenceCode: "W1", Category: "maintenance", Priority: domain.PriorityHigh}},
			"R2": {},
		},
		Unassigned: []domain.WorkItem{{ID: "c9", ReferenceCode: "W9", Category: "maintenance", Priority: domain.PriorityLow}},
		Approved:   true,
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStore(dir, WithClock(clock(fixedNow)))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleProposal()))
	assert.FileExists(t, filepath.Join(dir, "proposal_2026-01-06.json"))

	got, err := store.Load(ctx, targetDate)
	require.NoError(t, err)

	want := sampleProposal()
	want.Approved = false
	want.CreatedAt = fixedNow
	assert.Equal(t, want, got)
}

func TestFileStoreLoadMissing(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())

	_, err := store.Load(context.Background(), targetDate)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.MarkApproved(context.Background(), targetDate, "p-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFileStoreMarkApprovedOnce(t *testing.T) {
	t.Parallel()

	approvedAt := fixedNow.Add(time.Hour)
	store := NewFileStore(t.TempDir(), WithClock(clock(fixedNow, approvedAt, approvedAt.Add(time.Hour))))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleProposal()))

	first, err := store.MarkApproved(ctx, targetDate, "p-1")
	require.NoError(t, err)
	assert.True(t, first.Approved)
	require.NotNil(t, first.ApprovedAt)
	assert.Equal(t, approvedAt, *first.ApprovedAt)

	second, err := store.MarkApproved(ctx, targetDate, "p-1")
	assert.ErrorIs(t, err, domain.ErrAlreadyApproved)
	require.NotNil(t, second.ApprovedAt)
	assert.Equal(t, approvedAt, *second.ApprovedAt, "stored approval is untouched")

	loaded, err := store.Load(ctx, targetDate)
	require.NoError(t, err)
	assert.Equal(t, first, loaded)
}

func TestFileStoreSaveResetsApproval(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleProposal()))
	_, err := store.MarkApproved(ctx, targetDate, "p-1")
	require.NoError(t, err)

	replacement := sampleProposal()
	replacement.ID = "p-2"
	require.NoError(t, store.Save(ctx, replacement))

	got, err := store.Load(ctx, targetDate)
	require.NoError(t, err)
	assert.Equal(t, "p-2", got.ID)
	assert.False(t, got.Approved)
	assert.Nil(t, got.ApprovedAt)
}

func TestFileStoreAssignsIDAndLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStore(dir)

	p := sampleProposal()
	p.ID = ""
	require.NoError(t, store.Save(context.Background(), p))

	got, err := store.Load(context.Background(), targetDate)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "proposal_2026-01-06.json", entries[0].Name())
}

func TestFileStoreCorruptFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStore(dir)
	require.NoError(t, os.WriteFile(store.Path(targetDate), []byte("{not json"), 0o644))

	_, err := store.Load(context.Background(), targetDate)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestFileStoreMarkApprovedRejectsReplacedProposal(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleProposal()))
	replacement := sampleProposal()
	replacement.ID = "p-2"
	require.NoError(t, store.Save(ctx, replacement))

	_, err := store.MarkApproved(ctx, targetDate, "p-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := store.Load(ctx, targetDate)
	require.NoError(t, err)
	assert.Equal(t, "p-2", got.ID)
	assert.False(t, got.Approved, "the replacement was never committed")
}
