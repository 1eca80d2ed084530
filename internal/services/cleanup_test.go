package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bancozim/origination/repository"
)

// sweepRow mirrors one delivered application as the sweep sees it: the
// delivery timestamp plus the exemption and soft-delete flags.
type sweepRow struct {
	sessionID   string
	deliveredAt time.Time
	exempt      bool
	deletedAt   *time.Time
}

type sweepStateRepo struct {
	*listStateRepo
	rows []*sweepRow
}

func (r *sweepStateRepo) SweepDelivered(_ context.Context, cutoff time.Time, _ int, dryRun bool) (repository.CleanupReport, error) {
	var report repository.CleanupReport
	now := time.Now()
	for _, row := range r.rows {
		if !row.deliveredAt.Before(cutoff) {
			continue
		}
		switch {
		case row.deletedAt != nil:
			report.AlreadyDeleted++
		case row.exempt:
			report.Exempt++
		default:
			report.Deleted++
			if !dryRun {
				row.deletedAt = &now
			}
		}
	}
	return report, nil
}

func sweepFixture() *sweepStateRepo {
	old := time.Now().Add(-120 * 24 * time.Hour)
	recent := time.Now().Add(-10 * 24 * time.Hour)
	gone := time.Now().Add(-time.Hour)
	return &sweepStateRepo{
		listStateRepo: &listStateRepo{},
		rows: []*sweepRow{
			{sessionID: "stale", deliveredAt: old},
			{sessionID: "stale-exempt", deliveredAt: old, exempt: true},
			{sessionID: "stale-gone", deliveredAt: old, deletedAt: &gone},
			{sessionID: "recent", deliveredAt: recent},
		},
	}
}

func TestCleanupRunDeletesOnlyEligibleRows(t *testing.T) {
	repo := sweepFixture()
	cleanup := NewCleanup(repo, nil, CleanupConfig{Retention: 90 * 24 * time.Hour})

	report, err := cleanup.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, repository.CleanupReport{Deleted: 1, Exempt: 1, AlreadyDeleted: 1}, report)
	assert.NotNil(t, repo.rows[0].deletedAt, "stale row is soft-deleted")
	assert.Nil(t, repo.rows[1].deletedAt, "exempt row is skipped")
	assert.Nil(t, repo.rows[3].deletedAt, "recently delivered row is untouched")
}

func TestCleanupDryRunCountsWithoutDeleting(t *testing.T) {
	repo := sweepFixture()
	cleanup := NewCleanup(repo, nil, CleanupConfig{Retention: 90 * 24 * time.Hour, DryRun: true})

	report, err := cleanup.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Deleted, "dry run reports what would be deleted")
	assert.Equal(t, 1, report.Exempt)
	assert.Equal(t, 1, report.AlreadyDeleted)
	assert.Nil(t, repo.rows[0].deletedAt, "dry run deletes nothing")

	// A second, real run still finds the row.
	cleanup = NewCleanup(repo, nil, CleanupConfig{Retention: 90 * 24 * time.Hour})
	report, err = cleanup.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.NotNil(t, repo.rows[0].deletedAt)
}

func TestCleanupDefaults(t *testing.T) {
	cleanup := NewCleanup(&listStateRepo{}, nil, CleanupConfig{})

	assert.Equal(t, "0 0 2 * * *", cleanup.cfg.Schedule)
	assert.Equal(t, 90*24*time.Hour, cleanup.cfg.Retention)
	assert.Equal(t, 500, cleanup.cfg.BatchSize)
}
