package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fd1az/autopilot/business/competition/domain"
	"github.com/fd1az/autopilot/internal/apperror"
)

func setupTestDB(t *testing.T) *Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("autopilot"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	applied, err := pool.RunMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_rounds.sql", "002_winners.sql"}, applied)

	// idempotent
	_, err = pool.RunMigrations(ctx)
	require.NoError(t, err)

	return pool
}

func summary(auction domain.AuctionID, finished time.Time, winners ...domain.WinnerSummary) domain.RoundSummary {
	return domain.RoundSummary{
		ID:               uuid.New(),
		AuctionID:        auction,
		Block:            19_000_000 + uint64(auction),
		Orders:           12,
		Solutions:        4,
		FilteredOut:      1,
		SolversQueried:   3,
		SolversResponded: 2,
		Winners:          winners,
		StartedAt:        finished.Add(-2 * time.Second),
		FinishedAt:       finished,
	}
}

func TestRoundStore_SaveAndRecent(t *testing.T) {
	pool := setupTestDB(t)
	store := NewRoundStore(pool)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	large, err := parseScore("123456789012345678901234567890")
	require.NoError(t, err)

	first := summary(100, base, domain.WinnerSummary{
		Solver:     "baseline",
		Address:    common.HexToAddress("0x0a"),
		SolutionID: domain.SolutionID(^uint64(0)),
		Score:      large,
		Reference:  domain.ScoreFromWei(7),
		Orders:     2,
	})
	second := summary(101, base.Add(12*time.Second),
		domain.WinnerSummary{Solver: "a", Address: common.HexToAddress("0x0b"), SolutionID: 1, Score: domain.ScoreFromWei(50), Reference: domain.ScoreFromWei(40), Orders: 1},
		domain.WinnerSummary{Solver: "b", Address: common.HexToAddress("0x0c"), SolutionID: 2, Score: domain.ScoreFromWei(30), Orders: 1},
	)
	empty := summary(102, base.Add(24*time.Second))

	for _, r := range []domain.RoundSummary{first, second, empty} {
		require.NoError(t, store.SaveRound(ctx, r))
	}

	rounds, err := store.RecentRounds(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rounds, 2)

	assert.Equal(t, empty.ID, rounds[0].ID)
	assert.Empty(t, rounds[0].Winners)

	got := rounds[1]
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, second.AuctionID, got.AuctionID)
	assert.Equal(t, second.Block, got.Block)
	assert.Equal(t, second.SolversResponded, got.SolversResponded)
	assert.True(t, second.FinishedAt.Equal(got.FinishedAt))
	require.Len(t, got.Winners, 2)
	assert.Equal(t, "a", got.Winners[0].Solver)
	assert.Equal(t, "b", got.Winners[1].Solver)
	assert.Equal(t, 0, got.Winners[0].Score.Cmp(domain.ScoreFromWei(50)))
	assert.True(t, got.Winners[1].Reference.IsZero())

	all, err := store.RecentRounds(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	w := all[2].Winners[0]
	assert.Equal(t, domain.SolutionID(^uint64(0)), w.SolutionID)
	assert.Equal(t, 0, w.Score.Cmp(large))
	assert.Equal(t, common.HexToAddress("0x0a"), w.Address)
}

func TestRoundStore_DuplicateRound(t *testing.T) {
	pool := setupTestDB(t)
	store := NewRoundStore(pool)
	ctx := context.Background()

	r := summary(7, time.Now().UTC())
	require.NoError(t, store.SaveRound(ctx, r))

	err := store.SaveRound(ctx, r)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateRound)
	assert.Equal(t, apperror.CodeStoreFailed, apperror.GetCode(err))
}
