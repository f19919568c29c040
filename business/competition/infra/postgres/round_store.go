package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fd1az/autopilot/business/competition/domain"
	"github.com/fd1az/autopilot/internal/apperror"
	"github.com/fd1az/autopilot/internal/asset"
)

// ErrDuplicateRound is returned when a round id is saved twice.
var ErrDuplicateRound = errors.New("round already stored")

// RoundStore implements app.Store on PostgreSQL.
type RoundStore struct {
	pool *Pool
}

// NewRoundStore creates a RoundStore.
func NewRoundStore(pool *Pool) *RoundStore {
	return &RoundStore{pool: pool}
}

// SaveRound stores a round and its winners in one transaction.
func (s *RoundStore) SaveRound(ctx context.Context, r domain.RoundSummary) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperror.Wrap(fmt.Errorf("begin tx: %w", err), apperror.CodeStoreFailed, "save round")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO rounds (
			id, auction_id, block, orders, solutions, filtered_out,
			solvers_queried, solvers_responded, started_at, finished_at
		) VALUES ($1::text::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		r.ID.String(), int64(r.AuctionID), int64(r.Block), r.Orders, r.Solutions, r.FilteredOut,
		r.SolversQueried, r.SolversResponded, r.StartedAt.UTC(), r.FinishedAt.UTC(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return apperror.Wrap(ErrDuplicateRound, apperror.CodeStoreFailed, r.ID.String())
		}
		return apperror.Wrap(fmt.Errorf("insert round: %w", err), apperror.CodeStoreFailed, r.ID.String())
	}

	for i, w := range r.Winners {
		_, err := tx.Exec(ctx, `
			INSERT INTO round_winners (
				round_id, position, solver, solver_address, solution_id,
				score_wei, reference_wei, orders
			) VALUES ($1::text::uuid, $2, $3, $4, $5::text::numeric, $6::text::numeric, $7::text::numeric, $8)
		`,
			r.ID.String(), i, w.Solver, w.Address.Hex(),
			new(big.Int).SetUint64(uint64(w.SolutionID)).String(),
			w.Score.Wei().String(), w.Reference.Wei().String(), w.Orders,
		)
		if err != nil {
			return apperror.Wrap(fmt.Errorf("insert winner: %w", err), apperror.CodeStoreFailed, r.ID.String())
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.Wrap(fmt.Errorf("commit tx: %w", err), apperror.CodeStoreFailed, r.ID.String())
	}
	return nil
}

// RecentRounds returns up to limit rounds, newest first.
func (s *RoundStore) RecentRounds(ctx context.Context, limit int) ([]domain.RoundSummary, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id::text, auction_id, block, orders, solutions, filtered_out,
		       solvers_queried, solvers_responded, started_at, finished_at
		FROM rounds
		ORDER BY finished_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apperror.Wrap(fmt.Errorf("query rounds: %w", err), apperror.CodeStoreFailed, "recent rounds")
	}

	var (
		rounds []domain.RoundSummary
		index  = make(map[uuid.UUID]int)
	)
	for rows.Next() {
		var (
			id                string
			auctionID, block  int64
			started, finished time.Time
			r                 domain.RoundSummary
		)
		if err := rows.Scan(&id, &auctionID, &block, &r.Orders, &r.Solutions, &r.FilteredOut,
			&r.SolversQueried, &r.SolversResponded, &started, &finished); err != nil {
			rows.Close()
			return nil, apperror.Wrap(fmt.Errorf("scan round: %w", err), apperror.CodeStoreFailed, "recent rounds")
		}
		r.ID, err = uuid.Parse(id)
		if err != nil {
			rows.Close()
			return nil, apperror.Wrap(err, apperror.CodeStoreFailed, "recent rounds")
		}
		r.AuctionID = domain.AuctionID(auctionID)
		r.Block = uint64(block)
		r.StartedAt = started.UTC()
		r.FinishedAt = finished.UTC()

		index[r.ID] = len(rounds)
		rounds = append(rounds, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperror.Wrap(fmt.Errorf("iterate rounds: %w", err), apperror.CodeStoreFailed, "recent rounds")
	}
	if len(rounds) == 0 {
		return rounds, nil
	}

	ids := make([]string, 0, len(rounds))
	for _, r := range rounds {
		ids = append(ids, r.ID.String())
	}

	winnerRows, err := s.pool.Query(ctx, `
		SELECT round_id::text, solver, solver_address, solution_id::text,
		       score_wei::text, reference_wei::text, orders
		FROM round_winners
		WHERE round_id::text = ANY($1)
		ORDER BY round_id, position
	`, ids)
	if err != nil {
		return nil, apperror.Wrap(fmt.Errorf("query winners: %w", err), apperror.CodeStoreFailed, "recent rounds")
	}
	defer winnerRows.Close()

	for winnerRows.Next() {
		roundID, w, err := scanWinner(winnerRows)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeStoreFailed, "recent rounds")
		}
		if i, ok := index[roundID]; ok {
			rounds[i].Winners = append(rounds[i].Winners, w)
		}
	}
	if err := winnerRows.Err(); err != nil {
		return nil, apperror.Wrap(fmt.Errorf("iterate winners: %w", err), apperror.CodeStoreFailed, "recent rounds")
	}

	return rounds, nil
}

func scanWinner(row pgx.Row) (uuid.UUID, domain.WinnerSummary, error) {
	var (
		roundID, address, solutionID string
		score, reference             string
		w                            domain.WinnerSummary
	)
	if err := row.Scan(&roundID, &w.Solver, &address, &solutionID, &score, &reference, &w.Orders); err != nil {
		return uuid.UUID{}, w, fmt.Errorf("scan winner: %w", err)
	}

	id, err := uuid.Parse(roundID)
	if err != nil {
		return uuid.UUID{}, w, fmt.Errorf("parse round id: %w", err)
	}
	if !common.IsHexAddress(address) {
		return uuid.UUID{}, w, fmt.Errorf("invalid solver address %q", address)
	}
	w.Address = common.HexToAddress(address)

	sid, ok := new(big.Int).SetString(solutionID, 10)
	if !ok || !sid.IsUint64() {
		return uuid.UUID{}, w, fmt.Errorf("invalid solution id %q", solutionID)
	}
	w.SolutionID = domain.SolutionID(sid.Uint64())

	if w.Score, err = parseScore(score); err != nil {
		return uuid.UUID{}, w, err
	}
	if w.Reference, err = parseScore(reference); err != nil {
		return uuid.UUID{}, w, err
	}
	return id, w, nil
}

func parseScore(wei string) (domain.Score, error) {
	amount, err := asset.ParseTokenAmount(wei)
	if err != nil {
		return domain.Score{}, fmt.Errorf("parse score: %w", err)
	}
	return domain.NewScore(asset.EtherFromAmount(amount))
}
