package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rangeswap/internal/model"
)

// Store provides Postgres persistence for pool snapshots and events.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPoolSnapshots inserts or updates pool state rows.
func (s *Store) UpsertPoolSnapshots(ctx context.Context, snapshots []model.PoolSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snapshot := range snapshots {
		batch.Queue(`
			INSERT INTO pools (
				pool_address, token0, token1, fee, tick_lower, tick_upper,
				sqrt_price_x96, liquidity, fee_growth_global0_x128, fee_growth_global1_x128,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
			ON CONFLICT (pool_address)
			DO UPDATE SET
				sqrt_price_x96 = EXCLUDED.sqrt_price_x96,
				liquidity = EXCLUDED.liquidity,
				fee_growth_global0_x128 = EXCLUDED.fee_growth_global0_x128,
				fee_growth_global1_x128 = EXCLUDED.fee_growth_global1_x128,
				updated_at = now()
		`,
			snapshot.Address,
			snapshot.Token0,
			snapshot.Token1,
			snapshot.Fee,
			snapshot.TickLower,
			snapshot.TickUpper,
			snapshot.SqrtPriceX96,
			snapshot.Liquidity,
			snapshot.FeeGrowthGlobal0X128,
			snapshot.FeeGrowthGlobal1X128,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertEvents appends journal events in order.
func (s *Store) InsertEvents(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		batch.Queue(`
			INSERT INTO pool_events (event_name, pool_address, payload, created_at)
			VALUES ($1, $2, $3, now())
		`,
			event.EventName,
			event.Pool,
			payload,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
