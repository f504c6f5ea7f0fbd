package persistence

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore is the production Store, backed by a pgx connection
// pool. Hand archival writes the hand row and every participant row in
// one transaction so a reader never observes a hand with a partial
// seat list.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens the pool and pings it once so startup fails
// fast on a bad DSN rather than on the first hand archive.
func ConnectPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("persistence: ping: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// InitSchema applies the embedded schema. Safe to call on every
// startup: every statement is idempotent (CREATE ... IF NOT EXISTS).
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("persistence: init schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) SaveHand(ctx context.Context, hand HandRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("persistence: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO hands (id, table_id, hand_number, played_at, community, pot_total, history_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		hand.ID, hand.TableID, hand.HandNumber, hand.PlayedAt, hand.Community, hand.PotTotal, hand.HistoryText)
	if err != nil {
		return fmt.Errorf("persistence: insert hand: %w", err)
	}

	for _, p := range hand.Participants {
		_, err = tx.Exec(ctx, `
			INSERT INTO hand_players
				(hand_id, seat, identity, handle, starting_stack, ending_stack,
				 total_committed, won_amount, final_hand_name, folded)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (hand_id, seat) DO NOTHING`,
			hand.ID, p.Seat, p.Identity, p.Handle, p.StartingStack, p.EndingStack,
			p.TotalCommitted, p.WonAmount, p.FinalHandName, p.Folded)
		if err != nil {
			return fmt.Errorf("persistence: insert hand_player seat %d: %w", p.Seat, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetHand(ctx context.Context, handID string) (*HandRecord, error) {
	var h HandRecord
	err := s.pool.QueryRow(ctx, `
		SELECT id, table_id, hand_number, played_at, community, pot_total, history_text
		FROM hands WHERE id = $1`, handID,
	).Scan(&h.ID, &h.TableID, &h.HandNumber, &h.PlayedAt, &h.Community, &h.PotTotal, &h.HistoryText)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: get hand: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT seat, identity, handle, starting_stack, ending_stack,
		       total_committed, won_amount, final_hand_name, folded
		FROM hand_players WHERE hand_id = $1 ORDER BY seat`, handID)
	if err != nil {
		return nil, fmt.Errorf("persistence: get hand_players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p ParticipantRecord
		if err := rows.Scan(&p.Seat, &p.Identity, &p.Handle, &p.StartingStack, &p.EndingStack,
			&p.TotalCommitted, &p.WonAmount, &p.FinalHandName, &p.Folded); err != nil {
			return nil, fmt.Errorf("persistence: scan hand_player: %w", err)
		}
		h.Participants = append(h.Participants, p)
	}
	return &h, rows.Err()
}

func (s *PostgresStore) ListHandsByIdentity(ctx context.Context, identity []byte, limit, offset int) ([]HandRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT h.id, h.table_id, h.hand_number, h.played_at, h.community, h.pot_total, h.history_text
		FROM hands h
		JOIN hand_players hp ON hp.hand_id = h.id
		WHERE hp.identity = $1
		ORDER BY h.played_at DESC
		LIMIT $2 OFFSET $3`, identity, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("persistence: list hands: %w", err)
	}
	defer rows.Close()

	var hands []HandRecord
	for rows.Next() {
		var h HandRecord
		if err := rows.Scan(&h.ID, &h.TableID, &h.HandNumber, &h.PlayedAt, &h.Community, &h.PotTotal, &h.HistoryText); err != nil {
			return nil, fmt.Errorf("persistence: scan hand: %w", err)
		}
		hands = append(hands, h)
	}
	return hands, rows.Err()
}

func (s *PostgresStore) GetPlayer(ctx context.Context, identity []byte) (*PlayerRecord, error) {
	var p PlayerRecord
	p.Identity = identity
	err := s.pool.QueryRow(ctx, `
		SELECT handle, stack, hand_count, updated_at FROM players WHERE identity = $1`, identity,
	).Scan(&p.Handle, &p.Stack, &p.HandCount, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: get player: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) UpsertPlayerStack(ctx context.Context, identity []byte, handle string, stack int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO players (identity, handle, stack, hand_count, updated_at)
		VALUES ($1, $2, $3, 1, now())
		ON CONFLICT (identity) DO UPDATE
		SET handle = EXCLUDED.handle, stack = EXCLUDED.stack,
		    hand_count = players.hand_count + 1, updated_at = now()`,
		identity, handle, stack)
	if err != nil {
		return fmt.Errorf("persistence: upsert player: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsBanned(ctx context.Context, ip string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ip_bans WHERE ip = $1)`, ip).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("persistence: is banned: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Ban(ctx context.Context, ip, reason string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ip_bans (ip, reason) VALUES ($1, $2)
		ON CONFLICT (ip) DO UPDATE SET reason = EXCLUDED.reason, banned_at = now()`, ip, reason)
	if err != nil {
		return fmt.Errorf("persistence: ban: %w", err)
	}
	return nil
}

func (s *PostgresStore) Unban(ctx context.Context, ip string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM ip_bans WHERE ip = $1`, ip)
	if err != nil {
		return fmt.Errorf("persistence: unban: %w", err)
	}
	return nil
}

func (s *PostgresStore) LogAbuse(ctx context.Context, identity []byte, kind, detail string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO abuse_log (identity, kind, detail) VALUES ($1, $2, $3)`, identity, kind, detail)
	if err != nil {
		return fmt.Errorf("persistence: log abuse: %w", err)
	}
	return nil
}
