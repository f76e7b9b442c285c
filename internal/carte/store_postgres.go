package carte

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	derrors "aidantsconnect/pkg/domain-errors"
)

const carteColumns = `id, serial, seed, aidant_id, confirmed, created_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c CarteTOTP) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cartes_totp (id, serial, seed, aidant_id, confirmed, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`, c.ID, c.Serial, c.Seed, nullUUID(c.AidantID), c.Confirmed, nullTime(c.CreatedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return derrors.Wrap(err, derrors.CodeConflict, "card serial already registered")
		}
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBySerial(ctx context.Context, serial string) (*CarteTOTP, error) {
	query := fmt.Sprintf(`SELECT %s FROM cartes_totp WHERE serial = $1`, carteColumns)
	return s.findOne(ctx, query, serial)
}

func (s *PostgresStore) GetByAidant(ctx context.Context, aidantID uuid.UUID) (*CarteTOTP, error) {
	query := fmt.Sprintf(`SELECT %s FROM cartes_totp WHERE aidant_id = $1`, carteColumns)
	return s.findOne(ctx, query, aidantID)
}

func (s *PostgresStore) Assign(ctx context.Context, serial string, aidantID uuid.UUID) error {
	return s.update(ctx, `UPDATE cartes_totp SET aidant_id = $2, confirmed = false WHERE serial = $1`, serial, aidantID)
}

func (s *PostgresStore) Confirm(ctx context.Context, serial string) error {
	return s.update(ctx, `UPDATE cartes_totp SET confirmed = true WHERE serial = $1`, serial)
}

func (s *PostgresStore) Unassign(ctx context.Context, serial string) error {
	return s.update(ctx, `UPDATE cartes_totp SET aidant_id = NULL, confirmed = false WHERE serial = $1`, serial)
}

func (s *PostgresStore) Delete(ctx context.Context, serial string) error {
	return s.update(ctx, `DELETE FROM cartes_totp WHERE serial = $1`, serial)
}

func (s *PostgresStore) update(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	if n == 0 {
		return derrors.New(derrors.CodeNotFound, "card not found")
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*CarteTOTP, error) {
	var (
		c      CarteTOTP
		aidant uuid.NullUUID
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&c.ID, &c.Serial, &c.Seed, &aidant, &c.Confirmed, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query card: %w", err)
	}
	if aidant.Valid {
		id := aidant.UUID
		c.AidantID = &id
	}
	return &c, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
