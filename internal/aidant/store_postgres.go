package aidant

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

const aidantColumns = `id, email, first_name, last_name, profession, organisation_id, can_create_mandats, active, created_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, a Aidant) error {
	query := `
		INSERT INTO aidants (id, email, first_name, last_name, profession, organisation_id, can_create_mandats, active, created_at)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, COALESCE($9, now()))`

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Email, a.FirstName, a.LastName, a.Profession,
		a.OrganisationID, a.CanCreateMandats, a.Active, nullTime(a.CreatedAt),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return derrors.Wrap(err, derrors.CodeConflict, "aidant email already registered")
		}
		return fmt.Errorf("insert aidant: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Aidant, error) {
	query := fmt.Sprintf(`SELECT %s FROM aidants WHERE id = $1`, aidantColumns)
	return s.findOne(ctx, query, id)
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*Aidant, error) {
	query := fmt.Sprintf(`SELECT %s FROM aidants WHERE email = lower($1)`, aidantColumns)
	return s.findOne(ctx, query, email)
}

func (s *PostgresStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE aidants SET active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate aidant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate aidant: %w", err)
	}
	if n == 0 {
		return derrors.New(derrors.CodeNotFound, "aidant not found")
	}
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*Aidant, error) {
	var a Aidant
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.Profession,
		&a.OrganisationID, &a.CanCreateMandats, &a.Active, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query aidant: %w", err)
	}
	return &a, nil
}
