package habilitation

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

const requestColumns = `id, organisation_name, organisation_siret, requester_email,
	datapass_id, status, created_at, updated_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, r Request) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO habilitation_requests
			(id, organisation_name, organisation_siret, requester_email, datapass_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()), COALESCE($8, now()))
	`, r.ID, r.OrganisationName, r.OrganisationSIRET, r.RequesterEmail,
		nullString(r.DatapassID), string(r.Status), nullTime(r.CreatedAt), nullTime(r.UpdatedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return derrors.Wrap(err, derrors.CodeConflict, "datapass id already received")
		}
		return fmt.Errorf("insert habilitation request: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM habilitation_requests WHERE id = $1`, requestColumns)
	return s.findOne(ctx, query, id)
}

func (s *PostgresStore) GetByDatapassID(ctx context.Context, datapassID string) (*Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM habilitation_requests WHERE datapass_id = $1`, requestColumns)
	return s.findOne(ctx, query, datapassID)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status Status) ([]Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM habilitation_requests WHERE status = $1 ORDER BY created_at`, requestColumns)
	rows, err := s.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list habilitation requests: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habilitation request: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE habilitation_requests SET status = $2, updated_at = $3 WHERE id = $1
	`, id, string(status), at)
	if err != nil {
		return fmt.Errorf("update habilitation status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update habilitation status: %w", err)
	}
	if n == 0 {
		return derrors.New(derrors.CodeNotFound, "habilitation request not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*Request, error) {
	r, err := scanRequest(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query habilitation request: %w", err)
	}
	return r, nil
}

func scanRequest(row rowScanner) (*Request, error) {
	var (
		r        Request
		status   string
		datapass sql.NullString
	)
	if err := row.Scan(&r.ID, &r.OrganisationName, &r.OrganisationSIRET, &r.RequesterEmail,
		&datapass, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.DatapassID = datapass.String
	r.Status = Status(status)
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
