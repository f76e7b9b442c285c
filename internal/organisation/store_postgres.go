package organisation

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

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, org Organisation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organisations (id, name, siret, address, active, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`, org.ID, org.Name, org.SIRET, org.Address, org.Active, nullTime(org.CreatedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return derrors.Wrap(err, derrors.CodeConflict, "organisation already exists")
		}
		return fmt.Errorf("insert organisation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Organisation, error) {
	var org Organisation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, siret, address, active, created_at
		FROM organisations WHERE id = $1
	`, id).Scan(&org.ID, &org.Name, &org.SIRET, &org.Address, &org.Active, &org.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get organisation: %w", err)
	}
	return &org, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE organisations SET active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate organisation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return derrors.New(derrors.CodeNotFound, "organisation not found")
	}
	return nil
}

func (s *PostgresStore) ListByAidant(ctx context.Context, aidantID uuid.UUID) ([]Organisation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.name, o.siret, o.address, o.active, o.created_at
		FROM organisations o
		JOIN organisation_members m ON m.organisation_id = o.id
		WHERE m.aidant_id = $1
		ORDER BY o.name
	`, aidantID)
	if err != nil {
		return nil, fmt.Errorf("list organisations: %w", err)
	}
	defer rows.Close()

	var out []Organisation
	for rows.Next() {
		var org Organisation
		if err := rows.Scan(&org.ID, &org.Name, &org.SIRET, &org.Address, &org.Active, &org.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan organisation: %w", err)
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AddMember(ctx context.Context, m Membership) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organisation_members (aidant_id, organisation_id, is_referent, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, m.AidantID, m.OrganisationID, m.IsReferent, nullTime(m.CreatedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return derrors.Wrap(err, derrors.CodeConflict, "aidant already a member")
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveMember(ctx context.Context, aidantID, organisationID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM organisation_members WHERE aidant_id = $1 AND organisation_id = $2
	`, aidantID, organisationID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return derrors.New(derrors.CodeNotFound, "membership not found")
	}
	return nil
}

func (s *PostgresStore) GetMembership(ctx context.Context, aidantID, organisationID uuid.UUID) (*Membership, error) {
	var m Membership
	err := s.db.QueryRowContext(ctx, `
		SELECT aidant_id, organisation_id, is_referent, created_at
		FROM organisation_members WHERE aidant_id = $1 AND organisation_id = $2
	`, aidantID, organisationID).Scan(&m.AidantID, &m.OrganisationID, &m.IsReferent, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &m, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
