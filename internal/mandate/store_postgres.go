package mandate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	derrors "aidantsconnect/pkg/domain-errors"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateWithAutorisations(ctx context.Context, m Mandat, autorisations []Autorisation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO mandats (id, organisation_id, usager_id, creation_date, expiration_date,
			duree, is_remote, consent_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, m.ID, m.OrganisationID, m.UsagerID, m.CreationDate, m.ExpirationDate,
		string(m.Duree), m.IsRemote, string(m.ConsentMethod)); err != nil {
		return fmt.Errorf("insert mandat: %w", err)
	}

	for _, a := range autorisations {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO autorisations (id, mandat_id, demarche)
			VALUES ($1, $2, $3)
		`, a.ID, a.MandatID, a.Demarche); err != nil {
			return fmt.Errorf("insert autorisation %s: %w", a.Demarche, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMandat(ctx context.Context, id uuid.UUID) (*Mandat, error) {
	var (
		m       Mandat
		duree   string
		consent string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organisation_id, usager_id, creation_date, expiration_date,
			duree, is_remote, consent_method
		FROM mandats WHERE id = $1
	`, id).Scan(&m.ID, &m.OrganisationID, &m.UsagerID, &m.CreationDate,
		&m.ExpirationDate, &duree, &m.IsRemote, &consent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mandat: %w", err)
	}
	m.Duree = Duree(duree)
	m.ConsentMethod = ConsentMethod(consent)
	return &m, nil
}

func (s *PostgresStore) GetAutorisation(ctx context.Context, id uuid.UUID) (*Autorisation, error) {
	var (
		a       Autorisation
		revoked sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, mandat_id, demarche, revocation_date
		FROM autorisations WHERE id = $1
	`, id).Scan(&a.ID, &a.MandatID, &a.Demarche, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get autorisation: %w", err)
	}
	if revoked.Valid {
		a.RevocationDate = &revoked.Time
	}
	return &a, nil
}

func (s *PostgresStore) ListAutorisations(ctx context.Context, mandatID uuid.UUID) ([]Autorisation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mandat_id, demarche, revocation_date
		FROM autorisations WHERE mandat_id = $1 ORDER BY demarche
	`, mandatID)
	if err != nil {
		return nil, fmt.Errorf("list autorisations: %w", err)
	}
	defer rows.Close()

	var out []Autorisation
	for rows.Next() {
		var (
			a       Autorisation
			revoked sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.MandatID, &a.Demarche, &revoked); err != nil {
			return nil, fmt.Errorf("scan autorisation: %w", err)
		}
		if revoked.Valid {
			a.RevocationDate = &revoked.Time
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListByOrganisation(ctx context.Context, organisationID uuid.UUID) ([]Mandat, error) {
	return s.listMandats(ctx, `
		SELECT id, organisation_id, usager_id, creation_date, expiration_date,
			duree, is_remote, consent_method
		FROM mandats WHERE organisation_id = $1 ORDER BY creation_date
	`, organisationID)
}

func (s *PostgresStore) ListByUsager(ctx context.Context, organisationID, usagerID uuid.UUID) ([]Mandat, error) {
	return s.listMandats(ctx, `
		SELECT id, organisation_id, usager_id, creation_date, expiration_date,
			duree, is_remote, consent_method
		FROM mandats WHERE organisation_id = $1 AND usager_id = $2 ORDER BY creation_date
	`, organisationID, usagerID)
}

func (s *PostgresStore) listMandats(ctx context.Context, query string, args ...any) ([]Mandat, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mandats: %w", err)
	}
	defer rows.Close()

	var out []Mandat
	for rows.Next() {
		var (
			m       Mandat
			duree   string
			consent string
		)
		if err := rows.Scan(&m.ID, &m.OrganisationID, &m.UsagerID, &m.CreationDate,
			&m.ExpirationDate, &duree, &m.IsRemote, &consent); err != nil {
			return nil, fmt.Errorf("scan mandat: %w", err)
		}
		m.Duree = Duree(duree)
		m.ConsentMethod = ConsentMethod(consent)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Revoke is conditional on the autorisation still being active so a
// concurrent double cancel cannot move the revocation date. When zero rows
// change, a second lookup distinguishes already-revoked from not-found.
func (s *PostgresStore) Revoke(ctx context.Context, autorisationID uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE autorisations SET revocation_date = $2
		WHERE id = $1 AND revocation_date IS NULL
	`, autorisationID, at)
	if err != nil {
		return fmt.Errorf("revoke autorisation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke autorisation: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM autorisations WHERE id = $1)`, autorisationID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("revoke autorisation lookup: %w", err)
	}
	if !exists {
		return derrors.New(derrors.CodeNotFound, "autorisation not found")
	}
	return derrors.New(derrors.CodeAlreadyRevoked, "autorisation already revoked")
}

// TransferOrganisation reassigns the listed mandates and returns the ids a
// concurrent modification did not take away. Callers compare against their
// request to build the failed set.
func (s *PostgresStore) TransferOrganisation(ctx context.Context, ids []uuid.UUID, target uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	rows, err := s.db.QueryContext(ctx, `
		UPDATE mandats SET organisation_id = $1
		WHERE id = ANY($2::uuid[])
		RETURNING id
	`, target, strIDs)
	if err != nil {
		return nil, fmt.Errorf("transfer mandats: %w", err)
	}
	defer rows.Close()

	var transferred []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan transferred id: %w", err)
		}
		transferred = append(transferred, id)
	}
	return transferred, rows.Err()
}
