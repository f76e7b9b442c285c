package usager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (s *PostgresStore) Create(ctx context.Context, u Usager) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usagers (id, sub, given_name, family_name, birth_date,
			birth_place, birth_country, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	`, u.ID, u.Sub, u.GivenName, u.FamilyName, u.BirthDate,
		u.BirthPlace, u.BirthCountry, u.Phone)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return derrors.Wrap(err, derrors.CodeConflict, "usager sub already registered")
		}
		return fmt.Errorf("insert usager: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBySub(ctx context.Context, sub string) (*Usager, error) {
	return s.get(ctx, `WHERE sub = $1`, sub)
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Usager, error) {
	return s.get(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) get(ctx context.Context, where string, arg any) (*Usager, error) {
	var (
		u     Usager
		phone sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sub, given_name, family_name, birth_date, birth_place,
			birth_country, phone, created_at
		FROM usagers `+where,
		arg,
	).Scan(&u.ID, &u.Sub, &u.GivenName, &u.FamilyName, &u.BirthDate,
		&u.BirthPlace, &u.BirthCountry, &phone, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get usager: %w", err)
	}
	u.Phone = phone.String
	return &u, nil
}

func (s *PostgresStore) UpdatePhone(ctx context.Context, id uuid.UUID, phone string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE usagers SET phone = $2 WHERE id = $1`, id, phone)
	if err != nil {
		return fmt.Errorf("update usager phone: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return derrors.New(derrors.CodeNotFound, "usager not found")
	}
	return nil
}
