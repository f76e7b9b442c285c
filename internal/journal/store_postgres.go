package journal

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

// PostgresStore persists journal entries. The schema carries a partial
// unique index on (phone, consent_request_tag) restricted to resolution
// actions; the loser of a duplicate-callback race gets a unique violation
// here, surfaced as derrors.CodeConflict.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const entryColumns = `id, action, aidant_id, organisation_id, usager_id, mandat_id,
	autorisation_id, demarche, duree, phone, consent_request_tag, message_id,
	card_serial, user_agent, created_at`

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = NewID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, COALESCE($15, now()))
	`,
		entry.ID,
		string(entry.Action),
		nullUUID(entry.AidantID),
		nullUUID(entry.OrganisationID),
		nullUUID(entry.UsagerID),
		nullUUID(entry.MandatID),
		nullUUID(entry.AutorisationID),
		nullString(entry.Demarche),
		nullString(entry.Duree),
		nullString(entry.Phone),
		nullString(entry.ConsentRequestTag),
		nullString(entry.MessageID),
		nullString(entry.CardSerial),
		nullString(entry.UserAgent),
		nullTime(entry.CreatedAt),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return derrors.Wrap(err, derrors.CodeConflict, "consent resolution already journaled")
		}
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindConsentRequest(ctx context.Context, phone, tag string) (*Entry, error) {
	return s.findOne(ctx, `
		SELECT `+entryColumns+` FROM journal_entries
		WHERE action = $1 AND phone = $2 AND consent_request_tag = $3
		ORDER BY id LIMIT 1
	`, string(ActionConsentRequestSent), phone, tag)
}

func (s *PostgresStore) FindConsentResolution(ctx context.Context, phone, tag string) (*Entry, error) {
	return s.findOne(ctx, `
		SELECT `+entryColumns+` FROM journal_entries
		WHERE action IN ($1, $2) AND phone = $3 AND consent_request_tag = $4
		ORDER BY id LIMIT 1
	`, string(ActionConsentAgreementReceived), string(ActionConsentDenialReceived), phone, tag)
}

func (s *PostgresStore) ListByUsager(ctx context.Context, usagerID uuid.UUID) ([]Entry, error) {
	return s.list(ctx, `
		SELECT `+entryColumns+` FROM journal_entries
		WHERE usager_id = $1 ORDER BY id
	`, usagerID)
}

func (s *PostgresStore) ListByOrganisation(ctx context.Context, organisationID uuid.UUID) ([]Entry, error) {
	return s.list(ctx, `
		SELECT `+entryColumns+` FROM journal_entries
		WHERE organisation_id = $1 ORDER BY id
	`, organisationID)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*Entry, error) {
	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find journal entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e        Entry
		action   string
		aidant   uuid.NullUUID
		org      uuid.NullUUID
		usager   uuid.NullUUID
		mandat   uuid.NullUUID
		auto     uuid.NullUUID
		demarche sql.NullString
		duree    sql.NullString
		phone    sql.NullString
		tag      sql.NullString
		msgID    sql.NullString
		serial   sql.NullString
		ua       sql.NullString
	)
	if err := row.Scan(&e.ID, &action, &aidant, &org, &usager, &mandat, &auto,
		&demarche, &duree, &phone, &tag, &msgID, &serial, &ua, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Action = Action(action)
	e.AidantID = fromNullUUID(aidant)
	e.OrganisationID = fromNullUUID(org)
	e.UsagerID = fromNullUUID(usager)
	e.MandatID = fromNullUUID(mandat)
	e.AutorisationID = fromNullUUID(auto)
	e.Demarche = demarche.String
	e.Duree = duree.String
	e.Phone = phone.String
	e.ConsentRequestTag = tag.String
	e.MessageID = msgID.String
	e.CardSerial = serial.String
	e.UserAgent = ua.String
	return &e, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func fromNullUUID(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
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
