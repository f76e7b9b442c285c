package journal

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "aidantsconnect/pkg/domain-errors"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func TestPostgresAppend(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO journal_entries").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Append(context.Background(), Entry{
		Action: ActionConsentRequestSent,
		Phone:  "+33800840800", ConsentRequestTag: "T1",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendUniqueViolationIsConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO journal_entries").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := store.Append(context.Background(), Entry{
		Action: ActionConsentAgreementReceived,
		Phone:  "+33800840800", ConsentRequestTag: "T1",
	})
	require.Error(t, err)
	assert.True(t, derrors.Is(err, derrors.CodeConflict))
}

func entryRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "action", "aidant_id", "organisation_id", "usager_id", "mandat_id",
		"autorisation_id", "demarche", "duree", "phone", "consent_request_tag",
		"message_id", "card_serial", "user_agent", "created_at",
	})
}

func TestPostgresFindConsentResolution(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM journal_entries").
		WithArgs(string(ActionConsentAgreementReceived), string(ActionConsentDenialReceived), "+33800840800", "T1").
		WillReturnRows(entryRows().AddRow(
			NewID(), string(ActionConsentAgreementReceived), nil, nil, nil, nil, nil,
			nil, nil, "+33800840800", "T1", "msg-1", nil, nil, time.Now(),
		))

	res, err := store.FindConsentResolution(context.Background(), "+33800840800", "T1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, ActionConsentAgreementReceived, res.Action)
	assert.Equal(t, "msg-1", res.MessageID)
	assert.Nil(t, res.AidantID)
}

func TestPostgresFindConsentResolutionAbsent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM journal_entries").
		WillReturnRows(entryRows())

	res, err := store.FindConsentResolution(context.Background(), "+33800840800", "T9")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestPostgresListByUsager(t *testing.T) {
	store, mock := newMockStore(t)
	usagerID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM journal_entries").
		WithArgs(usagerID).
		WillReturnRows(entryRows().
			AddRow(NewID(), string(ActionMandatCreated), nil, nil, usagerID.String(), nil, nil,
				"argent", "SHORT", nil, nil, nil, nil, nil, time.Now()).
			AddRow(NewID(), string(ActionMandatCreated), nil, nil, usagerID.String(), nil, nil,
				"famille", "SHORT", nil, nil, nil, nil, nil, time.Now()))

	entries, err := store.ListByUsager(context.Background(), usagerID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "argent", entries[0].Demarche)
	require.NotNil(t, entries[1].UsagerID)
	assert.Equal(t, usagerID, *entries[1].UsagerID)
}
