package federation

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aidantsconnect/internal/journal"
	"aidantsconnect/internal/platform/config"
	"aidantsconnect/internal/platform/metrics"
	"aidantsconnect/internal/usager"
	derrors "aidantsconnect/pkg/domain-errors"
)

const testSecret = "federation-test-secret"

func signedIDToken(t *testing.T, audience string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "raw-subject-1",
		"aud": audience,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestBroker(t *testing.T, identity Identity) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "test-client", r.Form.Get("client_id"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "at-1",
			"id_token":     signedIDToken(t, "test-client"),
		})
	})
	mux.HandleFunc("/api/v1/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(identity)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewClient(config.Federation{
		BaseURL:      srv.URL,
		ClientID:     "test-client",
		ClientSecret: testSecret,
		RedirectURI:  "https://aidants.example/callback",
		Timeout:      2 * time.Second,
	})
}

func TestExchange(t *testing.T) {
	client := newTestBroker(t, Identity{
		Sub: "raw-subject-1", GivenName: "Jeanne", FamilyName: "Martin",
		BirthDate: "1961-07-15", BirthPlace: "Lyon", BirthCountry: "France",
	})

	identity, err := client.Exchange(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "Jeanne", identity.GivenName)
	assert.Equal(t, "raw-subject-1", identity.Sub)
}

func TestExchangeRejectsBadSignature(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/token", func(w http.ResponseWriter, r *http.Request) {
		badToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "x", "aud": "test-client",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, _ := badToken.SignedString([]byte("wrong-secret"))
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at", "id_token": signed})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClient(config.Federation{
		BaseURL: srv.URL, ClientID: "test-client", ClientSecret: testSecret,
		Timeout: 2 * time.Second,
	})
	_, err := client.Exchange(context.Background(), "code-1")
	require.Error(t, err)
	assert.True(t, derrors.Is(err, derrors.CodeUnauthorized))
}

func TestExchangeBrokerDownIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.Federation{
		BaseURL: srv.URL, ClientID: "test-client", ClientSecret: testSecret,
		Timeout: 2 * time.Second,
	})
	_, err := client.Exchange(context.Background(), "code-1")
	assert.True(t, derrors.Is(err, derrors.CodeUnavailable))
}

func TestFinishLoginCreatesUsagerOnce(t *testing.T) {
	client := newTestBroker(t, Identity{
		Sub: "raw-subject-1", GivenName: "Jeanne", FamilyName: "Martin",
		BirthDate: "1961-07-15",
	})
	usagers := usager.NewInMemoryStore()
	jrnl := journal.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(client, usagers, jrnl, logger, metrics.NewWith(prometheus.NewRegistry()))

	aidantID := uuid.New()
	ua := "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	first, err := svc.FinishLogin(context.Background(), "code-1", aidantID, ua)
	require.NoError(t, err)
	assert.Equal(t, "Jeanne", first.GivenName)
	assert.NotEqual(t, "raw-subject-1", first.Sub, "raw sub must not be stored")

	second, err := svc.FinishLogin(context.Background(), "code-2", aidantID, ua)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// One login journal entry per login, annotated with the device.
	entries, err := jrnl.ListByUsager(context.Background(), first.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, journal.ActionFederationLogin, entries[0].Action)
	assert.Contains(t, entries[0].UserAgent, "Chrome")
}
