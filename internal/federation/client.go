// Package federation exchanges authorization codes with the national
// identity broker and turns the resulting claims into usager records.
package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"aidantsconnect/internal/platform/config"
	derrors "aidantsconnect/pkg/domain-errors"
)

// Identity is the verified claim set the broker returns for an usager.
type Identity struct {
	Sub          string `json:"sub"`
	GivenName    string `json:"given_name"`
	FamilyName   string `json:"family_name"`
	BirthDate    string `json:"birthdate"`
	BirthPlace   string `json:"birthplace"`
	BirthCountry string `json:"birthcountry"`
}

// Broker exchanges an authorization code for a verified identity.
type Broker interface {
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// Client is the HTTP broker client. The id_token is HS256-signed with the
// client secret, per the broker's v1 contract.
type Client struct {
	cfg    config.Federation
	client *http.Client
}

func NewClient(cfg config.Federation) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
}

// Exchange runs the back-channel code exchange and userinfo fetch. Any
// broker failure is fatal to the current login; the user restarts the flow.
func (c *Client) Exchange(ctx context.Context, code string) (*Identity, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"redirect_uri":  {c.cfg.RedirectURI},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/v1/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeUnavailable, "identity broker unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, derrors.Newf(derrors.CodeUnavailable, "identity broker token endpoint returned %d", resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&token); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeUnavailable, "identity broker token response malformed")
	}

	if err := c.verifyIDToken(token.IDToken); err != nil {
		return nil, err
	}
	return c.userinfo(ctx, token.AccessToken)
}

func (c *Client) verifyIDToken(raw string) error {
	_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(c.cfg.ClientSecret), nil
	}, jwt.WithAudience(c.cfg.ClientID), jwt.WithExpirationRequired())
	if err != nil {
		return derrors.Wrap(err, derrors.CodeUnauthorized, "id_token verification failed")
	}
	return nil
}

func (c *Client) userinfo(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/api/v1/userinfo?schema=openid", nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeUnavailable, "identity broker unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, derrors.Newf(derrors.CodeUnavailable, "identity broker userinfo returned %d", resp.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&identity); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeUnavailable, "identity broker userinfo malformed")
	}
	if identity.Sub == "" {
		return nil, derrors.New(derrors.CodeUnavailable, "identity broker returned empty subject")
	}
	return &identity, nil
}

// ParseBirthDate interprets the broker's birthdate claim.
func ParseBirthDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}
