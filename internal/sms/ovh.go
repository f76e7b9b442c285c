package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"aidantsconnect/internal/platform/config"
	derrors "aidantsconnect/pkg/domain-errors"
)

// OVHGateway talks to the OVH HTTP-to-SMS endpoint. All calls carry the
// configured timeout; the gateway being down must never hang a handler.
type OVHGateway struct {
	cfg    config.SMS
	client *http.Client
}

func NewOVH(cfg config.SMS) *OVHGateway {
	return &OVHGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type ovhResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (g *OVHGateway) Send(ctx context.Context, phone, message string) error {
	params := url.Values{
		"account":      {g.cfg.ServiceName},
		"login":        {g.cfg.AccountLogin},
		"password":     {g.cfg.Password},
		"from":         {g.cfg.SenderID},
		"to":           {phone},
		"message":      {message},
		"contentType":  {"application/json"},
		"noStop":       {"1"},
		"smsCoding":    {"2"},
		"chargingMode": {"2"},
	}
	return g.call(ctx, "sms2/send/", params)
}

func (g *OVHGateway) DeleteIncoming(ctx context.Context, messageID string) error {
	params := url.Values{
		"account":     {g.cfg.ServiceName},
		"login":       {g.cfg.AccountLogin},
		"password":    {g.cfg.Password},
		"id":          {messageID},
		"contentType": {"application/json"},
	}
	return g.call(ctx, "sms2/deleteIncoming/", params)
}

func (g *OVHGateway) call(ctx context.Context, path string, params url.Values) error {
	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + "/" + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return derrors.Wrap(err, derrors.CodeUnavailable, "sms gateway unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return derrors.Wrap(err, derrors.CodeUnavailable, "sms gateway response unreadable")
	}
	if resp.StatusCode != http.StatusOK {
		return derrors.Newf(derrors.CodeUnavailable, "sms gateway returned %d", resp.StatusCode)
	}

	var parsed ovhResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return derrors.Wrap(err, derrors.CodeUnavailable, "sms gateway response malformed")
	}
	// OVH reports success as status 100..199.
	if parsed.Status < 100 || parsed.Status > 199 {
		return derrors.Newf(derrors.CodeUnavailable, "sms gateway error %d: %s", parsed.Status, parsed.Message)
	}
	return nil
}

// Disabled is the Gateway used when SMS is feature-flagged off. Sends
// succeed without side effects so development flows keep working.
type Disabled struct{}

func (Disabled) Send(context.Context, string, string) error   { return nil }
func (Disabled) DeleteIncoming(context.Context, string) error { return nil }
