// Package sms abstracts the SMS gateway used for remote consent. The
// correlator only depends on the Gateway interface; the OVH HTTP client and
// the disabled stub are the two shipped implementations.
package sms

import "context"

//go:generate mockgen -source=gateway.go -destination=mocks/gateway_mock.go -package=mocks Gateway

// Gateway sends consent SMS and manages the inbound inbox.
type Gateway interface {
	// Send delivers one message to the given E.164 number.
	Send(ctx context.Context, phone, message string) error
	// DeleteIncoming removes a received message from the gateway inbox.
	// Best-effort cleanup; callers may ignore the error.
	DeleteIncoming(ctx context.Context, messageID string) error
}
