package repository

import (
	"context"
	"time"

	"github.com/bancozim/origination/domain"
)

// ChannelSessionRepository maps a channel-scoped user identifier (a WhatsApp
// phone number, a USSD gateway session key) to the most recent open wizard
// session. Entries carry the idle-expiry TTL so an abandoned session stops
// resuming on its own.
type ChannelSessionRepository interface {
	// ActiveSession returns the bound session id, or domain.ErrStateNotFound
	// when the identifier has no open session.
	ActiveSession(ctx context.Context, channel domain.Channel, userIdentifier string) (string, error)

	Bind(ctx context.Context, channel domain.Channel, userIdentifier, sessionID string, ttl time.Duration) error

	// Clear removes the binding, typically when the wizard completes.
	Clear(ctx context.Context, channel domain.Channel, userIdentifier string) error
}
