package driven

import (
	"context"

	"github.com/faith-connect-biz/faithconnect-go/internal/domain/model"
)

// DemoSessionStore is the driven port for offline-fallback OTP state.
// Sessions are keyed by (contact, method).
type DemoSessionStore interface {
	// Put stores or replaces the demo session for its contact+method pair.
	Put(ctx context.Context, sess model.DemoSession) error

	// Get returns the demo session for the pair, or (nil, nil) when none
	// exists.
	Get(ctx context.Context, contact, method string) (*model.DemoSession, error)

	// Delete removes the demo session for the pair. Deleting a missing
	// session is not an error.
	Delete(ctx context.Context, contact, method string) error
}
