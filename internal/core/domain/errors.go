package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Registry and channel errors. Callers match them with errors.Is;
// the returned errors wrap these with the offending name or id.
var (
	ErrInvalidName        = errors.New("invalid channel name")
	ErrDuplicateName      = errors.New("channel name already registered")
	ErrNotFound           = errors.New("channel not found")
	ErrProtectedChannel   = errors.New("channel is internal and cannot be deleted by name")
	ErrRegistryCorruption = errors.New("event registry corrupted")
	ErrSubscriberFault    = errors.New("subscriber failed")
)

// SubscriberFault describes one subscriber invocation that failed during a publish.
// It never reaches the publisher; it is only handed to a FaultSink.
type SubscriberFault struct {
	ChannelID       ChannelID
	ChannelName     string
	SubscriberID    uuid.UUID
	SubscriberLabel string
	Err             error
	Panicked        bool // true if Err was built from a recovered panic
}

// Error implements the error interface.
func (f SubscriberFault) Error() string {
	kind := "returned error"
	if f.Panicked {
		kind = "panicked"
	}
	return fmt.Sprintf("subscriber %s (%s) on channel %q %s: %v",
		f.SubscriberLabel, f.SubscriberID, f.ChannelName, kind, f.Err)
}

// Unwrap returns the underlying error.
func (f SubscriberFault) Unwrap() error {
	return f.Err
}

// Is makes every fault match ErrSubscriberFault.
func (f SubscriberFault) Is(target error) bool {
	return target == ErrSubscriberFault
}
