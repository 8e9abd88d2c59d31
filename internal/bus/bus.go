package bus

import (
	"errors"
	"fmt"

	"github.com/opensource-wellbeing/pulse/internal/domain"
)

var (
	// ErrInstitutionRequired is returned when publishing without an institution.
	ErrInstitutionRequired = errors.New("institutionID is required")

	// ErrClosed is returned by a bus after Close.
	ErrClosed = errors.New("bus is closed")
)

// New creates a new event bus based on configuration.
// For Community tier: returns ChannelBus.
// For Pro tier: returns NATSBus.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
