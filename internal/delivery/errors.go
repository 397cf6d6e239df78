package delivery

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized indicates channel authentication failed
	ErrUnauthorized = errors.New("channel authentication failed")

	// ErrChannelUnavailable indicates the channel is temporarily unavailable
	ErrChannelUnavailable = errors.New("channel temporarily unavailable")
)

// DeliveryError represents a channel-specific delivery failure
type DeliveryError struct {
	Channel string
	Code    int
	Message string
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivery via %s failed (%d): %s: %v", e.Channel, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("delivery via %s failed (%d): %s", e.Channel, e.Code, e.Message)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
