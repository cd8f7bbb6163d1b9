package location

import "errors"

var (
	ErrHubClosed          = errors.New("location hub closed")
	ErrChannelUnavailable = errors.New("location channel unavailable")
)
