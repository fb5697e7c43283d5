package booking

import (
	"errors"
	"fmt"

	"barberbook/models"
)

// Local rejections raised before any store access.
var (
	ErrSelectionIncomplete = fmt.Errorf("%w: select a service and a time first", models.ErrInvalidInput)
	ErrNotCustomer         = fmt.Errorf("%w: only a signed-in customer can book", models.ErrAuthFailure)
	ErrNotReady            = errors.New("booking is not ready to be confirmed")
	ErrUnknownService      = fmt.Errorf("%w: service is not offered by this provider", models.ErrInvalidInput)
)

// ErrSessionNotFound is returned for missing, expired or foreign booking sessions.
var ErrSessionNotFound = fmt.Errorf("booking session: %w", models.ErrNotFound)
