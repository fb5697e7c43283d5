package booking

import (
	"time"

	"barberbook/models"
)

// Snapshot is the serializable state of a Workflow. It is what the booking
// session store persists between requests.
type Snapshot struct {
	SessionID         string                  `json:"sessionId"`
	OwnerID           string                  `json:"-"`
	ProviderID        string                  `json:"providerId"`
	State             State                   `json:"state"`
	Provider          *models.ProviderProfile `json:"provider,omitempty"`
	Services          []models.Service        `json:"services"`
	SelectedServiceID string                  `json:"selectedServiceId,omitempty"`
	SelectedTime      *time.Time              `json:"selectedTime,omitempty"`
	ReservationID     string                  `json:"reservationId,omitempty"`
	Error             string                  `json:"error,omitempty"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

// persistedSnapshot keeps the owner, which is not exposed to clients.
type persistedSnapshot struct {
	Snapshot
	Owner string `json:"ownerId"`
}
