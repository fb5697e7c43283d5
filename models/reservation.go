package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reservation is a single booking linking one customer, one provider, one
// service and one scheduled instant.
//
// CustomerEmail, ServiceName and Price are copied at booking time and do not
// follow later edits of their source records. Approved is the only field that
// changes after creation, and only from false to true.
type Reservation struct {
	ID            string          `json:"id"`
	ProviderID    string          `json:"providerId"`
	CustomerID    string          `json:"customerId"`
	CustomerEmail string          `json:"customerEmail"`
	ServiceName   string          `json:"serviceName"`
	Price         decimal.Decimal `json:"price"`
	ScheduledAt   time.Time       `json:"scheduledAt"`
	Approved      bool            `json:"approved"`
}

// Status reports the lifecycle state of a stored reservation.
func (r Reservation) Status() string {
	if r.Approved {
		return "approved"
	}
	return "pending"
}
