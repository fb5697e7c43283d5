package handlers

import (
	"net/http"

	"barberbook/middleware"
	"barberbook/services/appointments"

	"github.com/gin-gonic/gin"
)

type AppointmentHandler struct {
	Service *appointments.Service
}

func NewAppointmentHandler(svc *appointments.Service) *AppointmentHandler {
	return &AppointmentHandler{Service: svc}
}

// ListAppointmentsHandler handles GET /api/appointments.
func (h *AppointmentHandler) ListAppointmentsHandler(c *gin.Context) {
	session := middleware.SessionFrom(c)
	listing, err := h.Service.List(c.Request.Context(), session.ID)
	if err != nil {
		respondError(c, "Failed to load appointments", err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// StreamAppointmentsHandler handles GET /api/appointments/stream.
func (h *AppointmentHandler) StreamAppointmentsHandler(c *gin.Context) {
	session := middleware.SessionFrom(c)
	streamEvents(c, "appointments", func(send func(appointments.Listing)) (func(), <-chan struct{}, error) {
		unsub, err := h.Service.Subscribe(c.Request.Context(), session.ID, func(items []appointments.Appointment) {
			send(appointments.Listing{Appointments: items, Notice: appointments.CancellationNotice})
		})
		if err != nil {
			return nil, nil, err
		}
		return unsub, h.Service.Done(), nil
	})
}

// CancelAppointmentHandler handles DELETE /api/appointments/:id.
func (h *AppointmentHandler) CancelAppointmentHandler(c *gin.Context) {
	session := middleware.SessionFrom(c)
	if err := h.Service.Cancel(c.Request.Context(), session.ID, c.Param("id")); err != nil {
		respondError(c, "Failed to cancel appointment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment cancelled"})
}
