package handlers

import (
	"net/http"

	"barberbook/middleware"
	"barberbook/services/booking"
	"barberbook/utils"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	Service booking.BookingSessionService
}

func NewBookingHandler(svc booking.BookingSessionService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

// InitiateSession handles POST /api/booking/session.
func (h *BookingHandler) InitiateSession(c *gin.Context) {
	var req struct {
		ProviderID string `json:"providerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	snap, err := h.Service.InitiateSession(c.Request.Context(), middleware.SessionFrom(c), req.ProviderID)
	if err != nil {
		respondError(c, "Failed to start booking", err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// GetSession handles GET /api/booking/session/:sessionID.
func (h *BookingHandler) GetSession(c *gin.Context) {
	snap, err := h.Service.GetSession(c.Request.Context(), middleware.SessionFrom(c), c.Param("sessionID"))
	if err != nil {
		respondError(c, "Failed to load booking", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// UpdateSession handles PUT /api/booking/session/:sessionID.
func (h *BookingHandler) UpdateSession(c *gin.Context) {
	var update booking.SessionUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	snap, err := h.Service.UpdateSession(c.Request.Context(), middleware.SessionFrom(c), c.Param("sessionID"), update)
	if err != nil {
		respondError(c, "Failed to update booking", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ConfirmBooking handles POST /api/booking/session/:sessionID/confirm.
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	res := middleware.ResolutionFrom(c)
	snap, err := h.Service.ConfirmBooking(c.Request.Context(), middleware.SessionFrom(c), res.Role, c.Param("sessionID"))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			respondError(c, "Booking failed", err)
			return
		}
		body := gin.H{"message": "Booking failed", "details": err.Error()}
		if snap != nil {
			body["booking"] = snap
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// CancelSession handles DELETE /api/booking/session/:sessionID.
func (h *BookingHandler) CancelSession(c *gin.Context) {
	if err := h.Service.CancelSession(c.Request.Context(), middleware.SessionFrom(c), c.Param("sessionID")); err != nil {
		respondError(c, "Failed to cancel booking", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking session cancelled"})
}
