package handlers

import (
	"net/http"

	"barberbook/middleware"
	"barberbook/models"
	"barberbook/services/approval"
	"barberbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	Registry *approval.Registry
}

func NewDashboardHandler(registry *approval.Registry) *DashboardHandler {
	return &DashboardHandler{Registry: registry}
}

func (h *DashboardHandler) dashboard(c *gin.Context) (*approval.Dashboard, bool) {
	session := middleware.SessionFrom(c)
	d, err := h.Registry.Get(c.Request.Context(), session.ID)
	if err != nil {
		respondError(c, "Failed to open dashboard", err)
		return nil, false
	}
	return d, true
}

// ListReservationsHandler handles GET /api/provider/reservations. It waits
// for the first snapshot of a freshly opened dashboard.
func (h *DashboardHandler) ListReservationsHandler(c *gin.Context) {
	d, ok := h.dashboard(c)
	if !ok {
		return
	}
	select {
	case <-d.Ready():
	case <-d.Done():
		respondError(c, "Dashboard closed", approval.ErrStopped)
		return
	case <-c.Request.Context().Done():
		return
	}
	items, _ := d.Snapshot()
	c.JSON(http.StatusOK, gin.H{"reservations": items})
}

// StreamReservationsHandler handles GET /api/provider/reservations/stream.
func (h *DashboardHandler) StreamReservationsHandler(c *gin.Context) {
	d, ok := h.dashboard(c)
	if !ok {
		return
	}
	streamEvents(c, "reservations", func(send func([]models.Reservation)) (func(), <-chan struct{}, error) {
		remove := d.AddListener(send)
		if items, loaded := d.Snapshot(); loaded {
			send(items)
		}
		return remove, d.Done(), nil
	})
}

// RequestApproveHandler handles POST /api/provider/reservations/:id/approve.
func (h *DashboardHandler) RequestApproveHandler(c *gin.Context) {
	h.request(c, approval.ActionApprove)
}

// RequestCancelHandler handles POST /api/provider/reservations/:id/cancel.
func (h *DashboardHandler) RequestCancelHandler(c *gin.Context) {
	h.request(c, approval.ActionCancel)
}

func (h *DashboardHandler) request(c *gin.Context, action approval.Action) {
	d, ok := h.dashboard(c)
	if !ok {
		return
	}
	select {
	case <-d.Ready():
	case <-d.Done():
		respondError(c, "Dashboard closed", approval.ErrStopped)
		return
	case <-c.Request.Context().Done():
		return
	}

	id := c.Param("id")
	var (
		token approval.Token
		err   error
	)
	if action == approval.ActionApprove {
		token, err = d.RequestApprove(id)
	} else {
		token, err = d.RequestCancel(id)
	}
	if err != nil {
		respondError(c, "Request rejected", err)
		return
	}
	c.JSON(http.StatusAccepted, approval.Pending{Token: token, Action: action, ReservationID: id})
}

// ConfirmActionHandler handles POST /api/provider/confirmations/:token.
func (h *DashboardHandler) ConfirmActionHandler(c *gin.Context) {
	d, ok := h.dashboard(c)
	if !ok {
		return
	}
	p, err := d.Confirm(c.Request.Context(), approval.Token(c.Param("token")))
	if err != nil {
		respondError(c, "Confirmation failed", err)
		return
	}
	utils.GetLogger().Info("provider confirmed action",
		zap.String("action", string(p.Action)),
		zap.String("reservationID", p.ReservationID))
	c.JSON(http.StatusOK, p)
}

// DismissActionHandler handles DELETE /api/provider/confirmations/:token.
func (h *DashboardHandler) DismissActionHandler(c *gin.Context) {
	d, ok := h.dashboard(c)
	if !ok {
		return
	}
	if !d.Dismiss(approval.Token(c.Param("token"))) {
		respondError(c, "Nothing to dismiss", approval.ErrUnknownToken)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dismissed"})
}

// CloseDashboardHandler handles DELETE /api/provider/dashboard.
func (h *DashboardHandler) CloseDashboardHandler(c *gin.Context) {
	h.Registry.Close(middleware.SessionFrom(c).ID)
	c.JSON(http.StatusOK, gin.H{"message": "Dashboard closed"})
}
