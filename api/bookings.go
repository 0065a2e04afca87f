package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"homeserve/internal/domain"
	"homeserve/internal/store"
)

// BookingHandler exposes the booking service REST surface. It is the
// authority: actor rights, terminal states and the completion handshake are
// all enforced here (via the domain rules), never trusted from clients.
type BookingHandler struct {
	bookings store.BookingStore
	idem     store.IdempotencyStore
	idemTTL  time.Duration
	log      *zap.Logger
}

func NewBookingHandler(bookings store.BookingStore, idem store.IdempotencyStore, idemTTL time.Duration, log *zap.Logger) *BookingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{bookings: bookings, idem: idem, idemTTL: idemTTL, log: log}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("/user/:email", h.listForCustomer)
	router.GET("/worker/:email", h.listForWorker)
	router.GET("/:id", h.get)
	router.POST("", h.create)
	router.PATCH("/:id/status", h.updateStatus)
	router.PUT("/:id", h.update)
	router.POST("/:id/request-completion", h.requestCompletion)
	router.POST("/:id/confirm-completion", h.confirmCompletion)
	router.POST("/:id/reject-completion", h.rejectCompletion)
}

type statusUpdateRequest struct {
	Status             domain.Status `json:"status"`
	Actor              domain.Actor  `json:"actor" binding:"required"`
	CancellationReason string        `json:"cancellationReason"`
}

type generalUpdateRequest struct {
	Status              domain.Status `json:"status"`
	Actor               domain.Actor  `json:"actor" binding:"required"`
	Completed           bool          `json:"completed"`
	CompletionRequested bool          `json:"completionRequested"`
	CancellationReason  string        `json:"cancellationReason"`
}

type bookingEnvelope struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message,omitempty"`
	Booking  *domain.Booking  `json:"booking,omitempty"`
	Bookings []domain.Booking `json:"bookings,omitempty"`
}

func (h *BookingHandler) listForCustomer(c *gin.Context) {
	bookings, err := h.bookings.ListByCustomer(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bookingEnvelope{Success: true, Bookings: bookings})
}

func (h *BookingHandler) listForWorker(c *gin.Context) {
	bookings, err := h.bookings.ListByWorker(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bookingEnvelope{Success: true, Bookings: bookings})
}

func (h *BookingHandler) get(c *gin.Context) {
	booking, err := h.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bookingEnvelope{Success: true, Booking: booking})
}

func (h *BookingHandler) create(c *gin.Context) {
	var draft domain.BookingDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, bookingEnvelope{Success: false, Message: err.Error()})
		return
	}

	booking, err := h.bookings.Create(c.Request.Context(), draft)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.log.Info("booking created",
		zap.String("bookingId", booking.ID),
		zap.String("customer", booking.CustomerEmail),
		zap.String("worker", booking.WorkerEmail))
	c.JSON(http.StatusCreated, bookingEnvelope{Success: true, Booking: booking})
}

func (h *BookingHandler) updateStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bookingEnvelope{Success: false, Message: err.Error()})
		return
	}

	action, err := domain.ActionForStatus(req.Actor, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.apply(c, req.Actor, action, req.CancellationReason)
}

// update is the legacy general update endpoint kept for older clients; it
// resolves the requested field state into the same transition actions the
// status endpoint uses.
func (h *BookingHandler) update(c *gin.Context) {
	var req generalUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bookingEnvelope{Success: false, Message: err.Error()})
		return
	}

	if req.Actor == domain.ActorWorker && req.CompletionRequested && req.Status == domain.StatusInProgress {
		h.apply(c, domain.ActorWorker, domain.ActionRequestCompletion, "")
		return
	}

	action, err := domain.ActionForStatus(req.Actor, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.apply(c, req.Actor, action, req.CancellationReason)
}

func (h *BookingHandler) requestCompletion(c *gin.Context) {
	h.apply(c, domain.ActorWorker, domain.ActionRequestCompletion, "")
}

func (h *BookingHandler) confirmCompletion(c *gin.Context) {
	h.apply(c, domain.ActorCustomer, domain.ActionConfirmCompletion, "")
}

func (h *BookingHandler) rejectCompletion(c *gin.Context) {
	h.apply(c, domain.ActorCustomer, domain.ActionRejectCompletion, "")
}

// apply runs one transition, honoring the Idempotency-Key header: a replayed
// key returns the recorded response without touching the booking again.
func (h *BookingHandler) apply(c *gin.Context, actor domain.Actor, action domain.Action, reason string) {
	ctx := c.Request.Context()
	id := c.Param("id")

	key := c.GetHeader("Idempotency-Key")
	if key != "" && h.idem != nil {
		recorded, err := h.idem.Get(ctx, key)
		if err != nil {
			h.log.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
		} else if recorded != nil {
			c.Data(http.StatusOK, "application/json", recorded)
			return
		}
	}

	booking, err := h.bookings.Apply(ctx, id, actor, action, reason)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.log.Info("booking transition applied",
		zap.String("bookingId", id),
		zap.String("actor", string(actor)),
		zap.String("action", string(action)),
		zap.String("status", string(booking.Status)))

	payload, err := json.Marshal(bookingEnvelope{Success: true, Booking: booking})
	if err != nil {
		h.fail(c, err)
		return
	}
	if key != "" && h.idem != nil {
		if err := h.idem.Set(ctx, key, payload, h.idemTTL); err != nil {
			h.log.Warn("idempotency record failed", zap.String("key", key), zap.Error(err))
		}
	}
	c.Data(http.StatusOK, "application/json", payload)
}

func (h *BookingHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrTerminalState),
		errors.Is(err, domain.ErrCompletionNotRequested),
		errors.Is(err, domain.ErrActionNotAllowed):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrCancellationReason):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.log.Error("booking request failed", zap.Error(err))
	}
	c.JSON(status, bookingEnvelope{Success: false, Message: err.Error()})
}
