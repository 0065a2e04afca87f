package customer

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"homeserve/internal/domain"
	"homeserve/internal/remote"
)

// Remote is the slice of the booking service client the customer app needs.
type Remote interface {
	ListForCustomer(ctx context.Context, email string) ([]domain.Booking, error)
	Get(ctx context.Context, id string) (*domain.Booking, error)
	Create(ctx context.Context, draft domain.BookingDraft) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id string, req remote.TransitionRequest) (*domain.Booking, error)
	ConfirmCompletion(ctx context.Context, id string) (*domain.Booking, error)
	RejectCompletion(ctx context.Context, id string) (*domain.Booking, error)
}

// CustomerUseCase is the customer app's side of the lifecycle: creating
// bookings, resolving pending completion requests, and cancelling.
type CustomerUseCase interface {
	Bookings(ctx context.Context) ([]domain.Booking, error)
	CreateBooking(ctx context.Context, draft domain.BookingDraft) (*domain.Booking, error)
	ConfirmCompletion(ctx context.Context, id string) (*domain.Booking, error)
	RejectCompletion(ctx context.Context, id string) (*domain.Booking, error)
	Cancel(ctx context.Context, id, reason string) (*domain.Booking, error)
}

type CustomerService struct {
	remote   Remote
	email    string
	validate *validator.Validate
	log      *zap.Logger
}

func NewCustomerService(remote Remote, email string, log *zap.Logger) *CustomerService {
	if log == nil {
		log = zap.NewNop()
	}
	v := validator.New()
	// Reuse the draft's gin binding tags for client-side validation.
	v.SetTagName("binding")
	return &CustomerService{remote: remote, email: email, validate: v, log: log}
}

func (s *CustomerService) Bookings(ctx context.Context) ([]domain.Booking, error) {
	return s.remote.ListForCustomer(ctx, s.email)
}

// CreateBooking validates the draft client-side and blocks submission
// entirely on any field failure; partial submission is never allowed.
func (s *CustomerService) CreateBooking(ctx context.Context, draft domain.BookingDraft) (*domain.Booking, error) {
	if err := s.validate.Struct(draft); err != nil {
		return nil, remote.FromValidator(err)
	}
	if strings.TrimSpace(draft.Address.Text) == "" {
		return nil, remote.NewFieldError("address", "is required")
	}

	booking, err := s.remote.Create(ctx, draft)
	if err != nil {
		s.log.Warn("booking creation failed", zap.Error(err))
		return nil, err
	}
	s.log.Info("booking created", zap.String("bookingId", booking.ID))
	return booking, nil
}

// ConfirmCompletion is the customer's positive half of phase 2. It is only
// valid while a completion request is pending; the service rejects it
// otherwise, and the guard here saves the round-trip.
func (s *CustomerService) ConfirmCompletion(ctx context.Context, id string) (*domain.Booking, error) {
	return s.resolveCompletion(ctx, id, domain.ActionConfirmCompletion, s.remote.ConfirmCompletion)
}

// RejectCompletion returns the booking to plain InProgress; the worker may
// request completion again later.
func (s *CustomerService) RejectCompletion(ctx context.Context, id string) (*domain.Booking, error) {
	return s.resolveCompletion(ctx, id, domain.ActionRejectCompletion, s.remote.RejectCompletion)
}

func (s *CustomerService) resolveCompletion(ctx context.Context, id string, action domain.Action, call func(context.Context, string) (*domain.Booking, error)) (*domain.Booking, error) {
	current, err := s.remote.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CanApply(current, domain.ActorCustomer, action); err != nil {
		return nil, err
	}

	if _, err := call(ctx, id); err != nil {
		s.log.Warn("completion resolution failed",
			zap.String("bookingId", id), zap.String("action", string(action)), zap.Error(err))
		return nil, err
	}

	s.log.Info("completion resolved", zap.String("bookingId", id), zap.String("action", string(action)))
	// Re-read: completedAt is stamped server-side.
	return s.remote.Get(ctx, id)
}

func (s *CustomerService) Cancel(ctx context.Context, id, reason string) (*domain.Booking, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, remote.NewFieldError("cancellationReason", "is required")
	}

	current, err := s.remote.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CanApply(current, domain.ActorCustomer, domain.ActionCancel); err != nil {
		return nil, err
	}

	if _, err := s.remote.UpdateStatus(ctx, id, remote.TransitionRequest{
		Status:             domain.StatusCancelled,
		Actor:              domain.ActorCustomer,
		CancellationReason: reason,
	}); err != nil {
		s.log.Warn("cancellation failed", zap.String("bookingId", id), zap.Error(err))
		return nil, err
	}

	s.log.Info("booking cancelled", zap.String("bookingId", id))
	return s.remote.Get(ctx, id)
}

var _ CustomerUseCase = (*CustomerService)(nil)
