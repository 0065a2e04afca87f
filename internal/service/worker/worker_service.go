package worker

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"homeserve/internal/domain"
	"homeserve/internal/remote"
)

// Remote is the slice of the booking service client the worker app needs.
type Remote interface {
	ListForWorker(ctx context.Context, email string) ([]domain.Booking, error)
	Get(ctx context.Context, id string) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id string, req remote.TransitionRequest) (*domain.Booking, error)
	RequestCompletion(ctx context.Context, id string) (*domain.Booking, error)
}

// WorkerUseCase issues the worker-authorized transitions. None of them can
// reach Completed; that edge belongs to the customer's half of the
// completion handshake.
type WorkerUseCase interface {
	Bookings(ctx context.Context) ([]domain.Booking, error)
	Accept(ctx context.Context, id string) (*domain.Booking, error)
	Reject(ctx context.Context, id string) (*domain.Booking, error)
	StartJob(ctx context.Context, id string) (*domain.Booking, error)
	Cancel(ctx context.Context, id, reason string) (*domain.Booking, error)
	RequestCompletion(ctx context.Context, id string) (*domain.Booking, error)
}

type WorkerService struct {
	remote Remote
	email  string
	log    *zap.Logger
}

func NewWorkerService(remote Remote, email string, log *zap.Logger) *WorkerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerService{remote: remote, email: email, log: log}
}

func (s *WorkerService) Bookings(ctx context.Context) ([]domain.Booking, error) {
	return s.remote.ListForWorker(ctx, s.email)
}

func (s *WorkerService) Accept(ctx context.Context, id string) (*domain.Booking, error) {
	return s.transition(ctx, id, domain.ActionAccept, domain.StatusConfirmed, "")
}

func (s *WorkerService) Reject(ctx context.Context, id string) (*domain.Booking, error) {
	return s.transition(ctx, id, domain.ActionReject, domain.StatusRejected, "")
}

func (s *WorkerService) StartJob(ctx context.Context, id string) (*domain.Booking, error) {
	return s.transition(ctx, id, domain.ActionStart, domain.StatusInProgress, "")
}

func (s *WorkerService) Cancel(ctx context.Context, id, reason string) (*domain.Booking, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, remote.NewFieldError("cancellationReason", "is required")
	}
	return s.transition(ctx, id, domain.ActionCancel, domain.StatusCancelled, reason)
}

// RequestCompletion is phase 1 of the completion handshake. Idempotent: when
// a request is already pending the redundant network call is skipped and the
// current state returned as-is.
func (s *WorkerService) RequestCompletion(ctx context.Context, id string) (*domain.Booking, error) {
	current, err := s.remote.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CanApply(current, domain.ActorWorker, domain.ActionRequestCompletion); err != nil {
		return nil, err
	}
	if current.CompletionRequested {
		return current, nil
	}

	if _, err := s.remote.RequestCompletion(ctx, id); err != nil {
		s.log.Warn("request-completion failed", zap.String("bookingId", id), zap.Error(err))
		return nil, err
	}
	s.log.Info("completion requested", zap.String("bookingId", id))
	return s.remote.Get(ctx, id)
}

// transition guards the action against the last known server state, issues
// it, and re-reads the booking. The response payload is never taken as the
// new truth: the service may have applied fields the client did not send.
// On failure no local state changes; the last confirmed server state stands.
func (s *WorkerService) transition(ctx context.Context, id string, action domain.Action, target domain.Status, reason string) (*domain.Booking, error) {
	current, err := s.remote.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CanApply(current, domain.ActorWorker, action); err != nil {
		return nil, err
	}

	if _, err := s.remote.UpdateStatus(ctx, id, remote.TransitionRequest{
		Status:             target,
		Actor:              domain.ActorWorker,
		CancellationReason: reason,
	}); err != nil {
		s.log.Warn("transition failed",
			zap.String("bookingId", id), zap.String("action", string(action)), zap.Error(err))
		return nil, err
	}

	s.log.Info("transition applied",
		zap.String("bookingId", id), zap.String("action", string(action)), zap.String("target", string(target)))
	return s.remote.Get(ctx, id)
}

var _ WorkerUseCase = (*WorkerService)(nil)
