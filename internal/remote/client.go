package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"homeserve/internal/domain"
)

// Client talks JSON-over-HTTP to the remote booking service, the sole source
// of truth for booking state. It never caches; callers refetch after every
// mutation instead of trusting their own payloads.
type Client struct {
	baseURL            string
	httpc              *http.Client
	log                *zap.Logger
	newIdempotencyKey  func() string
	disablePutFallback bool
}

type Option func(*Client)

func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithoutPutFallback disables the legacy PUT fallback for status updates.
func WithoutPutFallback() Option {
	return func(c *Client) { c.disablePutFallback = true }
}

// WithIdempotencyKeyFunc overrides key generation, for tests.
func WithIdempotencyKeyFunc(fn func() string) Option {
	return func(c *Client) { c.newIdempotencyKey = fn }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:           strings.TrimRight(baseURL, "/"),
		httpc:             &http.Client{Timeout: 15 * time.Second},
		log:               zap.NewNop(),
		newIdempotencyKey: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TransitionRequest is the status-specific transition payload.
type TransitionRequest struct {
	Status             domain.Status `json:"status"`
	Actor              domain.Actor  `json:"actor"`
	CancellationReason string        `json:"cancellationReason,omitempty"`
}

// fullUpdateRequest is the legacy general-update payload sent to
// PUT /bookings/{id}. completedAt is never sent; the server stamps it.
type fullUpdateRequest struct {
	Status              domain.Status `json:"status"`
	Actor               domain.Actor  `json:"actor"`
	Completed           bool          `json:"completed"`
	CompletionRequested bool          `json:"completionRequested"`
	CancellationReason  string        `json:"cancellationReason,omitempty"`
}

// envelope is the optional response wrapper. The service may also answer
// with a bare Booking or Booking array; both forms are accepted.
type envelope struct {
	Success  *bool            `json:"success,omitempty"`
	Message  string           `json:"message,omitempty"`
	Booking  *domain.Booking  `json:"booking,omitempty"`
	Bookings []domain.Booking `json:"bookings,omitempty"`
}

func (c *Client) ListForCustomer(ctx context.Context, email string) ([]domain.Booking, error) {
	data, err := c.do(ctx, http.MethodGet, "/bookings/user/"+url.PathEscape(email), nil, "")
	if err != nil {
		return nil, err
	}
	return decodeBookings(data)
}

func (c *Client) ListForWorker(ctx context.Context, email string) ([]domain.Booking, error) {
	data, err := c.do(ctx, http.MethodGet, "/bookings/worker/"+url.PathEscape(email), nil, "")
	if err != nil {
		return nil, err
	}
	return decodeBookings(data)
}

func (c *Client) Get(ctx context.Context, id string) (*domain.Booking, error) {
	data, err := c.do(ctx, http.MethodGet, "/bookings/"+url.PathEscape(id), nil, "")
	if err != nil {
		return nil, err
	}
	return decodeBooking(data)
}

func (c *Client) Create(ctx context.Context, draft domain.BookingDraft) (*domain.Booking, error) {
	data, err := c.do(ctx, http.MethodPost, "/bookings", draft, c.newIdempotencyKey())
	if err != nil {
		return nil, err
	}
	return decodeBooking(data)
}

// UpdateStatus issues a transition through the status-specific endpoint and,
// when the server rejects it server-side, retries once through the legacy
// general update endpoint. Both attempts carry the same idempotency key, so
// the pair can never double-apply.
func (c *Client) UpdateStatus(ctx context.Context, id string, req TransitionRequest) (*domain.Booking, error) {
	key := c.newIdempotencyKey()

	data, err := c.do(ctx, http.MethodPatch, "/bookings/"+url.PathEscape(id)+"/status", req, key)
	if err == nil {
		return decodeBooking(data)
	}
	if c.disablePutFallback || !serverSide(err) {
		return nil, err
	}

	c.log.Debug("status endpoint failed, falling back to general update",
		zap.String("bookingId", id), zap.String("status", string(req.Status)), zap.Error(err))

	full := fullUpdateRequest{
		Status:              req.Status,
		Actor:               req.Actor,
		Completed:           req.Status == domain.StatusCompleted,
		CompletionRequested: false,
		CancellationReason:  req.CancellationReason,
	}
	data, err = c.do(ctx, http.MethodPut, "/bookings/"+url.PathEscape(id), full, key)
	if err != nil {
		return nil, err
	}
	return decodeBooking(data)
}

func (c *Client) RequestCompletion(ctx context.Context, id string) (*domain.Booking, error) {
	return c.completion(ctx, id, "request-completion")
}

func (c *Client) ConfirmCompletion(ctx context.Context, id string) (*domain.Booking, error) {
	return c.completion(ctx, id, "confirm-completion")
}

func (c *Client) RejectCompletion(ctx context.Context, id string) (*domain.Booking, error) {
	return c.completion(ctx, id, "reject-completion")
}

func (c *Client) completion(ctx context.Context, id, phase string) (*domain.Booking, error) {
	data, err := c.do(ctx, http.MethodPost, "/bookings/"+url.PathEscape(id)+"/"+phase, nil, c.newIdempotencyKey())
	if err != nil {
		return nil, err
	}
	return decodeBooking(data)
}

// serverSide reports whether the service itself rejected the request, as
// opposed to the request never reaching it.
func serverSide(err error) bool {
	var srv *ServerError
	var mal *MalformedResponseError
	return errors.As(err, &srv) || errors.As(err, &mal)
}

func (c *Client) do(ctx context.Context, method, path string, body any, idempotencyKey string) ([]byte, error) {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var env envelope
		if json.Unmarshal(data, &env) == nil {
			return nil, &ServerError{StatusCode: resp.StatusCode, Message: env.Message}
		}
		return nil, &MalformedResponseError{StatusCode: resp.StatusCode, Err: errors.New("response body is not JSON")}
	}
	return data, nil
}

func decodeBooking(data []byte) (*domain.Booking, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &MalformedResponseError{StatusCode: http.StatusOK, Err: err}
	}
	if env.Success != nil && !*env.Success {
		return nil, &ServerError{StatusCode: http.StatusOK, Message: env.Message}
	}
	if env.Booking != nil {
		return env.Booking, nil
	}

	// Bare booking body.
	var b domain.Booking
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, &MalformedResponseError{StatusCode: http.StatusOK, Err: err}
	}
	if b.ID == "" {
		return nil, &MalformedResponseError{StatusCode: http.StatusOK, Err: errors.New("response carries no booking")}
	}
	return &b, nil
}

func decodeBookings(data []byte) ([]domain.Booking, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var bookings []domain.Booking
		if err := json.Unmarshal(trimmed, &bookings); err != nil {
			return nil, &MalformedResponseError{StatusCode: http.StatusOK, Err: err}
		}
		return bookings, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &MalformedResponseError{StatusCode: http.StatusOK, Err: err}
	}
	if env.Success != nil && !*env.Success {
		return nil, &ServerError{StatusCode: http.StatusOK, Message: env.Message}
	}
	return env.Bookings, nil
}
