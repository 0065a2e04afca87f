package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeserve/internal/domain"
	"homeserve/internal/remote"
	"homeserve/internal/service/customer"
	"homeserve/internal/service/worker"
	"homeserve/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	bookings := store.NewMemoryStore()
	handler := NewBookingHandler(bookings, store.NewMemoryIdempotencyStore(), time.Minute, nil)
	router := gin.New()
	handler.Register(router.Group("/bookings"))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, bookings
}

func draftFixture() domain.BookingDraft {
	return domain.BookingDraft{
		CustomerID:    "cust-1",
		CustomerEmail: "c@example.com",
		WorkerID:      "work-1",
		WorkerEmail:   "w@example.com",
		ServiceType:   "electrical",
		BookingDate:   time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second),
		Address:       domain.Address{Text: "7 Oak Ave"},
		Price:         120,
		ServiceFee:    12,
		TotalAmount:   132,
	}
}

func seedBooking(t *testing.T, bookings *store.MemoryStore, transitions ...domain.Action) *domain.Booking {
	t.Helper()
	ctx := context.Background()
	b, err := bookings.Create(ctx, draftFixture())
	require.NoError(t, err)
	for _, action := range transitions {
		actor := domain.ActorWorker
		switch action {
		case domain.ActionConfirmCompletion, domain.ActionRejectCompletion:
			actor = domain.ActorCustomer
		}
		b, err = bookings.Apply(ctx, b.ID, actor, action, "seed reason")
		require.NoError(t, err)
	}
	return b
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (int, []byte, bookingEnvelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env bookingEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	return resp.StatusCode, data, env
}

func TestBookingHandler_CreateRejectsInvalidDraft(t *testing.T) {
	srv, _ := newTestServer(t)

	status, _, env := doJSON(t, http.MethodPost, srv.URL+"/bookings", map[string]any{
		"customerEmail": "c@example.com",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Message)
}

func TestBookingHandler_GetUnknownIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	status, _, env := doJSON(t, http.MethodGet, srv.URL+"/bookings/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
}

func TestBookingHandler_ConfirmWithoutRequestIsConflict(t *testing.T) {
	srv, bookings := newTestServer(t)
	b := seedBooking(t, bookings, domain.ActionAccept, domain.ActionStart)

	status, _, env := doJSON(t, http.MethodPost, srv.URL+"/bookings/"+b.ID+"/confirm-completion", nil, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, domain.ErrCompletionNotRequested.Error(), env.Message)
}

func TestBookingHandler_TerminalStateIsConflict(t *testing.T) {
	srv, bookings := newTestServer(t)
	b := seedBooking(t, bookings, domain.ActionReject)

	status, _, env := doJSON(t, http.MethodPatch, srv.URL+"/bookings/"+b.ID+"/status", statusUpdateRequest{
		Status: domain.StatusConfirmed,
		Actor:  domain.ActorWorker,
	}, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, domain.ErrTerminalState.Error(), env.Message)
}

func TestBookingHandler_CancelBlankReasonIsBadRequest(t *testing.T) {
	srv, bookings := newTestServer(t)
	b := seedBooking(t, bookings)

	status, _, env := doJSON(t, http.MethodPatch, srv.URL+"/bookings/"+b.ID+"/status", statusUpdateRequest{
		Status:             domain.StatusCancelled,
		Actor:              domain.ActorCustomer,
		CancellationReason: "   ",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, domain.ErrCancellationReason.Error(), env.Message)
}

func TestBookingHandler_RequestCompletionIsIdempotent(t *testing.T) {
	srv, bookings := newTestServer(t)
	b := seedBooking(t, bookings, domain.ActionAccept, domain.ActionStart)

	for i := 0; i < 2; i++ {
		status, _, env := doJSON(t, http.MethodPost, srv.URL+"/bookings/"+b.ID+"/request-completion", nil, nil)
		require.Equal(t, http.StatusOK, status)
		require.NotNil(t, env.Booking)
		assert.Equal(t, domain.StatusInProgress, env.Booking.Status)
		assert.True(t, env.Booking.CompletionRequested)
	}
}

func TestBookingHandler_IdempotencyKeyReplaysRecordedOutcome(t *testing.T) {
	srv, bookings := newTestServer(t)
	b := seedBooking(t, bookings)

	headers := map[string]string{"Idempotency-Key": "key-accept-1"}
	body := statusUpdateRequest{Status: domain.StatusConfirmed, Actor: domain.ActorWorker}

	status, first, env := doJSON(t, http.MethodPatch, srv.URL+"/bookings/"+b.ID+"/status", body, headers)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Booking)
	assert.Equal(t, domain.StatusConfirmed, env.Booking.Status)

	// Same key replays the recorded response instead of re-applying.
	status, second, _ := doJSON(t, http.MethodPatch, srv.URL+"/bookings/"+b.ID+"/status", body, headers)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(first), string(second))

	// Without the key the transition is really attempted again and rejected.
	status, _, _ = doJSON(t, http.MethodPatch, srv.URL+"/bookings/"+b.ID+"/status", body, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestBookingHandler_PutResolvesCompletionRequestField(t *testing.T) {
	srv, bookings := newTestServer(t)
	b := seedBooking(t, bookings, domain.ActionAccept, domain.ActionStart)

	status, _, env := doJSON(t, http.MethodPut, srv.URL+"/bookings/"+b.ID, generalUpdateRequest{
		Status:              domain.StatusInProgress,
		Actor:               domain.ActorWorker,
		CompletionRequested: true,
	}, nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Booking)
	assert.Equal(t, domain.StatusInProgress, env.Booking.Status)
	assert.True(t, env.Booking.CompletionRequested)
}

func TestBookingAPI_FullLifecycleConfirm(t *testing.T) {
	srv, _ := newTestServer(t)
	client := remote.NewClient(srv.URL)
	customerSvc := customer.NewCustomerService(client, "c@example.com", nil)
	workerSvc := worker.NewWorkerService(client, "w@example.com", nil)
	ctx := context.Background()

	created, err := customerSvc.CreateBooking(ctx, draftFixture())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, created.Status)

	b, err := workerSvc.Accept(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, b.Status)

	b, err = workerSvc.StartJob(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, b.Status)

	b, err = workerSvc.RequestCompletion(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, b.CompletionRequested)
	assert.Equal(t, domain.StatusInProgress, b.Status)

	b, err = customerSvc.ConfirmCompletion(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, b.Status)
	assert.True(t, b.Completed)
	assert.False(t, b.CompletionRequested)
	require.NotNil(t, b.CompletedAt)

	mine, err := customerSvc.Bookings(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, domain.StatusCompleted, mine[0].Status)
}

func TestBookingAPI_RejectThenReRequestLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	client := remote.NewClient(srv.URL)
	customerSvc := customer.NewCustomerService(client, "c@example.com", nil)
	workerSvc := worker.NewWorkerService(client, "w@example.com", nil)
	ctx := context.Background()

	created, err := customerSvc.CreateBooking(ctx, draftFixture())
	require.NoError(t, err)
	_, err = workerSvc.Accept(ctx, created.ID)
	require.NoError(t, err)
	_, err = workerSvc.StartJob(ctx, created.ID)
	require.NoError(t, err)
	_, err = workerSvc.RequestCompletion(ctx, created.ID)
	require.NoError(t, err)

	b, err := customerSvc.RejectCompletion(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, b.Status)
	assert.False(t, b.CompletionRequested)

	// The worker may ask again after a rejection.
	b, err = workerSvc.RequestCompletion(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, b.CompletionRequested)

	b, err = customerSvc.ConfirmCompletion(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, b.Status)
}

func TestBookingAPI_WorkerCancelClearsPendingRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	client := remote.NewClient(srv.URL)
	customerSvc := customer.NewCustomerService(client, "c@example.com", nil)
	workerSvc := worker.NewWorkerService(client, "w@example.com", nil)
	ctx := context.Background()

	created, err := customerSvc.CreateBooking(ctx, draftFixture())
	require.NoError(t, err)
	_, err = workerSvc.Accept(ctx, created.ID)
	require.NoError(t, err)
	_, err = workerSvc.StartJob(ctx, created.ID)
	require.NoError(t, err)
	_, err = workerSvc.RequestCompletion(ctx, created.ID)
	require.NoError(t, err)

	b, err := workerSvc.Cancel(ctx, created.ID, "ran out of parts")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, b.Status)
	assert.False(t, b.CompletionRequested)
	assert.Equal(t, "ran out of parts", b.CancellationReason)

	// Terminal now; the customer cannot confirm anything.
	_, err = customerSvc.ConfirmCompletion(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrTerminalState)
}
