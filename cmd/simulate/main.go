package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"homeserve/config"
	"homeserve/internal/domain"
	"homeserve/internal/logging"
	"homeserve/internal/remote"
	"homeserve/internal/service/customer"
	"homeserve/internal/service/worker"
	"homeserve/internal/syncer"
	"homeserve/internal/views"
)

// simulate drives one complete booking lifecycle against a running booking
// service: create, accept, start, request completion, confirm.
func main() {
	customerEmail := flag.String("customer", "customer@example.com", "customer email")
	workerEmail := flag.String("worker", "worker@example.com", "worker email")
	flag.Parse()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []remote.Option{
		remote.WithLogger(logger),
		remote.WithHTTPClient(&http.Client{Timeout: cfg.Remote.Timeout()}),
	}
	if cfg.Remote.DisablePutFallback {
		opts = append(opts, remote.WithoutPutFallback())
	}
	client := remote.NewClient(cfg.Remote.BaseURL, opts...)

	customerSvc := customer.NewCustomerService(client, *customerEmail, logger)
	workerSvc := worker.NewWorkerService(client, *workerEmail, logger)
	refresher := syncer.NewRefresher(customerSvc.Bookings, syncer.Config{
		ForegroundMinInterval: cfg.Refresh.ForegroundMinInterval(),
		KeepStaleSnapshot:     cfg.Refresh.KeepStaleSnapshot,
	}, logger)

	draft := domain.BookingDraft{
		CustomerID:    "cust-1",
		CustomerEmail: *customerEmail,
		WorkerID:      "work-1",
		WorkerEmail:   *workerEmail,
		ServiceType:   "deep-cleaning",
		BookingDate:   time.Now().Add(24 * time.Hour),
		Address:       domain.Address{Text: "12 Rosewood Lane", Coordinates: domain.Coordinates{Lat: -1.2921, Lng: 36.8219}},
		Price:         80,
		ServiceFee:    8,
		TotalAmount:   88,
	}

	booking, err := customerSvc.CreateBooking(ctx, draft)
	if err != nil {
		logger.Fatal("create booking", zap.String("message", remote.UserMessage(err)))
	}
	logger.Info("created", zap.String("bookingId", booking.ID), zap.String("status", string(booking.Status)))

	steps := []struct {
		name string
		run  func() (*domain.Booking, error)
	}{
		{"accept", func() (*domain.Booking, error) { return workerSvc.Accept(ctx, booking.ID) }},
		{"start job", func() (*domain.Booking, error) { return workerSvc.StartJob(ctx, booking.ID) }},
		{"request completion", func() (*domain.Booking, error) { return workerSvc.RequestCompletion(ctx, booking.ID) }},
		{"confirm completion", func() (*domain.Booking, error) { return customerSvc.ConfirmCompletion(ctx, booking.ID) }},
	}

	for _, step := range steps {
		b, err := step.run()
		if err != nil {
			logger.Fatal(step.name, zap.String("message", remote.UserMessage(err)))
		}
		logger.Info(step.name,
			zap.String("status", string(b.Status)),
			zap.Bool("completionRequested", b.CompletionRequested),
			zap.Bool("completed", b.Completed))

		// Every mutation is followed by a list refetch; the snapshot, not
		// the action result, is what the UI renders.
		if _, err := refresher.Refresh(ctx); err != nil {
			logger.Warn("refresh after mutation", zap.String("message", remote.UserMessage(err)))
		}
	}

	buckets := views.PartitionCustomer(refresher.Snapshot().Bookings)
	logger.Info("customer tabs",
		zap.Int("upcoming", len(buckets.Upcoming)),
		zap.Int("completed", len(buckets.Completed)),
		zap.Int("cancelled", len(buckets.Cancelled)))
}
