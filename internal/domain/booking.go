package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status is the canonical booking status. Raw strings coming off the wire are
// normalized in UnmarshalJSON, so in-memory comparisons always see one of the
// six canonical values.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusConfirmed  Status = "Confirmed"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
	StatusRejected   Status = "Rejected"
)

// AllStatuses lists every canonical value, in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusRejected,
}

// Terminal reports whether no further transition is ever accepted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Normalize(raw)
	return nil
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Address struct {
	Text        string      `json:"text"`
	Coordinates Coordinates `json:"coordinates"`
}

// Booking is one scheduled service engagement between a customer and a
// worker, as held in client memory. The remote service is the source of
// truth; nothing here is authoritative beyond the last read.
type Booking struct {
	ID                  string     `json:"id"`
	Status              Status     `json:"status"`
	CompletionRequested bool       `json:"completionRequested"`
	Completed           bool       `json:"completed"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	WorkerID            string     `json:"workerId"`
	WorkerEmail         string     `json:"workerEmail"`
	CustomerID          string     `json:"customerId"`
	CustomerEmail       string     `json:"customerEmail"`
	ServiceType         string     `json:"serviceType"`
	Price               float64    `json:"price"`
	ServiceFee          float64    `json:"serviceFee"`
	TotalAmount         float64    `json:"totalAmount"`
	PaymentStatus       string     `json:"paymentStatus,omitempty"`
	BookingDate         time.Time  `json:"bookingDate"`
	Address             Address    `json:"address"`
	Notes               string     `json:"notes,omitempty"`
	CancellationReason  string     `json:"cancellationReason,omitempty"`
	IsReviewed          bool       `json:"isReviewed"`
	ReviewID            string     `json:"reviewId,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// BookingDraft is the customer-submitted creation payload. Tag name is
// "binding" so the same tags drive gin request binding on the server and the
// standalone validator on the client side.
type BookingDraft struct {
	CustomerID    string    `json:"customerId" binding:"required"`
	CustomerEmail string    `json:"customerEmail" binding:"required,email"`
	WorkerID      string    `json:"workerId" binding:"required"`
	WorkerEmail   string    `json:"workerEmail" binding:"required,email"`
	ServiceType   string    `json:"serviceType" binding:"required"`
	BookingDate   time.Time `json:"bookingDate" binding:"required"`
	Address       Address   `json:"address"`
	Notes         string    `json:"notes,omitempty"`
	Price         float64   `json:"price" binding:"gte=0"`
	ServiceFee    float64   `json:"serviceFee" binding:"gte=0"`
	TotalAmount   float64   `json:"totalAmount" binding:"gte=0"`
}

// Validate checks the record invariants that must hold after every accepted
// transition.
func (b *Booking) Validate() error {
	if !b.Status.Valid() {
		return fmt.Errorf("unknown status %q", b.Status)
	}
	if b.CompletionRequested && b.Status != StatusInProgress {
		return errors.New("completionRequested set outside InProgress")
	}
	if b.CompletionRequested && b.Completed {
		return errors.New("completionRequested set on a completed booking")
	}
	if b.Completed != (b.Status == StatusCompleted) {
		return fmt.Errorf("completed flag %v inconsistent with status %s", b.Completed, b.Status)
	}
	if b.Completed && b.CompletedAt == nil {
		return errors.New("completed booking missing completedAt")
	}
	return nil
}
