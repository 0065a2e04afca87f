package views

import (
	"sort"

	"homeserve/internal/domain"
)

// CustomerBuckets are the customer app tabs. Mutually exclusive, recomputed
// fresh from every snapshot, never cached independently of status. Rejected
// bookings have no customer bucket.
type CustomerBuckets struct {
	Upcoming  []domain.Booking
	Completed []domain.Booking
	Cancelled []domain.Booking
}

// PartitionCustomer splits a snapshot into the customer tabs, each sorted by
// booking date descending (most recent first).
func PartitionCustomer(bookings []domain.Booking) CustomerBuckets {
	var out CustomerBuckets
	for _, b := range bookings {
		switch b.Status {
		case domain.StatusPending, domain.StatusConfirmed, domain.StatusInProgress:
			out.Upcoming = append(out.Upcoming, b)
		case domain.StatusCompleted:
			out.Completed = append(out.Completed, b)
		case domain.StatusCancelled:
			out.Cancelled = append(out.Cancelled, b)
		}
	}
	byDateDesc(out.Upcoming)
	byDateDesc(out.Completed)
	byDateDesc(out.Cancelled)
	return out
}

// WorkerActive is the worker app's default "All Active" filter: the snapshot
// minus Completed, Cancelled and Rejected, sorted by date ascending (soonest
// first).
func WorkerActive(bookings []domain.Booking) []domain.Booking {
	out := make([]domain.Booking, 0, len(bookings))
	for _, b := range bookings {
		if !b.Status.Terminal() {
			out = append(out, b)
		}
	}
	byDateAsc(out)
	return out
}

// WorkerByStatus is the explicit per-status filter; it accepts every enum
// value, including the ones excluded from the default view.
func WorkerByStatus(bookings []domain.Booking, status domain.Status) []domain.Booking {
	out := make([]domain.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Status == status {
			out = append(out, b)
		}
	}
	byDateAsc(out)
	return out
}

func byDateDesc(bookings []domain.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].BookingDate.After(bookings[j].BookingDate)
	})
}

func byDateAsc(bookings []domain.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].BookingDate.Before(bookings[j].BookingDate)
	})
}
