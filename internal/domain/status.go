package domain

import "strings"

// canonicalByKey maps folded status spellings to canonical values. Keys are
// lower-case with spaces, hyphens and underscores removed, so "in_progress",
// "In Progress" and "IN-PROGRESS" all land on the same entry.
var canonicalByKey = map[string]Status{
	"pending":    StatusPending,
	"confirmed":  StatusConfirmed,
	"inprogress": StatusInProgress,
	"completed":  StatusCompleted,
	"cancelled":  StatusCancelled,
	"canceled":   StatusCancelled,
	"rejected":   StatusRejected,
}

// Normalize maps any raw status string from the backend to its canonical
// value. It is total: unrecognized or empty input maps to StatusPending, the
// documented default, never an error. Every comparison and transition
// decision must go through this (or through Status.UnmarshalJSON, which
// calls it).
func Normalize(raw string) Status {
	key := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(raw)))

	if status, ok := canonicalByKey[key]; ok {
		return status
	}
	return StatusPending
}
