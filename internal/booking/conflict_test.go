package booking

import (
	"testing"
	"time"

	"github.com/iliyamo/study-room-reservation/internal/model"
)

func ts(hour, min int) time.Time {
	return time.Date(2026, 1, 10, hour, min, 0, 0, time.UTC)
}

func TestOverlaps_BackToBackDoNotConflict(t *testing.T) {
	if Overlaps(ts(10, 0), ts(11, 0), ts(11, 0), ts(12, 0)) {
		t.Fatalf("intervals sharing a boundary must not overlap")
	}
	if Overlaps(ts(11, 0), ts(12, 0), ts(10, 0), ts(11, 0)) {
		t.Fatalf("boundary sharing must be symmetric")
	}
}

func TestOverlaps_PartialAndContained(t *testing.T) {
	if !Overlaps(ts(10, 0), ts(12, 0), ts(11, 0), ts(13, 0)) {
		t.Fatalf("partial overlap not detected")
	}
	if !Overlaps(ts(10, 0), ts(14, 0), ts(11, 0), ts(12, 0)) {
		t.Fatalf("contained interval not detected")
	}
	if !Overlaps(ts(11, 0), ts(12, 0), ts(11, 0), ts(12, 0)) {
		t.Fatalf("identical intervals must overlap")
	}
}

func TestOverlaps_Disjoint(t *testing.T) {
	if Overlaps(ts(8, 0), ts(9, 0), ts(10, 0), ts(11, 0)) {
		t.Fatalf("disjoint intervals must not overlap")
	}
}

func TestHasConflict_IgnoresTerminalAndExcluded(t *testing.T) {
	existing := []model.Reservation{
		{ID: 1, StartsAt: ts(10, 0), EndsAt: ts(12, 0), Status: model.ReservationCancelled},
		{ID: 2, StartsAt: ts(10, 0), EndsAt: ts(12, 0), Status: model.ReservationActive},
	}
	if HasConflict(existing, ts(11, 0), ts(13, 0), 2) {
		t.Fatalf("excluded reservation must not count as a conflict")
	}
	if !HasConflict(existing, ts(11, 0), ts(13, 0), 0) {
		t.Fatalf("active overlapping reservation must conflict")
	}
	// Only the cancelled one overlaps once 2 is excluded.
	if HasConflict(existing[:1], ts(11, 0), ts(13, 0), 0) {
		t.Fatalf("terminal reservations must not conflict")
	}
}
