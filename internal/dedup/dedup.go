// Package dedup flags near-identical transaction rows as suspected
// duplicates.
package dedup

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
)

// Options tunes FindDuplicates.
type Options struct {
	// Tolerance is the largest date-serial gap, in days, between two rows
	// that still counts as a duplicate pair.
	Tolerance float64
	// ExcludeConfirmed keeps rows marked "!" out of the groups entirely.
	ExcludeConfirmed bool
	// TieBreak makes a "!" marker on the later row of a pair win over
	// chronological order, and skips pairs where both rows carry it.
	TieBreak bool
}

// BatchOptions is the strict batch policy: one day window, confirmed rows
// never considered.
func BatchOptions() Options {
	return Options{Tolerance: 1.0, ExcludeConfirmed: true}
}

// AnnotateOptions is the annotating policy: two day window, confirmed rows
// take part but are never the ones marked.
func AnnotateOptions() Options {
	return Options{Tolerance: 2.0, TieBreak: true}
}

// ValidateRows rejects rows whose date serial cannot be compared.
func ValidateRows(rows []domain.Row) error {
	for _, r := range rows {
		if math.IsNaN(r.DateSerial) || math.IsInf(r.DateSerial, 0) {
			return fmt.Errorf("row %d: invalid date serial %v", r.Index, r.DateSerial)
		}
	}
	return nil
}

// FindDuplicates returns the rows to rewrite, each with its subject already
// carrying the duplicate marker. Rows are grouped by exact amount and only
// neighbours in date order are compared, so three close rows yield at most
// two pairs.
func FindDuplicates(rows []domain.Row, opts Options) []domain.Row {
	var out []domain.Row
	for _, group := range groupByAmount(rows, opts) {
		out = append(out, scanGroup(group, opts)...)
	}
	return out
}

func groupByAmount(rows []domain.Row, opts Options) [][]domain.Row {
	var order []string
	groups := make(map[string][]domain.Row)

	for _, r := range rows {
		switch r.Marker() {
		case domain.MarkerDuplicate:
			continue
		case domain.MarkerConfirmed:
			if opts.ExcludeConfirmed {
				continue
			}
		}

		key := r.Amount.String()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	out := make([][]domain.Row, 0, len(order))
	for _, key := range order {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].DateSerial < group[j].DateSerial
		})
		out = append(out, group)
	}
	return out
}

func scanGroup(group []domain.Row, opts Options) []domain.Row {
	var out []domain.Row

	for i := 0; i+1 < len(group); i++ {
		earlier, later := group[i], group[i+1]
		if math.Abs(later.DateSerial-earlier.DateSerial) > opts.Tolerance {
			continue
		}
		if strings.TrimSpace(earlier.Account) != strings.TrimSpace(later.Account) {
			continue
		}

		original, duplicate := earlier, later
		if opts.TieBreak {
			earlierConfirmed := earlier.Marker() == domain.MarkerConfirmed
			laterConfirmed := later.Marker() == domain.MarkerConfirmed
			if earlierConfirmed && laterConfirmed {
				continue
			}
			if laterConfirmed {
				original, duplicate = later, earlier
			}
		}

		duplicate.Subject = domain.DuplicateSubject(original.Index, duplicate.Subject)
		out = append(out, duplicate)
	}

	return out
}
