// Package gapfill computes which calendar days a provider should backfill.
//
// Institutions rarely expose bulk historical export; each day has to be
// fetched through the same slow interactive path as a live balance. The
// planner therefore bounds every run to a batch of the earliest missing
// days, spreading a full backfill across multiple runs.
package gapfill

import (
	"sort"
	"time"
)

// DefaultBatchSize bounds how many gap days a single run will attempt.
const DefaultBatchSize = 30

// Plan returns the calendar days missing from the known observation dates,
// earliest first, capped at maxBatch entries. Known dates may arrive in any
// order and with duplicates; only their calendar day matters.
//
// With fewer than two distinct known days there is no interior range to fill,
// so the result is empty. Every returned day lies strictly between the
// earliest and latest known day.
func Plan(known []time.Time, maxBatch int) []time.Time {
	if maxBatch <= 0 {
		maxBatch = DefaultBatchSize
	}

	days := make(map[string]struct{}, len(known))
	normalized := make([]time.Time, 0, len(known))
	for _, d := range known {
		day := truncateToDay(d)
		key := day.Format(time.DateOnly)
		if _, ok := days[key]; ok {
			continue
		}
		days[key] = struct{}{}
		normalized = append(normalized, day)
	}

	if len(normalized) < 2 {
		return nil
	}

	sort.Slice(normalized, func(i, j int) bool { return normalized[i].Before(normalized[j]) })
	earliest := normalized[0]
	latest := normalized[len(normalized)-1]

	var gaps []time.Time
	for cursor := earliest.AddDate(0, 0, 1); cursor.Before(latest); cursor = cursor.AddDate(0, 0, 1) {
		if _, ok := days[cursor.Format(time.DateOnly)]; ok {
			continue
		}
		gaps = append(gaps, cursor)
		if len(gaps) == maxBatch {
			break
		}
	}

	return gaps
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
