// Package similarity picks comparable historical events for an anchor by
// closeness in volume.
package similarity

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/crimson-sun/volcast/internal/model"
)

// DefaultCap is the number of comparable events shown next to an anchor.
const DefaultCap = 8

// ErrAnchorVolume is returned when the anchor carries no volume to compare
// against.
var ErrAnchorVolume = errors.New("similarity: anchor has no volume")

// DiversityKey selects which attribute may not repeat within a selection.
type DiversityKey int

const (
	DiversitySeries DiversityKey = iota
	DiversityCategory
	DiversityBoth // series and category must both be unseen
)

// ParseDiversityKey maps "series", "category" or "both" to a DiversityKey.
func ParseDiversityKey(s string) (DiversityKey, error) {
	switch s {
	case "", "series":
		return DiversitySeries, nil
	case "category":
		return DiversityCategory, nil
	case "both":
		return DiversityBoth, nil
	}
	return 0, fmt.Errorf("similarity: unknown diversity key %q", s)
}

func (k DiversityKey) String() string {
	switch k {
	case DiversityCategory:
		return "category"
	case DiversityBoth:
		return "both"
	default:
		return "series"
	}
}

type options struct {
	key DiversityKey
}

// Option configures Select.
type Option func(*options)

// WithDiversity sets the diversity key. The default is DiversitySeries.
func WithDiversity(k DiversityKey) Option {
	return func(o *options) { o.key = k }
}

type candidate struct {
	ev   model.Event
	dist float64
}

// Select returns up to limit corpus events ordered by ascending
// |volume - anchor volume|, ties kept in corpus order. The anchor itself
// (matched by ID) and events without a volume are skipped, and no two
// results share a diversity key. A limit <= 0 means DefaultCap. Fewer
// results are returned when the corpus runs out; the list is never padded.
func Select(anchor model.Event, corpus []model.Event, limit int, opts ...Option) ([]model.Event, error) {
	if anchor.Volume == nil || math.IsNaN(*anchor.Volume) {
		return nil, ErrAnchorVolume
	}
	o := options{key: DiversitySeries}
	for _, fn := range opts {
		fn(&o)
	}
	if limit <= 0 {
		limit = DefaultCap
	}
	target := *anchor.Volume

	cands := make([]candidate, 0, len(corpus))
	for _, ev := range corpus {
		if anchor.ID != "" && ev.ID == anchor.ID {
			continue
		}
		if ev.Volume == nil || math.IsNaN(*ev.Volume) {
			continue
		}
		cands = append(cands, candidate{ev: ev, dist: math.Abs(*ev.Volume - target)})
	}
	slices.SortStableFunc(cands, func(a, b candidate) int {
		switch {
		case a.dist < b.dist:
			return -1
		case a.dist > b.dist:
			return 1
		}
		return 0
	})

	seenSeries := make(map[string]bool)
	seenCategory := make(map[string]bool)
	out := make([]model.Event, 0, min(limit, len(cands)))
	for _, c := range cands {
		if len(out) == limit {
			break
		}
		s, cat := c.ev.Series, c.ev.Category
		switch o.key {
		case DiversitySeries:
			if seenSeries[s] {
				continue
			}
		case DiversityCategory:
			if seenCategory[cat] {
				continue
			}
		case DiversityBoth:
			if seenSeries[s] || seenCategory[cat] {
				continue
			}
		}
		seenSeries[s] = true
		seenCategory[cat] = true
		out = append(out, c.ev)
	}
	return out, nil
}
