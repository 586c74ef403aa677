// Package features turns events into the numeric rows the regression
// pipeline was trained on.
package features

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/crimson-sun/volcast/internal/model"
)

// SchemaVersion identifies the column semantics this builder produces. A
// bundle trained against a different version is rejected at load.
const SchemaVersion = 2

// Source column names.
const (
	ColDuration       = "duration"
	ColCanCloseEarly  = "can_close_early"
	ColIsMajorEvent   = "is_major_event"
	ColIsMajorSport   = "is_major_sport"
	ColDurationHours  = "duration_hours"
	ColDurationDays   = "duration_days"
	ColLogDuration    = "log_duration"
	ColTitleLength    = "title_length"
	ColTitleWordCount = "title_word_count"

	categoryPrefix  = "category_"
	frequencyPrefix = "frequency_"
)

// TitleEmbedder yields the reduced title vectors, one per title, in order.
type TitleEmbedder interface {
	EmbedTitles(titles []string) ([][]float64, error)
}

// row is the per-event state a column reads from.
type row struct {
	ev  *model.Event
	emb []float64
}

type column func(r row) float64

// Builder projects events onto a fixed, ordered column list.
type Builder struct {
	emb     TitleEmbedder
	cols    []string
	extract []column
	needEmb bool
	embDim  int

	closeEarlyNaN bool
}

// Option configures a Builder.
type Option func(*Builder)

// MissingCloseEarlyAsNaN leaves an absent can_close_early as NaN for the
// pipeline's imputer instead of treating it as false.
func MissingCloseEarlyAsNaN() Option {
	return func(b *Builder) { b.closeEarlyNaN = true }
}

// New prepares a builder for featureCols. embCols name the reduced title
// embedding columns in component order. Every feature column must be
// producible; otherwise a *MismatchError lists the ones that are not.
func New(emb TitleEmbedder, embCols, featureCols []string, opts ...Option) (*Builder, error) {
	b := &Builder{
		emb:    emb,
		cols:   slices.Clone(featureCols),
		embDim: len(embCols),
	}
	for _, o := range opts {
		o(b)
	}

	embIndex := make(map[string]int, len(embCols))
	for i, c := range embCols {
		embIndex[c] = i
	}

	var missing []string
	b.extract = make([]column, len(b.cols))
	for i, name := range b.cols {
		if j, ok := embIndex[name]; ok {
			b.extract[i] = func(r row) float64 { return r.emb[j] }
			b.needEmb = true
			continue
		}
		col := b.source(name)
		if col == nil {
			missing = append(missing, name)
			continue
		}
		b.extract[i] = col
	}
	if len(missing) > 0 {
		return nil, &MismatchError{Missing: missing}
	}
	if b.needEmb && emb == nil {
		return nil, fmt.Errorf("features: embedding columns required but no embedder configured")
	}
	return b, nil
}

// Columns returns the output column order.
func (b *Builder) Columns() []string { return slices.Clone(b.cols) }

// source resolves a non-embedding column, or nil if unknown.
func (b *Builder) source(name string) column {
	switch name {
	case ColDuration:
		return func(r row) float64 { return duration(r.ev) }
	case ColCanCloseEarly:
		return b.canCloseEarly
	case ColIsMajorEvent:
		return func(r row) float64 { return indicator(IsMajorEvent(r.ev.Title)) }
	case ColIsMajorSport:
		return func(r row) float64 { return indicator(IsMajorSport(r.ev.Title)) }
	case ColDurationHours:
		return func(r row) float64 { return duration(r.ev) / 3600 }
	case ColDurationDays:
		return func(r row) float64 { return duration(r.ev) / 86400 }
	case ColLogDuration:
		return func(r row) float64 { return math.Log1p(duration(r.ev)) }
	case ColTitleLength:
		return func(r row) float64 { return float64(utf8.RuneCountInString(r.ev.Title)) }
	case ColTitleWordCount:
		return func(r row) float64 { return float64(len(strings.Fields(r.ev.Title))) }
	}

	if v, ok := strings.CutPrefix(name, categoryPrefix); ok && v != "" {
		return func(r row) float64 { return indicator(r.ev.Category == v) }
	}
	if v, ok := strings.CutPrefix(name, frequencyPrefix); ok && v != "" {
		return func(r row) float64 { return indicator(r.ev.Frequency == v) }
	}
	return nil
}

func (b *Builder) canCloseEarly(r row) float64 {
	if r.ev.CanCloseEarly == nil {
		if b.closeEarlyNaN {
			return math.NaN()
		}
		return 0
	}
	return indicator(*r.ev.CanCloseEarly)
}

// duration is NaN when missing so the pipeline's imputer sees it.
func duration(ev *model.Event) float64 {
	if ev.Duration == nil {
		return math.NaN()
	}
	return *ev.Duration
}

// Build produces one row per event, in input order. Titles are embedded in
// a single batch.
func (b *Builder) Build(events []model.Event) ([]model.FeatureRow, error) {
	if len(events) == 0 {
		return nil, nil
	}

	var embs [][]float64
	if b.needEmb {
		titles := make([]string, len(events))
		for i := range events {
			titles[i] = events[i].Title
		}
		var err error
		if embs, err = b.emb.EmbedTitles(titles); err != nil {
			return nil, fmt.Errorf("features: %w", err)
		}
		if len(embs) != len(events) {
			return nil, fmt.Errorf("features: got %d embeddings for %d events", len(embs), len(events))
		}
	}

	rows := make([]model.FeatureRow, len(events))
	for i := range events {
		r := row{ev: &events[i]}
		if embs != nil {
			if len(embs[i]) != b.embDim {
				return nil, fmt.Errorf("features: embedding width %d, want %d", len(embs[i]), b.embDim)
			}
			r.emb = embs[i]
		}
		vals := make([]float64, len(b.extract))
		for j, col := range b.extract {
			vals[j] = col(r)
		}
		rows[i] = model.FeatureRow{Columns: slices.Clone(b.cols), Values: vals}
	}
	return rows, nil
}
