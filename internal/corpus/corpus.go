// Package corpus loads the flat JSON data set of settled events used for
// comparisons.
package corpus

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/crimson-sun/volcast/internal/logging"
	"github.com/crimson-sun/volcast/internal/metrics"
	"github.com/crimson-sun/volcast/internal/model"
)

// LoadError reports a corpus that could not be read or parsed as a whole.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("corpus: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Stats counts what happened to each record of a load.
type Stats struct {
	Loaded  int
	Dropped int
	Merged  int // duplicate ids collapsed into one record
}

// Read loads and validates the corpus at path. A missing, unreadable or
// malformed file yields a *LoadError. Invalid records are dropped and
// counted, never returned. Records repeating an id are merged.
func Read(path string) ([]model.Event, Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Stats{}, &LoadError{Path: path, Err: err}
	}
	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, Stats{}, &LoadError{Path: path, Err: err}
	}
	valid, st := Validate(events)
	valid, st.Merged = Dedup(valid)
	st.Loaded = len(valid)

	metrics.CorpusRecords.WithLabelValues("loaded").Add(float64(st.Loaded))
	metrics.CorpusRecords.WithLabelValues("dropped").Add(float64(st.Dropped))
	metrics.CorpusRecords.WithLabelValues("merged").Add(float64(st.Merged))
	return valid, st, nil
}

// Load is Read with failures recovered: a corpus that cannot be loaded is
// logged and treated as empty.
func Load(path string) []model.Event {
	events, st, err := Read(path)
	if err != nil {
		metrics.CorpusLoadFailures.Inc()
		logging.Warn().Err(err).Str("path", path).Msg("corpus unavailable, continuing with an empty corpus")
		return []model.Event{}
	}
	logging.Info().Str("path", path).Int("loaded", st.Loaded).Int("dropped", st.Dropped).Int("merged", st.Merged).Msg("corpus loaded")
	return events
}

// Validate filters out records that fail their struct validation tags. It
// records no metrics, so it also serves submitted events.
func Validate(events []model.Event) ([]model.Event, Stats) {
	v := getValidator()
	out := events[:0:0]
	var st Stats
	for i, ev := range events {
		if err := v.Struct(ev); err != nil {
			st.Dropped++
			logging.Warn().Int("index", i).Str("id", ev.ID).Err(err).Msg("dropping invalid corpus record")
			continue
		}
		out = append(out, ev)
	}
	st.Loaded = len(out)
	return out, st
}

// ParseEvents decodes either a single event object or an array of them.
func ParseEvents(data []byte) ([]model.Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("corpus: empty input")
	}
	if data[0] == '{' {
		var ev model.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("corpus: %w", err)
		}
		return []model.Event{ev}, nil
	}
	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}
	return events, nil
}

// IDs returns the non-empty ids of events.
func IDs(events []model.Event) []string {
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.ID != "" {
			ids = append(ids, ev.ID)
		}
	}
	return ids
}

// Find returns the first event with the given id.
func Find(events []model.Event, id string) (model.Event, bool) {
	for _, ev := range events {
		if ev.ID == id {
			return ev, true
		}
	}
	return model.Event{}, false
}
