package model

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Event is a prediction-market event, either freshly submitted (volume
// unknown) or ingested from the historical corpus (volume known).
type Event struct {
	ID            string   `json:"id,omitempty"`
	Title         string   `json:"title" validate:"required"`
	Category      string   `json:"category,omitempty"`
	Frequency     string   `json:"frequency,omitempty"`
	Duration      *float64 `json:"duration"`                 // seconds; nil when missing or non-numeric
	CanCloseEarly *bool    `json:"can_close_early,omitempty"` // nil when the source omitted it
	Series        string   `json:"series,omitempty"`
	Volume        *float64 `json:"final_volume,omitempty" validate:"omitempty,gte=0"`
}

// HasVolume reports whether the event carries a settled volume.
func (e Event) HasVolume() bool {
	return e.Volume != nil
}

// rawEvent mirrors the loose on-disk shape, including the collector's ticker
// fields, before coercion into Event.
type rawEvent struct {
	ID            json.RawMessage `json:"id"`
	FullTicker    string          `json:"full_ticker"`
	SeriesTicker  string          `json:"series_ticker"`
	Title         string          `json:"title"`
	Category      string          `json:"category"`
	Frequency     string          `json:"frequency"`
	Duration      json.RawMessage `json:"duration"`
	CanCloseEarly *bool           `json:"can_close_early"`
	Series        string          `json:"series"`
	FinalVolume   json.RawMessage `json:"final_volume"`
	Volume        json.RawMessage `json:"volume"`
}

// UnmarshalJSON accepts both submitted events and collector records. Numeric
// fields may arrive as numbers, numeric strings or null; anything else is
// treated as missing rather than rejected.
func (e *Event) UnmarshalJSON(data []byte) error {
	var r rawEvent
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}

	*e = Event{
		ID:            rawString(r.ID),
		Title:         r.Title,
		Category:      r.Category,
		Frequency:     r.Frequency,
		Duration:      CoerceNumber(r.Duration),
		CanCloseEarly: r.CanCloseEarly,
		Series:        r.Series,
		Volume:        CoerceNumber(r.FinalVolume),
	}
	if e.ID == "" {
		e.ID = r.FullTicker
	}
	if e.Series == "" {
		e.Series = r.SeriesTicker
	}
	if e.Volume == nil {
		e.Volume = CoerceNumber(r.Volume)
	}
	return nil
}

// CoerceNumber converts a raw JSON value to a float. Decimal numbers and
// numeric strings convert; null, empty, booleans, hex forms, NaN, infinities
// and other strings yield nil.
func CoerceNumber(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
	}

	if strings.ContainsAny(s, "xX") {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// rawString renders a JSON string or number as a plain string.
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	return string(raw)
}

// Float returns a pointer to f. Handy for building events in code.
func Float(f float64) *float64 { return &f }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
