// Package testdata embeds a small collector-format corpus for tests.
package testdata

import (
	_ "embed"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/crimson-sun/volcast/internal/model"
)

//go:embed events.json
var eventsJSON []byte

// EventsJSON returns the raw corpus document.
func EventsJSON() []byte { return eventsJSON }

// LoadEvents parses the embedded corpus.
func LoadEvents() ([]model.Event, error) {
	var events []model.Event
	if err := json.Unmarshal(eventsJSON, &events); err != nil {
		return nil, fmt.Errorf("parse events.json: %w", err)
	}
	return events, nil
}
