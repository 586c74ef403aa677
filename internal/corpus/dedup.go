package corpus

import "github.com/crimson-sun/volcast/internal/model"

// Dedup collapses records that share an id. The collector appends a ticker
// again each time it is re-scraped, so the last record carries the freshest
// volume; it replaces the earlier ones in first-occurrence position.
// Records without an id are never merged. Returns the merge count.
func Dedup(events []model.Event) ([]model.Event, int) {
	if len(events) == 0 {
		return events, 0
	}

	pos := make(map[string]int, len(events))
	out := make([]model.Event, 0, len(events))
	merged := 0
	for _, ev := range events {
		if ev.ID == "" {
			out = append(out, ev)
			continue
		}
		if i, ok := pos[ev.ID]; ok {
			out[i] = mergeRecord(out[i], ev)
			merged++
			continue
		}
		pos[ev.ID] = len(out)
		out = append(out, ev)
	}
	return out, merged
}

// mergeRecord overlays newer onto older, keeping older values for fields
// the newer record left empty.
func mergeRecord(older, newer model.Event) model.Event {
	if newer.Category == "" {
		newer.Category = older.Category
	}
	if newer.Frequency == "" {
		newer.Frequency = older.Frequency
	}
	if newer.Series == "" {
		newer.Series = older.Series
	}
	if newer.Duration == nil {
		newer.Duration = older.Duration
	}
	if newer.CanCloseEarly == nil {
		newer.CanCloseEarly = older.CanCloseEarly
	}
	if newer.Volume == nil {
		newer.Volume = older.Volume
	}
	return newer
}
