package corpus

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/volcast/internal/engine/testdata"
	"github.com/crimson-sun/volcast/internal/logging"
	"github.com/crimson-sun/volcast/internal/metrics"
	"github.com/crimson-sun/volcast/internal/model"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.Init(logging.Config{Output: &buf})
	t.Cleanup(func() { logging.Init(logging.Config{}) })
	return &buf
}

func TestReadFixture(t *testing.T) {
	path := writeFile(t, string(testdata.EventsJSON()))

	events, st, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, Stats{Loaded: 12}, st)
	assert.Len(t, events, 12)
}

func TestReadDropsInvalidRecords(t *testing.T) {
	path := writeFile(t, `[
		{"id": "1", "title": "ok", "final_volume": 10},
		{"id": "2", "title": "", "final_volume": 10},
		{"id": "3", "title": "negative", "final_volume": -5},
		{"id": "4", "title": "no volume"}
	]`)
	logs := captureLogs(t)

	events, st, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, Stats{Loaded: 2, Dropped: 2}, st)
	assert.Equal(t, []string{"1", "4"}, IDs(events))
	assert.Contains(t, logs.String(), "dropping invalid corpus record")
}

func TestReadMissingFile(t *testing.T) {
	_, _, err := Read(filepath.Join(t.TempDir(), "nope.json"))

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadCorrupt(t *testing.T) {
	_, _, err := Read(writeFile(t, `[{"id": "1", "title": `))

	var le *LoadError
	assert.True(t, errors.As(err, &le))
}

func TestLoadRecoversToEmpty(t *testing.T) {
	logs := captureLogs(t)

	events := Load(writeFile(t, `not json`))
	assert.NotNil(t, events)
	assert.Empty(t, events)
	assert.Contains(t, logs.String(), `"level":"warn"`)

	assert.Empty(t, Load(filepath.Join(t.TempDir(), "missing.json")))
}

func TestParseEvents(t *testing.T) {
	one, err := ParseEvents([]byte(` {"title": "Fed cut?", "duration": "3600"} `))
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, model.Float(3600), one[0].Duration)

	many, err := ParseEvents([]byte(`[{"title": "a"}, {"title": "b"}]`))
	require.NoError(t, err)
	assert.Len(t, many, 2)

	_, err = ParseEvents([]byte("  "))
	assert.Error(t, err)
	_, err = ParseEvents([]byte(`[{"title": }]`))
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	events, err := testdata.LoadEvents()
	require.NoError(t, err)

	ev, ok := Find(events, events[5].ID)
	require.True(t, ok)
	assert.Equal(t, events[5].Title, ev.Title)

	_, ok = Find(events, "no-such-id")
	assert.False(t, ok)
}

func TestRecordMetricsOnlyCountCorpusReads(t *testing.T) {
	loaded := metrics.CorpusRecords.WithLabelValues("loaded")
	dropped := metrics.CorpusRecords.WithLabelValues("dropped")
	merged := metrics.CorpusRecords.WithLabelValues("merged")
	before := []float64{testutil.ToFloat64(loaded), testutil.ToFloat64(dropped), testutil.ToFloat64(merged)}

	Validate([]model.Event{{Title: "submitted"}, {Title: ""}})
	assert.Equal(t, before[0], testutil.ToFloat64(loaded))
	assert.Equal(t, before[1], testutil.ToFloat64(dropped))

	path := writeFile(t, `[
		{"id": "1", "title": "a", "final_volume": 1},
		{"id": "1", "title": "a", "final_volume": 2},
		{"id": "2", "title": ""}
	]`)
	_, _, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, before[0]+1, testutil.ToFloat64(loaded))
	assert.Equal(t, before[1]+1, testutil.ToFloat64(dropped))
	assert.Equal(t, before[2]+1, testutil.ToFloat64(merged))
}
