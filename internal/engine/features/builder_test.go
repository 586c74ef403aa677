package features

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/volcast/internal/model"
)

// stubEmbedder returns [len(title), index] for each title.
type stubEmbedder struct {
	calls int
	err   error
}

func (s *stubEmbedder) EmbedTitles(titles []string) ([][]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float64, len(titles))
	for i, t := range titles {
		out[i] = []float64{float64(len(t)), float64(i)}
	}
	return out, nil
}

var (
	embCols     = []string{"title_emb_0", "title_emb_1"}
	defaultCols = []string{"duration", "can_close_early", "title_emb_0", "title_emb_1", "is_major_event", "is_major_sport"}
)

func TestIsMajorEvent(t *testing.T) {
	assert.True(t, IsMajorEvent("2024 Election Final"))
	assert.True(t, IsMajorEvent("Stanley CUP winner"))
	assert.True(t, IsMajorEvent("NBA Finals MVP"))
	assert.False(t, IsMajorEvent("Will it rain tomorrow"))
	assert.False(t, IsMajorEvent(""))
}

func TestIsMajorSport(t *testing.T) {
	assert.True(t, IsMajorSport("NFL week 3 winner"))
	assert.True(t, IsMajorSport("nfl week 3 winner"))
	assert.True(t, IsMajorSport("premier league top scorer"))
	assert.True(t, IsMajorSport("Mlb home runs"))
	assert.False(t, IsMajorSport("NHL playoffs"))
}

func TestBuildColumnsMatchFeatureCols(t *testing.T) {
	cols := []string{"is_major_sport", "title_emb_1", "duration", "title_emb_0", "can_close_early", "is_major_event"}
	b, err := New(&stubEmbedder{}, embCols, cols)
	require.NoError(t, err)

	rows, err := b.Build([]model.Event{{Title: "a"}, {Title: "b"}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, cols, r.Columns)
		assert.Len(t, r.Values, len(cols))
	}
	assert.Equal(t, cols, b.Columns())
}

func TestBuildRowsDoNotShareColumns(t *testing.T) {
	basicCols := []string{ColDuration, ColIsMajorEvent}
	b, err := New(nil, nil, basicCols)
	require.NoError(t, err)

	rows, err := b.Build([]model.Event{{Title: "a"}, {Title: "b"}})
	require.NoError(t, err)
	rows[0].Columns[0] = "tampered"

	assert.Equal(t, basicCols[0], rows[1].Columns[0])
	assert.Equal(t, basicCols, b.Columns())

	again, err := b.Build([]model.Event{{Title: "c"}})
	require.NoError(t, err)
	assert.Equal(t, basicCols, again[0].Columns)
}

func TestBuildValues(t *testing.T) {
	emb := &stubEmbedder{}
	b, err := New(emb, embCols, defaultCols)
	require.NoError(t, err)

	events := []model.Event{
		{Title: "NFL Championship", Duration: model.Float(3600), CanCloseEarly: model.Bool(true)},
		{Title: "Will it rain tomorrow", Duration: model.Float(86400), CanCloseEarly: model.Bool(false)},
	}
	rows, err := b.Build(events)
	require.NoError(t, err)
	assert.Equal(t, 1, emb.calls, "titles embedded in one batch")

	assert.Equal(t, []float64{3600, 1, 16, 0, 1, 1}, rows[0].Values)
	assert.Equal(t, []float64{86400, 0, 21, 1, 0, 0}, rows[1].Values)
}

func TestBuildMissingDurationIsNaN(t *testing.T) {
	b, err := New(&stubEmbedder{}, embCols, defaultCols)
	require.NoError(t, err)

	rows, err := b.Build([]model.Event{{Title: "x"}})
	require.NoError(t, err)

	d, ok := rows[0].Get(ColDuration)
	require.True(t, ok)
	assert.True(t, math.IsNaN(d))
}

func TestBuildMissingCloseEarly(t *testing.T) {
	ev := []model.Event{{Title: "x", Duration: model.Float(1)}}

	b, err := New(&stubEmbedder{}, embCols, defaultCols)
	require.NoError(t, err)
	rows, err := b.Build(ev)
	require.NoError(t, err)
	v, _ := rows[0].Get(ColCanCloseEarly)
	assert.Equal(t, 0.0, v)

	b, err = New(&stubEmbedder{}, embCols, defaultCols, MissingCloseEarlyAsNaN())
	require.NoError(t, err)
	rows, err = b.Build(ev)
	require.NoError(t, err)
	v, _ = rows[0].Get(ColCanCloseEarly)
	assert.True(t, math.IsNaN(v))
}

func TestBuildDerivedColumns(t *testing.T) {
	cols := []string{
		ColDurationHours, ColDurationDays, ColLogDuration, ColTitleLength, ColTitleWordCount,
		"category_Sports", "category_Politics", "frequency_weekly",
	}
	b, err := New(nil, embCols, cols)
	require.NoError(t, err)

	rows, err := b.Build([]model.Event{{
		Title:     "Café de  Flore",
		Category:  "Sports",
		Frequency: "weekly",
		Duration:  model.Float(172800),
	}})
	require.NoError(t, err)

	v := rows[0].Values
	assert.Equal(t, 48.0, v[0])
	assert.Equal(t, 2.0, v[1])
	assert.InDelta(t, math.Log1p(172800), v[2], 1e-12)
	assert.Equal(t, 14.0, v[3])
	assert.Equal(t, 3.0, v[4])
	assert.Equal(t, []float64{1, 0, 1}, v[5:])
}

func TestBuildSkipsEmbedderWhenUnused(t *testing.T) {
	emb := &stubEmbedder{}
	b, err := New(emb, embCols, []string{ColDuration})
	require.NoError(t, err)

	_, err = b.Build([]model.Event{{Title: "x"}})
	require.NoError(t, err)
	assert.Zero(t, emb.calls)
}

func TestNewUnknownColumns(t *testing.T) {
	_, err := New(&stubEmbedder{}, embCols, []string{"duration", "open_interest", "title_emb_7", "category_"})

	var mm *MismatchError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, []string{"open_interest", "title_emb_7", "category_"}, mm.Missing)
	assert.Contains(t, mm.Error(), "open_interest")
}

func TestNewRequiresEmbedder(t *testing.T) {
	_, err := New(nil, embCols, defaultCols)
	assert.Error(t, err)
}

func TestBuildEmbedderError(t *testing.T) {
	b, err := New(&stubEmbedder{err: errors.New("onnx down")}, embCols, defaultCols)
	require.NoError(t, err)

	_, err = b.Build([]model.Event{{Title: "x"}})
	assert.ErrorContains(t, err, "onnx down")
}

func TestBuildEmpty(t *testing.T) {
	emb := &stubEmbedder{}
	b, err := New(emb, embCols, defaultCols)
	require.NoError(t, err)

	rows, err := b.Build(nil)
	require.NoError(t, err)
	assert.Nil(t, rows)
	assert.Zero(t, emb.calls)
}
