package similarity

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/volcast/internal/model"
)

func ev(id, series string, vol float64) model.Event {
	return model.Event{ID: id, Title: "event " + id, Series: series, Volume: model.Float(vol)}
}

func volumes(evs []model.Event) []float64 {
	out := make([]float64, len(evs))
	for i, e := range evs {
		out[i] = *e.Volume
	}
	return out
}

func TestSelectOrdersByDistance(t *testing.T) {
	anchor := ev("anchor", "A", 500)
	corpus := []model.Event{
		ev("1", "S1", 100),
		ev("2", "S2", 490),
		ev("3", "S3", 510),
		ev("4", "S4", 5000),
		ev("5", "S5", 495),
	}

	got, err := Select(anchor, corpus, 8)
	require.NoError(t, err)
	assert.Equal(t, []float64{495, 490, 510, 100, 5000}, volumes(got))
}

func TestSelectExcludesAnchorByID(t *testing.T) {
	anchor := ev("a", "S0", 500)
	twin := ev("b", "S1", 500) // same value, different identity
	got, err := Select(anchor, []model.Event{anchor, twin}, 8)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestSelectStableTies(t *testing.T) {
	anchor := ev("a", "", 100)
	corpus := []model.Event{ev("x", "S1", 110), ev("y", "S2", 90), ev("z", "S3", 110)}

	got, err := Select(anchor, corpus, 8)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestSelectDiversitySeries(t *testing.T) {
	anchor := ev("a", "", 100)
	corpus := []model.Event{
		ev("1", "NFL", 101),
		ev("2", "NFL", 102),
		ev("3", "", 103),
		ev("4", "", 104),
		ev("5", "NBA", 105),
	}

	got, err := Select(anchor, corpus, 8)
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 103, 105}, volumes(got))
}

func TestSelectDiversityCategoryAndBoth(t *testing.T) {
	mk := func(id, series, cat string, vol float64) model.Event {
		e := ev(id, series, vol)
		e.Category = cat
		return e
	}
	anchor := mk("a", "", "", 0)
	corpus := []model.Event{
		mk("1", "S1", "Sports", 1),
		mk("2", "S2", "Sports", 2),
		mk("3", "S1", "Politics", 3),
		mk("4", "S4", "Economics", 4),
	}

	got, err := Select(anchor, corpus, 8, WithDiversity(DiversityCategory))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 4}, volumes(got))

	got, err = Select(anchor, corpus, 8, WithDiversity(DiversityBoth))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4}, volumes(got))
}

func TestSelectCapAndDefault(t *testing.T) {
	anchor := ev("a", "", 0)
	var corpus []model.Event
	for i := range 20 {
		corpus = append(corpus, ev(fmt.Sprint(i), fmt.Sprintf("S%d", i), float64(i+1)))
	}

	got, err := Select(anchor, corpus, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = Select(anchor, corpus, 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultCap)
}

func TestSelectSkipsMissingVolume(t *testing.T) {
	anchor := ev("a", "", 10)
	corpus := []model.Event{{ID: "n", Title: "no volume", Series: "S1"}, ev("v", "S2", 11)}

	got, err := Select(anchor, corpus, 8)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "v", got[0].ID)
}

func TestSelectAnchorWithoutVolume(t *testing.T) {
	_, err := Select(model.Event{ID: "a"}, []model.Event{ev("1", "S", 1)}, 8)
	assert.ErrorIs(t, err, ErrAnchorVolume)
}

func TestSelectEmptyCorpus(t *testing.T) {
	got, err := Select(ev("a", "", 1), nil, 8)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// Randomized check of the invariants every selection must hold.
func TestSelectProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := range 200 {
		anchor := ev("anchor", "A", float64(rng.IntN(1000)))
		corpus := []model.Event{anchor}
		for i := range rng.IntN(40) {
			corpus = append(corpus, ev(fmt.Sprintf("e%d", i), fmt.Sprintf("S%d", rng.IntN(10)), float64(rng.IntN(1000))))
		}
		limit := 1 + rng.IntN(10)

		got, err := Select(anchor, corpus, limit)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), limit, "trial %d", trial)

		series := map[string]bool{}
		prev := -1.0
		for _, e := range got {
			assert.NotEqual(t, "anchor", e.ID)
			assert.False(t, series[e.Series], "trial %d: series %s repeated", trial, e.Series)
			series[e.Series] = true
			d := math.Abs(*e.Volume - *anchor.Volume)
			assert.GreaterOrEqual(t, d, prev)
			prev = d
		}
	}
}

func TestParseDiversityKey(t *testing.T) {
	for in, want := range map[string]DiversityKey{"": DiversitySeries, "series": DiversitySeries, "category": DiversityCategory, "both": DiversityBoth} {
		got, err := ParseDiversityKey(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseDiversityKey("title")
	assert.Error(t, err)
	assert.Equal(t, "both", DiversityBoth.String())
}
