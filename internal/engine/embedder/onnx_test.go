package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipIfNoModel(t *testing.T) {
	t.Helper()
	if _, err := Locate(testModelDir); err != nil {
		t.Skip("model files not found; run 'make download-model' first")
	}
}

func testEmbedder(t *testing.T, normalize bool) *ONNXEmbedder {
	t.Helper()
	skipIfNoModel(t)
	emb, err := New(Config{ModelDir: testModelDir, Normalize: normalize})
	if err != nil {
		t.Skipf("ONNX runtime unavailable: %v", err)
	}
	t.Cleanup(func() { emb.Close() })
	return emb
}

func TestEmbedDim(t *testing.T) {
	emb := testEmbedder(t, true)
	// all-MiniLM-L6-v2 has no Dense module.
	assert.Equal(t, 384, emb.Dim())
}

func TestEmbedNormalized(t *testing.T) {
	emb := testEmbedder(t, true)

	vec, err := emb.Embed("Will the Chiefs win the Super Bowl?")
	require.NoError(t, err)
	require.Len(t, vec, emb.Dim())

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-4)
}

func TestEmbedBatchMatchesSingle(t *testing.T) {
	emb := testEmbedder(t, true)

	short := "Fed rate cut"
	batch, err := emb.EmbedBatch([]string{short, "Will the 2028 presidential election be decided by fewer than 10 electoral votes?"})
	require.NoError(t, err)
	require.Len(t, batch, 2)

	single, err := emb.Embed(short)
	require.NoError(t, err)

	// Padding must not leak into the pooled vector.
	assert.InDeltaSlice(t, single, batch[0], 1e-5)
	assert.NotEqual(t, batch[0], batch[1])
}

func TestEmbedBatchEmpty(t *testing.T) {
	emb := testEmbedder(t, false)

	vecs, err := emb.EmbedBatch(nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
