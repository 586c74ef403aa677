package embedder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModelDir = "../../../models/all-MiniLM-L6-v2"

var testVocabPath = filepath.Join(testModelDir, "vocab.txt")

func skipIfNoVocab(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(testVocabPath); os.IsNotExist(err) {
		t.Skip("vocab.txt not found; run 'make download-model' first")
	}
}

// miniVocab writes a small vocabulary to a temp dir. Ids follow line order:
// [PAD]=0 [UNK]=1 [CLS]=2 [SEP]=3 then the listed tokens from 4.
func miniVocab(t *testing.T, tokens ...string) string {
	t.Helper()
	lines := append([]string{"[PAD]", "[UNK]", "[CLS]", "[SEP]"}, tokens...)
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func miniTokenizer(t *testing.T, maxSeqLen int) *tokenizer {
	t.Helper()
	path := miniVocab(t, "will", "the", "nfl", "win", "super", "bowl", "?", "2025", "champ", "##ion", "##ship")
	tok, err := newTokenizer(path, maxSeqLen)
	require.NoError(t, err)
	return tok
}

func TestLoadVocabMissingSpecial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte("[PAD]\n[UNK]\nhello\n"), 0o644))

	_, err := loadVocab(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[CLS]")
}

func TestLoadVocabEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := loadVocab(path)
	assert.Error(t, err)
}

func TestEncodeMarketTitle(t *testing.T) {
	tok := miniTokenizer(t, 0)

	// Will=4 the=5 NFL=6 win=7 ... ?=10
	ids := tok.encode("Will the NFL win?")
	assert.Equal(t, []int64{2, 4, 5, 6, 7, 10, 3}, ids)
}

func TestEncodeWordPieces(t *testing.T) {
	tok := miniTokenizer(t, 0)

	// champ ##ion ##ship
	assert.Equal(t, []int64{2, 12, 13, 14, 3}, tok.encode("Championship"))
	// no piece covers "zz"
	assert.Equal(t, []int64{2, 1, 3}, tok.encode("zz"))
}

func TestEncodeTruncates(t *testing.T) {
	tok := miniTokenizer(t, 6)

	ids := tok.encode(strings.Repeat("win ", 20))
	require.Len(t, ids, 6)
	assert.Equal(t, int64(2), ids[0])
	assert.Equal(t, int64(3), ids[5])
}

func TestNewTokenizerDefaultSeqLen(t *testing.T) {
	tok := miniTokenizer(t, 0)
	assert.Equal(t, defaultMaxSeqLen, tok.maxSeqLen)
}

func TestEncodeBatchPadding(t *testing.T) {
	tok := miniTokenizer(t, 0)

	b := tok.encodeBatch([]string{"win", "will the nfl win"})
	require.Equal(t, int64(2), b.size)
	require.Equal(t, int64(6), b.seqLen)
	require.Len(t, b.inputIDs, 12)
	require.Len(t, b.attentionMask, 12)
	require.Len(t, b.tokenTypeIDs, 12)

	assert.Equal(t, []int64{2, 7, 3, 0, 0, 0}, b.inputIDs[:6])
	assert.Equal(t, []int64{1, 1, 1, 0, 0, 0}, b.attentionMask[:6])
	assert.Equal(t, []int64{2, 4, 5, 6, 7, 3}, b.inputIDs[6:])
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 1}, b.attentionMask[6:])
	for _, v := range b.tokenTypeIDs {
		assert.Zero(t, v)
	}
}

func TestEncodeBatchEmpty(t *testing.T) {
	tok := miniTokenizer(t, 0)
	b := tok.encodeBatch(nil)
	assert.Zero(t, b.size)
	assert.Empty(t, b.inputIDs)
}

func TestSplitPunct(t *testing.T) {
	assert.Equal(t, []string{"a", "]", "b", "[", "c"}, splitPunct("a]b[c"))
	assert.Equal(t, []string{"$", "100k"}, splitPunct("$100k"))
	assert.Equal(t, []string{"?"}, splitPunct("?"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "cafe resume", normalize("Café Résumé"))
	assert.Equal(t, "a b", normalize("a\tb"))
	assert.Equal(t, " 你 ", normalize("你"))
}

// Reference tokenizations generated with HuggingFace BertTokenizer
// (bert-base-uncased vocabulary, shared by the MiniLM sentence models).
var referenceTests = []struct {
	name string
	text string
	ids  []int64
}{
	{"simple", "hello world", []int64{101, 7592, 2088, 102}},
	{"empty string", "", []int64{101, 102}},
	{"accented characters stripped", "café résumé naïve", []int64{101, 7668, 13746, 15743, 102}},
	{"chinese characters", "你好世界", []int64{101, 100, 100, 1745, 100, 102}},
	{"mixed punctuation brackets", "a]b[c", []int64{101, 1037, 1033, 1038, 1031, 1039, 102}},
}

func TestEncodeReference(t *testing.T) {
	skipIfNoVocab(t)
	tok, err := newTokenizer(testVocabPath, 0)
	require.NoError(t, err)

	for _, tc := range referenceTests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ids, tok.encode(tc.text))
		})
	}
}
