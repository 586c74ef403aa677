package embedder

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// defaultMaxSeqLen matches the sentence-transformers max_seq_length of the
// MiniLM family.
const defaultMaxSeqLen = 256

// maxWordRunes is the length beyond which a word maps straight to [UNK].
const maxWordRunes = 100

// batch is a set of titles tokenized for one ONNX call. Slices are flat
// [size * seqLen], right-padded to the longest sequence in the batch.
type batch struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	size          int64
	seqLen        int64
}

// tokenizer is an uncased BERT WordPiece tokenizer.
type tokenizer struct {
	vocab     *vocab
	maxSeqLen int
}

func newTokenizer(vocabPath string, maxSeqLen int) (*tokenizer, error) {
	v, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}
	if maxSeqLen < 2 {
		maxSeqLen = defaultMaxSeqLen
	}
	return &tokenizer{vocab: v, maxSeqLen: maxSeqLen}, nil
}

// encode returns [CLS] wordpieces... [SEP], truncated to maxSeqLen.
func (t *tokenizer) encode(text string) []int64 {
	pieces := t.wordpieces(normalize(text))
	if limit := t.maxSeqLen - 2; len(pieces) > limit {
		pieces = pieces[:limit]
	}

	ids := make([]int64, 0, len(pieces)+2)
	ids = append(ids, t.vocab.cls)
	for _, p := range pieces {
		ids = append(ids, t.vocab.id(p))
	}
	return append(ids, t.vocab.sep)
}

// encodeBatch tokenizes every text and packs them into one padded batch.
func (t *tokenizer) encodeBatch(texts []string) batch {
	if len(texts) == 0 {
		return batch{}
	}

	seqs := make([][]int64, len(texts))
	longest := 0
	for i, text := range texts {
		seqs[i] = t.encode(text)
		longest = max(longest, len(seqs[i]))
	}

	b := batch{
		size:   int64(len(texts)),
		seqLen: int64(longest),
	}
	total := len(texts) * longest
	b.inputIDs = make([]int64, total)
	b.attentionMask = make([]int64, total)
	b.tokenTypeIDs = make([]int64, total)

	for i, seq := range seqs {
		row := i * longest
		for j := range longest {
			if j < len(seq) {
				b.inputIDs[row+j] = seq[j]
				b.attentionMask[row+j] = 1
			} else {
				b.inputIDs[row+j] = t.vocab.pad
			}
		}
	}
	return b
}

// wordpieces splits whitespace/punctuation-separated words into subwords
// using greedy longest-match-first.
func (t *tokenizer) wordpieces(text string) []string {
	var out []string
	for _, word := range strings.Fields(text) {
		for _, w := range splitPunct(word) {
			out = append(out, t.splitWord(w)...)
		}
	}
	return out
}

func (t *tokenizer) splitWord(word string) []string {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []string{"[UNK]"}
	}

	var pieces []string
	for start := 0; start < len(runes); {
		end := len(runes)
		var piece string
		for ; end > start; end-- {
			cand := string(runes[start:end])
			if start > 0 {
				cand = "##" + cand
			}
			if t.vocab.has(cand) {
				piece = cand
				break
			}
		}
		if piece == "" {
			return []string{"[UNK]"}
		}
		pieces = append(pieces, piece)
		start = end
	}
	return pieces
}

// normalize applies BERT's basic cleanup: drop control characters, map
// whitespace to spaces, isolate CJK ideographs, lowercase, strip accents.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
		case isWhitespace(r):
			b.WriteByte(' ')
		case isCJK(r):
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}

	lowered := strings.ToLower(b.String())
	b.Reset()
	for _, r := range norm.NFD.String(lowered) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitPunct isolates every punctuation rune as its own token.
func splitPunct(word string) []string {
	var out []string
	start := -1
	for i, r := range word {
		if isPunct(r) {
			if start >= 0 {
				out = append(out, word[start:i])
				start = -1
			}
			out = append(out, string(r))
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, word[start:])
	}
	return out
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r) || unicode.In(r, unicode.Cf)
}

// isPunct treats all non-alphanumeric ASCII as punctuation, as BERT does.
func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
