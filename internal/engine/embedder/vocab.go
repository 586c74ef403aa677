package embedder

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// vocab is a WordPiece vocabulary: one token per line, id = line number.
type vocab struct {
	ids map[string]int64

	pad, unk, cls, sep int64
}

func loadVocab(path string) (*vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()

	v := &vocab{ids: make(map[string]int64, 32000)}
	sc := bufio.NewScanner(f)
	var n int64
	for sc.Scan() {
		tok := strings.TrimRight(sc.Text(), "\r")
		if _, dup := v.ids[tok]; !dup {
			v.ids[tok] = n
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read %s: %w", path, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("vocab: %s is empty", path)
	}

	for name, dst := range map[string]*int64{
		"[PAD]": &v.pad,
		"[UNK]": &v.unk,
		"[CLS]": &v.cls,
		"[SEP]": &v.sep,
	} {
		id, ok := v.ids[name]
		if !ok {
			return nil, fmt.Errorf("vocab: missing special token %s", name)
		}
		*dst = id
	}
	return v, nil
}

func (v *vocab) id(tok string) int64 {
	if id, ok := v.ids[tok]; ok {
		return id
	}
	return v.unk
}

func (v *vocab) has(tok string) bool {
	_, ok := v.ids[tok]
	return ok
}
