package artifact

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/goccy/go-json"
)

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape []int
	Data  []float32
}

// Len returns the number of elements implied by the shape.
func (t Tensor) Len() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

type tensorMeta struct {
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

const metadataKey = "__metadata__"

// ReadSafetensors reads every F32 tensor from a safetensors file, along with
// the optional string metadata block.
func ReadSafetensors(path string) (map[string]Tensor, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("safetensors: %w", err)
	}
	return decodeSafetensors(data)
}

func decodeSafetensors(data []byte) (map[string]Tensor, map[string]string, error) {
	if len(data) < 8 {
		return nil, nil, fmt.Errorf("safetensors: file too small: %d bytes", len(data))
	}

	// 8-byte LE uint64 header length, then a JSON header, then raw tensor bytes.
	headerLen := binary.LittleEndian.Uint64(data[:8])
	if uint64(len(data)-8) < headerLen {
		return nil, nil, fmt.Errorf("safetensors: header length %d exceeds file size", headerLen)
	}
	body := data[8+headerLen:]

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerLen], &header); err != nil {
		return nil, nil, fmt.Errorf("safetensors: failed to parse header: %w", err)
	}

	var meta map[string]string
	tensors := make(map[string]Tensor, len(header))
	for name, raw := range header {
		if name == metadataKey {
			if err := json.Unmarshal(raw, &meta); err != nil {
				return nil, nil, fmt.Errorf("safetensors: failed to parse metadata: %w", err)
			}
			continue
		}

		var tm tensorMeta
		if err := json.Unmarshal(raw, &tm); err != nil {
			return nil, nil, fmt.Errorf("safetensors: tensor %q: %w", name, err)
		}
		if tm.Dtype != "F32" {
			return nil, nil, fmt.Errorf("safetensors: tensor %q: expected dtype F32, got %s", name, tm.Dtype)
		}

		t := Tensor{Shape: tm.Shape}
		start, end := tm.DataOffsets[0], tm.DataOffsets[1]
		if start < 0 || end < start || end > len(body) {
			return nil, nil, fmt.Errorf("safetensors: tensor %q: data range [%d:%d] exceeds payload size %d",
				name, start, end, len(body))
		}
		if end-start != t.Len()*4 {
			return nil, nil, fmt.Errorf("safetensors: tensor %q: data size %d doesn't match shape %v",
				name, end-start, tm.Shape)
		}

		t.Data = make([]float32, t.Len())
		for i := range t.Data {
			off := start + i*4
			t.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[off : off+4]))
		}
		tensors[name] = t
	}
	return tensors, meta, nil
}

// WriteSafetensors writes tensors and metadata in safetensors layout. Tensors
// are laid out in name order so output is deterministic.
func WriteSafetensors(path string, tensors map[string]Tensor, meta map[string]string) error {
	data, err := encodeSafetensors(tensors, meta)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("safetensors: %w", err)
	}
	return nil
}

func encodeSafetensors(tensors map[string]Tensor, meta map[string]string) ([]byte, error) {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if name == metadataKey {
			return nil, fmt.Errorf("safetensors: %q is a reserved tensor name", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(tensors)+1)
	if len(meta) > 0 {
		header[metadataKey] = meta
	}

	var payload bytes.Buffer
	for _, name := range names {
		t := tensors[name]
		if len(t.Data) != t.Len() {
			return nil, fmt.Errorf("safetensors: tensor %q: %d values for shape %v", name, len(t.Data), t.Shape)
		}
		start := payload.Len()
		buf := make([]byte, 4)
		for _, v := range t.Data {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			payload.Write(buf)
		}
		header[name] = tensorMeta{Dtype: "F32", Shape: t.Shape, DataOffsets: [2]int{start, payload.Len()}}
	}

	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("safetensors: marshal header: %w", err)
	}
	// Pad the header with spaces so the payload starts 8-byte aligned.
	if pad := len(hdr) % 8; pad != 0 {
		hdr = append(hdr, bytes.Repeat([]byte(" "), 8-pad)...)
	}

	out := make([]byte, 8, 8+len(hdr)+payload.Len())
	binary.LittleEndian.PutUint64(out, uint64(len(hdr)))
	out = append(out, hdr...)
	out = append(out, payload.Bytes()...)
	return out, nil
}
