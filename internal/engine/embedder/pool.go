package embedder

import "math"

// meanPool averages token states over real (mask=1) positions only, so a
// sequence's vector is independent of how much padding its batch added.
//
// hidden is flat [size, seqLen, dim]; mask is flat [size, seqLen]. The result
// holds one dim-wide vector per sequence. A fully masked sequence yields zeros.
func meanPool(hidden []float32, mask []int64, size, seqLen, dim int) [][]float32 {
	out := make([][]float32, size)
	for b := range size {
		vec := make([]float32, dim)
		out[b] = vec

		var n int
		for s := range seqLen {
			if mask[b*seqLen+s] == 0 {
				continue
			}
			n++
			tok := hidden[(b*seqLen+s)*dim : (b*seqLen+s+1)*dim]
			for d, h := range tok {
				vec[d] += h
			}
		}
		if n == 0 {
			continue
		}
		inv := 1 / float32(n)
		for d := range vec {
			vec[d] *= inv
		}
	}
	return out
}

// l2Normalize scales vec to unit length in place. Zero vectors are left alone.
func l2Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
