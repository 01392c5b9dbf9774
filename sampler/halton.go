package sampler

import (
	"math"
	"math/bits"
)

// QuasiRandom generates a stateful sequence of 2D low-discrepancy points in
// [0, 1)². Each call to Next advances the sequence by one draw.
type QuasiRandom interface {
	Next() (x, y float32)

	// Rewind the sequence to its first draw.
	Reset()

	// Get the index of the next draw.
	Index() uint32
}

// HaltonSequence generates Halton points using bases 2 and 3 with Faure
// digit permutations. A third dimension in base 5 is available via Sample.
type HaltonSequence struct {
	index uint32
	perm3 [243]uint16
	perm5 [125]uint16
}

// Create a new Halton sequence starting at index 0.
func NewHaltonSequence() *HaltonSequence {
	h := &HaltonSequence{}
	h.initFaure()
	return h
}

func (h *HaltonSequence) Next() (x, y float32) {
	x, y = h.Sample(0, h.index), h.Sample(1, h.index)
	h.index++
	return x, y
}

func (h *HaltonSequence) Reset() {
	h.index = 0
}

func (h *HaltonSequence) Index() uint32 {
	return h.index
}

// Get the sample for a dimension (0, 1 or 2) at a particular index.
func (h *HaltonSequence) Sample(dim int, index uint32) float32 {
	switch dim {
	case 0:
		return radicalInverse2(index)
	case 1:
		v := uint32(h.perm3[index%243])*14348907 +
			uint32(h.perm3[(index/243)%243])*59049 +
			uint32(h.perm3[(index/59049)%243])*243 +
			uint32(h.perm3[(index/14348907)%243])
		return float32(float64(v) * (0.999999999999999 / 3486784401.0))
	case 2:
		v := uint32(h.perm5[index%125])*1953125 +
			uint32(h.perm5[(index/125)%125])*15625 +
			uint32(h.perm5[(index/15625)%125])*125 +
			uint32(h.perm5[(index/1953125)%125])
		return float32(float64(v) * (0.999999999999999 / 244140625.0))
	}
	return 0
}

// Reverse the index bits into the float mantissa.
func radicalInverse2(index uint32) float32 {
	return math.Float32frombits(0x3f800000|(bits.Reverse32(index)>>9)) - 1.0
}

// Build the digit lookup tables for bases 3 and 5. Bases up to 3 use the
// identity permutation.
func (h *HaltonSequence) initFaure() {
	const maxBase = 5
	perms := make([][]uint16, maxBase+1)
	for base := 1; base <= 3; base++ {
		perms[base] = make([]uint16, base)
		for i := range perms[base] {
			perms[base][i] = uint16(i)
		}
	}

	for base := 4; base <= maxBase; base++ {
		perms[base] = make([]uint16, base)
		b := base / 2
		if base&1 == 1 {
			for i := 0; i < base-1; i++ {
				v := perms[base-1][i]
				if int(v) >= b {
					v++
				}
				j := i
				if i >= b {
					j++
				}
				perms[base][j] = v
			}
			perms[base][b] = uint16(b)
		} else {
			for i := 0; i < b; i++ {
				perms[base][i] = 2 * perms[b][i]
				perms[base][b+i] = 2*perms[b][i] + 1
			}
		}
	}

	for i := range h.perm3 {
		h.perm3[i] = invertDigits(3, 5, uint16(i), perms[3])
	}
	for i := range h.perm5 {
		h.perm5[i] = invertDigits(5, 3, uint16(i), perms[5])
	}
}

func invertDigits(base, digits, index uint16, perm []uint16) uint16 {
	var out uint16
	for i := uint16(0); i < digits; i++ {
		out = out*base + perm[index%base]
		index /= base
	}
	return out
}
