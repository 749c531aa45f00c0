package hash

import "math"

// Distance returns the Hamming distance between two hex fingerprints: the
// count of bit positions where they differ. Fingerprints are only
// comparable at equal length; a missing fingerprint or a length mismatch
// yields the maximal distance rather than an error.
func Distance(a, b string) int {
	if a == "" || b == "" || len(a) != len(b) {
		return maxBits(a, b)
	}

	bitsA, errA := DecodeBits(a)
	bitsB, errB := DecodeBits(b)
	if errA != nil || errB != nil {
		return maxBits(a, b)
	}

	distance := 0
	for i := 0; i < len(bitsA); i++ {
		if bitsA[i] != bitsB[i] {
			distance++
		}
	}
	return distance
}

// Similarity maps the distance between two fingerprints to a 0-100 score.
// Missing or length-mismatched fingerprints score 0, never an error.
func Similarity(a, b string) int {
	if a == "" || b == "" || len(a) != len(b) {
		return 0
	}

	bits := len(a) * 4
	score := int(math.Round((1 - float64(Distance(a, b))/float64(bits)) * 100))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func maxBits(a, b string) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	return n * 4
}
