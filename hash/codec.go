package hash

import (
	"fmt"
	"strconv"
	"strings"

	"medialib/types"
)

const (
	// GridSize is the side of the square sample used for hashing.
	// 8x8 = 64 bits per fingerprint.
	GridSize = 8

	// HashBits is the fixed fingerprint length in bits.
	HashBits = GridSize * GridSize

	// HexLength is the fingerprint length as stored (4 bits per hex digit).
	HexLength = HashBits / 4

	// SampleWidth and SampleHeight are the grid dimensions the sampler must
	// deliver. The extra column feeds the difference hash; the average hash
	// uses the leading GridSize columns of the same grid.
	SampleWidth  = GridSize + 1
	SampleHeight = GridSize
)

// Algorithm selects the grid-to-bits scheme.
type Algorithm string

const (
	AlgorithmAverage    Algorithm = "ahash"
	AlgorithmDifference Algorithm = "dhash"
)

// Compute converts a pixel grid into a hex fingerprint using the given
// algorithm. The difference hash is the default used for stored
// fingerprints; the average hash is kept as an alternative path and
// produces the same bit length and encoding.
func Compute(grid types.PixelGrid, algorithm Algorithm) (string, error) {
	switch algorithm {
	case AlgorithmAverage:
		return AverageHash(grid)
	case AlgorithmDifference:
		return DifferenceHash(grid)
	default:
		return "", fmt.Errorf("unknown hash algorithm: %s", algorithm)
	}
}

// AverageHash computes the mean-threshold hash of a grid: each bit is 1 if
// the pixel is at or above the mean sample value, row-major order. The grid
// must be at least GridSize wide and exactly SampleHeight tall; only the
// leading GridSize columns of each row are used, so the sampler's
// (GridSize+1) x GridSize grid works for both algorithms.
func AverageHash(grid types.PixelGrid) (string, error) {
	if grid.Width < GridSize || grid.Height != SampleHeight || len(grid.Pixels) != grid.Width*grid.Height {
		return "", fmt.Errorf("average hash needs at least a %dx%d grid, got %dx%d (%d bytes)",
			GridSize, SampleHeight, grid.Width, grid.Height, len(grid.Pixels))
	}

	var sum uint64
	for y := 0; y < GridSize; y++ {
		for x := 0; x < GridSize; x++ {
			sum += uint64(grid.Pixels[y*grid.Width+x])
		}
	}
	mean := float64(sum) / float64(HashBits)

	var bits strings.Builder
	bits.Grow(HashBits)
	for y := 0; y < GridSize; y++ {
		for x := 0; x < GridSize; x++ {
			if float64(grid.Pixels[y*grid.Width+x]) >= mean {
				bits.WriteByte('1')
			} else {
				bits.WriteByte('0')
			}
		}
	}

	return EncodeBits(bits.String()), nil
}

// DifferenceHash compares each pixel to its immediate right neighbor in the
// same row: 1 if left < right, else 0. An (N+1) x N grid produces N x N
// bits. This is more robust to uniform brightness and contrast shifts than
// the average hash and is the default for stored fingerprints.
func DifferenceHash(grid types.PixelGrid) (string, error) {
	if grid.Width != SampleWidth || grid.Height != SampleHeight || len(grid.Pixels) != SampleWidth*SampleHeight {
		return "", fmt.Errorf("difference hash needs a %dx%d grid, got %dx%d (%d bytes)",
			SampleWidth, SampleHeight, grid.Width, grid.Height, len(grid.Pixels))
	}

	var bits strings.Builder
	bits.Grow(HashBits)
	for y := 0; y < SampleHeight; y++ {
		for x := 0; x < GridSize; x++ {
			left := grid.Pixels[y*SampleWidth+x]
			right := grid.Pixels[y*SampleWidth+x+1]
			if left < right {
				bits.WriteByte('1')
			} else {
				bits.WriteByte('0')
			}
		}
	}

	return EncodeBits(bits.String()), nil
}

// EncodeBits packs a bit string ("0"/"1" characters) into lowercase hex,
// 4 bits per digit. A final partial nibble is left-padded with zero bits.
func EncodeBits(bits string) string {
	var hex strings.Builder
	hex.Grow((len(bits) + 3) / 4)

	for i := 0; i < len(bits); i += 4 {
		end := i + 4
		if end > len(bits) {
			end = len(bits)
		}
		nibble := bits[i:end]
		for len(nibble) < 4 {
			nibble = "0" + nibble
		}
		v, err := strconv.ParseUint(nibble, 2, 8)
		if err != nil {
			// Non-binary input produces an empty (missing) fingerprint,
			// which the metric treats as no similarity.
			return ""
		}
		hex.WriteString(strconv.FormatUint(v, 16))
	}

	return hex.String()
}

// DecodeBits expands a hex fingerprint back into its bit string. Every hex
// digit expands to exactly 4 bits, so decode(encode(bits)) == bits whenever
// the original bit count is a multiple of 4; the fixed 64-bit fingerprint
// always satisfies this.
func DecodeBits(s string) (string, error) {
	var bits strings.Builder
	bits.Grow(len(s) * 4)

	for _, r := range strings.ToLower(s) {
		v, err := strconv.ParseUint(string(r), 16, 8)
		if err != nil {
			return "", fmt.Errorf("invalid hex digit %q in fingerprint", r)
		}
		for shift := 3; shift >= 0; shift-- {
			if v&(1<<uint(shift)) != 0 {
				bits.WriteByte('1')
			} else {
				bits.WriteByte('0')
			}
		}
	}

	return bits.String(), nil
}
