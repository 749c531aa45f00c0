package hash

import (
	"strings"
	"testing"

	"medialib/types"
)

func TestEncodeBits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bits string
		want string
	}{
		{name: "empty", bits: "", want: ""},
		{name: "single nibble", bits: "1111", want: "f"},
		{name: "two nibbles", bits: "10100101", want: "a5"},
		{name: "partial nibble left-padded", bits: "101", want: "5"},
		{name: "six bits", bits: "111101", want: "f1"},
		{name: "64 zero bits", bits: strings.Repeat("0", 64), want: strings.Repeat("0", 16)},
		{name: "64 one bits", bits: strings.Repeat("1", 64), want: strings.Repeat("f", 16)},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := EncodeBits(tc.bits)
			if got != tc.want {
				t.Errorf("EncodeBits(%q) = %q, want %q", tc.bits, got, tc.want)
			}
		})
	}
}

func TestDecodeBits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		hex     string
		want    string
		wantErr bool
	}{
		{name: "empty", hex: "", want: ""},
		{name: "single digit", hex: "5", want: "0101"},
		{name: "two digits", hex: "a5", want: "10100101"},
		{name: "uppercase accepted", hex: "F0", want: "11110000"},
		{name: "invalid digit", hex: "zz", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := DecodeBits(tc.hex)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("DecodeBits(%q) expected error, got %q", tc.hex, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeBits(%q) unexpected error: %v", tc.hex, err)
			}
			if got != tc.want {
				t.Errorf("DecodeBits(%q) = %q, want %q", tc.hex, got, tc.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	// decode(encode(bits)) == bits for any bit length that is a multiple of 4.
	bitStrings := []string{
		"",
		"0000",
		"1111",
		"10100101",
		"110011001100",
		strings.Repeat("10", 32),           // 64 bits
		strings.Repeat("0110", 16),         // 64 bits
		strings.Repeat("1", 64),            // 64 bits
		strings.Repeat("01011100", 12),     // 96 bits
		"00010010001101000101011001111000", // 32 bits
	}

	for _, bits := range bitStrings {
		if len(bits)%4 != 0 {
			t.Fatalf("test input %q is not a multiple of 4 bits", bits)
		}
		got, err := DecodeBits(EncodeBits(bits))
		if err != nil {
			t.Fatalf("round trip of %q failed: %v", bits, err)
		}
		if got != bits {
			t.Errorf("decode(encode(%q)) = %q, want identity", bits, got)
		}
	}
}

// uniformGrid builds a grid filled with a single value.
func uniformGrid(width, height int, value byte) types.PixelGrid {
	pixels := make([]byte, width*height)
	for i := range pixels {
		pixels[i] = value
	}
	return types.PixelGrid{Width: width, Height: height, Pixels: pixels}
}

func TestAverageHash(t *testing.T) {
	t.Parallel()

	t.Run("uniform grid hashes to all ones", func(t *testing.T) {
		t.Parallel()
		// Every pixel equals the mean, and >= mean sets the bit.
		got, err := AverageHash(uniformGrid(GridSize, GridSize, 128))
		if err != nil {
			t.Fatalf("AverageHash: %v", err)
		}
		if want := strings.Repeat("f", HexLength); got != want {
			t.Errorf("AverageHash(uniform) = %q, want %q", got, want)
		}
	})

	t.Run("half bright half dark", func(t *testing.T) {
		t.Parallel()
		grid := uniformGrid(GridSize, GridSize, 0)
		// Top four rows bright, bottom four dark; mean falls between.
		for y := 0; y < GridSize/2; y++ {
			for x := 0; x < GridSize; x++ {
				grid.Pixels[y*GridSize+x] = 200
			}
		}
		got, err := AverageHash(grid)
		if err != nil {
			t.Fatalf("AverageHash: %v", err)
		}
		if want := "ffffffff00000000"; got != want {
			t.Errorf("AverageHash(split) = %q, want %q", got, want)
		}
	})

	t.Run("wider sampler grid uses leading columns", func(t *testing.T) {
		t.Parallel()
		square := uniformGrid(GridSize, GridSize, 0)
		wide := uniformGrid(SampleWidth, SampleHeight, 0)
		for y := 0; y < GridSize; y++ {
			for x := 0; x < GridSize; x++ {
				v := byte((y*GridSize + x) % 251)
				square.Pixels[y*GridSize+x] = v
				wide.Pixels[y*SampleWidth+x] = v
			}
			// The extra column must not influence the hash.
			wide.Pixels[y*SampleWidth+GridSize] = 255
		}
		fromSquare, err := AverageHash(square)
		if err != nil {
			t.Fatalf("AverageHash(square): %v", err)
		}
		fromWide, err := AverageHash(wide)
		if err != nil {
			t.Fatalf("AverageHash(wide): %v", err)
		}
		if fromSquare != fromWide {
			t.Errorf("average hash differs across grid widths: %q vs %q", fromSquare, fromWide)
		}
	})

	t.Run("rejects undersized grid", func(t *testing.T) {
		t.Parallel()
		if _, err := AverageHash(uniformGrid(4, 4, 0)); err == nil {
			t.Error("expected error for 4x4 grid")
		}
	})
}

func TestDifferenceHash(t *testing.T) {
	t.Parallel()

	t.Run("uniform grid hashes to all zeros", func(t *testing.T) {
		t.Parallel()
		got, err := DifferenceHash(uniformGrid(SampleWidth, SampleHeight, 77))
		if err != nil {
			t.Fatalf("DifferenceHash: %v", err)
		}
		if want := strings.Repeat("0", HexLength); got != want {
			t.Errorf("DifferenceHash(uniform) = %q, want %q", got, want)
		}
	})

	t.Run("rising rows hash to all ones", func(t *testing.T) {
		t.Parallel()
		grid := uniformGrid(SampleWidth, SampleHeight, 0)
		for y := 0; y < SampleHeight; y++ {
			for x := 0; x < SampleWidth; x++ {
				grid.Pixels[y*SampleWidth+x] = byte(x * 10)
			}
		}
		got, err := DifferenceHash(grid)
		if err != nil {
			t.Fatalf("DifferenceHash: %v", err)
		}
		if want := strings.Repeat("f", HexLength); got != want {
			t.Errorf("DifferenceHash(rising) = %q, want %q", got, want)
		}
	})

	t.Run("fixed length regardless of content", func(t *testing.T) {
		t.Parallel()
		grid := uniformGrid(SampleWidth, SampleHeight, 0)
		for i := range grid.Pixels {
			grid.Pixels[i] = byte(i * 7 % 256)
		}
		got, err := DifferenceHash(grid)
		if err != nil {
			t.Fatalf("DifferenceHash: %v", err)
		}
		if len(got) != HexLength {
			t.Errorf("fingerprint length = %d, want %d", len(got), HexLength)
		}
	})

	t.Run("rejects square grid", func(t *testing.T) {
		t.Parallel()
		if _, err := DifferenceHash(uniformGrid(GridSize, GridSize, 0)); err == nil {
			t.Error("expected error for grid without the extra column")
		}
	})
}

func TestIdenticalGridsMatchExactly(t *testing.T) {
	t.Parallel()

	grid := uniformGrid(SampleWidth, SampleHeight, 0)
	for i := range grid.Pixels {
		grid.Pixels[i] = byte(i * 13 % 256)
	}

	a, err := DifferenceHash(grid)
	if err != nil {
		t.Fatalf("DifferenceHash: %v", err)
	}
	b, err := DifferenceHash(grid)
	if err != nil {
		t.Fatalf("DifferenceHash: %v", err)
	}

	if d := Distance(a, b); d != 0 {
		t.Errorf("Distance(a, a) = %d, want 0", d)
	}
	if s := Similarity(a, b); s != 100 {
		t.Errorf("Similarity(a, a) = %d, want 100", s)
	}
	if tier := DefaultThresholds().Tier(Similarity(a, b)); tier != TierExact {
		t.Errorf("tier = %q, want %q", tier, TierExact)
	}
}
