package checksum

import (
	"math/rand"
	"testing"
)

func TestCRC32CKnownVectors(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		unmasked uint32
	}{
		{"empty", []byte{}, 0x00000000},
		{"zero_byte", []byte{0x00}, 0x527d5351},
		{"one_byte_ff", []byte{0xff}, 0xff000000},
		{"123456789", []byte("123456789"), 0xe3069283},
		{"foo", []byte("foo"), 0xcfc4ae1d},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Value(tt.data)
			if got != tt.unmasked {
				t.Errorf("Value(%v) = 0x%08x, want 0x%08x", tt.data, got, tt.unmasked)
			}
			if masked := Mask(got); masked == got && len(tt.data) > 0 {
				t.Errorf("Mask(0x%08x) did not change the value", got)
			}
		})
	}
}

func TestCRC32CExtendMatchesWholeInput(t *testing.T) {
	full := Value([]byte("hello world"))
	extended := Extend(Value([]byte("hello ")), []byte("world"))
	if extended != full {
		t.Errorf("Extend mismatch: got 0x%08x, want 0x%08x", extended, full)
	}
	if got := Extend(0, []byte("test")); got != Value([]byte("test")) {
		t.Errorf("Extend(0, data) = 0x%08x, want Value(data) = 0x%08x", got, Value([]byte("test")))
	}
}

func TestCRC32CMaskUnmaskRoundtrip(t *testing.T) {
	crc := Value([]byte("foo"))
	masked := Mask(crc)
	if unmasked := Unmask(masked); unmasked != crc {
		t.Errorf("Unmask(Mask(0x%08x)) = 0x%08x", crc, unmasked)
	}
	if unmasked := Unmask(Unmask(Mask(Mask(crc)))); unmasked != crc {
		t.Errorf("double Mask/Unmask roundtrip failed: got 0x%08x, want 0x%08x", unmasked, crc)
	}

	if MaskedValue([]byte("test data")) != Mask(Value([]byte("test data"))) {
		t.Error("MaskedValue diverges from Mask(Value(...))")
	}
}

// TestCRC32CStitching verifies that splitting a buffer anywhere and
// stitching the two CRCs via Extend always reproduces the whole-buffer
// CRC — the property ComputeChecksum relies on when it extends a data
// CRC with a separately-supplied trailing byte.
func TestCRC32CStitching(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for length := range 64 {
		data := make([]byte, length)
		rng.Read(data)
		full := Value(data)

		for split := 0; split <= length; split++ {
			stitched := Extend(Value(data[:split]), data[split:])
			if stitched != full {
				t.Fatalf("stitching failed at length=%d, split=%d: got 0x%08x, want 0x%08x",
					length, split, stitched, full)
			}
		}
	}
}

func FuzzCRC32CRoundtrip(f *testing.F) {
	f.Add([]byte("hello"))
	f.Add([]byte(""))
	f.Add([]byte{0, 1, 2, 3, 4, 5, 6, 7})

	f.Fuzz(func(t *testing.T, data []byte) {
		crc := Value(data)
		if unmasked := Unmask(Mask(crc)); unmasked != crc {
			t.Errorf("Mask/Unmask roundtrip failed for len=%d", len(data))
		}
		if len(data) > 0 {
			if extended := Extend(0, data); extended != crc {
				t.Errorf("Extend from 0 failed for len=%d", len(data))
			}
		}
	})
}

func BenchmarkCRC32CExtend(b *testing.B) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}
	b.SetBytes(int64(len(data)))

	for b.Loop() {
		crc := Value(data[:2048])
		Extend(crc, data[2048:])
	}
}
