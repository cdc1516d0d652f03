package checksum

import (
	"testing"

	"github.com/battlesnake/iplink/internal/testutil/testlog"
)

func TestCalcEmptyIsFixedConstant(t *testing.T) {
	testlog.Start(t)
	if got := Calc(nil); got != 0xaaaaaaaa {
		t.Fatalf("got=%#x want=%#x", got, uint32(0xaaaaaaaa))
	}
	if got := Calc([]byte{}); got != 0xaaaaaaaa {
		t.Fatalf("got=%#x want=%#x", got, uint32(0xaaaaaaaa))
	}
}

func TestCalcDeterministic(t *testing.T) {
	testlog.Start(t)
	buf := []byte("the quick brown fox jumps over the lazy dog")
	a := Calc(buf)
	b := Calc(buf)
	if a != b {
		t.Fatalf("not deterministic: %#x != %#x", a, b)
	}
}

func TestCalcPositionSensitive(t *testing.T) {
	testlog.Start(t)
	a := Calc([]byte{0x01, 0x02, 0x03})
	b := Calc([]byte{0x03, 0x02, 0x01})
	if a == b {
		t.Fatalf("expected different checksum for reordered bytes")
	}
}

func TestCalcSingleBitFlipChangesResult(t *testing.T) {
	testlog.Start(t)
	buf := []byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80, 0x90}
	base := Calc(buf)
	for i := range buf {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), buf...)
			mutated[i] ^= 1 << bit
			if got := Calc(mutated); got == base {
				t.Fatalf("bit flip at byte %d bit %d did not change checksum", i, bit)
			}
		}
	}
}

func TestCalcGoldenVectors(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		in   []byte
		want uint32
	}{
		{"empty", nil, 0xaaaaaaaa},
		{"single-zero", []byte{0x00}, 0x5555552a},
		{"single-A", []byte("A"), 0x5555542e},
		{"single-0x01", []byte{0x01}, 0x5555552e},
	}
	for _, tc := range cases {
		if got := Calc(tc.in); got != tc.want {
			t.Errorf("%s: got=%#x want=%#x", tc.name, got, tc.want)
		}
	}
}
