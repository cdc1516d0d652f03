package hexdump

import (
	"strings"
	"testing"

	"github.com/battlesnake/iplink/internal/testutil/testlog"
)

func TestDumpContainsTitleAndOffsets(t *testing.T) {
	testlog.Start(t)
	out := String("[test]", []byte("hello, world! this spans more than one line of output"))
	if !strings.HasPrefix(out, "[test]\n") {
		t.Fatalf("missing title: %q", out)
	}
	if !strings.Contains(out, "0000 |") {
		t.Fatalf("missing first offset: %q", out)
	}
	if !strings.Contains(out, "0010 |") {
		t.Fatalf("missing second line offset: %q", out)
	}
}

func TestDumpEmpty(t *testing.T) {
	testlog.Start(t)
	out := String("[empty]", nil)
	if out != "[empty]\n\n" {
		t.Fatalf("got=%q", out)
	}
}

func TestDumpNonPrintableBecomesDot(t *testing.T) {
	testlog.Start(t)
	out := String("[ctrl]", []byte{0x00, 0x01, 'A'})
	if !strings.Contains(out, "A") {
		t.Fatalf("missing printable byte: %q", out)
	}
	if !strings.Contains(out, "..A") {
		t.Fatalf("0x00 and 0x01 should render as dots: %q", out)
	}
}
