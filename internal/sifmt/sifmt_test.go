package sifmt

import (
	"testing"

	"github.com/battlesnake/iplink/internal/testutil/testlog"
)

func TestFormatZero(t *testing.T) {
	testlog.Start(t)
	if got := Format(0, "B", 3); got != "0.00B" {
		t.Fatalf("got=%q", got)
	}
}

func TestFormatKilo(t *testing.T) {
	testlog.Start(t)
	if got := Format(12345, "B", 3); got != "12.3kB" {
		t.Fatalf("got=%q", got)
	}
}

func TestFormatMega(t *testing.T) {
	testlog.Start(t)
	if got := Format(1234000, "B", 3); got != "1.23MB" {
		t.Fatalf("got=%q", got)
	}
}

func TestFormatOne(t *testing.T) {
	testlog.Start(t)
	if got := Format(1, "B", 3); got != "1.00B" {
		t.Fatalf("got=%q", got)
	}
}
