package config

import (
	"testing"

	"github.com/battlesnake/iplink/internal/testutil/testlog"
)

func TestDefaultIsValid(t *testing.T) {
	testlog.Start(t)
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateMTU(t *testing.T) {
	testlog.Start(t)
	c := Default()
	c.MTU = 63
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for mtu < 64")
	}
	c.MTU = 64
	if err := c.Validate(); err != nil {
		t.Fatalf("mtu=64 should validate: %v", err)
	}
}

func TestValidateKeepaliveLimit(t *testing.T) {
	testlog.Start(t)
	c := Default()
	c.KeepaliveIntervalMS = 500
	c.KeepaliveLimit = 1
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for keepalive_limit <= 1 with keepalive enabled")
	}
	c.KeepaliveIntervalMS = 0
	if err := c.Validate(); err != nil {
		t.Fatalf("disabling keepalive should bypass the limit check: %v", err)
	}
}

func TestValidateUpdownRequiresKeepalive(t *testing.T) {
	testlog.Start(t)
	c := Default()
	c.Updown = true
	c.KeepaliveIntervalMS = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for updown without keepalive")
	}
	c.KeepaliveIntervalMS = 500
	c.KeepaliveLimit = 3
	if err := c.Validate(); err != nil {
		t.Fatalf("updown with keepalive enabled should validate: %v", err)
	}
}

func TestValidateBadAddr(t *testing.T) {
	testlog.Start(t)
	c := Default()
	c.Addr = "not-an-address"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for malformed addr")
	}
}

func TestSetAndDescribeRoundTrip(t *testing.T) {
	testlog.Start(t)
	c := Default()
	if err := c.Set("mtu", "1400"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if c.MTU != 1400 {
		t.Fatalf("mtu=%d want=1400", c.MTU)
	}
	if err := c.Set("verbose", "yes"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !c.Verbose {
		t.Fatal("expected verbose=true")
	}
	if err := c.Set("nonexistent", "x"); err == nil {
		t.Fatal("expected error for unknown key")
	}

	out := Describe(c, false)
	if out == "" {
		t.Fatal("expected non-empty description")
	}
}

func TestParseArgsKeyValueAndEquals(t *testing.T) {
	testlog.Start(t)
	got, err := ParseArgs([]string{"--mtu", "1400", "--verbose=yes"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	want := []keyValue{{"mtu", "1400"}, {"verbose", "yes"}}
	if len(got) != len(want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("[%d] got=%v want=%v", i, got[i], want[i])
		}
	}
}

func TestParseArgsRejectsMalformed(t *testing.T) {
	testlog.Start(t)
	if _, err := ParseArgs([]string{"mtu", "1400"}); err == nil {
		t.Fatal("expected error for argument without -- prefix")
	}
	if _, err := ParseArgs([]string{"--mtu"}); err == nil {
		t.Fatal("expected error for missing value")
	}
}

func TestLoadAppliesOverridesAndValidates(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load("", []string{"--mtu", "1400", "--updown=true", "--keepalive_interval_ms", "250"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MTU != 1400 || !cfg.Updown || cfg.KeepaliveIntervalMS != 250 {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoadRejectsInvalidResult(t *testing.T) {
	testlog.Start(t)
	if _, err := Load("", []string{"--mtu", "10"}); err == nil {
		t.Fatal("expected validation error to propagate from Load")
	}
}
