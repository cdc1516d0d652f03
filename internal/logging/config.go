package logging

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel     = "IPLINK_LOG_LEVEL"
	EnvLogTimestamp = "IPLINK_LOG_TIMESTAMP"
	EnvLogNoColor   = "IPLINK_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var configureOnce sync.Once

func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

func Configure(profile Profile) {
	configureOnce.Do(func() {
		level, withTimestamp := defaults(profile)
		applyEnvOverrides(&level, &withTimestamp)

		noColor := !isatty.IsTerminal(os.Stdout.Fd())
		if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
			noColor = v
		}

		out := zerolog.ConsoleWriter{Out: os.Stdout, NoColor: noColor}
		if withTimestamp {
			out.TimeFormat = time.RFC3339
		} else {
			out.PartsExclude = []string{zerolog.TimestampFieldName}
		}

		log.Logger = zerolog.New(out).Level(level).With().Timestamp().Str("app", "iplink").Logger()
	})
}

func defaults(profile Profile) (zerolog.Level, bool) {
	switch profile {
	case ProfileTest:
		return zerolog.DebugLevel, false
	default:
		return zerolog.InfoLevel, true
	}
}

func applyEnvOverrides(level *zerolog.Level, withTimestamp *bool) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		*level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		*withTimestamp = v
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
