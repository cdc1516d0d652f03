package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load builds a Config starting from Default, overlaying path's TOML
// contents (only keys actually present in the file override the default,
// via toml.MetaData.IsDefined — the same pattern the ghost/mirage config
// loaders use), then applying args as a sequence of "--key value" /
// "--key=value" overrides, and finally validating the result.
func Load(path string, args []string) (Config, error) {
	cfg := Default()

	if path != "" {
		var raw Config
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: load %q: %w", path, err)
		}
		for _, f := range fields {
			if meta.IsDefined(f.name) {
				if err := cfg.Set(f.name, f.get(raw)); err != nil {
					return Config{}, fmt.Errorf("config: apply %q from %q: %w", f.name, path, err)
				}
			}
		}
	}

	overrides, err := ParseArgs(args)
	if err != nil {
		return Config{}, err
	}
	for _, kv := range overrides {
		if err := cfg.Set(kv.key, kv.value); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type keyValue struct {
	key   string
	value string
}

// ParseArgs turns a "--key value" / "--key=value" argument list into an
// ordered sequence of overrides, per spec's CLI surface: unknown flags are
// a caller-level concern (Load rejects them via Config.Set), --config is
// handled by the caller before calling Load, and --help/--dump are handled
// by the caller too.
func ParseArgs(args []string) ([]keyValue, error) {
	var out []keyValue
	for i := 0; i < len(args); {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			return nil, fmt.Errorf("config: invalid argument %q", arg)
		}
		key := strings.TrimPrefix(arg, "--")
		i++

		if eq := strings.IndexByte(key, '='); eq >= 0 {
			out = append(out, keyValue{key: key[:eq], value: key[eq+1:]})
			continue
		}

		if i == len(args) {
			return nil, fmt.Errorf("config: missing value for argument %q", arg)
		}
		out = append(out, keyValue{key: key, value: args[i]})
		i++
	}
	return out, nil
}
