package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/kong"
)

// TOML is a kong configuration loader. Keys may sit at the top level or in
// any table, so both of these set --base-url:
//
//	base_url = "http://localhost:5000"
//
//	[api]
//	base_url = "http://localhost:5000"
//
// Dashes and underscores are interchangeable. A top-level key wins over a
// key inside a table.
func TOML(r io.Reader) (kong.Resolver, error) {
	var raw map[string]any
	if _, err := toml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode toml config: %w", err)
	}
	values := Flatten(raw)

	return kong.ResolverFunc(func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		v, ok := values[normalise(flag.Name)]
		if !ok {
			return nil, nil
		}
		return v, nil
	}), nil
}

// Flatten maps every leaf key of a decoded TOML document to its value as a
// string kong can parse. Nested tables are walked in name order so the
// result does not depend on map iteration.
func Flatten(raw map[string]any) map[string]string {
	out := make(map[string]string)
	var tables []string
	for k, v := range raw {
		if _, ok := v.(map[string]any); ok {
			tables = append(tables, k)
			continue
		}
		out[normalise(k)] = scalar(v)
	}
	sort.Strings(tables)
	for _, t := range tables {
		for k, v := range Flatten(raw[t].(map[string]any)) {
			if _, taken := out[k]; !taken {
				out[k] = v
			}
		}
	}
	return out
}

func normalise(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", "-"))
}

func scalar(v any) string {
	if list, ok := v.([]any); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

// OpenDebugLog returns a debug-level logger writing to path, or a logger
// that discards everything when path is empty. The terminal belongs to the
// UI, so nothing is ever logged to stderr.
func OpenDebugLog(path string) (*slog.Logger, func() error, error) {
	if path == "" {
		return slog.New(slog.DiscardHandler), func() error { return nil }, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open debug log %s: %w", path, err)
	}
	logger := slog.New(slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, file.Close, nil
}

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}
