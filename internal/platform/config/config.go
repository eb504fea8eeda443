// Package config reads typed settings from the environment under a key prefix
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"claimguard/internal/platform/logger"
)

// Conf reads keys under a prefix, e.g. New().Prefix("CORE_ANALYSIS_").MayInt("TREES", 100)
// reads CORE_ANALYSIS_TREES
type Conf struct{ prefix string }

// New returns the unprefixed root
func New() Conf { return Conf{} }

// Prefix nests p under the current prefix
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// Key returns the environment variable name key resolves to
func (c Conf) Key(key string) string { return c.prefix + key }

func (c Conf) lookup(key string) string { return strings.TrimSpace(os.Getenv(c.Key(key))) }

// may parses key with parse, falling back to def when unset or unparsable
func may[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.Key(key)).Str("value", s).Interface("default", def).
			Msg("unparsable setting, using default")
		return def
	}
	return v
}

// MayString returns the trimmed value, def when unset
func (c Conf) MayString(key, def string) string {
	return may(c, key, def, func(s string) (string, error) { return s, nil })
}

// MayInt returns an integer setting
func (c Conf) MayInt(key string, def int) int { return may(c, key, def, strconv.Atoi) }

// MayFloat64 returns a float setting
func (c Conf) MayFloat64(key string, def float64) float64 {
	return may(c, key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// MayBool accepts what strconv.ParseBool does
func (c Conf) MayBool(key string, def bool) bool { return may(c, key, def, strconv.ParseBool) }

// MayDuration accepts Go durations such as 250ms or 2m
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, time.ParseDuration)
}

// MayEnum returns one of allowed, matched case-insensitively. Any other value is a
// deployment mistake and panics
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return v
		}
	}
	logger.Get().Panic().Str("key", c.Key(key)).Str("value", v).Strs("allowed", allowed).Msg("setting out of range")
	return ""
}
