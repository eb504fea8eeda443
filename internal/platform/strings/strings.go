// Package strings holds the small string guards module wiring relies on
package strings

import std "strings"

// MustString returns s, panicking with name when s is blank
func MustString(s, name string) string {
	if std.TrimSpace(s) == "" {
		panic(name + " is required")
	}
	return s
}

// MustPrefix normalizes a route prefix to one leading slash and no trailing one,
// so "runs/", " /runs" and "/runs" all mount at /runs. The root itself panics
func MustPrefix(s string) string {
	p := "/" + std.Trim(s, " /")
	if p == "/" {
		panic("route prefix is required")
	}
	return p
}
