// Package sanitize maps arbitrary user-supplied names to identifiers that are
// safe as file stems, DOM ids and JavaScript object keys.
package sanitize

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Unnamed is returned for empty input.
const Unnamed = "unnamed"

// Name lowercases s and replaces every rune outside [a-z0-9_] with '_'.
// Each non-ASCII rune becomes a single '_' regardless of its byte width.
//
// Name is deterministic and idempotent: Name(Name(s)) == Name(s).
func Name(s string) string {
	if s == "" {
		return Unnamed
	}
	var b strings.Builder
	b.Grow(utf8.RuneCountInString(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Valid reports whether s is already in sanitized form.
func Valid(s string) bool {
	return s != "" && Name(s) == s
}

// Allocator hands out unique sanitized ids within one build scope, typically
// a single page. It replaces global counters so two builds never share state.
//
// The zero value is ready to use. An Allocator is not safe for concurrent use.
type Allocator struct {
	used     map[string]bool
	counters map[string]int
}

// Next returns the next unused id of the form prefix_N, starting at N=1.
func (a *Allocator) Next(prefix string) string {
	a.init()
	prefix = Name(prefix)
	for {
		a.counters[prefix]++
		id := prefix + "_" + strconv.Itoa(a.counters[prefix])
		if !a.used[id] {
			a.used[id] = true
			return id
		}
	}
}

// Claim sanitizes name and reserves it. If the sanitized form is taken, a
// numeric suffix (_2, _3, ...) is appended until the id is unique.
func (a *Allocator) Claim(name string) string {
	a.init()
	base := Name(name)
	id := base
	for n := 2; a.used[id]; n++ {
		id = base + "_" + strconv.Itoa(n)
	}
	a.used[id] = true
	return id
}

// Taken reports whether id has been handed out.
func (a *Allocator) Taken(id string) bool {
	return a.used[id]
}

func (a *Allocator) init() {
	if a.used == nil {
		a.used = make(map[string]bool)
		a.counters = make(map[string]int)
	}
}
