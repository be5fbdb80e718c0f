package xmsg

import "strings"

const (
	// Wildcard matches exactly one segment.
	Wildcard = "*"
	// Separator is the character used to separate name segments.
	Separator = "."
)

// segment is one compiled position of a pattern.
type segment struct {
	literal  string
	wildcard bool
}

// pattern is a listener pattern compiled once at registration.
type pattern struct {
	raw      string
	segments []segment
}

func compilePattern(raw string) pattern {
	parts := strings.Split(raw, Separator)
	segs := make([]segment, len(parts))
	for i, p := range parts {
		if p == Wildcard {
			segs[i] = segment{wildcard: true}
			continue
		}
		segs[i] = segment{literal: p}
	}
	return pattern{raw: raw, segments: segs}
}

// match reports whether the pre-split event name matches. Segment counts must be equal.
func (p pattern) match(event []string) bool {
	if len(event) != len(p.segments) {
		return false
	}
	for i, s := range p.segments {
		if !s.wildcard && s.literal != event[i] {
			return false
		}
	}
	return true
}

// Match reports whether event matches pattern, with "*" standing for exactly one segment.
func Match(pat, event string) bool {
	return compilePattern(pat).match(strings.Split(event, Separator))
}
