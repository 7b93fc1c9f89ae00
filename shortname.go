package fat12

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ShortName is the canonical 11-byte 8.3 short name: an 8-byte base,
// right-padded with spaces, followed by a 3-byte extension, right-padded
// with spaces. No embedded dot.
type ShortName [11]byte

// upperCaser performs the unicode-aware upper-casing step of the
// normalizer. The teacher's ff_wtoupper wraps the stdlib unicode
// package directly; we use the case-folding package the teacher's own
// go.mod already commits to (golang.org/x/text/cases) instead of falling
// back to stdlib "unicode".
var upperCaser = cases.Upper(language.Und)

// Base returns the 8-byte base component.
func (s ShortName) Base() [8]byte {
	var b [8]byte
	copy(b[:], s[:8])
	return b
}

// Ext returns the 3-byte extension component.
func (s ShortName) Ext() [3]byte {
	var e [3]byte
	copy(e[:], s[8:])
	return e
}

// Display renders the human-readable dotted form: base and extension
// with their space padding trimmed, joined by a dot ("TEST    TXT"
// becomes "TEST.TXT"). A name with an empty extension has no dot.
func (s ShortName) Display() string {
	base := strings.TrimRight(string(s[:8]), " ")
	ext := strings.TrimRight(string(s[8:]), " ")
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// NormalizeName converts an arbitrary input name into its canonical
// 8.3 short name, applying numeric-tail truncation when the name
// cannot be represented losslessly. Ported from the teacher's
// create_name/gen_numname pair (fat.go), collapsed from LFN-aware
// multi-entry generation down to the single-entry 8.3-only form this
// spec calls for.
func NormalizeName(name string) ShortName {
	switch name {
	case ".":
		return ShortName{'.', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}
	case "..":
		return ShortName{'.', '.', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}
	}

	s, strippedDot := stripLeadingTrailing(name)

	var base, ext string
	if idx := strings.LastIndexByte(s, '.'); idx < 0 {
		base = s
	} else {
		base = s[:idx]
		ext = s[idx+1:]
	}

	modified := strippedDot
	base, baseModified := mapChars(base)
	ext, extModified := mapChars(ext)
	modified = modified || baseModified || extModified

	if len(base) > 8 {
		base = base[:8]
		modified = true
	}
	if len(ext) > 3 {
		ext = ext[:3]
		// Extension overflow never marks the base as modified (spec §4.1 step 4).
	}

	if modified {
		k := len(base)
		if k > 6 {
			k = 6
		}
		base = base[:k] + "~1"
	}

	var out ShortName
	for i := range out {
		out[i] = ' '
	}
	copy(out[:8], base)
	copy(out[8:], ext)
	return out
}

// stripLeadingTrailing removes a leading run of spaces and dots and a
// trailing run of spaces, per spec §4.1 step 1. It reports whether any
// leading dot was part of what was stripped — stripping a leading dot
// is itself a lossy transformation and must trigger numeric-tail
// truncation even when nothing else about the name changes (see the
// ".bashrc.swp" example in spec §4.1).
func stripLeadingTrailing(name string) (s string, strippedDot bool) {
	i := 0
	for i < len(name) && (name[i] == ' ' || name[i] == '.') {
		if name[i] == '.' {
			strippedDot = true
		}
		i++
	}
	return strings.TrimRight(name[i:], " "), strippedDot
}

// mapChars applies the per-character mapping of spec §4.1 step 3 to one
// component (base or extension), returning the mapped bytes and whether
// the mapping was lossy.
func mapChars(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	upper := upperCaser.String(s)
	var b strings.Builder
	b.Grow(len(upper))
	modified := false
	for i := 0; i < len(upper); i++ {
		c := upper[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == ' ' || c == '.':
			modified = true // dropped
		case c == '+':
			b.WriteByte('_')
			modified = true
		case c == '_':
			b.WriteByte('_')
		default:
			b.WriteByte('_')
			modified = true
		}
	}
	return b.String(), modified
}

// uniqueName produces a short name for a new entry, resolving a
// collision with an existing 8.3 name the way NormalizeName's plain
// "~1" tail cannot: it enumerates "~2".."~9" and, beyond that, falls
// back to a deterministic hex tail derived from the attempt count, the
// way the teacher's gen_numname switches to a hashed suffix past its
// fifth collision. This resolves the Open Question in spec §9.3 (the
// source always writes "~1" with no collision handling). Touch and
// Mkdir do not call it: they use NormalizeName's "~1" form as is and
// report ErrNameExists when that name is already taken.
func uniqueName(base ShortName, exists func(ShortName) bool) ShortName {
	if !exists(base) {
		return base
	}
	baseStr := strings.TrimRight(string(base[:8]), " ")
	if idx := strings.LastIndexByte(baseStr, '~'); idx >= 0 {
		baseStr = baseStr[:idx] // strip an existing numeric tail before regenerating one.
	}
	ext := base[8:]
	for n := 1; n <= 9; n++ {
		k := len(baseStr)
		if k > 6 {
			k = 6
		}
		tail := "~" + string(rune('0'+n))
		candidate := baseStr
		if len(candidate) > k {
			candidate = candidate[:k]
		}
		candidate += tail
		var out ShortName
		for i := range out {
			out[i] = ' '
		}
		copy(out[:8], candidate)
		copy(out[8:], ext[:])
		if !exists(out) {
			return out
		}
	}
	// Collisions exhausted the sequential tail; switch to a hashed one,
	// as the teacher's gen_numname does on its sixth+ attempt.
	for seq := uint32(10); ; seq++ {
		candidate := baseStr
		if len(candidate) > 5 {
			candidate = candidate[:5]
		}
		candidate += "~" + hexByte(byte(seq))
		var out ShortName
		for i := range out {
			out[i] = ' '
		}
		copy(out[:8], candidate)
		copy(out[8:], ext[:])
		if !exists(out) {
			return out
		}
		if seq > 0xFFFF {
			return out // volume is pathologically full of collisions; give up deterministically.
		}
	}
}

func hexByte(b byte) string {
	const hexDigits = "0123456789ABCDEF"
	return string([]byte{hexDigits[b>>4], hexDigits[b&0xF]})
}
