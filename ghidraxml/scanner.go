// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package ghidraxml // import "github.com/addsym/addsym/ghidraxml"

import "math"

// hasPrefix skips leading spaces and tabs of s and reports whether the remainder
// starts with prefix. On success the returned cursor points just past the prefix.
// On failure s is returned unchanged.
func hasPrefix(s, prefix string) (string, bool) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	if len(s)-i < len(prefix) || s[i:i+len(prefix)] != prefix {
		return s, false
	}
	return s[i+len(prefix):], true
}

// skipTo scans s for lit and returns the cursor just past its first occurrence.
//
// The scan is a single forward pass: after a partial match fails, matching restarts
// at the current byte without backtracking. Overlapping candidates such as "aab"
// in "aaab" are therefore not found.
func skipTo(s, lit string) (string, bool) {
	if lit == "" {
		return s, true
	}
	p := 0
	for i := 0; i < len(s); i++ {
		if s[i] != lit[p] {
			p = 0
		}
		if s[i] == lit[p] {
			p++
			if p == len(lit) {
				return s[i+1:], true
			}
		}
	}
	return s, false
}

// unhex returns the value of the hexadecimal digit c.
func unhex(c byte) (uint64, bool) {
	switch {
	case '0' <= c && c <= '9':
		return uint64(c - '0'), true
	case 'a' <= c && c <= 'f':
		return uint64(c-'a') + 10, true
	case 'A' <= c && c <= 'F':
		return uint64(c-'A') + 10, true
	}
	return 0, false
}

// scanHex reads the magnitude and sign of the hexadecimal number at the start of
// s. overflow is set when the magnitude does not fit 64 bits.
func scanHex(s string) (v uint64, neg, overflow bool) {
	i := 0
	for i < len(s) && isCSpace(s[i]) {
		i++
	}
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	if i+2 < len(s) && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') {
		if _, ok := unhex(s[i+2]); ok {
			i += 2
		}
	}

	for ; i < len(s); i++ {
		d, ok := unhex(s[i])
		if !ok {
			break
		}
		if v > (math.MaxUint64-d)/16 {
			overflow = true
		}
		v = v*16 + d
	}
	return v, neg, overflow
}

// parseHex parses the hexadecimal number at the start of s with the semantics of
// C's strtoull(s, NULL, 16): leading white space and a sign are accepted, an
// optional 0x prefix is skipped, parsing stops at the first non hex digit. Input
// without digits yields 0 and out of range values saturate at math.MaxUint64.
func parseHex(s string) uint64 {
	v, neg, overflow := scanHex(s)
	if overflow {
		return math.MaxUint64
	}
	if neg {
		return -v
	}
	return v
}

// parseHex32 is parseHex for 32-bit quantities, following strtoul with a 32-bit
// unsigned long: magnitudes that do not fit saturate at math.MaxUint32, whatever
// the sign, and a negative value is negated modulo 2^32.
func parseHex32(s string) uint32 {
	v, neg, overflow := scanHex(s)
	if overflow || v > math.MaxUint32 {
		return math.MaxUint32
	}
	if neg {
		return -uint32(v)
	}
	return uint32(v)
}

func isCSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f' || c == '\r'
}

// quoted returns the bytes of s up to the next double quote, or all of s if there
// is none. No escape processing is done.
func quoted(s string) (string, string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			return s[:i], s[i:]
		}
	}
	return s, ""
}
