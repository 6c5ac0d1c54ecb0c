package sim

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseFreq converts a frequency or period string with explicit units into a
// Freq. Accepted forms include "1GHz", "2.4 GHz", "800MHz", "1ns" and
// "500ps". A string without a unit is rejected.
func ParseFreq(s string) (Freq, error) {
	s = strings.TrimSpace(s)

	value, unit, err := humanize.ParseSI(s)
	if err != nil {
		return 0, fmt.Errorf("invalid frequency %q: %w", s, err)
	}

	if value <= 0 {
		return 0, fmt.Errorf("invalid frequency %q: must be positive", s)
	}

	switch unit {
	case "Hz":
		return Freq(value), nil
	case "s":
		return Freq(1 / value), nil
	case "":
		return 0, fmt.Errorf("invalid frequency %q: missing unit (Hz or s)", s)
	default:
		return 0, fmt.Errorf("invalid frequency %q: unknown unit %q", s, unit)
	}
}

// HasByteUnit tells if a size string carries the byte unit, as in "64B",
// "1KiB" or "2 MB".
func HasByteUnit(s string) bool {
	return strings.HasSuffix(strings.TrimSpace(s), "B")
}

// ParseBytes converts a size string with byte units into a number of bytes.
func ParseBytes(s string) (uint64, error) {
	if !HasByteUnit(s) {
		return 0, fmt.Errorf("invalid size %q: must have units of bytes (B)", s)
	}

	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	return n, nil
}

// ParseBandwidth converts a bandwidth string such as "80GiB/s" into bytes per
// second.
func ParseBandwidth(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasSuffix(trimmed, "/s") {
		return 0, fmt.Errorf("invalid bandwidth %q: must be in B/s", s)
	}

	n, err := ParseBytes(strings.TrimSuffix(trimmed, "/s"))
	if err != nil {
		return 0, fmt.Errorf("invalid bandwidth %q: %w", s, err)
	}

	return float64(n), nil
}

// String formats the frequency with an SI prefix, as in "1 GHz". The result
// can be read back with ParseFreq.
func (f Freq) String() string {
	return humanize.SI(float64(f), "Hz")
}
