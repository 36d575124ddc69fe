// Package timeutil converts between float seconds and the
// display strings used by the timeline ruler and transport bar.
package timeutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatTime renders seconds as M:SS, or H:MM:SS
// once the timeline passes one hour.
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}

	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}

	return fmt.Sprintf("%d:%02d", m, s)
}

// ParseSeconds parses a string-encoded seconds value
// ("12", "0.5", " 2.25 ") to float64 seconds.
//
// The transcription service returns timestamps in this form.
func ParseSeconds(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("timeutil.ParseSeconds: %w", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("timeutil.ParseSeconds: not a finite number: %q", s)
	}

	return v, nil
}
