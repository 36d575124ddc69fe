package ffmpeg

import (
	"fmt"
	"math/rand"
	"os/exec"
	"strconv"
	"strings"
)

const nameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// WorkName returns a collision-safe file name for one
// engine invocation ("input_k3f9x2.mp4" style). Concurrent
// operations share a working directory, so names must be
// unique per call.
func WorkName(prefix, ext string) string {
	b := make([]byte, 9)
	for i := range b {
		b[i] = nameAlphabet[rand.Intn(len(nameAlphabet))]
	}
	return fmt.Sprintf("%s_%s.%s", prefix, string(b), ext)
}

// FormatSeconds renders float seconds the way ffmpeg
// expects them on -ss/-to flags.
func FormatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}

// GetMeta extracts metadata parameter
func GetMeta(file *string, par string) (string, error) {
	cmd := exec.Command(
		"ffprobe",            //						call ffprobe
		"-loglevel", "error", //						set loglevel
		"-show_entries", "format="+par, // 				set parameter to write
		"-of", "default=noprint_wrappers=1:nokey=1", //	write only the result (without key)
		*file, //										target file
	)

	stdout, err := cmd.Output()

	if err != nil {
		return "", err
	}

	return strings.Trim(string(stdout), "\n"), nil
}

// Duration returns media duration in seconds via ffprobe.
func Duration(file string) (float64, error) {
	s, err := GetMeta(&file, "duration")
	if err != nil {
		return 0, err
	}

	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration from metadata: %q", s)
	}

	return d, nil
}
