package encoding

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// ClippingWarning is the diagnostic lame prints when the encoded signal
// clipped at the current gain.
const ClippingWarning = "WARNING: clipping occurs at the current gain."

// defaultScale is used when lame reports clipping without suggesting a
// corrective scale factor.
const defaultScale = 0.99

var scalePattern = regexp.MustCompile(`encode\s+again\s+using\s+--scale\s+(\d+\.\d+)`)

// detectClipping scans a lame log for the clipping diagnostic. When clipping
// is present it returns the scale for the next attempt: the suggested value
// from the log if one was printed, otherwise the current scale lowered by a
// hundredth (or defaultScale on the first retry).
func detectClipping(logPath string, current float64) (float64, bool, error) {
	f, err := os.Open(logPath)
	if err != nil {
		return 0, false, err
	}
	defer f.Close()

	clipped := false
	suggested := 0.0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, ClippingWarning) {
			clipped = true
		}
		if m := scalePattern.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				suggested = v
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, false, err
	}
	if !clipped {
		return 0, false, nil
	}
	if suggested > 0 {
		return suggested, true, nil
	}
	if current > 0 {
		return current - 0.01, true, nil
	}
	return defaultScale, true, nil
}
