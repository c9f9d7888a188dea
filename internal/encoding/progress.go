package encoding

import (
	"os"
	"strings"
)

// tailLine returns the last line of the file at path, with carriage-return
// style progress rewrites resolved to their final segment. flac redraws its
// ratio display with backspaces, so the last segment after the final \b run
// is the current reading.
func tailLine(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.TrimRight(string(data), "\r\n")
	if i := strings.LastIndexAny(text, "\r\n"); i >= 0 {
		text = text[i+1:]
	}
	if i := strings.LastIndexByte(text, '\b'); i >= 0 {
		text = text[i+1:]
	}
	return strings.TrimSpace(text), nil
}
