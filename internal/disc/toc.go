package disc

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// TOC is a disc's table of contents: the span of track numbers, the start
// offset of every track in disc blocks, and the leadout offset.
type TOC struct {
	FirstTrack    int
	LastTrack     int
	TrackOffsets  []int
	LeadoutOffset int
}

// TrackCount returns the number of audio tracks on the disc.
func (t TOC) TrackCount() int {
	return len(t.TrackOffsets)
}

// Validate checks internal consistency of the TOC.
func (t TOC) Validate() error {
	if t.FirstTrack < 1 {
		return fmt.Errorf("toc: first track %d out of range", t.FirstTrack)
	}
	if t.LastTrack < t.FirstTrack {
		return fmt.Errorf("toc: last track %d precedes first track %d", t.LastTrack, t.FirstTrack)
	}
	span := t.LastTrack - t.FirstTrack + 1
	if len(t.TrackOffsets) != span {
		return fmt.Errorf("toc: %d offsets for %d tracks", len(t.TrackOffsets), span)
	}
	prev := -1
	for i, offset := range t.TrackOffsets {
		if offset <= prev {
			return fmt.Errorf("toc: offset %d at track %d not increasing", offset, t.FirstTrack+i)
		}
		prev = offset
	}
	if t.LeadoutOffset <= prev {
		return fmt.Errorf("toc: leadout offset %d not past final track", t.LeadoutOffset)
	}
	return nil
}

// String renders the TOC in the compact "first last offsets... leadout" form
// used by the snapshot format and the fingerprint tool.
func (t TOC) String() string {
	parts := make([]string, 0, len(t.TrackOffsets)+3)
	parts = append(parts, strconv.Itoa(t.FirstTrack), strconv.Itoa(t.LastTrack))
	for _, offset := range t.TrackOffsets {
		parts = append(parts, strconv.Itoa(offset))
	}
	parts = append(parts, strconv.Itoa(t.LeadoutOffset))
	return strings.Join(parts, " ")
}

// Parse reads a TOC from its String form.
func Parse(value string) (TOC, error) {
	fields := strings.Fields(value)
	if len(fields) < 4 {
		return TOC{}, fmt.Errorf("toc: malformed %q", value)
	}
	numbers := make([]int, len(fields))
	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil {
			return TOC{}, fmt.Errorf("toc: malformed field %q", field)
		}
		numbers[i] = n
	}
	toc := TOC{
		FirstTrack:    numbers[0],
		LastTrack:     numbers[1],
		TrackOffsets:  numbers[2 : len(numbers)-1],
		LeadoutOffset: numbers[len(numbers)-1],
	}
	if err := toc.Validate(); err != nil {
		return TOC{}, err
	}
	return toc, nil
}

// Digest returns a deterministic local fingerprint for the TOC. It is not the
// catalog disc id (that comes from the external fingerprint tool) but serves
// as a stable fallback key for tests and offline snapshots.
func (t TOC) Digest() string {
	sum := sha256.Sum256([]byte(t.String()))
	return hex.EncodeToString(sum[:16])
}
