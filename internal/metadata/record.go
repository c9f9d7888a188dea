package metadata

import (
	"bytes"
	"fmt"

	"platter/internal/disc"
)

// TagKey identifies one custom tag by its name in both target formats.
type TagKey struct {
	Vorbis string
	ID3v2  string
}

// CustomTags is an insertion-ordered map of TagKey to candidate value
// templates. Values are de-duplicated on insert.
type CustomTags struct {
	keys   []TagKey
	values map[TagKey][]string
}

// NewCustomTags returns an empty tag map.
func NewCustomTags() *CustomTags {
	return &CustomTags{values: make(map[TagKey][]string)}
}

// Add appends values for key that are not already present, preserving order.
func (c *CustomTags) Add(key TagKey, values ...string) {
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
		c.values[key] = nil
	}
	for _, value := range values {
		if !containsString(c.values[key], value) {
			c.values[key] = append(c.values[key], value)
		}
	}
}

// Get returns the ordered values for key.
func (c *CustomTags) Get(key TagKey) ([]string, bool) {
	values, ok := c.values[key]
	return values, ok
}

// Has reports whether key is present.
func (c *CustomTags) Has(key TagKey) bool {
	_, ok := c.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (c *CustomTags) Keys() []TagKey {
	cp := make([]TagKey, len(c.keys))
	copy(cp, c.keys)
	return cp
}

// Len returns the number of keys.
func (c *CustomTags) Len() int {
	return len(c.keys)
}

// Merge folds every entry of other into c, de-duplicating values.
func (c *CustomTags) Merge(other *CustomTags) {
	if other == nil {
		return
	}
	for _, key := range other.keys {
		c.Add(key, other.values[key]...)
	}
}

// Clone returns a deep copy.
func (c *CustomTags) Clone() *CustomTags {
	clone := NewCustomTags()
	clone.Merge(c)
	return clone
}

// Album holds the album-level metadata candidates.
type Album struct {
	Title       []string
	Artist      []string
	Label       []string
	Genre       []string
	Year        []string
	Cover       [][]byte
	DiscNumber  int
	DiscTotal   int
	Compilation bool
	TrackTotal  int
	Custom      *CustomTags
}

// Track holds one track's metadata candidates.
type Track struct {
	Number  int
	Include bool
	Title   []string
	Artist  []string
	Genre   []string
	Year    []string
	Custom  *CustomTags
}

// Record is the full per-disc metadata record. Tracks are 1-indexed; index 0
// is unused so Tracks[n] is track n.
type Record struct {
	Album  Album
	Tracks []Track
}

// NewRecord returns a freshly-initialized record for the TOC: all candidate
// lists empty, every track included, disc number and total 1.
func NewRecord(toc disc.TOC) *Record {
	count := toc.TrackCount()
	record := &Record{
		Album: Album{
			DiscNumber: 1,
			DiscTotal:  1,
			TrackTotal: count,
			Custom:     NewCustomTags(),
		},
		Tracks: make([]Track, count+1),
	}
	for i := 1; i <= count; i++ {
		record.Tracks[i] = Track{
			Number:  i,
			Include: true,
			Custom:  NewCustomTags(),
		}
	}
	return record
}

// TrackCount returns the number of tracks in the record.
func (r *Record) TrackCount() int {
	return len(r.Tracks) - 1
}

// CheckShape verifies the record's track structure against the TOC: the track
// total, the track slice length, and each track's reported number must agree.
func (r *Record) CheckShape(toc disc.TOC) error {
	if r.Album.TrackTotal != toc.TrackCount() || r.TrackCount() != toc.TrackCount() {
		return fmt.Errorf("record has %d tracks (total %d), toc has %d",
			r.TrackCount(), r.Album.TrackTotal, toc.TrackCount())
	}
	for i := 1; i < len(r.Tracks); i++ {
		if r.Tracks[i].Number != i {
			return fmt.Errorf("track at position %d reports number %d", i, r.Tracks[i].Number)
		}
	}
	return nil
}

// appendUnseen appends every value of src not already present in dst.
func appendUnseen(dst []string, src []string) []string {
	for _, value := range src {
		if value != "" && !containsString(dst, value) {
			dst = append(dst, value)
		}
	}
	return dst
}

// appendUnseenBlobs appends cover blobs not already present (byte equality).
func appendUnseenBlobs(dst [][]byte, src [][]byte) [][]byte {
	for _, blob := range src {
		if len(blob) == 0 {
			continue
		}
		seen := false
		for _, existing := range dst {
			if bytes.Equal(existing, blob) {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, blob)
		}
	}
	return dst
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
