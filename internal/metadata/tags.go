package metadata

import (
	"fmt"
	"strings"
)

// TrackTags is one track's finalized metadata: the chosen (index 0) value of
// every candidate list, flattened for naming and tagging. Created once when
// the caller finalizes selections, immutable thereafter.
type TrackTags struct {
	AlbumTitle  string
	AlbumArtist string
	Label       string
	AlbumGenre  string
	AlbumYear   string
	DiscNumber  int
	DiscTotal   int
	TrackTotal  int
	Compilation bool

	TrackNumber int
	TrackTitle  string
	TrackArtist string
	TrackGenre  string
	TrackYear   string

	// CoverPath is the temporary file holding the chosen cover image, empty
	// when no cover was selected.
	CoverPath string

	Custom *CustomTags
}

// Finalize flattens the record's chosen values for one track.
func (r *Record) Finalize(trackNumber int) (TrackTags, error) {
	if trackNumber < 1 || trackNumber >= len(r.Tracks) {
		return TrackTags{}, fmt.Errorf("track %d out of range 1..%d", trackNumber, r.TrackCount())
	}
	track := r.Tracks[trackNumber]
	custom := r.Album.Custom.Clone()
	custom.Merge(track.Custom)
	return TrackTags{
		AlbumTitle:  firstValue(r.Album.Title),
		AlbumArtist: firstValue(r.Album.Artist),
		Label:       firstValue(r.Album.Label),
		AlbumGenre:  firstValue(r.Album.Genre),
		AlbumYear:   firstValue(r.Album.Year),
		DiscNumber:  r.Album.DiscNumber,
		DiscTotal:   r.Album.DiscTotal,
		TrackTotal:  r.Album.TrackTotal,
		Compilation: r.Album.Compilation,
		TrackNumber: track.Number,
		TrackTitle:  firstValue(track.Title),
		TrackArtist: firstValue(track.Artist),
		TrackGenre:  firstValue(track.Genre),
		TrackYear:   firstValue(track.Year),
		Custom:      custom,
	}, nil
}

// Fields returns the named substitution values used by naming templates and
// custom tag value templates.
func (t TrackTags) Fields() map[string]string {
	return map[string]string{
		"album_title":      t.AlbumTitle,
		"album_artist":     t.AlbumArtist,
		"album_label":      t.Label,
		"album_genre":      t.AlbumGenre,
		"album_year":       t.AlbumYear,
		"album_discnumber": fmt.Sprintf("%02d", t.DiscNumber),
		"album_disctotal":  fmt.Sprintf("%d", t.DiscTotal),
		"album_tracktotal": fmt.Sprintf("%d", t.TrackTotal),
		"track_number":     fmt.Sprintf("%02d", t.TrackNumber),
		"track_title":      t.TrackTitle,
		"track_artist":     t.TrackArtist,
		"track_genre":      t.TrackGenre,
		"track_year":       t.TrackYear,
	}
}

// VorbisComments builds the lossless tagging map.
func (t TrackTags) VorbisComments() map[string][]string {
	tags := map[string][]string{
		"ALBUM":        nonEmpty(t.AlbumTitle),
		"ALBUMARTIST":  nonEmpty(t.AlbumArtist),
		"ORGANIZATION": nonEmpty(t.Label),
		"LABEL":        nonEmpty(t.Label),
		"GENRE":        nonEmpty(t.TrackGenre),
		"DATE":         nonEmpty(t.TrackYear),
		"DISCNUMBER":   nonEmpty(fmt.Sprintf("%d", t.DiscNumber)),
		"DISCTOTAL":    nonEmpty(fmt.Sprintf("%d", t.DiscTotal)),
		"TITLE":        nonEmpty(t.TrackTitle),
		"ARTIST":       nonEmpty(t.TrackArtist),
		"TRACKNUMBER":  nonEmpty(fmt.Sprintf("%d", t.TrackNumber)),
		"TRACKTOTAL":   nonEmpty(fmt.Sprintf("%d", t.TrackTotal)),
	}
	if t.Compilation {
		tags["COMPILATION"] = []string{"1"}
	}
	t.applyCustom(tags, func(key TagKey) string { return key.Vorbis })
	return prune(tags)
}

// ID3v2Tags builds the lossy tagging map.
func (t TrackTags) ID3v2Tags() map[string][]string {
	tags := map[string][]string{
		"TALB": nonEmpty(t.AlbumTitle),
		"TPE2": nonEmpty(t.AlbumArtist),
		"TPUB": nonEmpty(t.Label),
		"TCON": nonEmpty(t.TrackGenre),
		"TYER": nonEmpty(t.TrackYear),
		"TPOS": nonEmpty(fmt.Sprintf("%d/%d", t.DiscNumber, t.DiscTotal)),
		"TIT2": nonEmpty(t.TrackTitle),
		"TPE1": nonEmpty(t.TrackArtist),
		"TRCK": nonEmpty(fmt.Sprintf("%d/%d", t.TrackNumber, t.TrackTotal)),
	}
	if t.Compilation {
		tags["TCMP"] = []string{"1"}
	}
	t.applyCustom(tags, func(key TagKey) string { return key.ID3v2 })
	return prune(tags)
}

// applyCustom expands custom tag value templates and overwrites any
// preconfigured tag sharing the same name.
func (t TrackTags) applyCustom(tags map[string][]string, nameOf func(TagKey) string) {
	if t.Custom == nil {
		return
	}
	fields := t.Fields()
	for _, key := range t.Custom.Keys() {
		name := nameOf(key)
		if name == "" {
			continue
		}
		templates, _ := t.Custom.Get(key)
		var values []string
		for _, template := range templates {
			if value := Substitute(template, fields); value != "" {
				values = append(values, value)
			}
		}
		if len(values) > 0 {
			tags[name] = values
		}
	}
}

// Substitute replaces {field} placeholders with their values. Unknown
// placeholders are left untouched.
func Substitute(template string, fields map[string]string) string {
	out := template
	for name, value := range fields {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}

func nonEmpty(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return []string{value}
}

func prune(tags map[string][]string) map[string][]string {
	for name, values := range tags {
		if len(values) == 0 {
			delete(tags, name)
		}
	}
	return tags
}
