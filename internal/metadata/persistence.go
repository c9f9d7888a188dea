package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"platter/internal/disc"
)

// Fingerprinter computes the disc id used to key snapshots.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, toc disc.TOC) (string, error)
}

const snapshotSchemaVersion = 2

// Persistence is the pseudo-collector that restores a previously persisted
// metadata snapshot. It is the only source for the include flags, disc
// numbering, compilation flag, and custom tags, which makes it authoritative
// for those fields during aggregation.
//
// The snapshot directory is single-writer: a file lock plus an in-process
// mutex guard every read-modify-write.
type Persistence struct {
	dir string
	fp  Fingerprinter

	mu        sync.Mutex
	restored  bool
	converted bool
	snapshot  *Record
	discID    string
}

var _ Collector = (*Persistence)(nil)

// NewPersistence builds a snapshot store rooted at dir.
func NewPersistence(dir string, fp Fingerprinter) (*Persistence, error) {
	if dir == "" {
		return nil, NewError("persisted", "snapshot directory not configured", nil)
	}
	if fp == nil {
		return nil, NewError("persisted", "fingerprinter required", nil)
	}
	return &Persistence{dir: dir, fp: fp}, nil
}

func (p *Persistence) Name() string { return "persisted" }

// Restored reports whether the last Collect found and restored prior data.
func (p *Persistence) Restored() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.restored
}

// Converted reports whether the last Collect upgraded an older snapshot
// schema in memory.
func (p *Persistence) Converted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.converted
}

// Snapshot returns the restored record from the last Collect, or nil.
func (p *Persistence) Snapshot() *Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

// DiscID returns the fingerprint computed during the last Collect or Store.
func (p *Persistence) DiscID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.discID
}

// Collect loads the snapshot for the disc, if one exists. A missing snapshot
// is not an error: a freshly-initialized record is returned and Restored
// reports false.
func (p *Persistence) Collect(ctx context.Context, toc disc.TOC) (*Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.restored = false
	p.converted = false
	p.snapshot = nil

	id, err := p.fp.Fingerprint(ctx, toc)
	if err != nil {
		return nil, NewError("persisted", "disc fingerprint failed", err)
	}
	p.discID = id

	path := p.snapshotPath(id)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewRecord(toc), nil
	}
	if err != nil {
		return nil, NewError("persisted", "read snapshot", err)
	}

	record, converted, err := decodeSnapshot(raw, toc)
	if err != nil {
		return nil, NewError("persisted", "malformed snapshot", err)
	}

	p.restored = true
	p.converted = converted
	p.snapshot = record
	return record, nil
}

// Store persists the finalized record for the disc. Only the first (chosen)
// value of each candidate list is written. The write is guarded by a file
// lock so concurrent platter processes cannot interleave.
func (p *Persistence) Store(ctx context.Context, toc disc.TOC, record *Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.discID
	if id == "" {
		var err error
		id, err = p.fp.Fingerprint(ctx, toc)
		if err != nil {
			return NewError("persisted", "disc fingerprint failed", err)
		}
		p.discID = id
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return NewError("persisted", "create snapshot directory", err)
	}

	lock := flock.New(filepath.Join(p.dir, ".lock"))
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return NewError("persisted", "acquire snapshot lock", err)
	}
	if !locked {
		return NewError("persisted", "snapshot lock held by another process", nil)
	}
	defer func() { _ = lock.Unlock() }()

	raw, err := encodeSnapshot(id, toc, record)
	if err != nil {
		return NewError("persisted", "encode snapshot", err)
	}

	path := p.snapshotPath(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return NewError("persisted", "write snapshot", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return NewError("persisted", "replace snapshot", err)
	}
	return nil
}

func (p *Persistence) snapshotPath(id string) string {
	return filepath.Join(p.dir, id+".json")
}

// snapshotFile is the on-disk schema. It is text-only, so cover art is stored
// with a lossless single-byte-per-code-point encoding (Latin-1).
type snapshotFile struct {
	Version   int             `json:"version"`
	Timestamp string          `json:"timestamp"`
	DiscID    string          `json:"disc_id"`
	TOC       string          `json:"toc"`
	Album     snapshotAlbum   `json:"album"`
	Tracks    []snapshotTrack `json:"tracks"`
}

type snapshotAlbum struct {
	Title       string        `json:"title"`
	Artist      string        `json:"artist"`
	Label       string        `json:"label"`
	Genre       string        `json:"genre"`
	Year        string        `json:"year"`
	Cover       string        `json:"cover,omitempty"`
	DiscNumber  int           `json:"disc_number"`
	DiscTotal   int           `json:"disc_total"`
	Compilation bool          `json:"compilation"`
	TrackTotal  int           `json:"track_total"`
	Custom      []snapshotTag `json:"custom,omitempty"`
}

type snapshotTrack struct {
	Number  int           `json:"number"`
	Include bool          `json:"include"`
	Title   string        `json:"title"`
	Artist  string        `json:"artist"`
	Genre   string        `json:"genre"`
	Year    string        `json:"year"`
	Custom  []snapshotTag `json:"custom,omitempty"`
}

type snapshotTag struct {
	Vorbis string   `json:"vorbis"`
	ID3v2  string   `json:"id3v2"`
	Values []string `json:"values"`
}

func encodeSnapshot(id string, toc disc.TOC, record *Record) ([]byte, error) {
	file := snapshotFile{
		Version:   snapshotSchemaVersion,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DiscID:    id,
		TOC:       toc.String(),
		Album: snapshotAlbum{
			Title:       firstValue(record.Album.Title),
			Artist:      firstValue(record.Album.Artist),
			Label:       firstValue(record.Album.Label),
			Genre:       firstValue(record.Album.Genre),
			Year:        firstValue(record.Album.Year),
			DiscNumber:  record.Album.DiscNumber,
			DiscTotal:   record.Album.DiscTotal,
			Compilation: record.Album.Compilation,
			TrackTotal:  record.Album.TrackTotal,
			Custom:      encodeTags(record.Album.Custom),
		},
	}
	if len(record.Album.Cover) > 0 {
		file.Album.Cover = encodeLatin1(record.Album.Cover[0])
	}
	for i := 1; i < len(record.Tracks); i++ {
		track := record.Tracks[i]
		file.Tracks = append(file.Tracks, snapshotTrack{
			Number:  track.Number,
			Include: track.Include,
			Title:   firstValue(track.Title),
			Artist:  firstValue(track.Artist),
			Genre:   firstValue(track.Genre),
			Year:    firstValue(track.Year),
			Custom:  encodeTags(track.Custom),
		})
	}
	return json.Marshal(file)
}

func decodeSnapshot(raw []byte, toc disc.TOC) (*Record, bool, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, false, err
	}

	var file snapshotFile
	converted := false
	switch probe.Version {
	case snapshotSchemaVersion:
		if err := json.Unmarshal(raw, &file); err != nil {
			return nil, false, err
		}
	case 0:
		// Pre-versioned snapshots stored flat scalar fields under different
		// names. Upgrade in memory; the next Store writes the new schema.
		legacy, err := decodeLegacySnapshot(raw)
		if err != nil {
			return nil, false, err
		}
		file = legacy
		converted = true
	default:
		return nil, false, fmt.Errorf("unsupported snapshot version %d", probe.Version)
	}

	if len(file.Tracks) != toc.TrackCount() {
		return nil, false, fmt.Errorf("snapshot has %d tracks, toc has %d", len(file.Tracks), toc.TrackCount())
	}

	record := NewRecord(toc)
	album := &record.Album
	album.Title = singleton(file.Album.Title)
	album.Artist = singleton(file.Album.Artist)
	album.Label = singleton(file.Album.Label)
	album.Genre = singleton(file.Album.Genre)
	album.Year = singleton(file.Album.Year)
	album.DiscNumber = orOne(file.Album.DiscNumber)
	album.DiscTotal = orOne(file.Album.DiscTotal)
	album.Compilation = file.Album.Compilation
	decodeTags(album.Custom, file.Album.Custom)
	if file.Album.Cover != "" {
		blob, err := decodeLatin1(file.Album.Cover)
		if err != nil {
			return nil, false, fmt.Errorf("cover art: %w", err)
		}
		album.Cover = [][]byte{blob}
	}

	for i, fileTrack := range file.Tracks {
		if fileTrack.Number != i+1 {
			return nil, false, fmt.Errorf("snapshot track at position %d reports number %d", i+1, fileTrack.Number)
		}
		track := &record.Tracks[i+1]
		track.Include = fileTrack.Include
		track.Title = singleton(fileTrack.Title)
		track.Artist = singleton(fileTrack.Artist)
		track.Genre = singleton(fileTrack.Genre)
		track.Year = singleton(fileTrack.Year)
		decodeTags(track.Custom, fileTrack.Custom)
	}
	return record, converted, nil
}

// legacySnapshot mirrors the pre-versioned schema: album fields nested under
// "album" with older key names, tracks under "tracks", no custom tags.
type legacySnapshot struct {
	Timestamp string `json:"timestamp"`
	TOC       string `json:"toc"`
	Album     struct {
		Title         string `json:"title"`
		Artist        string `json:"artist"`
		RecordLabel   string `json:"record_label"`
		Genre         string `json:"genre"`
		Year          string `json:"year"`
		Cover         string `json:"cover,omitempty"`
		DiscNumber    int    `json:"disc_number"`
		DiscTotal     int    `json:"disc_total"`
		IsCompilation bool   `json:"is_compilation"`
		TrackCount    int    `json:"number_of_tracks"`
	} `json:"album"`
	Tracks []struct {
		Number  int    `json:"number"`
		Include bool   `json:"include"`
		Title   string `json:"title"`
		Artist  string `json:"artist"`
		Genre   string `json:"genre"`
		Year    string `json:"year"`
	} `json:"tracks"`
}

func decodeLegacySnapshot(raw []byte) (snapshotFile, error) {
	var legacy legacySnapshot
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return snapshotFile{}, err
	}
	if len(legacy.Tracks) == 0 {
		return snapshotFile{}, errors.New("legacy snapshot has no tracks")
	}
	file := snapshotFile{
		Version:   snapshotSchemaVersion,
		Timestamp: legacy.Timestamp,
		TOC:       legacy.TOC,
		Album: snapshotAlbum{
			Title:       legacy.Album.Title,
			Artist:      legacy.Album.Artist,
			Label:       legacy.Album.RecordLabel,
			Genre:       legacy.Album.Genre,
			Year:        legacy.Album.Year,
			Cover:       legacy.Album.Cover,
			DiscNumber:  legacy.Album.DiscNumber,
			DiscTotal:   legacy.Album.DiscTotal,
			Compilation: legacy.Album.IsCompilation,
			TrackTotal:  legacy.Album.TrackCount,
		},
	}
	for _, track := range legacy.Tracks {
		file.Tracks = append(file.Tracks, snapshotTrack{
			Number:  track.Number,
			Include: track.Include,
			Title:   track.Title,
			Artist:  track.Artist,
			Genre:   track.Genre,
			Year:    track.Year,
		})
	}
	return file, nil
}

func encodeTags(tags *CustomTags) []snapshotTag {
	if tags == nil || tags.Len() == 0 {
		return nil
	}
	out := make([]snapshotTag, 0, tags.Len())
	for _, key := range tags.Keys() {
		values, _ := tags.Get(key)
		out = append(out, snapshotTag{Vorbis: key.Vorbis, ID3v2: key.ID3v2, Values: values})
	}
	return out
}

func decodeTags(dst *CustomTags, src []snapshotTag) {
	for _, tag := range src {
		dst.Add(TagKey{Vorbis: tag.Vorbis, ID3v2: tag.ID3v2}, tag.Values...)
	}
}

// encodeLatin1 maps each byte to the code point of the same value, which JSON
// can carry losslessly as text.
func encodeLatin1(blob []byte) string {
	runes := make([]rune, len(blob))
	for i, b := range blob {
		runes[i] = rune(b)
	}
	return string(runes)
}

func decodeLatin1(value string) ([]byte, error) {
	out := make([]byte, 0, len(value))
	for _, r := range value {
		if r > 0xFF {
			return nil, fmt.Errorf("code point %U outside Latin-1", r)
		}
		out = append(out, byte(r))
	}
	return out, nil
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func singleton(value string) []string {
	if value == "" {
		return nil
	}
	return []string{value}
}

func orOne(value int) int {
	if value < 1 {
		return 1
	}
	return value
}
