package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"platter/internal/disc"
)

// MusicBrainz is the fingerprint-keyed public catalog collector. A lookup may
// return several releases, some spanning multiple discs; the medium matching
// this disc's fingerprint (or failing that, its track count) contributes the
// per-track candidates.
type MusicBrainz struct {
	baseURL    string
	userAgent  string
	fp         Fingerprinter
	httpClient *http.Client
	coverURL   string
}

var _ Collector = (*MusicBrainz)(nil)

// MusicBrainzOption configures the collector.
type MusicBrainzOption func(*MusicBrainz)

// WithMusicBrainzHTTPClient overrides the default HTTP client.
func WithMusicBrainzHTTPClient(client *http.Client) MusicBrainzOption {
	return func(m *MusicBrainz) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithCoverArtURL overrides the cover art archive base URL.
func WithCoverArtURL(url string) MusicBrainzOption {
	return func(m *MusicBrainz) {
		if url = strings.TrimSpace(url); url != "" {
			m.coverURL = strings.TrimRight(url, "/")
		}
	}
}

// NewMusicBrainz creates the collector. The user agent should identify the
// application and a contact, per the service's etiquette rules.
func NewMusicBrainz(baseURL, userAgent string, timeoutSeconds int, fp Fingerprinter, opts ...MusicBrainzOption) (*MusicBrainz, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, NewError("musicbrainz", "base url required", nil)
	}
	if fp == nil {
		return nil, NewError("musicbrainz", "fingerprinter required", nil)
	}
	timeout := time.Duration(timeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	collector := &MusicBrainz{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  strings.TrimSpace(userAgent),
		fp:         fp,
		httpClient: &http.Client{Timeout: timeout},
		coverURL:   "https://coverartarchive.org",
	}
	for _, opt := range opts {
		opt(collector)
	}
	return collector, nil
}

func (m *MusicBrainz) Name() string { return "musicbrainz" }

type mbArtistCredit struct {
	Name string `json:"name"`
}

type mbTrack struct {
	Position     int              `json:"position"`
	Title        string           `json:"title"`
	ArtistCredit []mbArtistCredit `json:"artist-credit"`
}

type mbMedium struct {
	Position int `json:"position"`
	Discs    []struct {
		ID string `json:"id"`
	} `json:"discs"`
	Tracks []mbTrack `json:"tracks"`
}

type mbRelease struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Date         string           `json:"date"`
	ArtistCredit []mbArtistCredit `json:"artist-credit"`
	LabelInfo    []struct {
		Label struct {
			Name string `json:"name"`
		} `json:"label"`
	} `json:"label-info"`
	Media        []mbMedium `json:"media"`
	CoverArchive struct {
		Front bool `json:"front"`
	} `json:"cover-art-archive"`
}

type mbDiscLookup struct {
	Releases []mbRelease `json:"releases"`
}

// Collect looks the disc up by fingerprint and merges every matching release
// into one record of candidates.
func (m *MusicBrainz) Collect(ctx context.Context, toc disc.TOC) (*Record, error) {
	id, err := m.fp.Fingerprint(ctx, toc)
	if err != nil {
		return nil, NewError("musicbrainz", "disc fingerprint failed", err)
	}

	url := fmt.Sprintf("%s/discid/%s?fmt=json&inc=artist-credits+labels+recordings", m.baseURL, id)
	var lookup mbDiscLookup
	if err := m.getJSON(ctx, url, &lookup); err != nil {
		return nil, err
	}
	if len(lookup.Releases) == 0 {
		return nil, NewError("musicbrainz", fmt.Sprintf("no release matches disc id %s", id), nil)
	}

	record := NewRecord(toc)
	for _, release := range lookup.Releases {
		m.mergeRelease(ctx, record, release, id, toc)
	}
	return record, nil
}

func (m *MusicBrainz) mergeRelease(ctx context.Context, record *Record, release mbRelease, discID string, toc disc.TOC) {
	record.Album.Title = appendUnseen(record.Album.Title, []string{release.Title})
	record.Album.Artist = appendUnseen(record.Album.Artist, []string{creditName(release.ArtistCredit)})
	for _, info := range release.LabelInfo {
		record.Album.Label = appendUnseen(record.Album.Label, []string{info.Label.Name})
	}
	if year := yearOf(release.Date); year != "" {
		record.Album.Year = appendUnseen(record.Album.Year, []string{year})
	}
	if len(release.Media) > record.Album.DiscTotal {
		record.Album.DiscTotal = len(release.Media)
	}

	medium := selectMedium(release.Media, discID, toc.TrackCount())
	if medium == nil {
		return
	}
	if medium.Position > record.Album.DiscNumber {
		record.Album.DiscNumber = medium.Position
	}
	for _, track := range medium.Tracks {
		if track.Position < 1 || track.Position >= len(record.Tracks) {
			continue
		}
		target := &record.Tracks[track.Position]
		target.Title = appendUnseen(target.Title, []string{track.Title})
		target.Artist = appendUnseen(target.Artist, []string{creditName(track.ArtistCredit)})
	}

	if release.CoverArchive.Front {
		if blob := m.fetchCover(ctx, release.ID); len(blob) > 0 {
			record.Album.Cover = appendUnseenBlobs(record.Album.Cover, [][]byte{blob})
		}
	}
}

// selectMedium prefers the medium whose disc list contains this disc's id,
// then falls back to the first medium with a matching track count.
func selectMedium(media []mbMedium, discID string, trackCount int) *mbMedium {
	for i := range media {
		for _, d := range media[i].Discs {
			if d.ID == discID {
				return &media[i]
			}
		}
	}
	for i := range media {
		if len(media[i].Tracks) == trackCount {
			return &media[i]
		}
	}
	return nil
}

func (m *MusicBrainz) fetchCover(ctx context.Context, releaseID string) []byte {
	url := fmt.Sprintf("%s/release/%s/front", m.coverURL, releaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", m.userAgent)
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	blob, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil
	}
	return blob
}

func (m *MusicBrainz) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewError("musicbrainz", "build request", err)
	}
	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return NewError("musicbrainz", "transport failure", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return NewError("musicbrainz", "no match for disc", nil)
	default:
		return NewError("musicbrainz", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewError("musicbrainz", "malformed response", err)
	}
	return nil
}

func creditName(credits []mbArtistCredit) string {
	names := make([]string, 0, len(credits))
	for _, credit := range credits {
		if name := strings.TrimSpace(credit.Name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, " & ")
}

func yearOf(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}
