package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"platter/internal/disc"
)

// Gracenote is the session-authenticated catalog collector. The first lookup
// of a process registers the configured client id for a user id, which then
// authenticates album queries matched by the disc's offset pattern. A query
// may return several candidate albums; all of them contribute candidates.
type Gracenote struct {
	clientID   string
	baseURL    string
	userAgent  string
	httpClient *http.Client

	userID string
}

var _ Collector = (*Gracenote)(nil)

// GracenoteOption configures the collector.
type GracenoteOption func(*Gracenote)

// WithGracenoteHTTPClient overrides the default HTTP client.
func WithGracenoteHTTPClient(client *http.Client) GracenoteOption {
	return func(g *Gracenote) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// NewGracenote creates the collector. The client id is the required
// credential; collection fails with a typed error when it is missing.
func NewGracenote(clientID, baseURL, userAgent string, timeoutSeconds int, opts ...GracenoteOption) (*Gracenote, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, NewError("gracenote", "base url required", nil)
	}
	timeout := time.Duration(timeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	collector := &Gracenote{
		clientID:   strings.TrimSpace(clientID),
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  strings.TrimSpace(userAgent),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(collector)
	}
	return collector, nil
}

func (g *Gracenote) Name() string { return "gracenote" }

type gnQuery struct {
	Command  string   `json:"command"`
	ClientID string   `json:"client_id,omitempty"`
	UserID   string   `json:"user_id,omitempty"`
	Offsets  []int    `json:"offsets,omitempty"`
	Include  []string `json:"include,omitempty"`
}

type gnTrack struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

type gnAlbum struct {
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Label       string    `json:"label"`
	Genre       string    `json:"genre"`
	Year        string    `json:"year"`
	DiscNumber  int       `json:"disc_number"`
	DiscTotal   int       `json:"disc_total"`
	CoverURL    string    `json:"cover_url"`
	Tracks      []gnTrack `json:"tracks"`
	TrackCount  int       `json:"track_count"`
	Compilation bool      `json:"compilation"`
}

type gnResponse struct {
	Status string    `json:"status"`
	UserID string    `json:"user_id,omitempty"`
	Albums []gnAlbum `json:"albums,omitempty"`
}

// Collect registers a session if needed, then queries candidate albums by the
// disc's offset pattern.
func (g *Gracenote) Collect(ctx context.Context, toc disc.TOC) (*Record, error) {
	if g.clientID == "" {
		return nil, NewError("gracenote", "missing credential: client id not configured", nil)
	}
	if err := g.register(ctx); err != nil {
		return nil, err
	}

	offsets := make([]int, 0, toc.TrackCount()+1)
	offsets = append(offsets, toc.TrackOffsets...)
	offsets = append(offsets, toc.LeadoutOffset)

	var resp gnResponse
	err := g.post(ctx, gnQuery{
		Command: "album_toc",
		UserID:  g.userID,
		Offsets: offsets,
		Include: []string{"cover", "label"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Albums) == 0 {
		return nil, NewError("gracenote", "no album matches the disc offsets", nil)
	}

	record := NewRecord(toc)
	for _, album := range resp.Albums {
		g.mergeAlbum(ctx, record, album)
	}
	return record, nil
}

func (g *Gracenote) register(ctx context.Context) error {
	if g.userID != "" {
		return nil
	}
	var resp gnResponse
	if err := g.post(ctx, gnQuery{Command: "register", ClientID: g.clientID}, &resp); err != nil {
		return err
	}
	if resp.UserID == "" {
		return NewError("gracenote", "registration returned no user id", nil)
	}
	g.userID = resp.UserID
	return nil
}

func (g *Gracenote) mergeAlbum(ctx context.Context, record *Record, album gnAlbum) {
	record.Album.Title = appendUnseen(record.Album.Title, []string{album.Title})
	record.Album.Artist = appendUnseen(record.Album.Artist, []string{album.Artist})
	record.Album.Label = appendUnseen(record.Album.Label, []string{album.Label})
	record.Album.Genre = appendUnseen(record.Album.Genre, []string{album.Genre})
	record.Album.Year = appendUnseen(record.Album.Year, []string{album.Year})
	if album.DiscNumber > record.Album.DiscNumber {
		record.Album.DiscNumber = album.DiscNumber
	}
	if album.DiscTotal > record.Album.DiscTotal {
		record.Album.DiscTotal = album.DiscTotal
	}
	if album.Compilation {
		record.Album.Compilation = true
	}

	for _, track := range album.Tracks {
		if track.Number < 1 || track.Number >= len(record.Tracks) {
			continue
		}
		target := &record.Tracks[track.Number]
		target.Title = appendUnseen(target.Title, []string{track.Title})
		target.Artist = appendUnseen(target.Artist, []string{track.Artist})
		target.Genre = appendUnseen(target.Genre, []string{album.Genre})
	}

	if album.CoverURL != "" {
		if blob := g.fetchCover(ctx, album.CoverURL); len(blob) > 0 {
			record.Album.Cover = appendUnseenBlobs(record.Album.Cover, [][]byte{blob})
		}
	}
}

func (g *Gracenote) fetchCover(ctx context.Context, url string) []byte {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", g.userAgent)
	resp, err := g.httpClient.Do(req)
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

func (g *Gracenote) post(ctx context.Context, query gnQuery, out *gnResponse) error {
	body, err := json.Marshal(query)
	if err != nil {
		return NewError("gracenote", "encode query", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(body))
	if err != nil {
		return NewError("gracenote", "build request", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return NewError("gracenote", "transport failure", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NewError("gracenote", "unexpected status "+strconv.Itoa(resp.StatusCode), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewError("gracenote", "malformed response", err)
	}
	if out.Status != "" && !strings.EqualFold(out.Status, "ok") {
		return NewError("gracenote", fmt.Sprintf("service reported status %q", out.Status), nil)
	}
	return nil
}
