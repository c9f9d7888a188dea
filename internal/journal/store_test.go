package journal_test

import (
	"context"
	"errors"
	"testing"

	"platter/internal/journal"
	"platter/internal/testsupport"
)

func TestSessionLifecycle(t *testing.T) {
	store := testsupport.MustOpenJournal(t, testsupport.NewConfig(t))
	ctx := context.Background()

	session, err := store.CreateSession(ctx, "a1b2c3", "Kind of Blue", "Miles Davis")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected generated session id")
	}
	if session.Status != journal.StatusPending {
		t.Fatalf("expected pending status, got %q", session.Status)
	}

	if err := store.UpdateSessionStatus(ctx, session.ID, journal.StatusRipping, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}
	loaded, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if loaded.Status != journal.StatusRipping {
		t.Fatalf("expected ripping status, got %q", loaded.Status)
	}
	if loaded.AlbumTitle != "Kind of Blue" || loaded.AlbumArtist != "Miles Davis" {
		t.Fatalf("album fields lost: %+v", loaded)
	}
}

func TestUpdateSessionStatusRecordsAndClearsErrors(t *testing.T) {
	store := testsupport.MustOpenJournal(t, testsupport.NewConfig(t))
	ctx := context.Background()

	session, err := store.CreateSession(ctx, "a1b2c3", "Kind of Blue", "Miles Davis")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := store.UpdateSessionStatus(ctx, session.ID, journal.StatusFailed, "lame exited 1"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	loaded, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if loaded.ErrorMessage != "lame exited 1" {
		t.Fatalf("expected failure message, got %q", loaded.ErrorMessage)
	}

	// A non-failed transition must not carry a stale error forward.
	if err := store.UpdateSessionStatus(ctx, session.ID, journal.StatusCompleted, "ignored"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	loaded, err = store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if loaded.ErrorMessage != "" {
		t.Fatalf("expected cleared error, got %q", loaded.ErrorMessage)
	}
}

func TestUpdateSessionStatusUnknownSession(t *testing.T) {
	store := testsupport.MustOpenJournal(t, testsupport.NewConfig(t))

	err := store.UpdateSessionStatus(context.Background(), "missing", journal.StatusRipping, "")
	if !errors.Is(err, journal.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	err = store.UpdateSessionStatus(context.Background(), "missing", journal.Status("bogus"), "")
	if err == nil || errors.Is(err, journal.ErrNotFound) {
		t.Fatalf("expected invalid status error, got %v", err)
	}
}

func TestRecordTrackUpsertsAndOrders(t *testing.T) {
	store := testsupport.MustOpenJournal(t, testsupport.NewConfig(t))
	ctx := context.Background()

	session, err := store.CreateSession(ctx, "a1b2c3", "Kind of Blue", "Miles Davis")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	entries := []journal.TrackEntry{
		{SessionID: session.ID, TrackNumber: 2, Title: "Freddie Freeloader", State: "ENCODING_MP3"},
		{SessionID: session.ID, TrackNumber: 1, Title: "So What", State: "PENDING"},
	}
	for _, entry := range entries {
		if err := store.RecordTrack(ctx, entry); err != nil {
			t.Fatalf("record track %d: %v", entry.TrackNumber, err)
		}
	}

	// Re-recording the same track number replaces the row in place.
	if err := store.RecordTrack(ctx, journal.TrackEntry{
		SessionID:    session.ID,
		TrackNumber:  2,
		Title:        "Freddie Freeloader",
		State:        "REENCODING_MP3",
		Scale:        0.87,
		LosslessPath: "/flac/02.flac",
		LossyPath:    "/mp3/02.mp3",
	}); err != nil {
		t.Fatalf("upsert track: %v", err)
	}

	tracks, err := store.SessionTracks(ctx, session.ID)
	if err != nil {
		t.Fatalf("session tracks: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if tracks[0].TrackNumber != 1 || tracks[1].TrackNumber != 2 {
		t.Fatalf("tracks out of order: %+v", tracks)
	}
	if tracks[1].State != "REENCODING_MP3" || tracks[1].Scale != 0.87 {
		t.Fatalf("upsert did not replace: %+v", tracks[1])
	}
	if tracks[1].LosslessPath != "/flac/02.flac" || tracks[1].LossyPath != "/mp3/02.mp3" {
		t.Fatalf("paths lost: %+v", tracks[1])
	}
}

func TestRecordTrackRequiresSession(t *testing.T) {
	store := testsupport.MustOpenJournal(t, testsupport.NewConfig(t))
	err := store.RecordTrack(context.Background(), journal.TrackEntry{TrackNumber: 1})
	if err == nil {
		t.Fatal("expected error for missing session id")
	}
}

func TestFindByDiscIDReturnsNewest(t *testing.T) {
	store := testsupport.MustOpenJournal(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first, err := store.CreateSession(ctx, "a1b2c3", "Kind of Blue", "Miles Davis")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	second, err := store.CreateSession(ctx, "a1b2c3", "Kind of Blue", "Miles Davis")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	found, err := store.FindByDiscID(ctx, "a1b2c3")
	if err != nil {
		t.Fatalf("find by disc id: %v", err)
	}
	if found.ID != first.ID && found.ID != second.ID {
		t.Fatalf("unknown session returned: %q", found.ID)
	}

	if _, err := store.FindByDiscID(ctx, "unknown"); !errors.Is(err, journal.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	store := testsupport.MustOpenJournal(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for _, disc := range []string{"disc-1", "disc-2", "disc-3"} {
		if _, err := store.CreateSession(ctx, disc, "Album", "Artist"); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	for i := 1; i < len(sessions); i++ {
		if sessions[i].CreatedAt.After(sessions[i-1].CreatedAt) {
			t.Fatalf("sessions not newest first: %v then %v",
				sessions[i-1].CreatedAt, sessions[i].CreatedAt)
		}
	}
}

func TestDeleteSessionCascadesToTracks(t *testing.T) {
	store := testsupport.MustOpenJournal(t, testsupport.NewConfig(t))
	ctx := context.Background()

	session, err := store.CreateSession(ctx, "a1b2c3", "Kind of Blue", "Miles Davis")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := store.RecordTrack(ctx, journal.TrackEntry{
		SessionID: session.ID, TrackNumber: 1, Title: "So What", State: "COMPLETE",
	}); err != nil {
		t.Fatalf("record track: %v", err)
	}

	if err := store.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := store.GetSession(ctx, session.ID); !errors.Is(err, journal.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	tracks, err := store.SessionTracks(ctx, session.ID)
	if err != nil {
		t.Fatalf("session tracks: %v", err)
	}
	if len(tracks) != 0 {
		t.Fatalf("expected cascade delete, got %d tracks", len(tracks))
	}

	if err := store.DeleteSession(ctx, session.ID); !errors.Is(err, journal.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
