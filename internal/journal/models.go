package journal

import "time"

// Status represents the lifecycle of a rip session.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRipping   Status = "ripping"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var statusSet = map[Status]struct{}{
	StatusPending:   {},
	StatusRipping:   {},
	StatusCompleted: {},
	StatusFailed:    {},
}

// Valid reports whether the status is one of the known lifecycle values.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Session is one disc's rip attempt.
type Session struct {
	ID           string
	DiscID       string
	AlbumTitle   string
	AlbumArtist  string
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TrackEntry is one track's recorded outcome within a session.
type TrackEntry struct {
	SessionID    string
	TrackNumber  int
	Title        string
	State        string
	Scale        float64
	ErrorMessage string
	LosslessPath string
	LossyPath    string
	UpdatedAt    time.Time
}
