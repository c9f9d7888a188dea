package encoding

import "fmt"

// StateKind enumerates the per-track encoding states.
type StateKind int

const (
	StateExcluded StateKind = iota
	StatePending
	StateEncodingFLAC
	StateDecodingWAV
	StateEncodingMP3
	StateReencodingMP3
	StateFailed
	StateComplete
)

// Ordinal returns the state's relative value. Transitions may only move to
// equal or higher ordinals; FAILED and COMPLETE share the top ordinal so
// neither can be left once entered.
func (k StateKind) Ordinal() int {
	switch k {
	case StateExcluded:
		return -1
	case StatePending:
		return 0
	case StateEncodingFLAC:
		return 1
	case StateDecodingWAV:
		return 2
	case StateEncodingMP3:
		return 3
	case StateReencodingMP3:
		return 4
	case StateFailed, StateComplete:
		return 99
	default:
		return 99
	}
}

func (k StateKind) String() string {
	switch k {
	case StateExcluded:
		return "EXCLUDED"
	case StatePending:
		return "PENDING"
	case StateEncodingFLAC:
		return "ENCODING_FLAC"
	case StateDecodingWAV:
		return "DECODING_WAV"
	case StateEncodingMP3:
		return "ENCODING_MP3"
	case StateReencodingMP3:
		return "REENCODING_MP3"
	case StateFailed:
		return "FAILED"
	case StateComplete:
		return "COMPLETE"
	default:
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
}

func (k StateKind) terminal() bool {
	switch k {
	case StateExcluded, StateFailed, StateComplete:
		return true
	default:
		return false
	}
}

// State is a tagged state value. Scale is meaningful only for
// StateReencodingMP3, where it carries the PCM scale factor of the retry.
type State struct {
	Kind  StateKind
	Scale float64
}

// Reencoding builds the parameterized re-encode state.
func Reencoding(scale float64) State {
	return State{Kind: StateReencodingMP3, Scale: scale}
}

// Text returns the short human-readable description of the state.
func (s State) Text() string {
	switch s.Kind {
	case StateExcluded:
		return "excluded"
	case StatePending:
		return "pending..."
	case StateEncodingFLAC:
		return "encoding CDDA to FLAC..."
	case StateDecodingWAV:
		return "decoding FLAC to WAV..."
	case StateEncodingMP3:
		return "encoding WAV to MP3..."
	case StateReencodingMP3:
		return fmt.Sprintf("re-encoding MP3 at %.2f scale (clipping detected)...", s.Scale)
	case StateFailed:
		return "failed"
	case StateComplete:
		return "complete"
	default:
		return s.Kind.String()
	}
}

// TrackStatus is the state machine for one track's encoding status.
type TrackStatus struct {
	label string
	state State
	cause error
}

// NewTrackStatus initializes the status for a track: PENDING when included,
// EXCLUDED (terminal) otherwise.
func NewTrackStatus(label string, included bool) *TrackStatus {
	state := State{Kind: StatePending}
	if !included {
		state = State{Kind: StateExcluded}
	}
	return &TrackStatus{label: label, state: state}
}

// State returns the current state.
func (t *TrackStatus) State() State {
	return t.state
}

// Label returns the track's display label.
func (t *TrackStatus) Label() string {
	return t.label
}

// Cause returns the failure cause, if the track failed.
func (t *TrackStatus) Cause() error {
	return t.cause
}

// Advance moves the status forward to the target state. It reports false,
// leaving the state unchanged, when the current state is terminal or the
// target's ordinal would move backwards. Dropping the illegal transition is
// deliberate: stale messages must not corrupt recorded status.
func (t *TrackStatus) Advance(to State) bool {
	if t.state.Kind.terminal() {
		return false
	}
	if to.Kind.Ordinal() < t.state.Kind.Ordinal() {
		return false
	}
	t.state = to
	return true
}

// Fail forces the terminal FAILED state, bypassing the ordinal comparison.
// Only a terminal current state rejects it.
func (t *TrackStatus) Fail(cause error) bool {
	if t.state.Kind.terminal() {
		return false
	}
	t.state = State{Kind: StateFailed}
	t.cause = cause
	return true
}

// Describe renders "label: message", defaulting to the state's own text.
func (t *TrackStatus) Describe(message string) string {
	if message == "" {
		message = t.state.Text()
	}
	return t.label + ": " + message
}
