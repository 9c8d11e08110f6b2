package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported stages.
const (
	StageSearchStart  Stage = "SEARCH_START"
	StageStrategyDone Stage = "STRATEGY_DONE"
	StageFallbackUsed Stage = "FALLBACK_USED"
	StageSearchDone   Stage = "SEARCH_DONE"
)

// OutcomeOK marks a strategy that produced items or finished cleanly.
const OutcomeOK = "ok"

// Event is one observation of a search in flight.
type Event struct {
	// SearchID correlates every event of one engine invocation.
	SearchID [16]byte  `json:"-"`
	TS       time.Time `json:"ts"`
	Stage    Stage     `json:"stage"`
	// Portal and Technique scope STRATEGY_DONE events to a registry entry.
	Portal    string `json:"portal,omitempty"`
	Technique string `json:"technique,omitempty"`
	// Outcome is "ok" or a failure signal such as "blocked" or "timeout".
	Outcome  string        `json:"outcome,omitempty"`
	Records  int           `json:"records"`
	Attempts int           `json:"attempts,omitempty"`
	Dur      time.Duration `json:"duration_ns"`
	// Note carries low-volume context such as a failure cause. It must not
	// contain credentials.
	Note string `json:"note,omitempty"`
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.SearchID == [16]byte{} {
		return errors.New("search id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageSearchStart, StageFallbackUsed:
	case StageStrategyDone:
		if e.Portal == "" {
			return errors.New("strategy done requires portal")
		}
		if e.Outcome == "" {
			return errors.New("strategy done requires outcome")
		}
	case StageSearchDone:
		if e.Outcome == "" {
			return errors.New("search done requires outcome")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	if e.Records < 0 {
		return errors.New("records must be >= 0")
	}
	return nil
}

// SearchUUID converts the binary search ID back to a uuid.UUID.
func (e Event) SearchUUID() uuid.UUID {
	return uuid.UUID(e.SearchID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// ParseSearchID decodes a textual search ID, returning the zero ID when s
// is not a UUID.
func ParseSearchID(s string) [16]byte {
	id, err := uuid.Parse(s)
	if err != nil {
		return [16]byte{}
	}
	return UUIDToBytes(id)
}
