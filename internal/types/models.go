package types

import (
	"fmt"
	"net/mail"
	"strings"
)

// Request is one mashup order as accepted at the transport boundary.
type Request struct {
	Query       string `json:"singer_name"`
	Count       int    `json:"num_videos"`
	TrimSeconds int    `json:"audio_duration"`
	Destination string `json:"email"`
}

// Validate enforces the invariants every pipeline run relies on.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("%w: query must not be empty", ErrInvalidRequest)
	}
	if r.Count < 1 {
		return fmt.Errorf("%w: item count must be at least 1, got %d", ErrInvalidRequest, r.Count)
	}
	if r.TrimSeconds < 1 {
		return fmt.Errorf("%w: trim seconds must be at least 1, got %d", ErrInvalidRequest, r.TrimSeconds)
	}
	if _, err := mail.ParseAddress(r.Destination); err != nil {
		return fmt.Errorf("%w: destination %q: %v", ErrInvalidRequest, r.Destination, err)
	}
	return nil
}

type ItemState int

const (
	ItemPending ItemState = iota
	ItemFetched
	ItemTranscoded
	ItemTrimmed
	ItemFailed
)

func (s ItemState) String() string {
	switch s {
	case ItemPending:
		return "pending"
	case ItemFetched:
		return "fetched"
	case ItemTranscoded:
		return "transcoded"
	case ItemTrimmed:
		return "trimmed"
	case ItemFailed:
		return "failed"
	default:
		return fmt.Sprintf("ItemState(%d)", int(s))
	}
}

// Item is one selected source flowing through fetch, transcode and trim.
// Its identity is Index (1-based, selection order).
type Item struct {
	Index    int       `json:"index"`
	SourceID string    `json:"source_id"`
	State    ItemState `json:"state"`
	Title    string    `json:"title,omitempty"`
	Path     string    `json:"-"`
	Err      error     `json:"-"`
}

// Outcome records how one batch request ended.
type Outcome struct {
	Row           int
	Request       Request
	RunID         string
	Delivered     bool
	Stage         string
	Index         int
	Error         string
	OutputSeconds float64
}
