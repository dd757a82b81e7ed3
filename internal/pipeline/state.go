package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"mashup-go/internal/types"
)

// State is a run's position in the stage sequence.
type State int

const (
	StateInit State = iota
	StateLocating
	StateFetching
	StateTranscoding
	StateTrimming
	StateMerging
	StatePackaging
	StateDelivering
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateInit:        "INIT",
	StateLocating:    "LOCATING",
	StateFetching:    "FETCHING",
	StateTranscoding: "TRANSCODING",
	StateTrimming:    "TRIMMING",
	StateMerging:     "MERGING",
	StatePackaging:   "PACKAGING",
	StateDelivering:  "DELIVERING",
	StateDone:        "DONE",
	StateFailed:      "FAILED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// next is the only legal forward transition from s.
func (s State) next() State {
	if s.Terminal() {
		return s
	}
	return s + 1
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// tracker holds per-item progress keyed by 1-based index.
type tracker struct {
	mu    sync.Mutex
	items map[int]*types.Item
}

func newTracker(ids []string) *tracker {
	t := &tracker{items: make(map[int]*types.Item, len(ids))}
	for i, id := range ids {
		idx := i + 1
		t.items[idx] = &types.Item{Index: idx, SourceID: id, State: types.ItemPending}
	}
	return t
}

func (t *tracker) advance(index int, state types.ItemState, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	it := t.items[index]
	it.State = state
	it.Path = path
}

func (t *tracker) setTitle(index int, title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[index].Title = title
}

func (t *tracker) fail(index int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	it := t.items[index]
	it.State = types.ItemFailed
	it.Err = err
}

// inState returns copies of items currently in state, in index order.
func (t *tracker) inState(state types.ItemState) []types.Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []types.Item
	for _, it := range t.items {
		if it.State == state {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// firstFailure is the failed item with the lowest index.
func (t *tracker) firstFailure() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	best := 0
	var err error
	for idx, it := range t.items {
		if it.State == types.ItemFailed && (best == 0 || idx < best) {
			best, err = idx, it.Err
		}
	}
	return err
}

func (t *tracker) snapshot() []types.Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.Item, 0, len(t.items))
	for _, it := range t.items {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
