package services

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/entities/importrun"
)

// ProgressEvent is one snapshot of a running import, emitted after every
// chunk commit and at phase transitions.
type ProgressEvent struct {
	RunID      uuid.UUID
	Phase      importrun.Phase
	ChunkIndex int
	ChunkCount int
	TotalRows  int
	Processed  int
	Created    int
	Updated    int
	Skipped    int
	Duplicates int
	Errored    int
	ETASeconds float64
	HeapBytes  uint64
	// Message carries the failure description on an error-phase event.
	Message string
}

// ProgressRegistry fans progress events out to per-run subscribers. It is an
// explicit dependency of the import service rather than package state, so
// concurrent tests and embedders each get their own.
//
// Sends never block: a subscriber that falls behind its buffer loses
// snapshots, not the import.
type ProgressRegistry struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID][]chan ProgressEvent
	buffer int
}

func NewProgressRegistry(buffer int) *ProgressRegistry {
	if buffer < 1 {
		buffer = 1
	}
	return &ProgressRegistry{
		subs:   make(map[uuid.UUID][]chan ProgressEvent),
		buffer: buffer,
	}
}

// Subscribe returns a channel of snapshots for one run and a cancel function.
// The channel is closed by cancel or by Finish.
func (r *ProgressRegistry) Subscribe(runID uuid.UUID) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, r.buffer)

	r.mu.Lock()
	r.subs[runID] = append(r.subs[runID], ch)
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		chans := r.subs[runID]
		for i, have := range chans {
			if have == ch {
				r.subs[runID] = append(chans[:i], chans[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

func (r *ProgressRegistry) Publish(ev ProgressEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.subs[ev.RunID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Finish closes all subscriptions of a run once it reaches a terminal phase.
func (r *ProgressRegistry) Finish(runID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs[runID] {
		close(ch)
	}
	delete(r.subs, runID)
}
