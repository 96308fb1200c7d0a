package session

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"sponsorama/internal/dataprocessing"
	"sponsorama/pkg/contracts/domain"
)

// View is what a session shows for one dataset snapshot and one filter.
type View struct {
	// Revision increases with every session change, filter changes included.
	Revision       uint64                   `json:"revision"`
	DatasetVersion uint64                   `json:"dataset_version"`
	Filter         domain.FilterState       `json:"filter"`
	Records        []domain.CampaignRecord  `json:"records"`
	Summary        domain.SummaryIndicators `json:"summary"`
	Total          int                      `json:"total"`
}

// Subscriber receives every view a session produces after a change.
type Subscriber func(View)

// Session owns a Dataset and the current FilterState, and recomputes the filtered
// view and its summary whenever either changes. Subscribers are called outside the
// session lock, in subscription order, and see views in revision order. A
// subscriber must not change the session it is subscribed to.
type Session struct {
	mu       sync.Mutex
	dataset  *Dataset
	filter   domain.FilterState
	revision uint64

	// notifyMu is taken before mu is released, so changes are delivered in the
	// order their revisions were assigned.
	notifyMu sync.Mutex

	subsMu  sync.RWMutex
	subs    map[uint64]Subscriber
	nextSub uint64

	logger *slog.Logger
}

// New creates a session with an empty dataset and an empty filter.
func New(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		dataset: NewDataset(),
		subs:    make(map[uint64]Subscriber),
		logger:  logger.With(slog.String("component", "session")),
	}
}

// Import appends a batch of records and returns the new view.
func (s *Session) Import(records []domain.CampaignRecord) View {
	return s.change("import", func() {
		snap := s.dataset.Append(records)
		s.logger.Info("records imported",
			slog.Int("batch", len(records)),
			slog.Int("total", snap.Len()),
			slog.Uint64("version", snap.Version))
	})
}

// Clear empties the dataset. The filter is kept.
func (s *Session) Clear() View {
	return s.change("clear", func() {
		snap := s.dataset.Clear()
		s.logger.Info("dataset cleared", slog.Uint64("version", snap.Version))
	})
}

// SetFilter replaces the whole filter.
func (s *Session) SetFilter(f domain.FilterState) View {
	return s.change("filter", func() { s.filter = f })
}

// UpdateFilter changes only the facets set in patch.
func (s *Session) UpdateFilter(patch domain.FilterPatch) View {
	return s.change("filter", func() { s.filter = patch.Apply(s.filter) })
}

// ResetFilter clears every facet.
func (s *Session) ResetFilter() View {
	return s.change("filter", func() { s.filter = domain.FilterState{} })
}

// Filter returns the current filter.
func (s *Session) Filter() domain.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// View computes the current view without notifying subscribers.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Snapshot returns the current dataset snapshot, unfiltered.
func (s *Session) Snapshot() Snapshot {
	return s.dataset.Snapshot()
}

// Facets lists facet values over the whole dataset, ignoring the filter.
func (s *Session) Facets() domain.FacetOptions {
	return dataprocessing.Facets(s.dataset.Snapshot().records)
}

// Subscribe registers fn for every future view. The returned function removes it
// and is safe to call more than once.
func (s *Session) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Session) change(kind string, mutate func()) View {
	s.mu.Lock()
	mutate()
	s.revision++
	view := s.viewLocked()
	s.notifyMu.Lock()
	s.mu.Unlock()

	defer s.notifyMu.Unlock()
	s.notify(kind, view)
	return view
}

func (s *Session) viewLocked() View {
	snap := s.dataset.Snapshot()
	records := dataprocessing.Apply(snap.records, s.filter)
	return View{
		Revision:       s.revision,
		DatasetVersion: snap.Version,
		Filter:         s.filter,
		Records:        records,
		Summary:        dataprocessing.Summarize(records),
		Total:          snap.Len(),
	}
}

func (s *Session) notify(kind string, view View) {
	s.subsMu.RLock()
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	subs := make([]Subscriber, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.subsMu.RUnlock()

	for _, fn := range subs {
		s.deliver(kind, fn, view)
	}
}

func (s *Session) deliver(kind string, fn Subscriber, view View) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session subscriber panicked",
				slog.String("change", kind),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()
	fn(view)
}
