// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jcodagnone/cercania/spatial"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State is the orchestrator lifecycle state.
type State int

// Orchestrator states.
const (
	StateIdle State = iota
	StateSearching
	StateRanking
	StateEnriching
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateRanking:
		return "ranking"
	case StateEnriching:
		return "enriching"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// EventKind identifies an orchestrator notification.
type EventKind string

// Event kinds.
const (
	EventStateChanged      EventKind = "state_changed"
	EventCategorySearched  EventKind = "category_searched"
	EventDistancesComputed EventKind = "distances_computed"
	EventPlacesEnriched    EventKind = "places_enriched"
	EventCandidateChanged  EventKind = "candidate_changed"
)

// Event is a discrete change notification emitted by the orchestrator.
type Event struct {
	Kind     EventKind `json:"kind"`
	State    State     `json:"state"`
	Category string    `json:"category,omitempty"`
	PlaceID  string    `json:"place_id,omitempty"`
	Count    int       `json:"count,omitempty"`
	Err      error     `json:"-"`
}

// Observer receives orchestrator events. Calls are serialized and made
// without holding the orchestrator lock, so observers may read its state.
type Observer func(Event)

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers an event observer.
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// WithSleep replaces the pause used between distance windows.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		o.distances.sleep = sleep
	}
}

// WithIDGenerator replaces the generator of local place ids.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) {
		o.searcher.newID = newID
	}
}

// Orchestrator runs the proximity pipeline: concurrent category searches,
// distance computation, ranking, duplicate detection and enrichment.
type Orchestrator struct {
	categories []PlaceCategory
	searcher   *CategorySearcher
	distances  *DistanceComputer
	ranker     *Ranker
	enricher   *DetailsEnricher
	logger     *zap.Logger
	now        func() time.Time

	observer Observer
	emitMu   sync.Mutex

	mu      sync.Mutex
	running bool
	state   State
	result  *Result
}

// NewOrchestrator creates an orchestrator for the configured categories.
func NewOrchestrator(cfg *Config, providers Providers, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if providers.Search == nil || providers.Distance == nil || providers.Details == nil {
		return nil, errors.New("proximity: search, distance and details providers are required")
	}

	logger := zap.NewNop()

	o := &Orchestrator{
		categories: slices.Clone(cfg.Categories),
		searcher:   NewCategorySearcher(providers.Search, cfg.Search, logger),
		distances:  NewDistanceComputer(providers.Distance, cfg.Distance, logger),
		ranker:     NewRanker(cfg.CandidateLimit),
		enricher:   NewDetailsEnricher(providers.Details, cfg.Details, logger),
		logger:     logger,
		now:        time.Now,
		state:      StateIdle,
	}

	for _, opt := range opts {
		opt(o)
	}

	o.searcher.logger = o.logger.Named("search")
	o.distances.logger = o.logger.Named("distance")
	o.enricher.logger = o.logger.Named("details")

	return o, nil
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state
}

// Result returns the last completed result, or nil.
func (o *Orchestrator) Result() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.result
}

// Categories returns the configured categories, with the radius used by the
// last completed run when there is one.
func (o *Orchestrator) Categories() []PlaceCategory {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.result != nil {
		return slices.Clone(o.result.Categories)
	}

	return slices.Clone(o.categories)
}

func (o *Orchestrator) emit(ev Event) {
	if o.observer == nil {
		return
	}

	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	o.observer(ev)
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()

	o.logger.Debug("state changed", zap.Stringer("state", s))
	o.emit(Event{Kind: EventStateChanged, State: s})
}

func (o *Orchestrator) fail(runErr *RunError) error {
	o.mu.Lock()
	o.state = StateFailed
	o.result = nil
	o.running = false
	o.mu.Unlock()

	o.logger.Error("run failed", zap.String("stage", string(runErr.Stage)), zap.String("category", runErr.Category), zap.Error(runErr.Err))
	o.emit(Event{Kind: EventStateChanged, State: StateFailed, Category: runErr.Category, Err: runErr})

	return runErr
}

// Run executes a full pipeline run around origin. Previous results are
// cleared before starting. A failure in any search or in the distance
// computation discards the whole working set and returns a *RunError.
func (o *Orchestrator) Run(ctx context.Context, origin spatial.Point) (*Result, error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()

		return nil, ErrRunInProgress
	}

	o.running = true
	o.result = nil
	o.state = StateIdle
	o.mu.Unlock()

	startedAt := o.now()
	var stats Stats

	// Searching
	o.setState(StateSearching)

	outcomes := make([]*SearchOutcome, len(o.categories))

	g, gctx := errgroup.WithContext(ctx)

	for i, cat := range o.categories {
		g.Go(func() error {
			outcome, err := o.searcher.Search(gctx, origin, cat)
			if err != nil {
				return &RunError{Stage: StageSearch, Category: cat.Name, Err: err}
			}

			outcomes[i] = outcome
			o.emit(Event{Kind: EventCategorySearched, State: StateSearching, Category: cat.Name, Count: len(outcome.Places)})

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var runErr *RunError
		if !errors.As(err, &runErr) {
			runErr = &RunError{Stage: StageSearch, Err: err}
		}

		return nil, o.fail(runErr)
	}

	categories := make([]PlaceCategory, len(o.categories))
	var places []Place

	for i, outcome := range outcomes {
		categories[i] = outcome.Category
		places = append(places, outcome.Places...)
		stats.SearchRequests += outcome.Requests
		stats.SearchRetries += outcome.Retries
	}

	// Ranking
	o.setState(StateRanking)

	places, distStats, err := o.distances.ComputeAll(ctx, origin, places)
	stats.Distance = distStats

	if err != nil {
		return nil, o.fail(&RunError{Stage: StageDistance, Err: err})
	}

	o.emit(Event{Kind: EventDistancesComputed, State: StateRanking, Count: distStats.Elements})

	places = o.ranker.ValidateAllDuplicates(o.ranker.RankAndFlag(places))

	// Enriching
	o.setState(StateEnriching)

	places, enrichStats := o.enricher.Enrich(ctx, places)
	stats.Details = enrichStats

	if err := ctx.Err(); err != nil {
		return nil, o.fail(&RunError{Stage: StageEnrich, Err: err})
	}

	o.emit(Event{Kind: EventPlacesEnriched, State: StateEnriching, Count: enrichStats.Fetched})

	result := NewResult(origin, categories, places)
	result.Stats = stats
	result.StartedAt = startedAt
	result.FinishedAt = o.now()

	o.mu.Lock()
	o.result = result
	o.state = StateDone
	o.running = false
	o.mu.Unlock()

	o.logger.Info("run completed",
		zap.Int("places", len(places)),
		zap.Int("candidates", len(result.Candidates())),
		zap.Int("distance_requests", stats.Distance.Requests),
		zap.Int("details_requests", stats.Details.Requests),
		zap.Duration("elapsed", result.FinishedAt.Sub(startedAt)))
	o.emit(Event{Kind: EventStateChanged, State: StateDone})

	return result, nil
}

// SetCandidate manually sets the candidate flag of a place of the last
// result and re-validates the duplicate flags of its category. It does not
// re-run any other stage. The updated result is returned.
func (o *Orchestrator) SetCandidate(placeID string, candidate bool) (*Result, error) {
	result, ev, err := o.setCandidate(placeID, candidate)
	if ev != nil {
		o.emit(*ev)
	}

	return result, err
}

// setCandidate applies the toggle under the lock and returns the event to
// emit once the lock is released.
func (o *Orchestrator) setCandidate(placeID string, candidate bool) (*Result, *Event, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return nil, nil, ErrRunInProgress
	}

	if o.result == nil {
		return nil, nil, ErrNoResult
	}

	p, ok := o.result.Place(placeID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownPlace, placeID)
	}

	if p.IsCandidate == candidate {
		return o.result, nil, nil
	}

	if candidate {
		if p.IsDistanceError {
			return nil, nil, ErrPlaceHasDistanceError
		}

		if candidateCount(o.result.Places, p.CategoryName) >= o.ranker.Limit {
			return nil, nil, fmt.Errorf("%w (%d)", ErrCandidateLimit, o.ranker.Limit)
		}
	}

	places := slices.Clone(o.result.Places)
	places[o.result.byID[placeID]].IsCandidate = candidate
	places = o.ranker.ValidateDuplicates(places, p.CategoryName)

	o.result = o.result.withPlaces(places)

	o.logger.Info("candidate changed", zap.String("place", p.Name), zap.String("category", p.CategoryName), zap.Bool("candidate", candidate))
	ev := &Event{Kind: EventCandidateChanged, State: o.state, Category: p.CategoryName, PlaceID: placeID}

	return o.result, ev, nil
}

// RefreshDetails fetches details for the candidates of the last result that
// don't have them yet, typically after manual candidate changes.
func (o *Orchestrator) RefreshDetails(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()

		return nil, ErrRunInProgress
	}

	if o.result == nil {
		o.mu.Unlock()

		return nil, ErrNoResult
	}

	o.running = true
	current := o.result
	o.mu.Unlock()

	places, stats := o.enricher.Enrich(ctx, current.Places)

	next := current.withPlaces(places)
	next.Stats.Details.Requests += stats.Requests
	next.Stats.Details.Fetched += stats.Fetched
	next.Stats.Details.Failed += stats.Failed
	next.Stats.Details.Retries += stats.Retries

	o.mu.Lock()
	o.running = false
	o.result = next
	state := o.state
	o.mu.Unlock()

	o.emit(Event{Kind: EventPlacesEnriched, State: state, Count: stats.Fetched})

	return next, ctx.Err()
}
