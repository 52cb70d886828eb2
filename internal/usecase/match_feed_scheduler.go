package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/competition"
	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/metrics"
	"github.com/mastermhp/Live-Baz-sub000/internal/realtime"
)

// EventPublisher is satisfied by the local broker and by the Redis relay.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event realtime.Event) (realtime.PublishResult, error)
}

type CycleState int32

const (
	CycleIdle CycleState = iota
	CycleFetching
	CycleReconciling
	CyclePublishing
)

func (s CycleState) String() string {
	switch s {
	case CycleFetching:
		return "fetching"
	case CycleReconciling:
		return "reconciling"
	case CyclePublishing:
		return "publishing"
	default:
		return "idle"
	}
}

type MatchFeedConfig struct {
	LiveInterval         time.Duration
	UpcomingInterval     time.Duration
	FinishedInterval     time.Duration
	UpcomingWindowDays   int
	FinishedLookbackDays int
	FetchTimeout         time.Duration
}

func (c MatchFeedConfig) withDefaults() MatchFeedConfig {
	if c.LiveInterval <= 0 {
		c.LiveInterval = 15 * time.Second
	}
	if c.UpcomingInterval <= 0 {
		c.UpcomingInterval = 5 * time.Minute
	}
	if c.FinishedInterval <= 0 {
		c.FinishedInterval = 10 * time.Minute
	}
	if c.UpcomingWindowDays <= 0 {
		c.UpcomingWindowDays = 7
	}
	if c.FinishedLookbackDays <= 0 {
		c.FinishedLookbackDays = 3
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	return c
}

func (c MatchFeedConfig) interval(class match.Class) time.Duration {
	switch class {
	case match.ClassLive:
		return c.LiveInterval
	case match.ClassUpcoming:
		return c.UpcomingInterval
	default:
		return c.FinishedInterval
	}
}

// MatchFeedSnapshot is the published result of one cycle. It is never
// modified after publication; readers must not mutate its slices.
type MatchFeedSnapshot struct {
	Class        match.Class
	Cycle        uint64
	GeneratedAt  time.Time
	Degraded     bool
	Matches      []match.Record
	Competitions []competition.Group
}

// CycleReport summarizes one completed cycle.
type CycleReport struct {
	Class           match.Class
	Cycle           uint64
	Degraded        bool
	Baseline        bool
	ProviderRecords int
	LocalRecords    int
	Merged          int
	Events          int
	Elapsed         time.Duration
}

type classRunner struct {
	class    match.Class
	interval time.Duration

	// cycleMu serializes cycles of one class; ticks and triggers share it.
	cycleMu   sync.Mutex
	baselined bool
	cycles    uint64
	lastLocal []match.LocalDocument

	state    atomic.Int32
	snapshot atomic.Pointer[MatchFeedSnapshot]
}

// MatchFeedScheduler runs the ingestion pipeline for every data class on its
// own interval: fetch provider and local store concurrently, normalize,
// merge, group, then diff against what was last seen and publish events.
type MatchFeedScheduler struct {
	provider   match.FixtureProvider
	store      match.Repository
	publisher  EventPublisher
	normalizer *MatchNormalizer
	metrics    *metrics.Pipeline
	logger     *logging.Logger
	cfg        MatchFeedConfig
	now        func() time.Time

	runners map[match.Class]*classRunner

	// seen holds the last record observed per id across every class, so a
	// match moving from one class to another is diffed against its previous
	// state instead of being treated as new.
	seenMu sync.Mutex
	seen   map[string]match.Record

	// providerViews holds each class's last successful provider fetch. A
	// cycle overlays them on its own fetch so a fixture resolves to one
	// status no matter which class loop reads it.
	providerMu    sync.Mutex
	providerSeq   uint64
	providerViews map[match.Class]providerView

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	workers     *conc.WaitGroup
}

// NewMatchFeedScheduler wires the pipeline. provider may be nil when the
// provider integration is disabled; every cycle is then local-only.
func NewMatchFeedScheduler(
	provider match.FixtureProvider,
	store match.Repository,
	publisher EventPublisher,
	pipeline *metrics.Pipeline,
	cfg MatchFeedConfig,
	logger *logging.Logger,
) *MatchFeedScheduler {
	if logger == nil {
		logger = logging.Default()
	}
	cfg = cfg.withDefaults()

	s := &MatchFeedScheduler{
		provider:  provider,
		store:     store,
		publisher: publisher,
		metrics:   pipeline,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		runners:   make(map[match.Class]*classRunner, len(match.Classes)),
		seen:      make(map[string]match.Record),

		providerViews: make(map[match.Class]providerView, len(match.Classes)),
	}
	s.normalizer = NewMatchNormalizer(logger, func(source match.Source, _ error) {
		pipeline.RecordDropped(string(source))
	})
	for _, class := range match.Classes {
		s.runners[class] = &classRunner{class: class, interval: cfg.interval(class)}
	}
	return s
}

// Start launches one loop per class. Each loop runs a cycle immediately and
// then on its interval until Stop is called or ctx is done.
func (s *MatchFeedScheduler) Start(ctx context.Context) {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if s.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.workers = &conc.WaitGroup{}
	for _, class := range match.Classes {
		runner := s.runners[class]
		s.workers.Go(func() {
			s.loop(loopCtx, runner)
		})
	}
	s.logger.InfoContext(ctx, "match feed scheduler started",
		"live_interval", s.cfg.LiveInterval.String(),
		"upcoming_interval", s.cfg.UpcomingInterval.String(),
		"finished_interval", s.cfg.FinishedInterval.String(),
	)
}

// Stop cancels every loop and waits for in-flight cycles to finish.
func (s *MatchFeedScheduler) Stop() {
	s.lifecycleMu.Lock()
	cancel, workers := s.cancel, s.workers
	s.cancel, s.workers = nil, nil
	s.lifecycleMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	workers.Wait()
	s.logger.Info("match feed scheduler stopped")
}

// Trigger runs one cycle for class right away and returns its report.
func (s *MatchFeedScheduler) Trigger(ctx context.Context, class match.Class) (CycleReport, error) {
	runner, ok := s.runners[class]
	if !ok {
		return CycleReport{}, fmt.Errorf("%w: unknown class %q", ErrInvalidInput, class)
	}
	return s.runCycle(ctx, runner), nil
}

// Snapshot returns the last published snapshot of class.
func (s *MatchFeedScheduler) Snapshot(class match.Class) (MatchFeedSnapshot, bool) {
	runner, ok := s.runners[class]
	if !ok {
		return MatchFeedSnapshot{}, false
	}
	snap := runner.snapshot.Load()
	if snap == nil {
		return MatchFeedSnapshot{}, false
	}
	return *snap, true
}

func (s *MatchFeedScheduler) State(class match.Class) CycleState {
	runner, ok := s.runners[class]
	if !ok {
		return CycleIdle
	}
	return CycleState(runner.state.Load())
}

func (s *MatchFeedScheduler) loop(ctx context.Context, runner *classRunner) {
	s.runCycle(ctx, runner)

	ticker := time.NewTicker(runner.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx, runner)
		}
	}
}

type providerView struct {
	seq     uint64
	records []match.Record
}

type fetchResult struct {
	provider    []match.ProviderFixture
	providerErr error
	local       []match.LocalDocument
	localErr    error
}

func (s *MatchFeedScheduler) runCycle(ctx context.Context, runner *classRunner) CycleReport {
	runner.cycleMu.Lock()
	defer runner.cycleMu.Unlock()

	ctx, span := startUsecaseSpan(ctx, "usecase.MatchFeedScheduler.runCycle")
	defer span.End()

	started := s.now()
	runner.cycles++
	report := CycleReport{Class: runner.class, Cycle: runner.cycles}
	logger := s.logger.With("class", string(runner.class), "cycle", runner.cycles)

	s.setState(runner, CycleFetching)
	fetched := s.fetch(ctx, runner.class)

	degraded := false
	if fetched.providerErr != nil {
		degraded = true
		logger.WarnContext(ctx, "provider fetch failed, continuing with local store only", "error", fetched.providerErr)
	}
	localDocs := fetched.local
	if fetched.localErr != nil {
		degraded = true
		localDocs = runner.lastLocal
		logger.WarnContext(ctx, "local store fetch failed, reusing last known local records",
			"error", fetched.localErr,
			"reused", len(localDocs),
		)
	} else {
		runner.lastLocal = fetched.local
	}
	report.ProviderRecords = len(fetched.provider)
	report.LocalRecords = len(localDocs)
	s.metrics.StageRecords(string(runner.class), "provider", len(fetched.provider))
	s.metrics.StageRecords(string(runner.class), "local", len(localDocs))

	s.setState(runner, CycleReconciling)
	providerRaw := make([]RawMatch, 0, len(fetched.provider))
	for _, item := range fetched.provider {
		providerRaw = append(providerRaw, ProviderRawMatch(item))
	}
	localRaw := make([]RawMatch, 0, len(localDocs))
	for _, item := range localDocs {
		localRaw = append(localRaw, LocalRawMatch(item))
	}
	providerRecords := s.normalizer.NormalizeAll(ctx, providerRaw)
	if fetched.providerErr == nil && s.provider != nil {
		s.storeProviderView(runner.class, providerRecords)
	}
	merged := MergeMatches(
		s.withOtherProviderViews(runner.class, providerRecords),
		s.normalizer.NormalizeAll(ctx, localRaw),
	)
	now := s.now().UTC()
	inClass := filterClass(merged, runner.class, now, s.cfg)
	groups := competition.GroupAndScore(inClass)
	report.Merged = len(inClass)
	s.metrics.StageRecords(string(runner.class), "merged", len(inClass))

	s.setState(runner, CyclePublishing)
	if !runner.baselined {
		report.Baseline = true
		runner.baselined = true
		s.remember(inClass)
	} else {
		report.Events = s.publishChanges(ctx, logger, groups)
	}
	s.metrics.StageRecords(string(runner.class), "published", report.Events)

	runner.snapshot.Store(&MatchFeedSnapshot{
		Class:        runner.class,
		Cycle:        runner.cycles,
		GeneratedAt:  now,
		Degraded:     degraded,
		Matches:      inClass,
		Competitions: groups,
	})
	s.prune(now)
	s.setState(runner, CycleIdle)

	report.Degraded = degraded
	report.Elapsed = s.now().Sub(started)
	s.metrics.CycleCompleted(string(runner.class), degraded, report.Elapsed)
	span.SetAttributes(
		attribute.String("feed.class", string(runner.class)),
		attribute.Bool("feed.degraded", degraded),
		attribute.Int("feed.merged", report.Merged),
		attribute.Int("feed.events", report.Events),
	)
	logger.InfoContext(ctx, "match feed cycle completed",
		"degraded", degraded,
		"baseline", report.Baseline,
		"provider_records", report.ProviderRecords,
		"local_records", report.LocalRecords,
		"merged", report.Merged,
		"competitions", len(groups),
		"events", report.Events,
		"elapsed_ms", report.Elapsed.Milliseconds(),
	)
	return report
}

func (s *MatchFeedScheduler) setState(runner *classRunner, state CycleState) {
	runner.state.Store(int32(state))
}

func (s *MatchFeedScheduler) storeProviderView(class match.Class, records []match.Record) {
	s.providerMu.Lock()
	defer s.providerMu.Unlock()
	s.providerSeq++
	s.providerViews[class] = providerView{seq: s.providerSeq, records: records}
}

// withOtherProviderViews appends the provider records other classes fetched
// for ids missing from own. Newer views win over older ones.
func (s *MatchFeedScheduler) withOtherProviderViews(class match.Class, own []match.Record) []match.Record {
	s.providerMu.Lock()
	views := make([]providerView, 0, len(s.providerViews))
	for other, view := range s.providerViews {
		if other != class {
			views = append(views, view)
		}
	}
	s.providerMu.Unlock()
	if len(views) == 0 {
		return own
	}
	sort.Slice(views, func(i, j int) bool { return views[i].seq > views[j].seq })

	taken := make(map[string]struct{}, len(own))
	for _, record := range own {
		taken[record.ID] = struct{}{}
	}
	out := slices.Clone(own)
	for _, view := range views {
		for _, record := range view.records {
			if _, ok := taken[record.ID]; ok {
				continue
			}
			taken[record.ID] = struct{}{}
			out = append(out, record)
		}
	}
	return out
}

// fetch reads the provider and the whole local store concurrently. The local
// store is not filtered by class: a local document merges with its provider
// record first and only the merged status decides its class. Neither failure
// is fatal to the cycle.
func (s *MatchFeedScheduler) fetch(ctx context.Context, class match.Class) fetchResult {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	var (
		out fetchResult
		wg  conc.WaitGroup
	)
	if s.provider != nil {
		wg.Go(func() {
			items, err := s.fetchProvider(ctx, class)
			if err != nil {
				if !errors.Is(err, ErrFetchFailure) {
					err = fmt.Errorf("%w: %w", ErrFetchFailure, err)
				}
				out.providerErr = err
				return
			}
			out.provider = items
		})
	}
	wg.Go(func() {
		items, err := s.store.ListByStatus(ctx)
		if err != nil {
			out.localErr = fmt.Errorf("%w: local store: %w", ErrFetchFailure, err)
			return
		}
		out.local = items
	})
	wg.Wait()
	return out
}

func (s *MatchFeedScheduler) fetchProvider(ctx context.Context, class match.Class) ([]match.ProviderFixture, error) {
	switch class {
	case match.ClassLive:
		return s.provider.FetchLive(ctx)
	case match.ClassUpcoming:
		return s.provider.FetchUpcoming(ctx, s.cfg.UpcomingWindowDays)
	case match.ClassFinished:
		return s.provider.FetchFinished(ctx, s.cfg.FinishedLookbackDays)
	default:
		return nil, fmt.Errorf("unknown class %q", class)
	}
}

// publishChanges emits events for every record that is new or whose status,
// score or elapsed minute moved since it was last seen. Records are visited
// in competition order, then in merge order inside each competition.
func (s *MatchFeedScheduler) publishChanges(ctx context.Context, logger *logging.Logger, groups []competition.Group) int {
	published := 0
	for _, group := range groups {
		for _, record := range group.Matches {
			previous, known := s.lookup(record.ID)
			events := diffRecord(previous, known, record)
			s.rememberOne(record)
			if len(events) == 0 {
				continue
			}

			topics := []string{realtime.MatchTopic(record.ID)}
			if record.Status == match.StatusLive || (known && previous.Status == match.StatusLive) {
				topics = append(topics, realtime.LiveFeedTopic)
			}
			for _, event := range events {
				delivered := false
				for _, topic := range topics {
					if _, err := s.publisher.Publish(ctx, topic, event); err != nil {
						logger.WarnContext(ctx, "publish match event failed",
							"topic", topic,
							"event", string(event.Kind),
							"match_id", record.ID,
							"error", err,
						)
						continue
					}
					delivered = true
				}
				if !delivered {
					continue
				}
				s.metrics.EventPublished(string(event.Kind))
				published++
			}
		}
	}
	return published
}

// diffRecord lists the events for one record given what was seen before.
func diffRecord(previous match.Record, known bool, current match.Record) []realtime.Event {
	if !known {
		return []realtime.Event{realtime.MatchUpdate(current)}
	}
	if !mutableFieldsChanged(previous, current) {
		return nil
	}

	events := []realtime.Event{realtime.MatchUpdate(current)}
	if current.Score.Home > previous.Score.Home {
		events = append(events, realtime.GoalScored(current, realtime.SideHome, previous.Score))
	}
	if current.Score.Away > previous.Score.Away {
		events = append(events, realtime.GoalScored(current, realtime.SideAway, previous.Score))
	}
	if current.Status != previous.Status {
		events = append(events, realtime.StatusChanged(current, previous.Status))
	}
	return events
}

func mutableFieldsChanged(previous, current match.Record) bool {
	if previous.Status != current.Status || previous.Score != current.Score {
		return true
	}
	prevMinute, prevOK := previous.ElapsedMinute()
	curMinute, curOK := current.ElapsedMinute()
	return prevOK != curOK || prevMinute != curMinute
}

func (s *MatchFeedScheduler) lookup(id string) (match.Record, bool) {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	record, ok := s.seen[id]
	return record, ok
}

func (s *MatchFeedScheduler) remember(records []match.Record) {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	for _, record := range records {
		s.seen[record.ID] = record.Clone()
	}
}

func (s *MatchFeedScheduler) rememberOne(record match.Record) {
	s.seenMu.Lock()
	s.seen[record.ID] = record.Clone()
	s.seenMu.Unlock()
}

// prune forgets records that started before the finished look-back window.
func (s *MatchFeedScheduler) prune(now time.Time) {
	horizon := startOfDay(now).AddDate(0, 0, -(s.cfg.FinishedLookbackDays + 1))

	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	for id, record := range s.seen {
		if !record.StartTime.IsZero() && record.StartTime.Before(horizon) {
			delete(s.seen, id)
		}
	}
}

// filterClass keeps the records that belong to class. A record without a
// known start time stays in its status class.
func filterClass(records []match.Record, class match.Class, now time.Time, cfg MatchFeedConfig) []match.Record {
	statuses := make(map[match.Status]struct{}, 2)
	for _, status := range class.Statuses() {
		statuses[status] = struct{}{}
	}

	var from, to time.Time
	switch class {
	case match.ClassUpcoming:
		from = startOfDay(now)
		to = from.AddDate(0, 0, cfg.UpcomingWindowDays)
	case match.ClassFinished:
		from = startOfDay(now).AddDate(0, 0, -cfg.FinishedLookbackDays)
		to = startOfDay(now).AddDate(0, 0, 1)
	}

	out := make([]match.Record, 0, len(records))
	for _, record := range records {
		if _, ok := statuses[record.Status]; !ok {
			continue
		}
		if !from.IsZero() && !record.StartTime.IsZero() {
			if record.StartTime.Before(from) || !record.StartTime.Before(to) {
				continue
			}
		}
		out = append(out, record)
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
