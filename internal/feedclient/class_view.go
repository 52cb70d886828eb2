package feedclient

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
	"github.com/mastermhp/Live-Baz-sub000/internal/realtime"
)

type Mode string

const (
	ModePush     Mode = "push"
	ModePollOnly Mode = "poll-only"
)

type View struct {
	Class     match.Class
	Matches   []match.Record
	IsLoading bool
	Stale     bool
	Mode      Mode
	UpdatedAt time.Time
	LastError error
}

// DefaultInterval is the poll interval for class when none is configured.
func DefaultInterval(class match.Class) time.Duration {
	switch class {
	case match.ClassLive:
		return 15 * time.Second
	case match.ClassUpcoming:
		return 5 * time.Minute
	default:
		return 10 * time.Minute
	}
}

type ViewConfig struct {
	Class      match.Class
	Interval   time.Duration
	WindowDays int
	// Topics joined on the manager. Defaults to the live feed for the live
	// class and nothing otherwise.
	Topics   []string
	OnChange func(View)
	Logger   *logging.Logger
}

// ClassView keeps one class list fresh from polling and, when a manager is
// attached, from pushed match updates.
type ClassView struct {
	cfg     ViewConfig
	fetcher Fetcher
	manager *ConnectionManager
	logger  *logging.Logger
	now     func() time.Time

	mu          sync.RWMutex
	view        View
	fingerprint string

	reset    chan struct{}
	lifeMu   sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	unlisten func()
}

// NewClassView builds a view. manager may be nil, in which case the view
// only polls.
func NewClassView(cfg ViewConfig, fetcher Fetcher, manager *ConnectionManager) *ClassView {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval(cfg.Class)
	}
	if cfg.Topics == nil && cfg.Class == match.ClassLive {
		cfg.Topics = []string{realtime.LiveFeedTopic}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	mode := ModePollOnly
	if manager != nil && manager.State() != StateStale {
		mode = ModePush
	}
	return &ClassView{
		cfg:     cfg,
		fetcher: fetcher,
		manager: manager,
		logger:  logger.With("component", "feedclient.view", "class", string(cfg.Class)),
		now:     time.Now,
		view: View{
			Class:     cfg.Class,
			Matches:   []match.Record{},
			IsLoading: true,
			Mode:      mode,
		},
		reset: make(chan struct{}, 1),
	}
}

// Snapshot returns a copy the caller may keep.
func (v *ClassView) Snapshot() View {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := v.view
	out.Matches = match.CloneRecords(v.view.Matches)
	return out
}

// Start performs the initial fetch in the background and begins polling.
func (v *ClassView) Start(ctx context.Context) {
	v.lifeMu.Lock()
	defer v.lifeMu.Unlock()
	if v.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.done = make(chan struct{})

	if v.manager != nil {
		v.unlisten = v.manager.AddListener(v)
		for _, topic := range v.cfg.Topics {
			if err := v.manager.Join(topic); err != nil {
				v.logger.Warn("join topic failed", "topic", topic, "error", err)
			}
		}
	}

	go func(done chan struct{}) {
		defer close(done)
		v.pollLoop(runCtx)
	}(v.done)
}

func (v *ClassView) Stop() {
	v.lifeMu.Lock()
	cancel, done, unlisten := v.cancel, v.done, v.unlisten
	v.cancel, v.unlisten = nil, nil
	v.lifeMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	if unlisten != nil {
		unlisten()
		for _, topic := range v.cfg.Topics {
			_ = v.manager.Leave(topic)
		}
	}
}

// Refresh fetches immediately, outside the poll schedule.
func (v *ClassView) Refresh(ctx context.Context) {
	v.refresh(ctx)
}

func (v *ClassView) pollLoop(ctx context.Context) {
	v.refresh(ctx)

	timer := time.NewTimer(v.cfg.Interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			v.refresh(ctx)
			timer.Reset(v.cfg.Interval)
		case <-v.reset:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(v.cfg.Interval)
		}
	}
}

func (v *ClassView) refresh(ctx context.Context) {
	records, err := v.fetcher.Fetch(ctx, v.cfg.Class, v.cfg.WindowDays)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return
		}
		v.logger.Warn("class fetch failed, keeping last list", "error", err)
		v.update(func(view *View) bool {
			changed := !view.Stale || view.IsLoading
			view.Stale = true
			view.IsLoading = false
			view.LastError = err
			return changed
		})
		return
	}

	next := fingerprint(records)
	v.update(func(view *View) bool {
		changed := view.Stale || view.IsLoading
		view.Stale = false
		view.IsLoading = false
		view.LastError = nil
		if next != v.fingerprint {
			v.fingerprint = next
			view.Matches = match.CloneRecords(records)
			view.UpdatedAt = v.now().UTC()
			changed = true
		}
		return changed
	})
}

// HandleEvent applies pushed match updates for this class.
func (v *ClassView) HandleEvent(event realtime.Event) {
	if event.Kind != realtime.EventMatchUpdate || event.Match == nil {
		return
	}
	record := event.Match.Clone()
	inClass := statusInClass(record.Status, v.cfg.Class)

	applied := v.update(func(view *View) bool {
		idx := -1
		for i := range view.Matches {
			if view.Matches[i].ID == record.ID {
				idx = i
				break
			}
		}
		switch {
		case inClass && idx >= 0:
			view.Matches[idx] = record
		case inClass:
			view.Matches = append(view.Matches, record)
		case idx >= 0:
			view.Matches = append(view.Matches[:idx], view.Matches[idx+1:]...)
		default:
			return false
		}
		v.fingerprint = fingerprint(view.Matches)
		view.UpdatedAt = v.now().UTC()
		return true
	})
	if applied {
		select {
		case v.reset <- struct{}{}:
		default:
		}
	}
}

func (v *ClassView) HandleState(state ConnectionState, err error) {
	var mode Mode
	switch state {
	case StateConnected:
		mode = ModePush
	case StateStale:
		mode = ModePollOnly
		v.logger.Warn("live subscription stale, polling only", "error", err)
	default:
		return
	}
	v.update(func(view *View) bool {
		if view.Mode == mode {
			return false
		}
		view.Mode = mode
		return true
	})
}

func (v *ClassView) update(fn func(view *View) bool) bool {
	v.mu.Lock()
	changed := fn(&v.view)
	var snapshot View
	if changed && v.cfg.OnChange != nil {
		snapshot = v.view
		snapshot.Matches = match.CloneRecords(v.view.Matches)
	}
	v.mu.Unlock()

	if changed && v.cfg.OnChange != nil {
		v.cfg.OnChange(snapshot)
	}
	return changed
}

func statusInClass(status match.Status, class match.Class) bool {
	for _, s := range class.Statuses() {
		if s == status {
			return true
		}
	}
	return false
}

// fingerprint covers the id set and each record's status, score and
// elapsed minute.
func fingerprint(records []match.Record) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		elapsed := "-"
		if m, ok := r.ElapsedMinute(); ok {
			elapsed = strconv.Itoa(m)
		}
		parts = append(parts, r.ID+"|"+string(r.Status)+"|"+
			strconv.Itoa(r.Score.Home)+"-"+strconv.Itoa(r.Score.Away)+"|"+elapsed)
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}
