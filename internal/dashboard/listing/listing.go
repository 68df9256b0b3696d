// Package listing drives the dashboard's country list: the initial load, filter
// changes, and incremental "load more" paging against the atlas API.
package listing

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"atlas/internal/countries/models"
	"atlas/internal/dashboard/debounce"
	s "atlas/pkg/string"
)

// ErrLoadFailed is the user-facing message set on any failed load.
const ErrLoadFailed = "Failed to load countries. Please try again."

const (
	DefaultPageSize       = 20
	DefaultSearchDebounce = 500 * time.Millisecond
)

// API is the subset of the atlas client the loader uses.
type API interface {
	FetchCountries(ctx context.Context, page, limit int) ([]models.Country, error)
	SearchCountries(ctx context.Context, params models.SearchParams) ([]models.Country, error)
	FetchCountriesByRegion(ctx context.Context, region string) ([]models.Country, error)
}

// State is a point-in-time copy of the list.
type State struct {
	Countries      []models.Country
	Page           int
	HasMore        bool
	Loading        bool
	Error          string
	SearchTerm     string
	SelectedRegion string
	// SearchPending is set while typed input waits out the debounce period.
	SearchPending bool
}

// FilterActive reports whether a search term or region is set.
func (st State) FilterActive() bool {
	return st.SearchTerm != "" || st.SelectedRegion != ""
}

type loadKind int

const (
	loadReset loadKind = iota
	loadMore
)

func (k loadKind) String() string {
	if k == loadMore {
		return "more"
	}
	return "reset"
}

type load struct {
	kind   loadKind
	page   int
	term   string
	region string
	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Loader)

func WithPageSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

func WithSearchDebounce(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.debounceDelay = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithOnChange registers fn to receive the state after every change. fn runs
// outside the loader's lock and may call back into the loader.
func WithOnChange(fn func(State)) Option {
	return func(l *Loader) {
		l.onChange = fn
	}
}

// Loader is safe for concurrent use. At most one load runs at a time; a filter
// change during a load cancels it and queues a fresh first-page load.
type Loader struct {
	api           API
	pageSize      int
	debounceDelay time.Duration
	logger        *slog.Logger
	onChange      func(State)
	search        *debounce.Debouncer[string]

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup

	mu    sync.Mutex
	idle  *sync.Cond
	state State
	// loaded is the last page committed to the list, 0 when nothing is loaded.
	loaded      int
	mounted     bool
	closed      bool
	inflight    *load
	queuedReset bool
}

func New(api API, opts ...Option) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loader{
		api:           api,
		pageSize:      DefaultPageSize,
		debounceDelay: DefaultSearchDebounce,
		logger:        slog.New(slog.DiscardHandler),
		rootCtx:       ctx,
		rootCancel:    cancel,
		state: State{
			Countries: []models.Country{},
			Page:      1,
			HasMore:   true,
		},
	}
	l.idle = sync.NewCond(&l.mu)
	for _, opt := range opts {
		opt(l)
	}
	l.search = debounce.New(l.debounceDelay, l.HandleSearch)
	return l
}

// Mount issues the initial first-page load using any filters already set.
func (l *Loader) Mount() {
	l.mu.Lock()
	if l.mounted || l.closed {
		l.mu.Unlock()
		return
	}
	l.mounted = true
	l.startLocked(loadReset)
	st := l.snapshotLocked()
	l.mu.Unlock()

	l.notify(st)
}

// HandleSearch sets the search term and reloads from the first page.
func (l *Loader) HandleSearch(term string) {
	l.setFilter(func(st *State) bool {
		if st.SearchTerm == term {
			return false
		}
		st.SearchTerm = term
		return true
	})
}

// HandleRegionFilter sets the region and reloads from the first page.
// An empty region clears the filter.
func (l *Loader) HandleRegionFilter(region string) {
	l.setFilter(func(st *State) bool {
		if st.SelectedRegion == region {
			return false
		}
		st.SelectedRegion = region
		return true
	})
}

// TypeSearch feeds a keystroke; HandleSearch runs once input has been quiet
// for the debounce period.
func (l *Loader) TypeSearch(term string) {
	l.search.Trigger(term)
}

// FlushSearch applies a pending TypeSearch value immediately.
func (l *Loader) FlushSearch() {
	l.search.Flush()
}

// LoadMore appends the next page. It does nothing while a filter is active
// or a load is running.
func (l *Loader) LoadMore() {
	l.mu.Lock()
	if !l.mounted || l.closed || l.inflight != nil || l.queuedReset || l.state.FilterActive() {
		l.mu.Unlock()
		return
	}
	if l.loaded == 0 {
		// The last reset failed; retry the first page instead of skipping it.
		l.startLocked(loadReset)
	} else {
		l.startLocked(loadMore)
	}
	st := l.snapshotLocked()
	l.mu.Unlock()

	l.notify(st)
}

// State returns a copy of the current state. HasMore is always false while a
// filter is active.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Wait blocks until no load is running or queued, or the loader is closed.
func (l *Loader) Wait() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for !l.closed && (l.inflight != nil || l.queuedReset) {
		l.idle.Wait()
	}
}

// Close cancels in-flight loads and pending debounced input and waits for the
// load goroutines to exit. Results arriving afterwards are discarded.
func (l *Loader) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.wg.Wait()
		return
	}
	l.closed = true
	l.queuedReset = false
	l.rootCancel()
	l.idle.Broadcast()
	l.mu.Unlock()

	l.search.Stop()
	l.wg.Wait()
}

func (l *Loader) setFilter(apply func(*State) bool) {
	l.mu.Lock()
	if l.closed || !apply(&l.state) {
		l.mu.Unlock()
		return
	}
	l.state.Page = 1
	l.state.Countries = []models.Country{}
	l.loaded = 0

	if l.mounted {
		if l.inflight != nil {
			l.inflight.cancel()
			l.queuedReset = true
		} else {
			l.startLocked(loadReset)
		}
	}
	st := l.snapshotLocked()
	l.mu.Unlock()

	l.notify(st)
}

// startLocked launches a load for the current filters. Must be called with mu held.
func (l *Loader) startLocked(kind loadKind) {
	page := 1
	if kind == loadMore {
		page = l.loaded + 1
	}
	ctx, cancel := context.WithCancel(l.rootCtx)
	ld := &load{
		kind:   kind,
		page:   page,
		term:   l.state.SearchTerm,
		region: l.state.SelectedRegion,
		ctx:    ctx,
		cancel: cancel,
	}
	l.inflight = ld
	l.state.Loading = true

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		countries, err := l.fetch(ld)
		l.commit(ld, countries, err)
	}()
}

func (l *Loader) fetch(ld *load) ([]models.Country, error) {
	switch {
	case ld.term != "" && ld.region != "":
		regional, err := l.api.FetchCountriesByRegion(ld.ctx, ld.region)
		if err != nil {
			return nil, err
		}
		matched := make([]models.Country, 0, len(regional))
		for _, c := range regional {
			if s.ContainsFold(c.Name, ld.term) {
				matched = append(matched, c)
			}
		}
		return matched, nil
	case ld.region != "":
		return l.api.FetchCountriesByRegion(ld.ctx, ld.region)
	case ld.term != "":
		return l.api.SearchCountries(ld.ctx, models.SearchParams{Name: ld.term})
	default:
		return l.api.FetchCountries(ld.ctx, ld.page, l.pageSize)
	}
}

func (l *Loader) commit(ld *load, countries []models.Country, err error) {
	l.mu.Lock()
	superseded := ld.ctx.Err() != nil
	ld.cancel()
	if l.inflight == ld {
		l.inflight = nil
	}
	if l.closed {
		l.idle.Broadcast()
		l.mu.Unlock()
		return
	}

	if !superseded {
		l.applyLocked(ld, countries, err)
	}
	if l.queuedReset {
		l.queuedReset = false
		l.startLocked(loadReset)
	} else {
		l.state.Loading = false
		l.idle.Broadcast()
	}
	st := l.snapshotLocked()
	l.mu.Unlock()

	if !superseded && err != nil {
		l.logger.Warn("country list load failed",
			"kind", ld.kind.String(),
			"page", ld.page,
			"search_term", ld.term,
			"region", ld.region,
			"error", err,
		)
	}
	l.notify(st)
}

// applyLocked commits a finished load. Must be called with mu held.
func (l *Loader) applyLocked(ld *load, countries []models.Country, err error) {
	filtered := ld.term != "" || ld.region != ""
	if err != nil {
		l.state.Error = ErrLoadFailed
		if ld.kind == loadReset {
			l.state.Countries = []models.Country{}
			l.state.HasMore = false
			l.loaded = 0
		}
		return
	}

	l.state.Error = ""
	l.state.HasMore = !filtered && len(countries) == l.pageSize
	if ld.kind == loadReset {
		l.state.Countries = append([]models.Country{}, countries...)
		l.state.Page = 1
		l.loaded = 1
		return
	}

	seen := make(map[string]struct{}, len(l.state.Countries))
	for _, c := range l.state.Countries {
		seen[c.Code] = struct{}{}
	}
	for _, c := range countries {
		if _, dup := seen[c.Code]; dup {
			continue
		}
		seen[c.Code] = struct{}{}
		l.state.Countries = append(l.state.Countries, c)
	}
	l.state.Page = ld.page
	l.loaded = ld.page
}

// snapshotLocked copies the state. Must be called with mu held.
func (l *Loader) snapshotLocked() State {
	st := l.state
	st.Countries = slices.Clone(l.state.Countries)
	if st.Countries == nil {
		st.Countries = []models.Country{}
	}
	st.HasMore = st.HasMore && !st.FilterActive()
	st.SearchPending = l.search.Pending()
	return st
}

func (l *Loader) notify(st State) {
	if l.onChange != nil {
		l.onChange(st)
	}
}
