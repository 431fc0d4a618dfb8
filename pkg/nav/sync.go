package nav

import (
	"errors"
	"log/slog"

	"github.com/vango-dev/storefront/pkg/catalog"
	"github.com/vango-dev/storefront/pkg/filter"
)

// ErrReentrantNavigation is returned when a navigation is requested while
// another one is being applied.
var ErrReentrantNavigation = errors.New("nav: navigation already in progress")

// Phase is the Sync state machine state.
type Phase int

const (
	Idle Phase = iota
	Navigating
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Navigating:
		return "navigating"
	default:
		return "unknown"
	}
}

// State is the navigation state of one session.
type State struct {
	ActivePage string       `json:"activePage"`
	PageData   PageData     `json:"pageData"`
	Filters    filter.State `json:"filters"`
	PageNumber int          `json:"pageNumber"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	s.PageData = cloneData(s.PageData)
	s.Filters = s.Filters.Clone()
	return s
}

// Redirect reasons passed to Recorder.Redirect.
const (
	RedirectProductNotFound = "product_not_found"
)

// Recorder receives navigation events, typically for metrics.
type Recorder interface {
	Navigation(page string)
	Redirect(reason string)
	LocationWriteError()
	CacheLookup(hit bool)
}

type nopRecorder struct{}

func (nopRecorder) Navigation(string)   {}
func (nopRecorder) Redirect(string)     {}
func (nopRecorder) LocationWriteError() {}
func (nopRecorder) CacheLookup(bool)    {}

// Option configures a Sync.
type Option func(*Sync)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sync) {
		s.logger = logger
	}
}

// WithRecorder sets the event recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Sync) {
		s.recorder = r
	}
}

// Sync reconciles a Location with in-memory navigation state.
type Sync struct {
	catalog  catalog.Catalog
	location Location
	cache    ProductCache
	logger   *slog.Logger
	recorder Recorder

	observers []func(State)

	state       State
	phase       Phase
	started     bool
	lastApplied string
}

// New creates a Sync. Call Start to apply the location's initial fragment.
func New(cat catalog.Catalog, loc Location, opts ...Option) *Sync {
	s := &Sync{
		catalog:  cat,
		location: loc,
		logger:   slog.Default(),
		recorder: nopRecorder{},
		state: State{
			ActivePage: PageHome,
			PageData:   Generic{Fields: map[string]string{}},
			Filters:    filter.Default(),
			PageNumber: filter.FirstPage,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "nav")
	return s
}

// OnChange registers fn to run after every applied state change.
func (s *Sync) OnChange(fn func(State)) {
	s.observers = append(s.observers, fn)
}

// State returns a copy of the current navigation state.
func (s *Sync) State() State {
	return s.state.Clone()
}

// Phase returns the current state machine phase.
func (s *Sync) Phase() Phase {
	return s.phase
}

// Started reports whether the initial location has been applied.
func (s *Sync) Started() bool {
	return s.started
}

// Cache returns the product side cache.
func (s *Sync) Cache() *ProductCache {
	return &s.cache
}

// Start applies the location's current fragment as the initial state.
// A deep-linked page number is kept as-is.
func (s *Sync) Start() error {
	return s.HandleLocationChange(s.location.Current())
}

// ParseFromURL decodes fragment against this session's cache and catalog
// without changing any state.
func (s *Sync) ParseFromURL(fragment string) (Parsed, error) {
	return Parse(fragment, &s.cache, s.catalog)
}

// SerializeToURL encodes filters and page number as a query string.
func (s *Sync) SerializeToURL(f filter.State, pageNumber int) string {
	return Serialize(f, pageNumber)
}

// Navigate moves to page. For the product page a ProductDetail is cached
// and only its ID goes into the URL; for every other page each Generic field
// becomes a query parameter. The location gets a new history entry, scroll
// resets to the top and the resulting URL is applied exactly as the URL
// listener would apply it.
//
// On shop and search, Generic fields named like filter keys (brands,
// maxPrice, page, ...) come back as filter state and page number, not as
// page data. Other pages keep every field in their page data.
func (s *Sync) Navigate(page string, data PageData) error {
	if s.phase == Navigating {
		return ErrReentrantNavigation
	}
	s.phase = Navigating
	defer func() { s.phase = Idle }()

	fragment := s.navigationFragment(page, data)

	if err := s.location.Push(fragment); err != nil {
		s.locationWriteFailed(fragment, err)
	}
	s.location.ScrollToTop()

	s.apply(fragment)
	return nil
}

func (s *Sync) navigationFragment(page string, data PageData) string {
	page, _ = SplitFragment(page)

	switch d := data.(type) {
	case ProductDetail:
		if page == PageProduct {
			s.cache.Put(d.Product)
			return productFragment(d.Product.ID)
		}
		return "/" + page
	case Generic:
		if q := encodeFields(d.Fields, false); q != "" {
			return "/" + page + "?" + q
		}
	}
	return "/" + page
}

// HandleLocationChange is the URL-change listener. It parses fragment and
// applies it. A fragment equal to the one most recently applied is the echo
// of this Sync's own write and is ignored, as is any change that arrives
// while a navigation is being applied.
//
// The page number is taken from fragment even when its filters differ from
// the current ones; only UpdateFilters resets shop pagination.
func (s *Sync) HandleLocationChange(fragment string) error {
	if s.phase == Navigating {
		return nil
	}
	if s.started && normalizeFragment(fragment) == s.lastApplied {
		return nil
	}

	s.phase = Navigating
	defer func() { s.phase = Idle }()

	s.apply(fragment)
	return nil
}

// apply parses fragment and installs the result. An unresolvable product
// redirects to the home page by replacing the current history entry.
func (s *Sync) apply(fragment string) {
	parsed, err := s.ParseFromURL(fragment)
	if parsed.Page == PageProduct && err == nil {
		s.recorder.CacheLookup(parsed.FromCache)
	}
	if errors.Is(err, ErrProductNotFound) {
		s.logger.Info("redirecting to home", "fragment", fragment, "reason", err)
		s.recorder.CacheLookup(false)
		s.recorder.Redirect(RedirectProductNotFound)

		fragment = "/" + PageHome
		if werr := s.location.Replace(fragment); werr != nil {
			s.locationWriteFailed(fragment, werr)
		}
		parsed = Parsed{
			Page:       PageHome,
			Filters:    filter.Default(),
			Data:       Generic{Fields: map[string]string{}},
			PageNumber: filter.FirstPage,
		}
	}

	s.state = State{
		ActivePage: parsed.Page,
		PageData:   parsed.Data,
		Filters:    parsed.Filters,
		PageNumber: parsed.PageNumber,
	}
	s.started = true
	s.lastApplied = normalizeFragment(fragment)
	s.recorder.Navigation(parsed.Page)
	s.notify()
}

// UpdateFilters replaces the filter state. On the shop page a change resets
// the page number to 1 once the initial location has been applied. On
// filterable pages the URL is rewritten in place; other pages keep filters
// in memory only and their URL and pagination are untouched.
func (s *Sync) UpdateFilters(f filter.State) error {
	if s.phase == Navigating {
		return ErrReentrantNavigation
	}
	s.phase = Navigating
	defer func() { s.phase = Idle }()

	f = f.Normalize()
	changed := !f.Equal(s.state.Filters)
	s.state.Filters = f

	if changed && s.started && s.state.ActivePage == PageShop {
		s.state.PageNumber = filter.FirstPage
	}

	if Filterable(s.state.ActivePage) {
		s.writeCurrent(false)
	}
	s.notify()
	return nil
}

// SetPage changes the page number on a filterable page and pushes a history
// entry for it. Values below 1 are treated as 1. On other pages it is a no-op.
func (s *Sync) SetPage(n int) error {
	if s.phase == Navigating {
		return ErrReentrantNavigation
	}
	if !Filterable(s.state.ActivePage) {
		return nil
	}
	s.phase = Navigating
	defer func() { s.phase = Idle }()

	s.state.PageNumber = max(n, filter.FirstPage)
	s.writeCurrent(true)
	s.location.ScrollToTop()
	s.notify()
	return nil
}

// writeCurrent serializes the current filterable-page state to the location.
func (s *Sync) writeCurrent(push bool) {
	var fields map[string]string
	if g, ok := s.state.PageData.(Generic); ok {
		fields = g.Fields
	}
	fragment := Build(s.state.ActivePage, fields, s.state.Filters, s.state.PageNumber)

	write := s.location.Replace
	if push {
		write = s.location.Push
	}
	if err := write(fragment); err != nil {
		s.locationWriteFailed(fragment, err)
	}
	s.lastApplied = normalizeFragment(fragment)
}

func (s *Sync) locationWriteFailed(fragment string, err error) {
	s.logger.Warn("location write failed; keeping in-memory state", "fragment", fragment, "error", err)
	s.recorder.LocationWriteError()
}

func (s *Sync) notify() {
	if len(s.observers) == 0 {
		return
	}
	st := s.State()
	for _, fn := range s.observers {
		fn(st)
	}
}
