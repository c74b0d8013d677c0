// Package controller owns the interactive state of one search front end: the
// selected query image, its preview, the result list, the loading flag and the
// error message. Renderers read it through Snapshot and never mutate it.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cloo-solutions/vsearch/internal/domain"
	"github.com/cloo-solutions/vsearch/internal/telemetry"
)

const (
	PromptNoFile          = "Please select an image file first."
	UnknownErrorMessage   = "An unknown error occurred during the search."
	searchErrorPrefix     = "An error occurred during the search: "
	searchErrorSuffix     = ". Please check the console and ensure the API server is running."
	searchingButtonLabel  = "Searching..."
	idleSearchButtonLabel = "Search"
)

// ErrUnknown marks a failure that carries no usable detail.
var ErrUnknown = errors.New("unknown search failure")

// Searcher performs the remote visual search.
type Searcher interface {
	Search(ctx context.Context, img *domain.QueryImage) ([]string, error)
}

// Previewer derives a displayable URI from a query image.
type Previewer interface {
	Derive(img *domain.QueryImage) string
}

// Recorder is notified once per finished search.
type Recorder interface {
	Record(ctx context.Context, outcome domain.SearchOutcome) error
}

// State is the controller's state bundle.
type State struct {
	File    *domain.QueryImage
	Preview string
	Results []string
	Loading bool
	Error   string
}

// HasFile reports whether a query image is selected.
func (s State) HasFile() bool {
	return s.File != nil
}

// CanSearch reports whether the search control should be enabled.
func (s State) CanSearch() bool {
	return s.File != nil && !s.Loading
}

// Controller coordinates file selection and the single in-flight search.
type Controller struct {
	mu    sync.RWMutex
	state State

	searcher  Searcher
	previewer Previewer
	recorder  Recorder
	sessionID string
	now       func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder registers a Recorder for finished searches.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithSessionID tags outcomes and telemetry with a session id.
func WithSessionID(id string) Option {
	return func(c *Controller) { c.sessionID = id }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Controller with empty state.
func New(searcher Searcher, previewer Previewer, opts ...Option) *Controller {
	c := &Controller{
		searcher:  searcher,
		previewer: previewer,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the session this controller belongs to.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// SelectFile stores img as the current selection and replaces the preview.
// A nil image is ignored.
func (c *Controller) SelectFile(img *domain.QueryImage) {
	if img == nil {
		return
	}

	var preview string
	if c.previewer != nil {
		preview = c.previewer.Derive(img)
	}

	c.mu.Lock()
	c.state.File = img
	c.state.Preview = preview
	c.mu.Unlock()
}

// SubmitSearch starts a search for the selected file. Without a selection it
// returns domain.ErrNoFileSelected and changes nothing. While another search
// is running it returns domain.ErrSearchInFlight.
//
// On success the loading flag is already set and results and error are
// cleared when SubmitSearch returns. The returned channel is closed once the
// request has finished and loading is false again. The request is detached
// from ctx cancellation.
func (c *Controller) SubmitSearch(ctx context.Context) (<-chan struct{}, error) {
	c.mu.Lock()
	if c.state.File == nil {
		c.mu.Unlock()
		return nil, domain.ErrNoFileSelected
	}
	if c.state.Loading {
		c.mu.Unlock()
		return nil, domain.ErrSearchInFlight
	}
	c.state.Loading = true
	c.state.Results = nil
	c.state.Error = ""
	file := c.state.File
	c.mu.Unlock()

	done := make(chan struct{})
	go c.run(context.WithoutCancel(ctx), file, done)
	return done, nil
}

// Search runs SubmitSearch and waits for it to finish.
func (c *Controller) Search(ctx context.Context) (State, error) {
	done, err := c.SubmitSearch(ctx)
	if err != nil {
		return c.Snapshot(), err
	}
	select {
	case <-done:
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
	return c.Snapshot(), nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := c.state
	snap.Results = cloneStrings(c.state.Results)
	return snap
}

// IsLoading reports whether a search is in flight.
func (c *Controller) IsLoading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Loading
}

func (c *Controller) run(ctx context.Context, file *domain.QueryImage, done chan<- struct{}) {
	defer close(done)

	started := c.now()
	ctx, span := telemetry.StartSpan(ctx, "controller.search", telemetry.SpanAttributes{
		SessionID: c.sessionID,
		Filename:  file.Filename,
		Operation: "search",
	})
	defer span.End()

	var (
		paths []string
		err   error
	)
	defer func() {
		if r := recover(); r != nil {
			paths = nil
			if rerr, ok := r.(error); ok {
				err = rerr
			} else {
				err = ErrUnknown
			}
		}
		c.complete(paths, err)

		if err != nil {
			log.Printf("search failed: session=%s file=%s err=%v", c.sessionID, file.Filename, err)
			span.SetError(err)
		}

		c.notify(ctx, domain.SearchOutcome{
			SessionID:   c.sessionID,
			Query:       file,
			ResultPaths: cloneStrings(paths),
			Err:         err,
			StartedAt:   started,
			Duration:    c.now().Sub(started),
		})
	}()

	if c.searcher == nil {
		err = fmt.Errorf("no search backend configured")
		return
	}
	paths, err = c.searcher.Search(ctx, file)
}

// complete applies the search result; clearing the loading flag is the last mutation.
func (c *Controller) complete(paths []string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.state.Results = nil
		c.state.Error = ErrorMessage(err)
	} else {
		c.state.Results = cloneStrings(paths)
		c.state.Error = ""
	}
	c.state.Loading = false
}

func (c *Controller) notify(ctx context.Context, outcome domain.SearchOutcome) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, outcome); err != nil {
		log.Printf("search history record failed: session=%s err=%v", c.sessionID, err)
		telemetry.CaptureError(ctx, err)
	}
}

// ErrorMessage converts a search failure into the text shown to users.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrUnknown) {
		return UnknownErrorMessage
	}
	detail := strings.TrimSpace(err.Error())
	if detail == "" {
		return UnknownErrorMessage
	}
	return searchErrorPrefix + detail + searchErrorSuffix
}

func cloneStrings(items []string) []string {
	dup := make([]string, len(items))
	copy(dup, items)
	return dup
}
