// Package appointments holds the view controller behind the "My
// appointments" screen: the phone filter, the loading flag, the error banner
// and the three collections fetched from the directory backend.
package appointments

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Deathstroke97/idoc/internal/directory"
)

// Loader is the slice of the directory client the controller consumes.
type Loader interface {
	ListAppointments(ctx context.Context, phone string) ([]directory.Appointment, error)
	ListClinics(ctx context.Context) ([]directory.Clinic, error)
	ListDoctors(ctx context.Context) ([]directory.Doctor, error)
	CancelAppointment(ctx context.Context, id int64) error
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithStaleFencing makes the controller drop the result of any load that was
// superseded by a later one. Without it the last load to finish wins.
func WithStaleFencing() Option {
	return func(c *Controller) { c.fence = true }
}

// Controller owns one view's state. Methods may be called from any goroutine;
// every transition replaces the whole State under mu.
type Controller struct {
	loader Loader
	logger zerolog.Logger
	fence  bool

	mu     sync.Mutex
	state  State
	latest uint64
	index  *Index
}

func NewController(loader Loader, opts ...Option) *Controller {
	c := &Controller{
		loader: loader,
		logger: zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Index returns the lookup maps for the current snapshot, rebuilding them
// only when the collections have changed since the last call.
func (c *Controller) Index() *Index {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexLocked()
}

func (c *Controller) indexLocked() *Index {
	if c.index == nil || c.index.version != c.state.Version {
		c.index = NewIndex(c.state)
	}
	return c.index
}

// View is a snapshot together with the cards derived from it.
type View struct {
	State State  `json:"state"`
	Cards []Card `json:"cards"`
}

func (c *Controller) View() View {
	c.mu.Lock()
	s := c.state
	idx := c.indexLocked()
	c.mu.Unlock()
	return View{State: s, Cards: Cards(s, idx)}
}

// SetFilter records the filter text as typed, without loading.
func (c *Controller) SetFilter(text string) {
	c.update(func(s *State) { s.PhoneFilter = text })
}

// Load fetches appointments (scoped to phone when non-empty), clinics and
// doctors concurrently. All three collections are replaced together on
// success; on failure none are touched and the error is recorded. The
// returned error is the one recorded in State, or nil.
func (c *Controller) Load(ctx context.Context, phone string) error {
	var token uint64
	c.update(func(s *State) {
		c.latest++
		token = c.latest
		s.Loading = true
		s.Err = nil
	})

	start := time.Now()
	appts, clinics, doctors, err := c.fetch(ctx, phone)

	var applied bool
	c.update(func(s *State) {
		current := token == c.latest
		if c.fence && !current {
			return
		}
		applied = true
		s.Loading = false
		if err != nil {
			s.Err = newViewError(err)
			return
		}
		s.Appointments = appts
		s.Clinics = clinics
		s.Doctors = doctors
		s.Version++
	})

	evt := c.logger.Info()
	if err != nil {
		evt = c.logger.Warn().Err(err).Str("kind", string(newViewError(err).Kind))
	}
	evt.
		Bool("filtered", phone != "").
		Int("appointments", len(appts)).
		Int("clinics", len(clinics)).
		Int("doctors", len(doctors)).
		Bool("applied", applied).
		Dur("latency", time.Since(start)).
		Msg("appointments load")

	if err != nil && applied {
		return newViewError(err)
	}
	return nil
}

func (c *Controller) fetch(ctx context.Context, phone string) ([]directory.Appointment, []directory.Clinic, []directory.Doctor, error) {
	var (
		appts   []directory.Appointment
		clinics []directory.Clinic
		doctors []directory.Doctor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		appts, err = c.loader.ListAppointments(gctx, phone)
		return err
	})
	g.Go(func() error {
		var err error
		clinics, err = c.loader.ListClinics(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		doctors, err = c.loader.ListDoctors(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return appts, clinics, doctors, nil
}

// Search records text as the filter and loads with its trimmed form. Blank
// text loads unscoped.
func (c *Controller) Search(ctx context.Context, text string) error {
	c.SetFilter(text)
	return c.Load(ctx, strings.TrimSpace(text))
}

// Clear empties the filter and runs an unscoped load.
func (c *Controller) Clear(ctx context.Context) error {
	c.SetFilter("")
	return c.Load(ctx, "")
}

// Cancel asks the backend to cancel the appointment and, once it agrees,
// reloads with whatever filter is current at that moment. A failed cancel
// only sets the error; the list is left as it was. A failed reload is
// reported as *ReloadError.
func (c *Controller) Cancel(ctx context.Context, id int64) error {
	c.update(func(s *State) { s.Err = nil })

	if err := c.loader.CancelAppointment(ctx, id); err != nil {
		ve := newViewError(err)
		c.update(func(s *State) { s.Err = ve })
		c.logger.Warn().Err(err).Int64("appointment_id", id).Str("kind", string(ve.Kind)).Msg("appointment cancel failed")
		return ve
	}
	c.logger.Info().Int64("appointment_id", id).Msg("appointment cancelled")

	if err := c.Load(ctx, strings.TrimSpace(c.State().PhoneFilter)); err != nil {
		var ve *ViewError
		if !errors.As(err, &ve) {
			ve = newViewError(err)
		}
		return &ReloadError{ID: id, Err: ve}
	}
	return nil
}

func (c *Controller) update(fn func(s *State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.state
	fn(&next)
	c.state = next
}
