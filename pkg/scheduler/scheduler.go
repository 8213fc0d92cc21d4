package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cristianfalcone/cronq/pkg/core"
	"github.com/cristianfalcone/cronq/pkg/internal/handler"
	"github.com/cristianfalcone/cronq/pkg/security"
)

// Scheduler owns the in-memory job table and materializes persisted
// runs. It is an explicit instance, never a process-wide singleton;
// multiple schedulers (e.g. in tests) stay independent. Workers sharing
// a store only claim rows whose name their scheduler knows.
type Scheduler struct {
	store core.Storage
	clock core.Clock

	mu        sync.RWMutex
	specs     map[string]*JobSpec
	resolvers map[string]any

	eventMu   sync.RWMutex
	eventSubs []chan core.Event
}

// Option configures a Scheduler.
type Option interface {
	apply(*Scheduler)
}

type optionFunc func(*Scheduler)

func (f optionFunc) apply(s *Scheduler) { f(s) }

// WithClock injects the clock used for cron evaluation, lease
// arithmetic and backoff scheduling.
func WithClock(c core.Clock) Option {
	return optionFunc(func(s *Scheduler) {
		s.clock = c
	})
}

// New creates a Scheduler over the given storage backend.
func New(store core.Storage, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:     store,
		clock:     core.SystemClock{},
		specs:     make(map[string]*JobSpec),
		resolvers: make(map[string]any),
	}
	for _, opt := range opts {
		opt.apply(s)
	}
	return s
}

// Storage returns the underlying storage.
func (s *Scheduler) Storage() core.Storage {
	return s.store
}

// Clock returns the scheduler's clock.
func (s *Scheduler) Clock() core.Clock {
	return s.clock
}

// RegisterHandler registers a lazily-resolved handler under an
// identifier: a function, or any value exposing a Handle method.
// Unresolvable values are definition mistakes and panic, as does an
// invalid identifier.
func (s *Scheduler) RegisterHandler(name string, v any) {
	if err := security.ValidateJobName(name); err != nil {
		panic(&core.DefinitionError{Name: name, Reason: "invalid handler identifier", Err: err})
	}
	if _, err := handler.Resolve(v); err != nil {
		panic(&core.DefinitionError{Name: name, Reason: err.Error()})
	}
	s.mu.Lock()
	s.resolvers[name] = v
	s.mu.Unlock()
}

// Schedule creates (or renames the active draft to) the named
// definition and returns its builder. With a nil handler the name must
// be an identifier registered via RegisterHandler; that is checked
// eagerly and a failure panics with a DefinitionError.
func (s *Scheduler) Schedule(name string, fn any) *Builder {
	if err := security.ValidateJobName(name); err != nil {
		panic(&core.DefinitionError{Name: name, Reason: "invalid job name", Err: err})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var h *handler.Handler
	if fn != nil {
		var err error
		h, err = handler.New(fn)
		if err != nil {
			panic(&core.DefinitionError{Name: name, Reason: err.Error()})
		}
	} else if _, ok := s.resolvers[name]; !ok {
		panic(&core.DefinitionError{Name: name, Reason: "no handler given and identifier is not registered"})
	}

	spec, ok := s.specs[name]
	if !ok {
		spec = newJobSpec(name)
		s.specs[name] = spec
	}
	if h != nil {
		spec.handler = h
	}
	return &Builder{s: s, key: name}
}

// Job opens an unnamed draft definition. Modifiers stage state on the
// draft; dispatching it through Builder.Dispatch binds the final name.
func (s *Scheduler) Job() *Builder {
	key := draftKey()
	s.mu.Lock()
	spec := newJobSpec(key)
	spec.draft = true
	s.specs[key] = spec
	s.mu.Unlock()
	return &Builder{s: s, key: key}
}

// Spec returns the definition registered under name.
func (s *Scheduler) Spec(name string) (*JobSpec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	spec, ok := s.specs[name]
	return spec, ok
}

// KnownNames returns the names of all non-draft definitions. Workers
// restrict their claim queries to these names.
func (s *Scheduler) KnownNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.specs))
	for name, spec := range s.specs {
		if !spec.draft {
			names = append(names, name)
		}
	}
	return names
}

// Resolve returns the executable handler for a spec: the direct
// callable if one was given, otherwise the lazily-registered value for
// the spec's name. Resolution failure is a DefinitionError.
func (s *Scheduler) Resolve(spec *JobSpec) (*handler.Handler, error) {
	if spec.handler != nil {
		return spec.handler, nil
	}
	s.mu.RLock()
	v, ok := s.resolvers[spec.Name]
	s.mu.RUnlock()
	if !ok {
		return nil, &core.DefinitionError{Name: spec.Name, Reason: "no handler registered"}
	}
	h, err := handler.Resolve(v)
	if err != nil {
		return nil, &core.DefinitionError{Name: spec.Name, Reason: err.Error()}
	}
	return h, nil
}

// rename moves a spec to a new map key. The spec keeps all staged state.
func (s *Scheduler) rename(oldKey, name string) (*JobSpec, error) {
	if err := security.ValidateJobName(name); err != nil {
		return nil, &core.DefinitionError{Name: name, Reason: "invalid job name", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	spec, ok := s.specs[oldKey]
	if !ok {
		return nil, &core.DefinitionError{Name: oldKey, Reason: "unknown definition"}
	}
	delete(s.specs, oldKey)
	spec.Name = name
	spec.draft = false
	s.specs[name] = spec
	return spec, nil
}

// Dispatched is a handle to a freshly inserted run. It allows retiming
// the row while no worker has claimed it.
type Dispatched struct {
	s  *Scheduler
	ID int64
}

// At moves the run to a new scheduled instant. Once a worker has
// claimed the row (or it is gone) the call fails with
// ErrPostDispatchConflict.
func (d *Dispatched) At(ctx context.Context, t time.Time) error {
	ok, err := d.s.store.Retime(ctx, d.ID, t, d.s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrPostDispatchConflict
	}
	return nil
}

// Dispatch inserts one run for the named definition. A nil args uses the
// definition's default payload. When no definition exists the name must
// be a registered handler identifier; a bare spec is created for it.
// The definition's staged run-at, if any, is consumed and cleared.
func (s *Scheduler) Dispatch(ctx context.Context, name string, args any) (*Dispatched, error) {
	s.mu.Lock()
	spec, ok := s.specs[name]
	if !ok {
		if _, registered := s.resolvers[name]; !registered {
			s.mu.Unlock()
			return nil, &core.DefinitionError{Name: name, Reason: "unknown job and identifier is not registered"}
		}
		spec = newJobSpec(name)
		s.specs[name] = spec
	}
	s.mu.Unlock()

	return s.dispatchSpec(ctx, spec, args)
}

func (s *Scheduler) dispatchSpec(ctx context.Context, spec *JobSpec, args any) (*Dispatched, error) {
	if err := security.ValidateQueueName(spec.Queue); err != nil {
		return nil, err
	}

	if args == nil {
		args = spec.DefaultArgs
	}
	payload, err := marshalArgs(args)
	if err != nil {
		return nil, err
	}

	runAt := s.clock.Now()
	if spec.stagedAt != nil {
		runAt = *spec.stagedAt
		spec.stagedAt = nil
	}

	run := &core.Run{
		Name:     spec.Name,
		Queue:    spec.Queue,
		Priority: spec.Priority,
		RunAt:    runAt,
		Args:     payload,
	}
	if err := s.store.Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("cronq: failed to dispatch %q: %w", spec.Name, err)
	}
	return &Dispatched{s: s, ID: run.ID}, nil
}

// EnqueueDue materializes cron occurrences. For every definition with a
// cron expression it inserts a run for the current instant when it
// matches, and one for the next occurrence, each guarded by an
// idempotency key derived from the name and the occurrence truncated to
// whole seconds. Keys collide across concurrent scheduler processes
// racing the same tick; the losing insert is silently dropped. The
// one-second truncation means sub-second occurrences of 6-field
// schedules share a key within the same second.
func (s *Scheduler) EnqueueDue(ctx context.Context) error {
	now := s.clock.Now()

	s.mu.RLock()
	crons := make([]*JobSpec, 0, len(s.specs))
	for _, spec := range s.specs {
		if spec.Cron != nil && !spec.draft {
			crons = append(crons, spec)
		}
	}
	s.mu.RUnlock()

	for _, spec := range crons {
		occ := now.Truncate(time.Second)
		if spec.Cron.Matches(occ) {
			if err := s.insertOccurrence(ctx, spec, occ); err != nil {
				return err
			}
		}
		next, err := spec.Cron.Next(now)
		if err != nil {
			return err
		}
		if err := s.insertOccurrence(ctx, spec, next); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) insertOccurrence(ctx context.Context, spec *JobSpec, at time.Time) error {
	payload, err := marshalArgs(spec.DefaultArgs)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s@%d", spec.Name, at.Unix())
	if err := security.ValidateUniqueKey(key); err != nil {
		return fmt.Errorf("cronq: failed to enqueue %q: %w", spec.Name, err)
	}
	run := &core.Run{
		Name:      spec.Name,
		Queue:     spec.Queue,
		Priority:  spec.Priority,
		RunAt:     at,
		Args:      payload,
		UniqueKey: &key,
	}
	if _, err := s.store.InsertUnique(ctx, run); err != nil {
		return fmt.Errorf("cronq: failed to enqueue %q: %w", spec.Name, err)
	}
	return nil
}

func marshalArgs(args any) ([]byte, error) {
	if args == nil {
		return nil, nil
	}
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("cronq: failed to marshal args: %w", err)
	}
	if len(payload) > security.MaxArgsSize {
		return nil, core.ErrArgsTooLarge
	}
	return payload, nil
}

// Events returns a channel for receiving scheduler events. The caller
// must call Unsubscribe when done to prevent resource leaks.
func (s *Scheduler) Events() <-chan core.Event {
	ch := make(chan core.Event, 100)
	s.eventMu.Lock()
	s.eventSubs = append(s.eventSubs, ch)
	s.eventMu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel created by Events. The
// channel is not closed; callers must stop reading before calling
// Unsubscribe.
func (s *Scheduler) Unsubscribe(ch <-chan core.Event) {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()
	for i, sub := range s.eventSubs {
		if sub == ch {
			s.eventSubs = append(s.eventSubs[:i], s.eventSubs[i+1:]...)
			return
		}
	}
}

// Emit delivers an event to all subscribers. Slow consumers drop events
// rather than blocking the scheduler.
func (s *Scheduler) Emit(e core.Event) {
	s.eventMu.RLock()
	subs := make([]chan core.Event, len(s.eventSubs))
	copy(subs, s.eventSubs)
	s.eventMu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
		}
	}
}
