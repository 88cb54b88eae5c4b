package eventbus

import (
	"FrameBus/internal/core/domain"
	"FrameBus/internal/core/ports"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// directory is an immutable view of the registry. Mutations clone it,
// edit the clone and swap it in, so lookups see either the old or the new
// state and never a name without its id.
type directory struct {
	byID     map[domain.ChannelID]*Channel
	byName   map[string]domain.ChannelID
	reserved map[string]struct{}
}

func newDirectory() *directory {
	return &directory{
		byID:     make(map[domain.ChannelID]*Channel),
		byName:   make(map[string]domain.ChannelID),
		reserved: make(map[string]struct{}),
	}
}

func (d *directory) clone() *directory {
	next := &directory{
		byID:     make(map[domain.ChannelID]*Channel, len(d.byID)+1),
		byName:   make(map[string]domain.ChannelID, len(d.byName)+1),
		reserved: make(map[string]struct{}, len(d.reserved)),
	}
	for id, ch := range d.byID {
		next.byID[id] = ch
	}
	for name, id := range d.byName {
		next.byName[name] = id
	}
	for name := range d.reserved {
		next.reserved[name] = struct{}{}
	}
	return next
}

func (d *directory) lookup(name string) (*Channel, bool) {
	id, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	ch, ok := d.byID[id]
	return ch, ok
}

// Registry maps channel names and ids to channels and protects internal
// channels from deletion by name.
//
// All mutations serialize on mu. Lookups read the current directory with a
// single atomic load and never block.
type Registry struct {
	base     zerolog.Logger
	log      zerolog.Logger
	sink     ports.FaultSink
	observer ports.PublishObserver

	mu     sync.Mutex
	dir    atomic.Pointer[directory]
	nextID atomic.Uint64
}

var _ ports.EventRegistry = (*Registry)(nil)

// Option configures a Registry.
type Option func(*Registry)

// WithFaultSink sets the sink every channel of the registry reports to.
func WithFaultSink(sink ports.FaultSink) Option {
	return func(r *Registry) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// WithPublishObserver attaches an instrumentation hook to the registry and its channels.
func WithPublishObserver(observer ports.PublishObserver) Option {
	return func(r *Registry) {
		r.observer = observer
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(baseLogger *zerolog.Logger, opts ...Option) *Registry {
	r := &Registry{
		base: *baseLogger,
		log:  baseLogger.With().Str("component", "event_registry").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.sink == nil {
		r.sink = NewLogFaultSink(baseLogger)
	}
	r.dir.Store(newDirectory())
	return r
}

// Create registers a new channel. Internal channels can only be deleted with DeleteByID.
func (r *Registry) Create(name string, internal bool) (*Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.dir.Load().clone()
	ch, err := r.insertLocked(next, name, internal)
	if err != nil {
		// next is dropped, nothing was published
		return nil, err
	}
	r.commitLocked(next)

	r.log.Info().
		Str("channel", name).
		Uint64("channel_id", uint64(ch.ID())).
		Bool("internal", internal).
		Msg("Channel created")
	return ch, nil
}

// insertLocked adds a channel to next. The caller holds mu.
func (r *Registry) insertLocked(next *directory, name string, internal bool) (*Channel, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidName, name)
	}
	if _, exists := next.byName[name]; exists {
		return nil, fmt.Errorf("%w: %q", domain.ErrDuplicateName, name)
	}

	id := domain.ChannelID(r.nextID.Add(1))
	if _, collision := next.byID[id]; collision {
		r.log.Error().Uint64("channel_id", uint64(id)).Str("channel", name).Msg("Channel id collision")
		return nil, fmt.Errorf("%w: id %d already in use", domain.ErrRegistryCorruption, id)
	}

	ch := NewChannel(id, name, &r.base,
		WithChannelFaultSink(r.sink),
		WithChannelObserver(r.observer),
	)
	ch.internal.Store(internal)

	next.byID[id] = ch
	next.byName[name] = id
	if internal {
		next.reserved[name] = struct{}{}
	}
	return ch, nil
}

// commitLocked publishes next as the current directory. The caller holds mu.
func (r *Registry) commitLocked(next *directory) {
	r.dir.Store(next)
	if r.observer != nil {
		r.observer.ObserveChannels(len(next.byID))
	}
}

// Lookup returns the channel registered under name.
func (r *Registry) Lookup(name string) (*Channel, bool) {
	return r.dir.Load().lookup(name)
}

// LookupID returns the channel registered under id.
func (r *Registry) LookupID(id domain.ChannelID) (*Channel, bool) {
	ch, ok := r.dir.Load().byID[id]
	return ch, ok
}

// Get is Lookup that fails with domain.ErrNotFound.
func (r *Registry) Get(name string) (*Channel, error) {
	ch, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrNotFound, name)
	}
	return ch, nil
}

// GetByID is LookupID that fails with domain.ErrNotFound.
func (r *Registry) GetByID(id domain.ChannelID) (*Channel, error) {
	ch, ok := r.LookupID(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	return ch, nil
}

// DeleteByName removes an ordinary channel. Internal channels fail with
// domain.ErrProtectedChannel.
func (r *Registry) DeleteByName(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.dir.Load()
	id, ok := cur.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrNotFound, name)
	}
	if _, protected := cur.reserved[name]; protected {
		r.log.Warn().Str("channel", name).Msg("Refused to delete internal channel by name")
		return fmt.Errorf("%w: %q", domain.ErrProtectedChannel, name)
	}
	if _, ok := cur.byID[id]; !ok {
		return fmt.Errorf("%w: name %q points at missing id %d", domain.ErrRegistryCorruption, name, id)
	}

	next := cur.clone()
	delete(next.byID, id)
	delete(next.byName, name)
	r.commitLocked(next)

	r.log.Info().Str("channel", name).Uint64("channel_id", uint64(id)).Msg("Channel deleted")
	return nil
}

// DeleteByID removes any channel, internal ones included, and clears its
// reserved flag.
func (r *Registry) DeleteByID(id domain.ChannelID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.dir.Load()
	ch, ok := cur.byID[id]
	if !ok {
		return fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	if cur.byName[ch.Name()] != id {
		return fmt.Errorf("%w: id %d not indexed under %q", domain.ErrRegistryCorruption, id, ch.Name())
	}

	next := cur.clone()
	delete(next.byID, id)
	delete(next.byName, ch.Name())
	delete(next.reserved, ch.Name())
	ch.internal.Store(false)
	r.commitLocked(next)

	r.log.Info().Str("channel", ch.Name()).Uint64("channel_id", uint64(id)).Msg("Channel deleted")
	return nil
}

// RegisterInternal creates the reserved channel of every event that has no
// channel yet. It is idempotent and safe to call from several goroutines;
// either all missing channels are created or none are.
func (r *Registry) RegisterInternal(events ...domain.InternalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.dir.Load()
	next := cur.clone()
	created := 0
	for _, ev := range events {
		name := ev.Name()
		if _, exists := next.byName[name]; exists {
			if _, reserved := next.reserved[name]; !reserved {
				r.log.Warn().Str("channel", name).Msg("Internal event name already taken by an ordinary channel")
			}
			continue
		}
		if _, err := r.insertLocked(next, name, true); err != nil {
			return fmt.Errorf("could not register internal event %s: %w", name, err)
		}
		created++
	}

	if created == 0 {
		return nil
	}
	r.commitLocked(next)
	r.log.Info().Int("created", created).Msg("Internal channels registered")
	return nil
}

// InternalNames returns the reserved channel names, sorted.
func (r *Registry) InternalNames() []string {
	reserved := r.dir.Load().reserved
	names := make([]string, 0, len(reserved))
	for name := range reserved {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Channel returns the channel of an internal event.
func (r *Registry) Channel(event domain.InternalEvent) (*Channel, bool) {
	return r.Lookup(event.Name())
}

// Notifier resolves the channel of an internal event for a producer.
func (r *Registry) Notifier(event domain.InternalEvent) (ports.Notifier, error) {
	ch, err := r.Get(event.Name())
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// Len returns the number of live channels.
func (r *Registry) Len() int {
	return len(r.dir.Load().byID)
}
