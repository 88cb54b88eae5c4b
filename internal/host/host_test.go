package host

import (
	"FrameBus/internal/adapters/eventbus"
	"FrameBus/internal/core/domain"
	"FrameBus/internal/core/ports"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

// MockEventRegistry
type MockEventRegistry struct {
	mock.Mock
}

func (m *MockEventRegistry) RegisterInternal(events ...domain.InternalEvent) error {
	args := m.Called(events)
	return args.Error(0)
}

func (m *MockEventRegistry) Notifier(event domain.InternalEvent) (ports.Notifier, error) {
	args := m.Called(event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ports.Notifier), args.Error(1)
}

// countingNotifier counts publishes.
type countingNotifier struct {
	count int
}

func (n *countingNotifier) Publish(ctx context.Context) {
	n.count++
}

// newMockRegistry returns a registry mock that hands out a counting notifier per event.
func newMockRegistry() (*MockEventRegistry, map[domain.InternalEvent]*countingNotifier) {
	reg := new(MockEventRegistry)
	notifiers := make(map[domain.InternalEvent]*countingNotifier)
	reg.On("RegisterInternal", mock.Anything).Return(nil)
	for _, ev := range domain.InternalCatalog() {
		n := &countingNotifier{}
		notifiers[ev] = n
		reg.On("Notifier", ev).Return(n, nil)
	}
	return reg, notifiers
}

// --- Tests ---

func TestInputPoller_PublishesOnTransitionsOnly(t *testing.T) {
	nopLogger := zerolog.Nop()
	reg, notifiers := newMockRegistry()

	poller, err := NewInputPoller(reg, &nopLogger)
	require.NoError(t, err)
	ctx := context.Background()

	// Two keys go down in the same tick: one key-pressed notification.
	poller.Poll(ctx, InputState{Keys: []Key{1, 2}})
	assert.Equal(t, 1, notifiers[domain.EventKeyPressed].count)
	assert.True(t, poller.IsKeyDown(1))

	// Held keys are not new presses.
	poller.Poll(ctx, InputState{Keys: []Key{1, 2}})
	assert.Equal(t, 1, notifiers[domain.EventKeyPressed].count)
	assert.Equal(t, 0, notifiers[domain.EventKeyReleased].count)

	// One key released, one pressed, a button goes down.
	poller.Poll(ctx, InputState{Keys: []Key{1, 3}, Buttons: []Button{0}})
	assert.Equal(t, 2, notifiers[domain.EventKeyPressed].count)
	assert.Equal(t, 1, notifiers[domain.EventKeyReleased].count)
	assert.Equal(t, 1, notifiers[domain.EventPointerPressed].count)
	assert.True(t, poller.IsButtonDown(0))

	// Everything released.
	poller.Poll(ctx, InputState{})
	assert.Equal(t, 2, notifiers[domain.EventKeyReleased].count)
	assert.Equal(t, 1, notifiers[domain.EventPointerReleased].count)
	assert.False(t, poller.IsKeyDown(1))

	reg.AssertCalled(t, "RegisterInternal", inputEvents)
}

func TestNewInputPoller_RegistryErrors(t *testing.T) {
	nopLogger := zerolog.Nop()

	reg := new(MockEventRegistry)
	reg.On("RegisterInternal", mock.Anything).Return(domain.ErrRegistryCorruption)
	_, err := NewInputPoller(reg, &nopLogger)
	assert.ErrorIs(t, err, domain.ErrRegistryCorruption)

	reg = new(MockEventRegistry)
	reg.On("RegisterInternal", mock.Anything).Return(nil)
	reg.On("Notifier", mock.Anything).Return(nil, domain.ErrNotFound)
	_, err = NewInputPoller(reg, &nopLogger)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewFrameLoop_InvalidConfig(t *testing.T) {
	nopLogger := zerolog.Nop()
	reg, _ := newMockRegistry()

	_, err := NewFrameLoop(reg, nil, nil, FrameLoopConfig{Interval: 0}, &nopLogger)
	assert.Error(t, err)
	_, err = NewFrameLoop(reg, nil, nil, FrameLoopConfig{Interval: time.Millisecond, Limit: -1}, &nopLogger)
	assert.Error(t, err)
}

func TestFrameLoop_Run_FrameLimit(t *testing.T) {
	nopLogger := zerolog.Nop()
	reg, notifiers := newMockRegistry()

	poller, err := NewInputPoller(reg, &nopLogger)
	require.NoError(t, err)
	input := NewScriptedInput(
		InputState{Keys: []Key{7}},
		InputState{},
	)

	loop, err := NewFrameLoop(reg, poller, input, FrameLoopConfig{Interval: time.Millisecond, Limit: 4}, &nopLogger)
	require.NoError(t, err)

	require.NoError(t, loop.Run(context.Background()))

	assert.EqualValues(t, 4, loop.Frames())
	assert.Equal(t, 1, notifiers[domain.EventInitialized].count)
	assert.Equal(t, 4, notifiers[domain.EventUpdated].count)
	assert.Equal(t, 4, notifiers[domain.EventRendered].count)
	assert.Equal(t, 2, notifiers[domain.EventKeyPressed].count)
	assert.Equal(t, 2, notifiers[domain.EventKeyReleased].count)
}

func TestFrameLoop_Run_StopsOnContext(t *testing.T) {
	nopLogger := zerolog.Nop()
	reg, notifiers := newMockRegistry()

	loop, err := NewFrameLoop(reg, nil, nil, FrameLoopConfig{Interval: time.Hour}, &nopLogger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, loop.Run(ctx))
	assert.Equal(t, 1, notifiers[domain.EventInitialized].count)
	assert.Zero(t, loop.Frames())
}

func TestFrameLoop_WithRealRegistry(t *testing.T) {
	nopLogger := zerolog.Nop()
	registry := eventbus.NewRegistry(&nopLogger)

	poller, err := NewInputPoller(registry, &nopLogger)
	require.NoError(t, err)
	loop, err := NewFrameLoop(registry, poller, NewScriptedInput(InputState{Buttons: []Button{1}}),
		FrameLoopConfig{Interval: time.Millisecond, Limit: 3}, &nopLogger)
	require.NoError(t, err)

	assert.Len(t, registry.InternalNames(), len(domain.InternalCatalog()))

	updates := 0
	updated, ok := registry.Channel(domain.EventUpdated)
	require.True(t, ok)
	updated.SubscribeFunc("game", func(ctx context.Context) error {
		updates++
		return nil
	})

	// A broken renderer does not stop the loop.
	rendered, ok := registry.Channel(domain.EventRendered)
	require.True(t, ok)
	rendered.SubscribeFunc("broken-renderer", func(ctx context.Context) error {
		return errors.New("no gpu")
	})

	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, 3, updates)

	// Framework channels cannot be removed by name.
	assert.ErrorIs(t, registry.DeleteByName(domain.EventUpdated.Name()), domain.ErrProtectedChannel)
}

func TestScriptedInput_Loops(t *testing.T) {
	empty := NewScriptedInput()
	assert.Empty(t, empty.Sample().Keys)

	src := NewScriptedInput(InputState{Keys: []Key{1}}, InputState{Keys: []Key{2}})
	assert.Equal(t, []Key{1}, src.Sample().Keys)
	assert.Equal(t, []Key{2}, src.Sample().Keys)
	assert.Equal(t, []Key{1}, src.Sample().Keys)
}
