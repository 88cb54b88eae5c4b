package host

import (
	"FrameBus/internal/core/domain"
	"FrameBus/internal/core/ports"
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Key is a keyboard key code as reported by the windowing layer.
type Key int

// Button is a pointer button code as reported by the windowing layer.
type Button int

// InputState is the set of keys and buttons held down during one tick.
type InputState struct {
	Keys    []Key
	Buttons []Button
}

// InputSource samples the current input state once per tick.
type InputSource interface {
	Sample() InputState
}

// InputPoller turns successive input samples into framework notifications.
// It is meant to be driven by a single goroutine, the frame loop.
type InputPoller struct {
	log zerolog.Logger

	keyPressed      ports.Notifier
	keyReleased     ports.Notifier
	pointerPressed  ports.Notifier
	pointerReleased ports.Notifier

	keys    map[Key]struct{}
	buttons map[Button]struct{}
}

var inputEvents = []domain.InternalEvent{
	domain.EventKeyPressed,
	domain.EventKeyReleased,
	domain.EventPointerPressed,
	domain.EventPointerReleased,
}

// NewInputPoller registers the input channels (if nobody did yet) and resolves them.
func NewInputPoller(registry ports.EventRegistry, baseLogger *zerolog.Logger) (*InputPoller, error) {
	if err := registry.RegisterInternal(inputEvents...); err != nil {
		return nil, fmt.Errorf("could not register input events: %w", err)
	}

	notifiers := make([]ports.Notifier, len(inputEvents))
	for i, ev := range inputEvents {
		n, err := registry.Notifier(ev)
		if err != nil {
			return nil, fmt.Errorf("could not resolve %s: %w", ev.Name(), err)
		}
		notifiers[i] = n
	}

	return &InputPoller{
		log:             baseLogger.With().Str("component", "input_poller").Logger(),
		keyPressed:      notifiers[0],
		keyReleased:     notifiers[1],
		pointerPressed:  notifiers[2],
		pointerReleased: notifiers[3],
		keys:            make(map[Key]struct{}),
		buttons:         make(map[Button]struct{}),
	}, nil
}

// Poll compares state with the previous sample and publishes each of the four
// input channels at most once if any key or button made that transition.
func (p *InputPoller) Poll(ctx context.Context, state InputState) {
	keys := toSet(state.Keys)
	buttons := toSet(state.Buttons)

	pressedKeys, releasedKeys := diff(p.keys, keys)
	pressedButtons, releasedButtons := diff(p.buttons, buttons)
	p.keys, p.buttons = keys, buttons

	if pressedKeys > 0 || releasedKeys > 0 || pressedButtons > 0 || releasedButtons > 0 {
		p.log.Debug().
			Int("keys_pressed", pressedKeys).
			Int("keys_released", releasedKeys).
			Int("buttons_pressed", pressedButtons).
			Int("buttons_released", releasedButtons).
			Msg("Input changed")
	}

	if pressedKeys > 0 {
		p.keyPressed.Publish(ctx)
	}
	if releasedKeys > 0 {
		p.keyReleased.Publish(ctx)
	}
	if pressedButtons > 0 {
		p.pointerPressed.Publish(ctx)
	}
	if releasedButtons > 0 {
		p.pointerReleased.Publish(ctx)
	}
}

// IsKeyDown reports whether key was held in the last polled sample.
func (p *InputPoller) IsKeyDown(key Key) bool {
	_, ok := p.keys[key]
	return ok
}

// IsButtonDown reports whether button was held in the last polled sample.
func (p *InputPoller) IsButtonDown(button Button) bool {
	_, ok := p.buttons[button]
	return ok
}

func toSet[T comparable](items []T) map[T]struct{} {
	set := make(map[T]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// diff counts the entries that appeared in and disappeared from prev.
func diff[T comparable](prev, cur map[T]struct{}) (added, removed int) {
	for item := range cur {
		if _, ok := prev[item]; !ok {
			added++
		}
	}
	for item := range prev {
		if _, ok := cur[item]; !ok {
			removed++
		}
	}
	return added, removed
}

// ScriptedInput replays a fixed list of samples, looping at the end.
// An empty script always samples no input.
type ScriptedInput struct {
	script []InputState
	next   int
}

// NewScriptedInput creates a source that replays script.
func NewScriptedInput(script ...InputState) *ScriptedInput {
	return &ScriptedInput{script: script}
}

// Sample returns the next state of the script.
func (s *ScriptedInput) Sample() InputState {
	if len(s.script) == 0 {
		return InputState{}
	}
	state := s.script[s.next]
	s.next = (s.next + 1) % len(s.script)
	return state
}
