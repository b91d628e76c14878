package bus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"hdexport/pkg/logger"
)

// ErrUnknownAction is returned for actions with no handler
var ErrUnknownAction = errors.New("unknown action")

// HandlerFunc answers one message. Actions without a reply return nil.
type HandlerFunc func(ctx context.Context, msg Message) (interface{}, error)

// Dispatcher routes messages to the handler registered for their action
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Action]HandlerFunc
	logger   logger.Logger
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher(log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Dispatcher{
		handlers: make(map[Action]HandlerFunc),
		logger:   log.WithField("component", "bus"),
	}
}

// Handle registers fn for action, replacing any previous handler
func (d *Dispatcher) Handle(action Action, fn HandlerFunc) {
	d.mu.Lock()
	d.handlers[action] = fn
	d.mu.Unlock()
}

// Actions lists the registered actions in sorted order
func (d *Dispatcher) Actions() []Action {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Action, 0, len(d.handlers))
	for a := range d.handlers {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dispatch runs the handler for msg.Action
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (interface{}, error) {
	d.mu.RLock()
	fn, ok := d.handlers[msg.Action]
	d.mu.RUnlock()

	if !ok {
		d.logger.WarnWithFields("No handler for message", map[string]interface{}{
			"action": string(msg.Action),
		})
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, msg.Action)
	}

	d.logger.DebugWithFields("Dispatching message", map[string]interface{}{
		"action": string(msg.Action),
	})
	return fn(ctx, msg)
}
