package mcpserver

import (
	"context"

	"github.com/jshound/jshound/pkg/output/events"
)

// eventFunc adapts a plain function to the dispatcher.Hook interface,
// streaming stage completions and findings into the MCP session while
// the pipeline is still running.
type eventFunc func(events.Event)

func (f eventFunc) OnEvent(_ context.Context, event events.Event) error {
	f(event)
	return nil
}

// A nil filter subscribes to every event type.
func (f eventFunc) EventTypes() []events.EventType {
	return nil
}
