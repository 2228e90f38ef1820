package orchestration

import (
	"context"
	"fmt"
)

// Handler runs when the event a step waits on arrives. It returns the name
// of the next step; an empty next step completes the workflow. A handler
// error fails the instance.
type Handler func(ctx context.Context, inst *Instance, payload []byte) (next string, err error)

// Step is one waiting state of a workflow: the event name it waits on and
// the handler that consumes it.
type Step struct {
	Name    string
	Event   string
	Handler Handler
}

// Definition describes a workflow as an explicit state machine. No step
// has a timeout: an instance waits on its current step's event until the
// event arrives or the instance is terminated.
type Definition struct {
	Name  string
	Entry string
	steps map[string]Step
}

// NewDefinition builds a workflow definition. The first step is the entry.
func NewDefinition(name string, steps ...Step) (*Definition, error) {
	if name == "" {
		return nil, fmt.Errorf("workflow name is empty")
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("workflow %s has no steps", name)
	}

	d := &Definition{
		Name:  name,
		Entry: steps[0].Name,
		steps: make(map[string]Step, len(steps)),
	}
	for _, s := range steps {
		if s.Name == "" || s.Event == "" || s.Handler == nil {
			return nil, fmt.Errorf("workflow %s: step %q is incomplete", name, s.Name)
		}
		if _, dup := d.steps[s.Name]; dup {
			return nil, fmt.Errorf("workflow %s: duplicate step %q", name, s.Name)
		}
		d.steps[s.Name] = s
	}
	return d, nil
}

// MustDefinition is NewDefinition that panics on error, for definitions
// assembled from constants at startup.
func MustDefinition(name string, steps ...Step) *Definition {
	d, err := NewDefinition(name, steps...)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Definition) step(name string) (Step, bool) {
	s, ok := d.steps[name]
	return s, ok
}
