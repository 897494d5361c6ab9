// Package session tracks the recording run in progress so that log records
// and storage writes can be tagged with it.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/OCAP2/droneview/pkg/core"
)

// Context holds the current run and simulation clock.
type Context struct {
	mu      sync.RWMutex
	run     *core.Run
	step    int
	simTime float64
}

// NewContext creates a Context with no active run.
func NewContext() *Context {
	return &Context{}
}

// Run returns the active run, or nil.
func (c *Context) Run() *core.Run {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.run
}

// Start makes run the active run and resets the clock.
func (c *Context) Start(run *core.Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run = run
	c.step = 0
	c.simTime = 0
}

// End clears the active run.
func (c *Context) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run = nil
}

// Tick records the step being processed.
func (c *Context) Tick(step int, simTime float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = step
	c.simTime = simTime
}

// Clock returns the last step and simulation time passed to Tick.
func (c *Context) Clock() (int, float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.step, c.simTime
}

// LogAttrs implements logging.ContextProvider. It returns nothing while no
// run is active.
func (c *Context) LogAttrs(context.Context) []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.run == nil {
		return nil
	}
	return []slog.Attr{
		slog.String("run", c.run.ID),
		slog.Int("step", c.step),
		slog.Float64("simTime", c.simTime),
	}
}
