package probe

import (
	"sync/atomic"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

// Cell holds the outcome of a single attempt. The first Resolve wins; every
// later call is a no-op.
type Cell struct {
	resolved atomic.Bool
	done     chan struct{}
	out      domain.Outcome
}

func NewCell() *Cell {
	return &Cell{done: make(chan struct{})}
}

// Resolve stores o if the cell is still empty and reports whether it did.
func (c *Cell) Resolve(o domain.Outcome) bool {
	if !c.resolved.CompareAndSwap(false, true) {
		return false
	}
	c.out = o
	close(c.done)
	return true
}

func (c *Cell) Done() <-chan struct{} { return c.done }

// Outcome blocks until the cell is resolved.
func (c *Cell) Outcome() domain.Outcome {
	<-c.done
	return c.out
}
