package godeco

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/a-peyrard/godeco/set"
)

type (
	// slot identifies a registration inside a built container.
	slot struct {
		index      int
		capability reflect.Type
	}

	// Tracker records the registrations being built by one resolution, to detect
	// cycles before they turn into a deadlock or a stack overflow.
	Tracker struct {
		visited set.Set[slot]
		stack   []slot
	}
)

func (s slot) String() string {
	return fmt.Sprintf("(#%d, %s)", s.index, s.capability)
}

func NewTracker() *Tracker {
	return &Tracker{
		visited: set.New[slot](),
		stack:   make([]slot, 0),
	}
}

func (tracker *Tracker) Push(s slot) error {
	if tracker.visited.Contains(s) {
		cycle := []slot{s}
		for i := len(tracker.stack) - 1; i >= 0; i-- {
			cycle = append(cycle, tracker.stack[i])
			if tracker.stack[i] == s {
				break
			}
		}

		return fmt.Errorf("%w:\n%s", ErrCircularDependency, formatCycle(cycle))
	}
	tracker.visited.Add(s)
	tracker.stack = append(tracker.stack, s)

	return nil
}

func (tracker *Tracker) Pop() slot {
	if len(tracker.stack) == 0 {
		panic("tracker: pop from empty stack")
	}
	s := tracker.stack[len(tracker.stack)-1]
	tracker.stack = tracker.stack[:len(tracker.stack)-1]
	tracker.visited.Remove(s)

	return s
}

func formatCycle(cycle []slot) string {
	var b strings.Builder
	tabs := 0
	for i := len(cycle) - 1; i >= 0; i-- {
		prefix := ""
		if i != len(cycle)-1 {
			prefix = " -> "
		}
		b.WriteString(fmt.Sprintf("%s%s%s\n", strings.Repeat("\t", tabs), prefix, cycle[i]))
		tabs++
	}
	return b.String()
}
