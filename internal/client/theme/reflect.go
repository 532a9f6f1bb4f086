package theme

import "sync"

// DarkClass marks the root element while the dark mode is displayed.
const DarkClass = "dark"

// Element is the root display element.
type Element interface {
	AddClass(name string)
	RemoveClass(name string)
	HasClass(name string) bool
}

// Reflect applies r to el.
func Reflect(el Element, r Resolved) {
	if el == nil {
		return
	}
	if r == ResolvedDark {
		el.AddClass(DarkClass)
		return
	}
	el.RemoveClass(DarkClass)
}

// ClassList is an in-process Element.
type ClassList struct {
	mu      sync.RWMutex
	classes map[string]struct{}
}

var _ Element = (*ClassList)(nil)

// NewClassList returns an element with no classes.
func NewClassList() *ClassList {
	return &ClassList{classes: map[string]struct{}{}}
}

func (c *ClassList) AddClass(name string) {
	c.mu.Lock()
	c.classes[name] = struct{}{}
	c.mu.Unlock()
}

func (c *ClassList) RemoveClass(name string) {
	c.mu.Lock()
	delete(c.classes, name)
	c.mu.Unlock()
}

func (c *ClassList) HasClass(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.classes[name]
	return ok
}
