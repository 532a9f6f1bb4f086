package theme

// Listener receives OS color scheme changes. Sources identify listeners by
// pointer, so removal takes the exact value that was added.
type Listener struct {
	fn func(prefersDark bool)
}

// NewListener wraps fn.
func NewListener(fn func(prefersDark bool)) *Listener {
	return &Listener{fn: fn}
}

// Notify delivers a change to the listener.
func (l *Listener) Notify(prefersDark bool) {
	if l != nil && l.fn != nil {
		l.fn(prefersDark)
	}
}

// SchemeSource is the OS color scheme signal.
type SchemeSource interface {
	// PrefersDark reports the current OS preference.
	PrefersDark() bool
	AddListener(l *Listener)
	// RemoveListener removes l if present and is a no-op otherwise.
	RemoveListener(l *Listener)
}
