package vault

// Clipboard receives a plaintext secret to place on the system clipboard.
//
// The session never touches the clipboard itself; the surrounding
// presentation layer injects an implementation.
type Clipboard interface {
	// WriteText place text on the system clipboard
	WriteText(text string) error
}

// ClipboardFunc function adapter implementing Clipboard
type ClipboardFunc func(text string) error

// WriteText implement Clipboard
func (f ClipboardFunc) WriteText(text string) error {
	return f(text)
}
