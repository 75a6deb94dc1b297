// Package display provides text displays for the control loop status lines.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/itohio/gobioreactor/pkg/device"
)

// Rows is the number of text rows of the status display.
const Rows = 2

// Buffer is an in-memory display. Drawn lines become visible on Present.
type Buffer struct {
	mu      sync.RWMutex
	pending [Rows]string
	shown   [Rows]string
	frames  int
}

// NewBuffer creates an empty display buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Clear blanks the pending frame.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = [Rows]string{}
}

// DrawLine sets a row of the pending frame. Rows outside the display are ignored.
func (b *Buffer) DrawLine(text string, row int) {
	if row < 0 || row >= Rows {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[row] = text
}

// Present makes the pending frame visible.
func (b *Buffer) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shown = b.pending
	b.frames++
	return nil
}

// Lines returns the visible rows.
func (b *Buffer) Lines() [Rows]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.shown
}

// Frames returns how many times Present was called.
func (b *Buffer) Frames() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.frames
}

// Console writes the status lines to a writer whenever they change.
type Console struct {
	Buffer

	w    io.Writer
	last string
}

// NewConsole creates a console display writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Present writes the frame as one "row0 | row1" line when it differs from the last one.
func (c *Console) Present() error {
	if err := c.Buffer.Present(); err != nil {
		return err
	}

	lines := c.Lines()
	text := strings.Join(lines[:], " | ")

	c.mu.Lock()
	defer c.mu.Unlock()
	if text == c.last {
		return nil
	}
	if _, err := fmt.Fprintln(c.w, text); err != nil {
		return fmt.Errorf("failed to write display: %w", err)
	}
	c.last = text
	return nil
}

var (
	_ device.Display = (*Buffer)(nil)
	_ device.Display = (*Console)(nil)
)
