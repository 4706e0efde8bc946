package wire

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/freeeve/cellwar/pkg/conquest"
)

// Writer emits one order line per round.
type Writer struct {
	w *bufio.Writer
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// FormatRound renders orders and an optional diagnostic message as one
// semicolon-separated line, without the newline. An empty round is WAIT.
func FormatRound(orders []conquest.Order, msg string) string {
	parts := make([]string, 0, len(orders)+1)
	for _, o := range orders {
		parts = append(parts, o.String())
	}
	if msg = strings.ReplaceAll(msg, ";", ","); msg != "" {
		parts = append(parts, "MSG "+msg)
	}
	if len(parts) == 0 {
		return "WAIT"
	}
	return strings.Join(parts, ";")
}

// WriteRound writes the round's line and flushes it. The referee does not
// send the next observation until it has the line.
func (w *Writer) WriteRound(orders []conquest.Order, msg string) error {
	if _, err := fmt.Fprintln(w.w, FormatRound(orders, msg)); err != nil {
		return fmt.Errorf("wire: write orders: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("wire: flush orders: %w", err)
	}
	return nil
}
