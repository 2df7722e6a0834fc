package ui

import (
	"fmt"
	"io"

	"github.com/desertthunder/synclify/internal/tasks"
)

// RenderProgress formats an update as a single status line.
func RenderProgress(p *Palette, update tasks.ProgressUpdate) string {
	label := fmt.Sprintf("%-16s", update.Phase.String())
	if update.Total > 0 {
		label = fmt.Sprintf("%-16s %d/%d", update.Phase.String(), update.Step, update.Total)
	}
	return fmt.Sprintf("%s %s", p.Help(label), update.Message)
}

// WatchProgress prints updates until progress is closed. The returned channel closes once every
// update was written.
func WatchProgress(w io.Writer, p *Palette, progress <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			fmt.Fprintln(w, RenderProgress(p, update))
		}
	}()
	return done
}
