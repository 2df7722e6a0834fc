package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/muesli/cancelreader"

	"github.com/desertthunder/synclify/internal/shared"
	"github.com/desertthunder/synclify/internal/tasks"
)

var _ tasks.UserPrompt = (*Console)(nil)

// Console prompts on a line based terminal. End of input and a cancelled context are both
// reported as [shared.ErrInterrupted]; after an interrupt every prompt fails the same way.
//
// When both ends are a terminal and Plain is false, Choose opens an interactive picker instead of
// reading a number.
type Console struct {
	in          io.Reader
	reader      *bufio.Reader
	cancel      func() bool
	interrupted bool
	out         io.Writer
	palette     *Palette
	tty         bool
	Plain       bool
}

type readResult struct {
	line string
	err  error
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{in: in, out: out, palette: PlainPalette()}

	src := in
	if f, ok := in.(*os.File); ok {
		// pollable files get a reader whose pending Read can be cancelled
		if cr, err := cancelreader.NewReader(f); err == nil {
			src, c.cancel = cr, cr.Cancel
		}
	}
	c.reader = bufio.NewReader(src)

	if isTerminal(in) && isTerminal(out) {
		c.tty = true
		c.palette = styles
	}
	return c
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Palette returns the styles used for output, plain when not attached to a terminal.
func (c *Console) Palette() *Palette { return c.palette }

// readLine waits for one line or for ctx to end, whichever comes first.
// A line that arrives after ctx ended is discarded.
func (c *Console) readLine(ctx context.Context) (string, error) {
	if c.interrupted {
		return "", shared.ErrInterrupted
	}

	done := make(chan readResult, 1)
	go func() {
		line, err := c.reader.ReadString('\n')
		done <- readResult{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", c.interrupt(ctx.Err())
	case r := <-done:
		if ctx.Err() != nil {
			return "", c.interrupt(ctx.Err())
		}
		switch {
		case r.err == nil, errors.Is(r.err, io.EOF) && r.line != "":
			return strings.TrimSpace(r.line), nil
		case errors.Is(r.err, io.EOF), errors.Is(r.err, cancelreader.ErrCanceled):
			return "", c.interrupt(nil)
		}
		return "", r.err
	}
}

func (c *Console) interrupt(cause error) error {
	c.interrupted = true
	if c.cancel != nil {
		c.cancel()
	}
	if cause == nil {
		return shared.ErrInterrupted
	}
	return fmt.Errorf("%w: %v", shared.ErrInterrupted, cause)
}

// Choose returns the 1-based index of the picked option or 0 to skip.
func (c *Console) Choose(ctx context.Context, title string, options []string) (int, error) {
	if c.interrupted {
		return 0, shared.ErrInterrupted
	}
	if c.tty && !c.Plain {
		return runPicker(ctx, title, options, c.in, c.out)
	}

	fmt.Fprintln(c.out, c.palette.Title(title))
	for i, o := range options {
		fmt.Fprintf(c.out, "  %d) %s\n", i+1, o)
	}
	for {
		fmt.Fprintf(c.out, "Choice [1-%d, 0 to skip]: ", len(options))
		line, err := c.readLine(ctx)
		if err != nil {
			return 0, err
		}
		if line == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 0 && n <= len(options) {
			return n, nil
		}
		fmt.Fprintln(c.out, c.palette.Warn(fmt.Sprintf("%q is not a valid choice", line)))
	}
}

// Confirm asks a yes/no question. An empty answer is no.
func (c *Console) Confirm(ctx context.Context, question string) (bool, error) {
	for {
		fmt.Fprintf(c.out, "%s [y/N]: ", question)
		line, err := c.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		}
		fmt.Fprintln(c.out, c.palette.Warn("please answer y or n"))
	}
}

func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprintf(c.out, "%s: ", prompt)
	return c.readLine(ctx)
}

func (c *Console) PresentTable(title string, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	if c.tty {
		t = t.StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	}

	_, err := fmt.Fprintf(c.out, "%s\n%s\n", c.palette.Title(title), t.Render())
	return err
}

// Println writes a line of output.
func (c *Console) Println(a ...any) {
	fmt.Fprintln(c.out, a...)
}
