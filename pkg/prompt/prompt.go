// Package prompt asks the operator questions on the terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var (
	// ErrAborted is returned when the operator ends input (Ctrl-D) or the
	// run is interrupted while waiting for an answer.
	ErrAborted = errors.New("aborted by operator")

	// ErrNotInteractive is returned when an answer is required but stdin
	// is not a terminal.
	ErrNotInteractive = errors.New("input required but stdin is not a terminal")
)

// Prompter is the interactive collaborator used by the identity resolver.
type Prompter interface {
	Input(ctx context.Context, question string) (string, error)
	Confirm(ctx context.Context, question string, defaultYes bool) (bool, error)
}

// Terminal reads answers line by line from an input stream.
type Terminal struct {
	reader      *bufio.Reader
	out         io.Writer
	interactive bool
}

// NewTerminal creates a Terminal bound to the process stdin and stdout.
func NewTerminal() *Terminal {
	return &Terminal{
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// NewReaderTerminal creates a Terminal reading from r and echoing questions to
// out. It always counts as interactive.
func NewReaderTerminal(r io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		reader:      bufio.NewReader(r),
		out:         out,
		interactive: true,
	}
}

// Input prints question and returns the trimmed answer.
func (t *Terminal) Input(ctx context.Context, question string) (string, error) {
	if !t.interactive {
		return "", ErrNotInteractive
	}
	fmt.Fprint(t.out, question)
	return t.readLine(ctx)
}

// Confirm asks a yes/no question. An empty answer selects defaultYes.
func (t *Terminal) Confirm(ctx context.Context, question string, defaultYes bool) (bool, error) {
	if !t.interactive {
		return false, ErrNotInteractive
	}

	defaultStr := "Y/n"
	if !defaultYes {
		defaultStr = "y/N"
	}
	fmt.Fprintf(t.out, "%s [%s]: ", question, defaultStr)

	input, err := t.readLine(ctx)
	if err != nil {
		return false, err
	}

	input = strings.ToLower(input)
	if input == "" {
		return defaultYes, nil
	}
	return input == "y" || input == "yes", nil
}

type lineResult struct {
	line string
	err  error
}

// readLine blocks until a full line is read or ctx is cancelled.
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	ch := make(chan lineResult, 1)
	go func() {
		line, err := t.reader.ReadString('\n')
		ch <- lineResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrAborted
	case res := <-ch:
		if res.err != nil {
			// A final unterminated line still counts as an answer
			if errors.Is(res.err, io.EOF) && strings.TrimSpace(res.line) != "" {
				return strings.TrimSpace(res.line), nil
			}
			if errors.Is(res.err, io.EOF) {
				return "", ErrAborted
			}
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return strings.TrimSpace(res.line), nil
	}
}
