package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

var (
	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

// Output streams for the Print* helpers and the spinner. Tests swap them.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// ProgressStep is one step of a multi-step operation.
type ProgressStep struct {
	Message string
	Fn      func(ctx context.Context) error
}

// ShowProgress runs fn while a spinner shows message on a terminal.
// Off a terminal the message is logged and fn runs plainly.
func ShowProgress(ctx context.Context, message string, fn func(ctx context.Context) error) error {
	if !isTerminal(Stderr) {
		LogInfo("%s", message)
		return fn(ctx)
	}
	return spin(ctx, Stderr, message, fn)
}

// ShowProgressWithSteps runs steps in order, stopping at the first error.
func ShowProgressWithSteps(ctx context.Context, steps []ProgressStep) error {
	for i, step := range steps {
		msg := fmt.Sprintf("[%d/%d] %s", i+1, len(steps), step.Message)
		if err := ShowProgress(ctx, msg, step.Fn); err != nil {
			return fmt.Errorf("%s: %w", step.Message, err)
		}
	}
	return nil
}

func spin(ctx context.Context, w io.Writer, message string, fn func(ctx context.Context) error) error {
	frames := spinner.Dot
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(frames.FPS)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			case <-ticker.C:
				frame := frames.Frames[i%len(frames.Frames)]
				fmt.Fprintf(w, "\r%s %s", progressStyle.Render(frame), message)
			}
		}
	}()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	close(stop)
	wg.Wait()

	mark := successStyle.Render("✓")
	if err != nil {
		mark = errorStyle.Render("✗")
	}
	fmt.Fprintf(w, "\r%s %s\n", mark, message)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	printMark(Stdout, successStyle.Render("✓"), "", format, args...)
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	printMark(Stderr, errorStyle.Render("✗"), "", format, args...)
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	printMark(Stdout, progressStyle.Render("ℹ"), "", format, args...)
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	printMark(Stderr, warningStyle.Render("⚠"), "WARNING: ", format, args...)
}

func printMark(w io.Writer, mark, plain, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if isTerminal(w) {
		fmt.Fprintf(w, "%s %s\n", mark, msg)
		return
	}
	fmt.Fprintf(w, "%s%s\n", plain, msg)
}
