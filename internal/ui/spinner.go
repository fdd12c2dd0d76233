package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows an animated indicator while a reminder is being spoken.
type Spinner struct {
	out      io.Writer
	frames   []string
	message  string
	running  bool
	stopCh   chan struct{}
	done     chan struct{}
	mu       sync.Mutex
	style    lipgloss.Style
	msgStyle lipgloss.Style
	interval time.Duration
	colored  bool
}

// NewSpinner creates a spinner writing to out (stdout when nil).
func NewSpinner(out io.Writer, colored bool) *Spinner {
	if out == nil {
		out = os.Stdout
	}
	return &Spinner{
		out:      out,
		frames:   spinnerFrames,
		style:    lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		msgStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
		interval: 80 * time.Millisecond,
		colored:  colored,
	}
}

// Start begins the animation with a message. Calling Start on a running
// spinner only changes the message.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	go s.animate(s.stopCh, s.done)
}

// Stop stops the spinner and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	<-done
	fmt.Fprint(s.out, "\r\033[K")
}

// Running reports whether the spinner is animating.
func (s *Spinner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// StopWithMessage stops and prints a success line.
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	if s.colored {
		fmt.Fprintln(s.out, lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("✓")+" "+message)
		return
	}
	fmt.Fprintln(s.out, "✓ "+message)
}

// StopWithError stops and prints a failure line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	if s.colored {
		fmt.Fprintln(s.out, lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")+" "+message)
		return
	}
	fmt.Fprintln(s.out, "✗ "+message)
}

func (s *Spinner) animate(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()

			s.render(frame, msg)
			frame = (frame + 1) % len(s.frames)
		}
	}
}

func (s *Spinner) render(frame int, message string) {
	spinChar := s.frames[frame]
	if s.colored {
		fmt.Fprintf(s.out, "\r\033[K%s %s", s.style.Render(spinChar), s.msgStyle.Render(message))
		return
	}
	fmt.Fprintf(s.out, "\r\033[K%s %s", spinChar, message)
}
