package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrCancelled is returned when the user leaves the menu without choosing.
var ErrCancelled = errors.New("cancelled")

// SelectorOption represents a single option in the selector
type SelectorOption struct {
	Label       string
	Description string
}

// Selector is an arrow-key menu used to pick a reminder. On a terminal it
// switches stdin to raw mode; otherwise it asks for a number.
type Selector struct {
	question string
	options  []SelectorOption
	selected int
	colored  bool
	in       io.Reader
	out      io.Writer

	cursorStyle   lipgloss.Style
	selectedStyle lipgloss.Style
	optionStyle   lipgloss.Style
	dimStyle      lipgloss.Style
	questionStyle lipgloss.Style
	hintStyle     lipgloss.Style
}

// NewSelector creates a selector reading from stdin and writing to stdout.
func NewSelector(question string, options []SelectorOption, colored bool) *Selector {
	return &Selector{
		question: question,
		options:  options,
		colored:  colored,
		in:       os.Stdin,
		out:      os.Stdout,

		cursorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
		selectedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("114")).Bold(true),
		optionStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		dimStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		questionStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true),
		hintStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
	}
}

// WithIO replaces the selector's input and output.
func (s *Selector) WithIO(in io.Reader, out io.Writer) *Selector {
	s.in = in
	s.out = out
	return s
}

// Run displays the menu and returns the index of the chosen option.
func (s *Selector) Run() (int, error) {
	if len(s.options) == 0 {
		return 0, errors.New("nothing to choose from")
	}

	f, ok := s.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return s.runSimple()
	}
	fd := int(f.Fd())

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return s.runSimple()
	}
	defer func() {
		term.Restore(fd, oldState)
		fmt.Fprint(s.out, "\033[?25h") // Show cursor
	}()

	fmt.Fprint(s.out, "\033[?25l") // Hide cursor

	totalLines := len(s.options) + 3
	s.printMenu()

	reader := bufio.NewReader(s.in)
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return 0, err
		}

		chosen := false
		switch b {
		case 13, 10, ' ': // Enter, Space
			chosen = true
		case 3, 'q': // Ctrl+C
			s.clearMenu(totalLines)
			return 0, ErrCancelled
		case 'j':
			s.moveDown()
		case 'k':
			s.moveUp()
		case 27: // Escape sequence
			b2, _ := reader.ReadByte()
			if b2 == '[' {
				b3, _ := reader.ReadByte()
				switch b3 {
				case 'A':
					s.moveUp()
				case 'B':
					s.moveDown()
				}
			}
		default:
			if b >= '1' && b <= '9' {
				idx := int(b - '1')
				if idx < len(s.options) {
					s.selected = idx
					chosen = true
				}
			}
		}

		s.clearMenu(totalLines)
		if chosen {
			return s.selected, nil
		}
		s.printMenu()
	}
}

func (s *Selector) label(i int) string {
	opt := s.options[i]
	if opt.Description != "" {
		return opt.Label + " - " + opt.Description
	}
	return opt.Label
}

func (s *Selector) printMenu() {
	var sb strings.Builder

	if s.colored {
		sb.WriteString(s.questionStyle.Render(s.question))
	} else {
		sb.WriteString(s.question)
	}
	sb.WriteString("\r\n")

	hint := "[j/k or arrows] move  [enter] select  [q] cancel"
	if s.colored {
		sb.WriteString(s.hintStyle.Render(hint))
	} else {
		sb.WriteString(hint)
	}
	sb.WriteString("\r\n\r\n")

	for i := range s.options {
		cursor := "  "
		if i == s.selected {
			cursor = "> "
		}
		label := s.label(i)

		switch {
		case !s.colored:
			sb.WriteString(cursor + label)
		case i == s.selected:
			sb.WriteString(s.cursorStyle.Render(cursor) + s.selectedStyle.Render(label))
		default:
			sb.WriteString(s.dimStyle.Render(cursor) + s.optionStyle.Render(label))
		}
		sb.WriteString("\r\n")
	}

	fmt.Fprint(s.out, sb.String())
}

func (s *Selector) clearMenu(lines int) {
	for i := 0; i < lines; i++ {
		fmt.Fprint(s.out, "\033[A\033[2K\r")
	}
}

func (s *Selector) runSimple() (int, error) {
	fmt.Fprintln(s.out, s.question)
	for i := range s.options {
		fmt.Fprintf(s.out, "  [%d] %s\n", i+1, s.label(i))
	}
	fmt.Fprint(s.out, "Enter number: ")

	input, err := bufio.NewReader(s.in).ReadString('\n')
	if err != nil && input == "" {
		return 0, ErrCancelled
	}

	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 1 || n > len(s.options) {
		return 0, ErrCancelled
	}
	return n - 1, nil
}

func (s *Selector) moveUp() {
	if s.selected > 0 {
		s.selected--
	} else {
		s.selected = len(s.options) - 1
	}
}

func (s *Selector) moveDown() {
	if s.selected < len(s.options)-1 {
		s.selected++
	} else {
		s.selected = 0
	}
}
