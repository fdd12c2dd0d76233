package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/shankar379/medivoice/internal/reminder"
	"github.com/shankar379/medivoice/internal/ui"
	"github.com/shankar379/medivoice/internal/voice"
)

// Console is an interactive prompt for one patient's reminders of the day.
type Console struct {
	svc       *reminder.Service
	announcer *voice.Announcer
	gateway   voice.Gateway
	patientID string
	language  string
	logger    *zap.Logger

	rl        *readline.Instance
	out       io.Writer
	formatter *ui.Formatter
	spinner   *ui.Spinner
	pick      func(question string, options []ui.SelectorOption) (int, error)

	today       []reminder.Reminder
	assignments map[string]reminder.Assignment
}

// Options configures a Console.
type Options struct {
	PatientID string
	Colored   bool
	Location  *time.Location
	Out       io.Writer
}

// New creates a Console. gateway may be nil, which disables /speak.
func New(svc *reminder.Service, announcer *voice.Announcer, gateway voice.Gateway, opts Options, logger *zap.Logger) *Console {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Console{
		svc:         svc,
		announcer:   announcer,
		gateway:     gateway,
		patientID:   opts.PatientID,
		logger:      logger,
		out:         opts.Out,
		formatter:   ui.NewFormatter(opts.Colored, opts.Location),
		spinner:     ui.NewSpinner(opts.Out, opts.Colored),
		assignments: make(map[string]reminder.Assignment),
	}
	c.pick = func(question string, options []ui.SelectorOption) (int, error) {
		return ui.NewSelector(question, options, opts.Colored).Run()
	}
	return c
}

// Start runs the prompt until the user quits or input ends.
func (c *Console) Start(ctx context.Context) error {
	rl, err := setupReadline(c.formatter.FormatPrompt())
	if err != nil {
		return fmt.Errorf("failed to setup readline: %w", err)
	}
	c.rl = rl
	defer c.rl.Close()
	defer c.stopSpeaking()

	c.displayWelcome(ctx)
	if err := c.handleCommand(ctx, "/today", ""); err != nil {
		c.displayError(err)
	}

	for {
		input, err := c.readInput()
		if err != nil {
			if isEOF(err) {
				fmt.Fprintln(c.out, "\nGoodbye!")
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		if input == "" {
			continue
		}

		isCommand, command, args := parseCommand(input)
		if !isCommand {
			// A bare number speaks that reminder.
			if _, err := strconv.Atoi(input); err == nil {
				command, args = "/speak", input
			} else {
				c.displayError(fmt.Errorf("unknown input %q (type /help for commands)", input))
				continue
			}
		}

		if command == "/quit" || command == "/exit" || command == "/q" {
			fmt.Fprintln(c.out, "\nGoodbye!")
			return nil
		}

		if err := c.handleCommand(ctx, command, args); err != nil {
			c.displayError(err)
		}
	}
}

// Stop closes the prompt.
func (c *Console) Stop() {
	if c.rl != nil {
		c.rl.Close()
	}
}

func (c *Console) handleCommand(ctx context.Context, command, args string) error {
	switch command {
	case "/help", "/h":
		c.displayHelp()
		return nil

	case "/today", "/t":
		if err := c.refresh(ctx); err != nil {
			return err
		}
		c.displayToday()
		return nil

	case "/take":
		return c.transition(ctx, args, reminder.ActionTaken)

	case "/snooze":
		return c.transition(ctx, args, reminder.ActionSnoozed)

	case "/speak", "/s":
		r, err := c.choose(ctx, args, "Which reminder should be spoken?")
		if err != nil {
			return err
		}
		return c.speak(ctx, r)

	case "/stop":
		c.stopSpeaking()
		c.displaySystem("Stopped.")
		return nil

	case "/lang":
		return c.setLanguage(args)

	default:
		return fmt.Errorf("unknown command: %s (type /help for available commands)", command)
	}
}

func (c *Console) refresh(ctx context.Context) error {
	today, err := c.svc.TodayReminders(ctx, c.patientID)
	if err != nil {
		return fmt.Errorf("failed to load today's reminders: %w", err)
	}
	for _, r := range today {
		if _, ok := c.assignments[r.AssignmentID]; ok {
			continue
		}
		a, err := c.svc.GetAssignment(ctx, r.AssignmentID)
		if err != nil {
			c.logger.Warn("assignment missing for reminder",
				zap.String("reminder_id", r.ID), zap.Error(err))
			continue
		}
		c.assignments[a.ID] = *a
	}
	c.today = today
	return nil
}

// choose resolves a 1-based index argument against the last listed
// reminders, or opens a menu when no index is given.
func (c *Console) choose(ctx context.Context, args, question string) (reminder.Reminder, error) {
	if c.today == nil {
		if err := c.refresh(ctx); err != nil {
			return reminder.Reminder{}, err
		}
	}
	if len(c.today) == 0 {
		return reminder.Reminder{}, fmt.Errorf("no pending reminders today")
	}

	if args == "" {
		options := make([]ui.SelectorOption, len(c.today))
		for i, r := range c.today {
			options[i] = ui.SelectorOption{Label: c.formatter.FormatReminder(i+1, r, c.assignment(r))}
		}
		idx, err := c.pick(question, options)
		if err != nil {
			return reminder.Reminder{}, err
		}
		return c.today[idx], nil
	}

	n, err := strconv.Atoi(args)
	if err != nil || n < 1 || n > len(c.today) {
		return reminder.Reminder{}, fmt.Errorf("choose a number between 1 and %d", len(c.today))
	}
	return c.today[n-1], nil
}

func (c *Console) assignment(r reminder.Reminder) *reminder.Assignment {
	if a, ok := c.assignments[r.AssignmentID]; ok {
		return &a
	}
	return nil
}

func (c *Console) transition(ctx context.Context, args string, action reminder.Action) error {
	question := "Which reminder was taken?"
	if action == reminder.ActionSnoozed {
		question = "Which reminder should be snoozed?"
	}
	r, err := c.choose(ctx, args, question)
	if err != nil {
		return err
	}

	updated, err := c.svc.ApplyTransition(ctx, r.ID, action)
	if err != nil {
		return err
	}

	name := r.AssignmentID
	if a := c.assignment(r); a != nil {
		name = a.MedicineName
	}
	switch updated.Status {
	case reminder.StatusTaken:
		c.displaySuccess(fmt.Sprintf("%s marked as taken.", name))
	case reminder.StatusSnoozed:
		c.displaySystem(fmt.Sprintf("%s snoozed (%d).", name, updated.SnoozeCount))
	}

	if err := c.refresh(ctx); err != nil {
		return err
	}
	c.displayToday()
	return nil
}

func (c *Console) speak(ctx context.Context, r reminder.Reminder) error {
	if c.gateway == nil {
		return fmt.Errorf("voice playback is not configured")
	}

	ann, err := c.announcer.ForAssignment(ctx, r.AssignmentID, "", c.language)
	if err != nil {
		return err
	}
	c.displayInfo(ann.Text)

	done := make(chan error, 1)
	c.spinner.Start("Speaking...")
	c.gateway.Speak(ann.Text, ann.Settings, func(err error) { done <- err })

	select {
	case err := <-done:
		if errors.Is(err, voice.ErrStopped) {
			c.spinner.StopWithMessage("Stopped.")
			return nil
		}
		if err != nil {
			c.spinner.StopWithError(err.Error())
			return nil
		}
	case <-ctx.Done():
		c.stopSpeaking()
		return ctx.Err()
	}

	if !ann.Settings.Enabled {
		c.spinner.StopWithMessage("Voice is disabled for this patient.")
		return nil
	}
	c.spinner.Stop()
	if err := c.svc.MarkVoicePlayed(ctx, r.ID); err != nil {
		return fmt.Errorf("failed to record playback: %w", err)
	}
	return nil
}

func (c *Console) stopSpeaking() {
	if c.gateway != nil {
		c.gateway.Stop()
	}
	c.spinner.Stop()
}

func (c *Console) setLanguage(args string) error {
	if args == "" {
		return fmt.Errorf("usage: /lang <%s>", joinLanguages())
	}
	if !voice.Supported(args) {
		return fmt.Errorf("unsupported language %q (available: %s)", args, joinLanguages())
	}
	c.language = args
	c.displaySystem("Voice language set to " + args + ".")
	return nil
}
