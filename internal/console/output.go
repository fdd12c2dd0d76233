package console

import (
	"context"
	"fmt"

	"github.com/shankar379/medivoice/internal/voice"
)

func (c *Console) displayWelcome(ctx context.Context) {
	lang := c.language
	if lang == "" {
		settings, err := c.announcer.Settings(ctx, c.patientID)
		if err != nil {
			lang = voice.DefaultLanguage
		} else {
			lang = settings.Language
		}
	}
	fmt.Fprint(c.out, c.formatter.FormatWelcome(c.patientID, lang))
}

func (c *Console) displayToday() {
	if len(c.today) == 0 {
		c.displayInfo("No pending reminders today.")
		return
	}
	for i, r := range c.today {
		fmt.Fprintln(c.out, c.formatter.FormatReminder(i+1, r, c.assignment(r)))
	}
	fmt.Fprintln(c.out)
}

func (c *Console) displayError(err error) {
	c.spinner.Stop()
	fmt.Fprintln(c.out, c.formatter.FormatError(err))
	fmt.Fprintln(c.out)
}

func (c *Console) displayHelp() {
	fmt.Fprint(c.out, c.formatter.FormatHelp())
}

func (c *Console) displayInfo(msg string) {
	fmt.Fprintln(c.out, c.formatter.FormatInfo(msg))
	fmt.Fprintln(c.out)
}

func (c *Console) displaySystem(msg string) {
	fmt.Fprintln(c.out, c.formatter.FormatSystem(msg))
	fmt.Fprintln(c.out)
}

func (c *Console) displaySuccess(msg string) {
	fmt.Fprintln(c.out, c.formatter.FormatSuccess(msg))
	fmt.Fprintln(c.out)
}
