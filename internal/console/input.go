package console

import (
	"errors"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/shankar379/medivoice/internal/voice"
)

func (c *Console) readInput() (string, error) {
	line, err := c.rl.Readline()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(line), nil
}

func parseCommand(input string) (bool, string, string) {
	if !strings.HasPrefix(input, "/") {
		return false, "", ""
	}

	parts := strings.SplitN(input, " ", 2)
	command := strings.ToLower(parts[0])

	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	return true, command, args
}

func setupReadline(prompt string) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:              prompt,
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("/today"),
			readline.PcItem("/take"),
			readline.PcItem("/snooze"),
			readline.PcItem("/speak"),
			readline.PcItem("/stop"),
			readline.PcItem("/lang", languageItems()...),
			readline.PcItem("/help"),
			readline.PcItem("/quit"),
		),
	})
}

func languageItems() []readline.PrefixCompleterInterface {
	langs := voice.Languages()
	items := make([]readline.PrefixCompleterInterface, len(langs))
	for i, l := range langs {
		items[i] = readline.PcItem(l)
	}
	return items
}

func joinLanguages() string {
	return strings.Join(voice.Languages(), "|")
}

func filterInput(r rune) (rune, bool) {
	switch r {
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt)
}
