package voice

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultCommand is the text-to-speech program used when none is configured.
const DefaultCommand = "espeak-ng"

// CommandSynthesizer speaks through an external espeak-compatible program.
type CommandSynthesizer struct {
	Command string
	Args    []string
}

// Synthesize runs the command and waits for it to exit. Cancelling ctx
// kills the process.
func (c CommandSynthesizer) Synthesize(ctx context.Context, text string, s Settings) error {
	name := c.Command
	if name == "" {
		name = DefaultCommand
	}

	args := append([]string{}, c.Args...)
	args = append(args, espeakFlags(s)...)
	args = append(args, text)

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

// espeakFlags maps settings onto espeak voice, amplitude, speed and pitch.
// Amplitude is 0-200 with 100 normal, speed is words per minute around
// 175, pitch is 0-99 around 50.
func espeakFlags(s Settings) []string {
	voiceName := espeakVoice(s.Language)
	switch s.VoiceType {
	case VoiceFemale:
		voiceName += "+f3"
	case VoiceMale:
		voiceName += "+m3"
	}

	amplitude := clampInt(int(s.Volume*100), 0, 200)
	speed := clampInt(int(175*orOne(s.Rate)), 80, 450)
	pitch := clampInt(int(50*orOne(s.Pitch)), 0, 99)

	return []string{
		"-v", voiceName,
		"-a", strconv.Itoa(amplitude),
		"-s", strconv.Itoa(speed),
		"-p", strconv.Itoa(pitch),
	}
}

// espeakVoice reduces a BCP 47 tag such as "hi-IN" to espeak's "hi".
func espeakVoice(lang string) string {
	if !Supported(lang) {
		lang = DefaultLanguage
	}
	if i := strings.IndexByte(lang, '-'); i > 0 {
		return strings.ToLower(lang[:i])
	}
	return strings.ToLower(lang)
}

func orOne(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
