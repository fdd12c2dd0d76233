package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrStopped is reported through onDone when a playback is interrupted by
// Stop or by a newer Speak.
var ErrStopped = errors.New("playback stopped")

// Gateway speaks composed text. Speak returns immediately; onDone is called
// once when playback finishes (nil), fails (*PlaybackError) or is stopped
// (ErrStopped).
type Gateway interface {
	Speak(text string, s Settings, onDone func(error))
	Stop()
}

// Synthesizer turns text into audio and blocks until it has been played or
// ctx is cancelled.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, s Settings) error
}

// PlaybackError wraps a synthesizer failure. It is reported through onDone
// and never returned to the caller of Speak.
type PlaybackError struct {
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback failed: %v", e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// Player runs at most one playback at a time. Starting a new one stops the
// previous playback first.
type Player struct {
	synth  Synthesizer
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ Gateway = (*Player)(nil)

// NewPlayer creates a Player over synth.
func NewPlayer(synth Synthesizer, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{
		synth:  synth,
		logger: logger,
	}
}

// Speak starts speaking text with the given settings.
func (p *Player) Speak(text string, s Settings, onDone func(error)) {
	if onDone == nil {
		onDone = func(error) {}
	}

	p.mu.Lock()
	p.stopLocked()

	if !s.Enabled || strings.TrimSpace(text) == "" {
		p.mu.Unlock()
		onDone(nil)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go func() {
		err := p.synth.Synthesize(ctx, text, s)
		stopped := ctx.Err() != nil
		cancel()
		close(done)

		if stopped {
			onDone(ErrStopped)
			return
		}
		if err != nil {
			p.logger.Warn("voice playback failed",
				zap.String("language", s.Language), zap.Error(err))
			onDone(&PlaybackError{Err: err})
			return
		}
		onDone(nil)
	}()
}

// Stop interrupts the current playback, if any, and waits for the
// synthesizer to exit.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
}

// Speaking reports whether a playback is in progress.
func (p *Player) Speaking() bool {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Wait blocks until the current playback, if any, has finished.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done != nil {
		<-done
	}
}
