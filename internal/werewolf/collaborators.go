package werewolf

import (
	"context"
	"time"
)

// Option is one entry of a choice prompt.
type Option struct {
	ID    string
	Label string
}

// GroupHandle identifies a private group created by the Messenger.
type GroupHandle string

// Messenger delivers everything the engine says to humans. Bots are never
// passed to it.
type Messenger interface {
	Announce(ctx context.Context, gameID, text string) error
	// DirectMessage fails with ErrUnreachable when the actor cannot be
	// reached privately.
	DirectMessage(ctx context.Context, actor Identity, text string) error
	// PresentChoice blocks until the actor picks an option id, timeout
	// elapses (ErrTimedOut) or ctx is done.
	PresentChoice(ctx context.Context, actor Identity, prompt string, options []Option, timeout time.Duration) (string, error)
	CreatePrivateGroup(ctx context.Context, gameID, name string, members []Identity) (GroupHandle, error)
	SetMuted(ctx context.Context, actor Identity, muted bool) error
	Teardown(ctx context.Context, handle GroupHandle) error
}

// Narration is a rendering of an announcement plus how long it takes to play.
type Narration struct {
	Text     string
	Playback time.Duration
}

// Narrator turns plain announcements into flavoured text. It never fails;
// implementations fall back to the plain text.
type Narrator interface {
	Narrate(ctx context.Context, text string) Narration
}

// StatsSink records the end of a finished game per human actor.
type StatsSink interface {
	RecordOutcome(ctx context.Context, actorID, name string, won bool) error
}

// PlainNarrator returns the text unchanged with no playback time.
type PlainNarrator struct{}

func (PlainNarrator) Narrate(_ context.Context, text string) Narration {
	return Narration{Text: text}
}

type nopStats struct{}

func (nopStats) RecordOutcome(context.Context, string, string, bool) error { return nil }
