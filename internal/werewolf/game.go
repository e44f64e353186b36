package werewolf

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase is where a game is in its lifecycle.
type Phase int

const (
	PhaseJoining Phase = iota
	PhaseNight
	PhaseDayTransition
	PhaseDay
	PhaseStopping
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseJoining:
		return "joining"
	case PhaseNight:
		return "night"
	case PhaseDayTransition:
		return "day_transition"
	case PhaseDay:
		return "day"
	case PhaseStopping:
		return "stopping"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Token identifies one phase instance. Every phase change issues a new one,
// so timers and prompts carrying an older token are ignored.
type Token uint64

// Game is one werewolf match. All exported methods are safe for concurrent
// use; state changes happen under mu and every call into the Messenger,
// Narrator or StatsSink goes through the outbox.
type Game struct {
	ID     string
	HostID string

	cfg      Config
	msg      Messenger
	narrator Narrator
	stats    StatsSink
	rng      *rand.Rand

	mu         sync.Mutex
	phase      Phase
	gen        Token
	day        int
	roster     *Roster
	night      nightState
	vote       dayState
	seerMemory map[string]Role
	cupidDone  bool
	silenced   string
	lostPowers bool
	winner     Team
	events     []string
	groups     []GroupHandle
	timer      *time.Timer
	botCount   int

	out      *outbox
	feed     *broadcaster
	ctx      context.Context
	cancel   context.CancelFunc
	onFinish func(*Game)
}

// NewGame creates a lobby hosted by host, who joins it straight away.
func NewGame(host Identity, cfg Config, msg Messenger, narrator Narrator, stats StatsSink) (*Game, error) {
	if narrator == nil {
		narrator = PlainNarrator{}
	}
	if stats == nil {
		stats = nopStats{}
	}
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	g := &Game{
		ID:         uuid.NewString(),
		HostID:     host.ExternalID(),
		cfg:        cfg,
		msg:        msg,
		narrator:   narrator,
		stats:      stats,
		rng:        cfg.Rand,
		roster:     newRoster(),
		seerMemory: make(map[string]Role),
		out:        newOutbox(),
		feed:       newBroadcaster(),
		ctx:        ctx,
		cancel:     cancel,
	}
	go func() {
		g.out.run(ctx)
		cancel()
	}()
	if _, err := g.Join(host); err != nil {
		g.out.close()
		return nil, err
	}
	log.Printf("NewGame: lobby %s opened by %s", g.ID, host.DisplayName())
	return g, nil
}

// Phase returns the current phase.
func (g *Game) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// Token returns the current phase token, for ForceTimeout.
func (g *Game) Token() Token {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen
}

// Winner returns the winning team once the game has finished.
func (g *Game) Winner() Team {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.winner
}

// Has reports whether actorID is on the roster.
func (g *Game) Has(actorID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.roster.Get(actorID)
	return ok
}

// Humans returns the identities of every non-bot actor.
func (g *Game) Humans() []Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Identity
	for _, a := range g.roster.All() {
		if !a.IsBot() {
			out = append(out, a.Identity)
		}
	}
	return out
}

// Events returns the bounded event log, oldest first.
func (g *Game) Events() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.events...)
}

// Subscribe returns a channel that receives an Event after every state
// change. The channel is closed when the game ends or on Unsubscribe.
func (g *Game) Subscribe() chan Event {
	return g.feed.subscribe()
}

// Unsubscribe stops delivery to ch and closes it.
func (g *Game) Unsubscribe(ch chan Event) {
	g.feed.unsubscribe(ch)
}

// Done is closed once every queued collaborator call has run after the game
// finished.
func (g *Game) Done() <-chan struct{} {
	return g.out.done
}

// Flush blocks until every collaborator call queued so far has run.
func (g *Game) Flush() {
	g.out.flush()
}

func (g *Game) publishLocked(kind string) {
	g.feed.publish(Event{GameID: g.ID, Kind: kind, Phase: g.phase, Day: g.day})
}

func (g *Game) logEventLocked(line string) {
	g.events = append(g.events, line)
	if over := len(g.events) - g.cfg.EventLogSize; over > 0 {
		g.events = append([]string(nil), g.events[over:]...)
	}
	g.cfg.Debugf("game %s: %s", g.ID, line)
}

// announceLocked logs line and queues it for everyone, narrated.
func (g *Game) announceLocked(line string) {
	g.logEventLocked(line)
	g.out.push(func(ctx context.Context) {
		n := g.narrator.Narrate(ctx, line)
		if n.Text == "" {
			n.Text = line
		}
		if err := g.msg.Announce(ctx, g.ID, n.Text); err != nil {
			log.Printf("announce: game %s: %v", g.ID, err)
		}
		g.pause(ctx, n.Playback)
	})
}

// noticeLocked queues a plain announcement that is not narrated or logged.
func (g *Game) noticeLocked(text string) {
	g.out.push(func(ctx context.Context) {
		if err := g.msg.Announce(ctx, g.ID, text); err != nil {
			log.Printf("notice: game %s: %v", g.ID, err)
		}
	})
}

// dmLocked queues a private message. A failure during the night marks the
// actor unreachable for the rest of that night.
func (g *Game) dmLocked(a *Actor, text string) {
	if a.IsBot() {
		return
	}
	id, token := a.Identity, g.gen
	g.out.push(func(ctx context.Context) {
		err := g.msg.DirectMessage(ctx, id, text)
		if err == nil {
			return
		}
		log.Printf("dm: game %s: %s: %v", g.ID, id.DisplayName(), err)
		if errors.Is(err, ErrUnreachable) {
			g.markUnreachable(id.ExternalID(), token)
		}
	})
}

func (g *Game) pause(ctx context.Context, d time.Duration) {
	if d <= 0 || g.cfg.NarrationPauseMax < 0 {
		return
	}
	d = min(d, g.cfg.NarrationPauseMax)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// armTimerLocked schedules ForceTimeout for the current phase token.
func (g *Game) armTimerLocked(d time.Duration) {
	g.stopTimerLocked()
	if d <= 0 {
		return
	}
	token := g.gen
	g.timer = time.AfterFunc(d, func() {
		if err := g.ForceTimeout(token); err != nil && !errors.Is(err, ErrCancelled) {
			log.Printf("timer: game %s: %v", g.ID, err)
		}
	})
}

func (g *Game) stopTimerLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

// requirePhaseLocked returns ErrGameOver once the game ended, or wrong when
// the game is anywhere but want.
func (g *Game) requirePhaseLocked(want Phase, wrong error) error {
	switch {
	case g.phase == PhaseFinished || g.phase == PhaseStopping:
		return ErrGameOver
	case g.phase != want:
		return wrong
	}
	return nil
}

// sleep waits d or until the game's context ends. It reports false in the
// latter case.
func (g *Game) sleep(d time.Duration) bool {
	if d <= 0 {
		return g.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-g.ctx.Done():
		return false
	}
}

func (g *Game) nameOf(id string) string {
	if a, ok := g.roster.Get(id); ok {
		return a.Name()
	}
	return id
}
