package werewolf

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeMessenger records every call. Actors listed in unreachable fail DMs
// and prompts; answers scripts PresentChoice replies per actor id.
type fakeMessenger struct {
	mu          sync.Mutex
	announced   []string
	dms         map[string][]string
	prompts     map[string][]string
	muted       map[string]bool
	groups      map[GroupHandle][]string
	torn        []GroupHandle
	unreachable map[string]bool
	answers     map[string]string
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		dms:         make(map[string][]string),
		prompts:     make(map[string][]string),
		muted:       make(map[string]bool),
		groups:      make(map[GroupHandle][]string),
		unreachable: make(map[string]bool),
		answers:     make(map[string]string),
	}
}

func (f *fakeMessenger) Announce(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announced = append(f.announced, text)
	return nil
}

func (f *fakeMessenger) DirectMessage(_ context.Context, actor Identity, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable[actor.ExternalID()] {
		return ErrUnreachable
	}
	f.dms[actor.ExternalID()] = append(f.dms[actor.ExternalID()], text)
	return nil
}

func (f *fakeMessenger) PresentChoice(ctx context.Context, actor Identity, prompt string, _ []Option, timeout time.Duration) (string, error) {
	f.mu.Lock()
	id := actor.ExternalID()
	f.prompts[id] = append(f.prompts[id], prompt)
	answer, scripted := f.answers[id]
	unreachable := f.unreachable[id]
	f.mu.Unlock()

	if unreachable {
		return "", ErrUnreachable
	}
	if scripted {
		return answer, nil
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-t.C:
		return "", ErrTimedOut
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *fakeMessenger) CreatePrivateGroup(_ context.Context, _, name string, members []Identity) (GroupHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := GroupHandle(fmt.Sprintf("%s-%d", name, len(f.groups)))
	for _, m := range members {
		f.groups[h] = append(f.groups[h], m.ExternalID())
	}
	return h, nil
}

func (f *fakeMessenger) SetMuted(_ context.Context, actor Identity, muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted[actor.ExternalID()] = muted
	return nil
}

func (f *fakeMessenger) Teardown(_ context.Context, h GroupHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.torn = append(f.torn, h)
	return nil
}

func (f *fakeMessenger) setUnreachable(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreachable[id] = true
}

func (f *fakeMessenger) answer(id, choice string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[id] = choice
}

func (f *fakeMessenger) promptedWith(id, substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.prompts[id] {
		if strings.Contains(p, substr) {
			return true
		}
	}
	return false
}

func (f *fakeMessenger) isMuted(id string) (muted, known bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	muted, known = f.muted[id]
	return muted, known
}

type outcome struct {
	id  string
	won bool
}

type fakeStats struct {
	mu       sync.Mutex
	outcomes []outcome
}

func (s *fakeStats) RecordOutcome(_ context.Context, id, _ string, won bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome{id, won})
	return nil
}

func (s *fakeStats) all() []outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outcome(nil), s.outcomes...)
}

func testConfig() Config {
	return Config{
		NightTimeout:      time.Hour,
		DayVoteTimeout:    time.Hour,
		HunterTimeout:     50 * time.Millisecond,
		BotDelayMin:       -1,
		BotDelayMax:       -1,
		NarrationPauseMax: -1,
		Rand:              rand.New(rand.NewPCG(1, 2)),
	}
}

var testNames = []string{"Alice", "Bob", "Carol", "Dave", "Erin", "Frank", "Grace", "Heidi", "Ivan", "Judy"}

type seat struct {
	role Role
	bot  bool
}

func human(r Role) seat { return seat{role: r} }
func bot(r Role) seat   { return seat{role: r, bot: true} }

// newTestGame seats one actor per seat, in order, with the given roles.
// Humans get ids "p0", "p1", ...; bots "b0", "b1", .... The game is left
// in the lobby phase with roles dealt; call startNight or startDay.
func newTestGame(t *testing.T, fm *fakeMessenger, stats StatsSink, seats ...seat) (*Game, []*Actor) {
	t.Helper()
	var ids []Identity
	for i, s := range seats {
		if s.bot {
			ids = append(ids, Bot{ID: fmt.Sprintf("b%d", i), Name: testNames[i]})
		} else {
			ids = append(ids, Human{ID: fmt.Sprintf("p%d", i), Name: testNames[i]})
		}
	}
	g, err := NewGame(ids[0], testConfig(), fm, nil, stats)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	for _, id := range ids[1:] {
		if _, err := g.Join(id); err != nil {
			t.Fatalf("Join %s: %v", id.DisplayName(), err)
		}
	}
	g.mu.Lock()
	actors := g.roster.All()
	for i, a := range actors {
		a.Role = seats[i].role
		a.HealPotion = a.Role == RoleWitch
		a.KillPotion = a.Role == RoleWitch
	}
	g.mu.Unlock()
	t.Cleanup(func() { _ = g.Stop("test over") })
	return g, actors
}

func startNight(g *Game) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.startNightLocked()
}

func startDay(g *Game) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.day = 1
	g.night = newNightState()
	g.openDayLocked()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitPhase(t *testing.T, g *Game, want Phase) {
	t.Helper()
	waitFor(t, "phase "+want.String(), func() bool { return g.Phase() == want })
}

func alive(g *Game, a *Actor) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return a.Alive
}

func eventsContain(g *Game, substr string) bool {
	for _, e := range g.Events() {
		if strings.Contains(strings.ToLower(e), strings.ToLower(substr)) {
			return true
		}
	}
	return false
}
