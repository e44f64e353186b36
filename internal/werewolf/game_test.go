package werewolf

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// idleConfig keeps bots from moving so a started game stays on night 1.
func idleConfig() Config {
	cfg := testConfig()
	cfg.BotDelayMin = time.Hour
	cfg.BotDelayMax = time.Hour
	return cfg
}

func TestLobbyJoinAndLeave(t *testing.T) {
	fm := newFakeMessenger()
	g, err := NewGame(Human{ID: "h", Name: "Host"}, idleConfig(), fm, nil, nil)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	defer g.Stop("done")

	line, err := g.Join(Human{ID: "a", Name: "Ann"})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !strings.Contains(line, "2 players") {
		t.Errorf("join line = %q, want the new total", line)
	}
	if _, err := g.Join(Human{ID: "a", Name: "Ann"}); !errors.Is(err, ErrDuplicateActor) {
		t.Errorf("duplicate join err = %v, want ErrDuplicateActor", err)
	}
	if _, err := g.Join(Human{ID: "skip", Name: "Sneaky"}); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("reserved id err = %v, want ErrInvalidTarget", err)
	}
	if _, err := g.Leave("nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("leave unknown err = %v, want ErrNotFound", err)
	}
	if _, err := g.Leave("a"); err != nil {
		t.Errorf("Leave: %v", err)
	}

	if err := g.ConfigureAndStart(nil, 4); err != nil {
		t.Fatalf("ConfigureAndStart: %v", err)
	}
	if _, err := g.Join(Human{ID: "late", Name: "Late"}); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("late join err = %v, want ErrAlreadyStarted", err)
	}
	if _, err := g.Leave("h"); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("leave after start err = %v, want ErrAlreadyStarted", err)
	}
	if err := g.ConfigureAndStart(nil, 4); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second start err = %v, want ErrAlreadyStarted", err)
	}
}

func TestConfigureAndStartFillsWithBots(t *testing.T) {
	fm := newFakeMessenger()
	g, err := NewGame(Human{ID: "h", Name: "Host"}, idleConfig(), fm, nil, nil)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	defer g.Stop("done")

	if err := g.ConfigureAndStart([]Role{RoleSeer, RoleWitch}, 6); err != nil {
		t.Fatalf("ConfigureAndStart: %v", err)
	}
	snap := g.Snapshot("h")
	if len(snap.Players) != 6 {
		t.Fatalf("players = %d, want 6", len(snap.Players))
	}
	bots := 0
	for _, p := range snap.Players {
		if p.Bot {
			bots++
		}
	}
	if bots != 5 {
		t.Errorf("bots = %d, want 5", bots)
	}
	if snap.You == nil || snap.You.Role == "" {
		t.Errorf("host does not see their own role: %+v", snap.You)
	}
	if snap.Day != 1 {
		t.Errorf("day = %d, want 1", snap.Day)
	}

	g.Flush()
	fm.mu.Lock()
	dms := fm.dms["h"]
	fm.mu.Unlock()
	if len(dms) == 0 || !strings.HasPrefix(dms[0], "You are the ") {
		t.Errorf("host was not told their role: %v", dms)
	}
}

func TestSinglePlayerGameEndsAtOnce(t *testing.T) {
	fm := newFakeMessenger()
	stats := &fakeStats{}
	g, err := NewGame(Human{ID: "h", Name: "Host"}, testConfig(), fm, nil, stats)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if err := g.ConfigureAndStart(nil, 1); err != nil {
		t.Fatalf("ConfigureAndStart: %v", err)
	}
	if g.Phase() != PhaseFinished || g.Winner() != TeamWolves {
		t.Fatalf("phase %s winner %s, want a finished wolf win", g.Phase(), g.Winner())
	}
	<-g.Done()
	if got := stats.all(); len(got) != 1 || !got[0].won {
		t.Errorf("stats = %+v, want one win for the lone wolf", got)
	}
}

func TestEventLogIsBounded(t *testing.T) {
	fm := newFakeMessenger()
	g, err := NewGame(Human{ID: "h", Name: "Host"}, testConfig(), fm, nil, nil)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	defer g.Stop("done")

	for i := range 15 {
		if _, err := g.Join(Human{ID: fmt.Sprint(i), Name: fmt.Sprintf("P%d", i)}); err != nil {
			t.Fatalf("Join: %v", err)
		}
	}
	events := g.Events()
	if len(events) != 10 {
		t.Fatalf("events = %d, want 10", len(events))
	}
	if !strings.Contains(events[9], "P14") {
		t.Errorf("newest event = %q, want the last join", events[9])
	}
}

func TestStopRecordsNoStats(t *testing.T) {
	fm := newFakeMessenger()
	stats := &fakeStats{}
	g, _ := newTestGame(t, fm, stats, human(RoleWolf), human(RoleSeer), human(RoleVillager), human(RoleVillager))
	startNight(g)
	ch := g.Subscribe()

	if err := g.Stop("host left"); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := g.Stop("again"); !errors.Is(err, ErrGameOver) {
		t.Errorf("second Stop err = %v, want ErrGameOver", err)
	}
	if _, err := g.SubmitNightAction("p0", NightAction{Type: ActionKill, Target: "Dave"}); !errors.Is(err, ErrGameOver) {
		t.Errorf("action after stop err = %v, want ErrGameOver", err)
	}
	<-g.Done()

	if got := stats.all(); len(got) != 0 {
		t.Errorf("stats recorded on stop: %+v", got)
	}
	for _, id := range []string{"p0", "p1", "p2", "p3"} {
		if muted, _ := fm.isMuted(id); muted {
			t.Errorf("%s still muted after stop", id)
		}
	}
	for range ch {
	}
}

func TestWolfGroupCreatedAndTornDown(t *testing.T) {
	fm := newFakeMessenger()
	g, err := NewGame(Human{ID: "h", Name: "Host"}, testConfig(), fm, nil, nil)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	g.mu.Lock()
	for _, id := range []string{"x", "y"} {
		g.roster.add(Human{ID: id, Name: strings.ToUpper(id)})
	}
	for i, a := range g.roster.All() {
		a.Role = []Role{RoleWolf, RoleWolf, RoleVillager}[i]
	}
	g.discloseRolesLocked()
	g.mu.Unlock()
	g.Flush()

	fm.mu.Lock()
	groups := len(fm.groups)
	fm.mu.Unlock()
	if groups != 1 {
		t.Fatalf("groups = %d, want the wolf group", groups)
	}

	g.Stop("done")
	<-g.Done()
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if len(fm.torn) != 1 {
		t.Errorf("torn down %d groups, want 1", len(fm.torn))
	}
}

func TestSnapshotHidesSecrets(t *testing.T) {
	fm := newFakeMessenger()
	g, _ := newTestGame(t, fm, nil, human(RoleWolf), human(RoleWolf), human(RoleSeer), human(RoleVillager), human(RoleVillager))
	startNight(g)

	villager := g.Snapshot("p3")
	for _, p := range villager.Players {
		if p.ID != "p3" && p.Role != "" {
			t.Errorf("villager sees %s's role %s", p.Name, p.Role)
		}
	}
	if len(villager.Pack) != 0 {
		t.Errorf("villager sees the pack")
	}

	wolf := g.Snapshot("p0")
	if len(wolf.Pack) != 2 {
		t.Errorf("pack = %v, want both wolves", wolf.Pack)
	}
	for _, p := range wolf.Players {
		if p.ID == "p1" && p.Role != "Werewolf" {
			t.Errorf("wolf cannot see their packmate")
		}
		if p.ID == "p2" && p.Role != "" {
			t.Errorf("wolf sees the seer")
		}
	}
}

func TestFullGameWithBotsFinishes(t *testing.T) {
	fm := newFakeMessenger()
	fm.setUnreachable("h")
	stats := &fakeStats{}
	cfg := testConfig()
	cfg.NightTimeout = 100 * time.Millisecond
	cfg.DayVoteTimeout = 100 * time.Millisecond
	cfg.HunterTimeout = 20 * time.Millisecond
	cfg.Rand = rand.New(rand.NewPCG(42, 42))

	g, err := NewGame(Human{ID: "h", Name: "Host"}, cfg, fm, nil, stats)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if err := g.ConfigureAndStart([]Role{RoleSeer, RoleWitch, RoleHunter, RoleCupid}, 8); err != nil {
		t.Fatalf("ConfigureAndStart: %v", err)
	}

	select {
	case <-g.Done():
	case <-time.After(30 * time.Second):
		g.Stop("test timeout")
		t.Fatalf("game did not finish; events: %v", g.Events())
	}
	if g.Winner() == TeamNone {
		t.Fatalf("finished without a winner")
	}
	got := stats.all()
	if len(got) != 1 || got[0].id != "h" {
		t.Errorf("stats = %+v, want one record for the host", got)
	}
}

func TestManagerRoutesActors(t *testing.T) {
	fm := newFakeMessenger()
	m := NewManager(testConfig(), fm, nil, nil)

	g, err := m.CreateLobby(Human{ID: "h", Name: "Host"})
	if err != nil {
		t.Fatalf("CreateLobby: %v", err)
	}
	if _, err := m.CreateLobby(Human{ID: "h", Name: "Host"}); !errors.Is(err, ErrAlreadyInGame) {
		t.Errorf("second lobby err = %v, want ErrAlreadyInGame", err)
	}
	if _, _, err := m.Join(g.ID, Human{ID: "a", Name: "Ann"}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, _, err := m.Join("missing", Human{ID: "b", Name: "Ben"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("join missing err = %v, want ErrNotFound", err)
	}
	if found, ok := m.GameFor("a"); !ok || found != g {
		t.Errorf("GameFor(a) did not find the lobby")
	}

	m.StopAll("shutdown")
	waitFor(t, "the stopped game to be forgotten", func() bool {
		_, ok := m.Get(g.ID)
		return !ok
	})
}

func TestConfigDelayDefaults(t *testing.T) {
	d := DefaultConfig()
	tests := []struct {
		name     string
		min, max time.Duration
		wantMin  time.Duration
		wantMax  time.Duration
	}{
		{"unset takes the defaults", 0, 0, d.BotDelayMin, d.BotDelayMax},
		{"negative stays off", -1, -1, -1, -1},
		{"max below min is raised", 3 * time.Second, time.Second, 3 * time.Second, 3 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{BotDelayMin: tt.min, BotDelayMax: tt.max}.withDefaults()
			if c.BotDelayMin != tt.wantMin || c.BotDelayMax != tt.wantMax {
				t.Errorf("delays = %v..%v, want %v..%v", c.BotDelayMin, c.BotDelayMax, tt.wantMin, tt.wantMax)
			}
		})
	}

	g := &Game{cfg: Config{BotDelayMin: -1, BotDelayMax: -1}.withDefaults()}
	g.rng = g.cfg.Rand
	if got := g.botDelayLocked(); got != 0 {
		t.Errorf("disabled delay = %v, want 0", got)
	}
}

func TestTwoPlayerGamePlaysANight(t *testing.T) {
	fm := newFakeMessenger()
	g, err := NewGame(Human{ID: "h", Name: "Host"}, idleConfig(), fm, nil, nil)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	t.Cleanup(func() { _ = g.Stop("test over") })
	if err := g.ConfigureAndStart([]Role{RoleSeer}, 2); err != nil {
		t.Fatalf("ConfigureAndStart: %v", err)
	}
	if g.Phase() != PhaseNight {
		t.Fatalf("phase = %s, want night 1 before any win check", g.Phase())
	}
}

func TestManagerConcurrentCreateOpensOneLobby(t *testing.T) {
	fm := newFakeMessenger()
	m := NewManager(testConfig(), fm, nil, nil)
	t.Cleanup(func() { m.StopAll("test over") })

	var created atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.CreateLobby(Human{ID: "h", Name: "Host"}); err == nil {
				created.Add(1)
			} else if !errors.Is(err, ErrAlreadyInGame) {
				t.Errorf("CreateLobby: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := created.Load(); n != 1 {
		t.Errorf("%d lobbies opened for one host, want 1", n)
	}
	if n := len(m.Games()); n != 1 {
		t.Errorf("manager holds %d games, want 1", n)
	}
}
