package werewolf

import (
	"errors"
	"strings"
	"testing"
)

func TestNightCompletesOnceAllRolesActed(t *testing.T) {
	fm := newFakeMessenger()
	g, a := newTestGame(t, fm, nil, human(RoleWolf), human(RoleSeer), human(RoleVillager), human(RoleVillager))
	startNight(g)

	if _, err := g.SubmitNightAction("p0", NightAction{Type: ActionKill, Target: "carol"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if g.Phase() != PhaseNight {
		t.Fatalf("night ended before the seer acted")
	}
	reply, err := g.SubmitNightAction("p1", NightAction{Type: ActionSee, Target: "Alice"})
	if err != nil {
		t.Fatalf("see: %v", err)
	}
	if !strings.Contains(reply, "Werewolf") {
		t.Errorf("seer reply = %q, want the true role", reply)
	}

	waitPhase(t, g, PhaseDay)
	if alive(g, a[2]) {
		t.Errorf("Carol should have died to the wolves")
	}
	if !eventsContain(g, "torn apart") {
		t.Errorf("events do not mention the wolf kill: %v", g.Events())
	}
}

func TestFirstWolfVoteWins(t *testing.T) {
	fm := newFakeMessenger()
	g, _ := newTestGame(t, fm, nil,
		human(RoleWolf), human(RoleWolf), human(RoleSeer),
		human(RoleVillager), human(RoleVillager), human(RoleVillager))
	startNight(g)

	if _, err := g.SubmitNightAction("p0", NightAction{Type: ActionKill, Target: "Dave"}); err != nil {
		t.Fatalf("first kill: %v", err)
	}
	_, err := g.SubmitNightAction("p1", NightAction{Type: ActionKill, Target: "Erin"})
	if !errors.Is(err, ErrAlreadyActed) {
		t.Fatalf("second kill err = %v, want ErrAlreadyActed", err)
	}
}

func TestKillRejections(t *testing.T) {
	fm := newFakeMessenger()
	g, a := newTestGame(t, fm, nil,
		human(RoleWolf), human(RoleWolf), human(RoleSeer), human(RoleVillager), human(RoleVillager))
	startNight(g)

	g.mu.Lock()
	a[4].Alive = false
	g.mu.Unlock()

	tests := []struct {
		name   string
		actor  string
		target string
		kind   Kind
	}{
		{"wolf target", "p0", "Bob", KindInvalidTarget},
		{"dead target", "p0", "Erin", KindInvalidTarget},
		{"unknown target", "p0", "Zed", KindInvalidTarget},
		{"not a wolf", "p3", "Carol", KindRoleViolation},
		{"dead actor", "p4", "Carol", KindRoleViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.SubmitNightAction(tt.actor, NightAction{Type: ActionKill, Target: tt.target})
			if KindOf(err) != tt.kind {
				t.Errorf("err = %v (kind %s), want kind %s", err, KindOf(err), tt.kind)
			}
		})
	}
	if _, err := g.SubmitNightAction("p0", NightAction{Type: ActionKill, Target: "Erin"}); !errors.Is(err, ErrTargetDead) {
		t.Errorf("dead target err = %v, want ErrTargetDead", err)
	}
}

func TestSeerOncePerNightAndMemory(t *testing.T) {
	fm := newFakeMessenger()
	g, _ := newTestGame(t, fm, nil, human(RoleWolf), human(RoleSeer), human(RoleVillager), human(RoleVillager))
	startNight(g)

	if _, err := g.SubmitNightAction("p1", NightAction{Type: ActionSee, Target: "p2"}); err != nil {
		t.Fatalf("see: %v", err)
	}
	if _, err := g.SubmitNightAction("p1", NightAction{Type: ActionSee, Target: "p3"}); !errors.Is(err, ErrAlreadyActed) {
		t.Fatalf("second see err = %v, want ErrAlreadyActed", err)
	}
	snap := g.Snapshot("p1")
	if snap.Visions["Carol"] != "Villager" {
		t.Errorf("visions = %v, want Carol as Villager", snap.Visions)
	}
}

func TestWitchHealSavesVictim(t *testing.T) {
	fm := newFakeMessenger()
	g, a := newTestGame(t, fm, nil, human(RoleWolf), human(RoleWitch), human(RoleVillager), human(RoleVillager))
	startNight(g)

	if _, err := g.SubmitNightAction("p1", NightAction{Type: ActionHeal}); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("heal before the wolves chose: err = %v, want ErrInvalidTarget", err)
	}
	if _, err := g.SubmitNightAction("p0", NightAction{Type: ActionKill, Target: "Carol"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if _, err := g.SubmitNightAction("p1", NightAction{Type: ActionHeal}); err != nil {
		t.Fatalf("heal: %v", err)
	}

	// The heal is the witch's move; the unused poison does not hold the night open.
	waitPhase(t, g, PhaseDay)
	if !alive(g, a[2]) {
		t.Errorf("Carol should have been healed")
	}
	if !eventsContain(g, "no one died to the wolves") {
		t.Errorf("events = %v, want the no-death line", g.Events())
	}
}

func TestWitchPotionsAreSingleUse(t *testing.T) {
	fm := newFakeMessenger()
	g, a := newTestGame(t, fm, nil, human(RoleWolf), human(RoleWitch), human(RoleSeer), human(RoleVillager))
	startNight(g)

	if _, err := g.SubmitNightAction("p0", NightAction{Type: ActionKill, Target: "Dave"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	g.mu.Lock()
	a[1].HealPotion = false
	g.mu.Unlock()
	if _, err := g.SubmitNightAction("p1", NightAction{Type: ActionHeal}); KindOf(err) != KindResourceExhausted {
		t.Fatalf("heal err = %v, want resource exhausted", err)
	}
	if _, err := g.SubmitNightAction("p1", NightAction{Type: ActionPoison, Target: "Alice"}); err != nil {
		t.Fatalf("poison: %v", err)
	}
	if _, err := g.SubmitNightAction("p1", NightAction{Type: ActionPoison, Target: "Carol"}); !errors.Is(err, ErrPotionAlreadyUsed) {
		t.Fatalf("second poison err = %v, want ErrPotionAlreadyUsed", err)
	}
}

func TestPoisonKillsDespiteHeal(t *testing.T) {
	fm := newFakeMessenger()
	g, a := newTestGame(t, fm, nil,
		human(RoleWolf), human(RoleWolf), human(RoleWitch),
		human(RoleVillager), human(RoleVillager), human(RoleVillager), human(RoleSeer))
	startNight(g)

	steps := []struct {
		actor  string
		action NightAction
	}{
		{"p0", NightAction{Type: ActionKill, Target: "Dave"}},
		{"p2", NightAction{Type: ActionHeal}},
		{"p2", NightAction{Type: ActionPoison, Target: "Dave"}},
		{"p6", NightAction{Type: ActionSee, Target: "Alice"}},
	}
	for _, s := range steps {
		if _, err := g.SubmitNightAction(s.actor, s.action); err != nil {
			t.Fatalf("%s %s: %v", s.actor, s.action.Type, err)
		}
	}
	waitPhase(t, g, PhaseDay)
	if alive(g, a[3]) {
		t.Errorf("Dave should have died of poison")
	}
	if !eventsContain(g, "poisoned") {
		t.Errorf("events = %v, want a poison death", g.Events())
	}
}

func TestWitchPassClosesBothPotions(t *testing.T) {
	fm := newFakeMessenger()
	g, _ := newTestGame(t, fm, nil, human(RoleWolf), human(RoleWitch), human(RoleSeer), human(RoleVillager))
	startNight(g)

	if _, err := g.SubmitNightAction("p0", NightAction{Type: ActionKill, Target: "Dave"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if _, err := g.SubmitNightAction("p1", NightAction{Type: ActionPass}); err != nil {
		t.Fatalf("pass: %v", err)
	}
	tests := []struct {
		name   string
		action NightAction
	}{
		{"heal after pass", NightAction{Type: ActionHeal}},
		{"poison after pass", NightAction{Type: ActionPoison, Target: "Alice"}},
		{"second pass", NightAction{Type: ActionPass}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := g.SubmitNightAction("p1", tt.action); !errors.Is(err, ErrAlreadyActed) {
				t.Errorf("err = %v, want ErrAlreadyActed", err)
			}
		})
	}
	if g.Phase() != PhaseNight {
		t.Fatalf("night ended before the seer acted")
	}
	if _, err := g.SubmitNightAction("p2", NightAction{Type: ActionSee, Target: "Alice"}); err != nil {
		t.Fatalf("see: %v", err)
	}
	waitPhase(t, g, PhaseDay)
}

func TestCupidPairsOnceOnFirstNight(t *testing.T) {
	fm := newFakeMessenger()
	g, a := newTestGame(t, fm, nil, human(RoleWolf), human(RoleCupid), human(RoleSeer), human(RoleVillager))
	startNight(g)

	if _, err := g.SubmitNightAction("p1", NightAction{Type: ActionPair, Target: "Carol", Second: "Carol"}); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("self pair err = %v, want ErrInvalidTarget", err)
	}
	if _, err := g.SubmitNightAction("p1", NightAction{Type: ActionPair, Target: "Carol", Second: "Dave"}); err != nil {
		t.Fatalf("pair: %v", err)
	}
	if _, err := g.SubmitNightAction("p1", NightAction{Type: ActionPair, Target: "Alice", Second: "Dave"}); !errors.Is(err, ErrAlreadyChosen) {
		t.Fatalf("second pair err = %v, want ErrAlreadyChosen", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if a[2].LoverID != "p3" || a[3].LoverID != "p2" {
		t.Errorf("lover link not symmetric: %q / %q", a[2].LoverID, a[3].LoverID)
	}
}

func TestUnreachableHumanDoesNotBlockNight(t *testing.T) {
	fm := newFakeMessenger()
	fm.setUnreachable("p1")
	g, _ := newTestGame(t, fm, nil, human(RoleWolf), human(RoleSeer), human(RoleVillager), human(RoleVillager))
	startNight(g)
	g.Flush()

	if _, err := g.SubmitNightAction("p0", NightAction{Type: ActionKill, Target: "Dave"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	waitPhase(t, g, PhaseDay)
}

func TestBotWolfStandsInForUnreachablePack(t *testing.T) {
	fm := newFakeMessenger()
	fm.setUnreachable("p0")
	g, a := newTestGame(t, fm, nil, human(RoleWolf), bot(RoleWolf),
		human(RoleVillager), human(RoleVillager), human(RoleVillager), human(RoleVillager), human(RoleVillager))
	startNight(g)

	waitPhase(t, g, PhaseDay)
	dead := 0
	for _, x := range a[2:] {
		if !alive(g, x) {
			dead++
		}
	}
	if dead != 1 {
		t.Errorf("%d villagers died, want exactly 1", dead)
	}
}

func TestStrippedPowersSkipVillageRoles(t *testing.T) {
	fm := newFakeMessenger()
	g, _ := newTestGame(t, fm, nil, human(RoleWolf), human(RoleSeer), human(RoleWitch), human(RoleVillager), human(RoleVillager))
	g.mu.Lock()
	g.lostPowers = true
	g.mu.Unlock()
	startNight(g)

	if _, err := g.SubmitNightAction("p1", NightAction{Type: ActionSee, Target: "Alice"}); !errors.Is(err, ErrPowersStripped) {
		t.Fatalf("see err = %v, want ErrPowersStripped", err)
	}
	if _, err := g.SubmitNightAction("p0", NightAction{Type: ActionKill, Target: "Dave"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	waitPhase(t, g, PhaseDay)
}

func TestNightTimeoutAndStaleToken(t *testing.T) {
	fm := newFakeMessenger()
	g, a := newTestGame(t, fm, nil, human(RoleWolf), human(RoleSeer), human(RoleVillager), human(RoleVillager))
	startNight(g)

	token := g.Token()
	if err := g.ForceTimeout(token); err != nil {
		t.Fatalf("ForceTimeout: %v", err)
	}
	if err := g.ForceTimeout(token); !errors.Is(err, ErrCancelled) {
		t.Fatalf("stale ForceTimeout err = %v, want ErrCancelled", err)
	}
	waitPhase(t, g, PhaseDay)
	for _, x := range a {
		if !alive(g, x) {
			t.Errorf("%s died although nobody acted", x.Name())
		}
	}
}

func TestWrongPhaseRejected(t *testing.T) {
	fm := newFakeMessenger()
	g, _ := newTestGame(t, fm, nil, human(RoleWolf), human(RoleSeer), human(RoleVillager), human(RoleVillager))

	if _, err := g.SubmitNightAction("p0", NightAction{Type: ActionKill, Target: "Dave"}); !errors.Is(err, ErrNotNightPhase) {
		t.Errorf("kill in lobby err = %v, want ErrNotNightPhase", err)
	}
	startNight(g)
	if _, err := g.SubmitVote("p2", "Alice"); !errors.Is(err, ErrNotDayPhase) {
		t.Errorf("vote at night err = %v, want ErrNotDayPhase", err)
	}
	if _, err := g.SubmitNightAction("nobody", NightAction{Type: ActionKill, Target: "Dave"}); !errors.Is(err, ErrNotInGame) {
		t.Errorf("stranger err = %v, want ErrNotInGame", err)
	}
}

func TestNightVoiceSilencesLiving(t *testing.T) {
	fm := newFakeMessenger()
	g, a := newTestGame(t, fm, nil, human(RoleWolf), human(RoleSeer), human(RoleVillager), human(RoleVillager))
	g.mu.Lock()
	a[3].Alive = false
	g.mu.Unlock()
	startNight(g)
	g.Flush()

	if muted, _ := fm.isMuted("p2"); !muted {
		t.Errorf("living Carol should be muted at night")
	}
	if muted, known := fm.isMuted("p3"); !known || muted {
		t.Errorf("dead Dave should be unmuted at night")
	}
}
