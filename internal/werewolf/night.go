package werewolf

import (
	"fmt"
	"log"
	"strings"
)

// ActionType names a night ability.
type ActionType string

const (
	ActionKill   ActionType = "kill"
	ActionSee    ActionType = "see"
	ActionHeal   ActionType = "heal"
	ActionPoison ActionType = "poison"
	ActionPass   ActionType = "pass"
	ActionMute   ActionType = "mute"
	ActionPair   ActionType = "pair"
)

// NightAction is one submitted night ability. Target and Second are names
// or ids; Second is only used by ActionPair.
type NightAction struct {
	Type   ActionType
	Target string
	Second string
}

// nightState is the scratch state of the current night.
type nightState struct {
	killTarget   string
	killBy       string
	seerTarget   string
	healed       bool
	poisonTarget string
	muteTarget   string
	botDone      map[Role]bool
	witchStep    bool
	witchPassed  bool
}

func newNightState() nightState {
	return nightState{botDone: make(map[Role]bool)}
}

// SubmitNightAction applies a night ability for actorID and returns the
// private confirmation for that actor.
func (g *Game) SubmitNightAction(actorID string, action NightAction) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requirePhaseLocked(PhaseNight, ErrNotNightPhase); err != nil {
		return "", err
	}
	actor, ok := g.roster.Get(actorID)
	if !ok {
		return "", ErrNotInGame
	}
	if !actor.Alive {
		return "", ErrActorDead
	}
	reply, err := g.applyNightActionLocked(actor, action)
	if err != nil {
		g.cfg.Debugf("game %s: %s %s rejected: %v", g.ID, actor.Name(), action.Type, err)
		return "", err
	}
	g.afterNightActionLocked()
	return reply, nil
}

func (g *Game) applyNightActionLocked(actor *Actor, action NightAction) (string, error) {
	switch action.Type {
	case ActionKill:
		return g.killActionLocked(actor, action.Target)
	case ActionSee:
		return g.seeActionLocked(actor, action.Target)
	case ActionHeal:
		return g.healActionLocked(actor)
	case ActionPoison:
		return g.poisonActionLocked(actor, action.Target)
	case ActionPass:
		return g.passActionLocked(actor)
	case ActionMute:
		return g.muteActionLocked(actor, action.Target)
	case ActionPair:
		return g.pairActionLocked(actor, action.Target, action.Second)
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrWrongRole, action.Type)
}

// requireRole checks the actor's role and, for village powers, the
// power-loss latch.
func (g *Game) requireRoleLocked(actor *Actor, role Role) error {
	if actor.Role != role {
		return fmt.Errorf("%w: only the %s can do that", ErrWrongRole, role)
	}
	if role != RoleWolf && g.lostPowers {
		return ErrPowersStripped
	}
	return nil
}

func (g *Game) killActionLocked(actor *Actor, token string) (string, error) {
	if err := g.requireRoleLocked(actor, RoleWolf); err != nil {
		return "", err
	}
	if g.night.killTarget != "" {
		return "", fmt.Errorf("%w: the pack already chose %s", ErrAlreadyActed, g.nameOf(g.night.killTarget))
	}
	target, err := g.roster.resolveTarget(token)
	if err != nil {
		return "", err
	}
	if target.Role == RoleWolf {
		return "", fmt.Errorf("%w: %s is one of the pack", ErrInvalidTarget, target.Name())
	}

	g.night.killTarget = target.ID()
	g.night.killBy = actor.ID()
	g.cfg.Debugf("game %s: %s chose %s for the wolves", g.ID, actor.Name(), target.Name())
	for _, w := range g.roster.aliveWithRole(RoleWolf) {
		if w != actor {
			g.dmLocked(w, fmt.Sprintf("%s chose %s as tonight's victim.", actor.Name(), target.Name()))
		}
	}
	for _, witch := range g.roster.aliveWithRole(RoleWitch) {
		if !g.lostPowers && witch.HealPotion {
			g.dmLocked(witch, fmt.Sprintf("The wolves chose %s tonight. You may heal them.", target.Name()))
		}
	}
	if g.night.witchStep {
		g.botWitchLocked()
	}
	return fmt.Sprintf("The pack will hunt %s tonight.", target.Name()), nil
}

func (g *Game) seeActionLocked(actor *Actor, token string) (string, error) {
	if err := g.requireRoleLocked(actor, RoleSeer); err != nil {
		return "", err
	}
	if actor.ActedTonight {
		return "", ErrAlreadyActed
	}
	target, err := g.roster.resolveTarget(token)
	if err != nil {
		return "", err
	}
	if target == actor {
		return "", fmt.Errorf("%w: you already know yourself", ErrInvalidTarget)
	}

	actor.ActedTonight = true
	g.night.seerTarget = target.ID()
	g.seerMemory[target.ID()] = target.Role
	return fmt.Sprintf("%s is the %s.", target.Name(), target.Role), nil
}

func (g *Game) healActionLocked(actor *Actor) (string, error) {
	if err := g.requireRoleLocked(actor, RoleWitch); err != nil {
		return "", err
	}
	if g.night.witchPassed {
		return "", ErrAlreadyActed
	}
	if !actor.HealPotion {
		return "", fmt.Errorf("%w: healing potion", ErrPotionAlreadyUsed)
	}
	if g.night.killTarget == "" {
		return "", fmt.Errorf("%w: the wolves have not chosen anyone yet", ErrInvalidTarget)
	}

	actor.HealPotion = false
	actor.ActedTonight = true
	g.night.healed = true
	return fmt.Sprintf("You heal %s.", g.nameOf(g.night.killTarget)), nil
}

func (g *Game) poisonActionLocked(actor *Actor, token string) (string, error) {
	if err := g.requireRoleLocked(actor, RoleWitch); err != nil {
		return "", err
	}
	if g.night.witchPassed {
		return "", ErrAlreadyActed
	}
	if !actor.KillPotion {
		return "", fmt.Errorf("%w: poison", ErrPotionAlreadyUsed)
	}
	target, err := g.roster.resolveTarget(token)
	if err != nil {
		return "", err
	}
	if target == actor {
		return "", fmt.Errorf("%w: you cannot poison yourself", ErrInvalidTarget)
	}

	actor.KillPotion = false
	actor.ActedTonight = true
	g.night.poisonTarget = target.ID()
	return fmt.Sprintf("You poison %s.", target.Name()), nil
}

func (g *Game) passActionLocked(actor *Actor) (string, error) {
	if err := g.requireRoleLocked(actor, RoleWitch); err != nil {
		return "", err
	}
	if g.night.witchPassed {
		return "", ErrAlreadyActed
	}
	g.night.witchPassed = true
	actor.ActedTonight = true
	return "You put your potions away for tonight.", nil
}

func (g *Game) muteActionLocked(actor *Actor, token string) (string, error) {
	if err := g.requireRoleLocked(actor, RoleSilencer); err != nil {
		return "", err
	}
	if actor.ActedTonight {
		return "", ErrAlreadyActed
	}
	target, err := g.roster.resolveTarget(token)
	if err != nil {
		return "", err
	}
	if target == actor {
		return "", fmt.Errorf("%w: you cannot silence yourself", ErrInvalidTarget)
	}

	actor.ActedTonight = true
	g.night.muteTarget = target.ID()
	return fmt.Sprintf("%s will be silenced tomorrow.", target.Name()), nil
}

func (g *Game) pairActionLocked(actor *Actor, first, second string) (string, error) {
	if err := g.requireRoleLocked(actor, RoleCupid); err != nil {
		return "", err
	}
	if g.day != 1 || g.cupidDone {
		return "", ErrAlreadyChosen
	}
	a, err := g.roster.resolveTarget(first)
	if err != nil {
		return "", err
	}
	b, err := g.roster.resolveTarget(second)
	if err != nil {
		return "", err
	}
	if a == b {
		return "", fmt.Errorf("%w: pick two different players", ErrInvalidTarget)
	}

	link(a, b)
	g.cupidDone = true
	actor.ActedTonight = true
	g.dmLocked(a, fmt.Sprintf("You fell in love with %s. If one of you dies, so does the other.", b.Name()))
	g.dmLocked(b, fmt.Sprintf("You fell in love with %s. If one of you dies, so does the other.", a.Name()))
	return fmt.Sprintf("%s and %s are now lovers.", a.Name(), b.Name()), nil
}

func (g *Game) afterNightActionLocked() {
	g.publishLocked("night_action")
	if g.nightCompleteLocked() {
		g.beginDayTransitionLocked()
	}
}

// nightCompleteLocked reports whether every role that still has to act
// tonight has done so.
func (g *Game) nightCompleteLocked() bool {
	if len(g.roster.aliveWithRole(RoleWolf)) > 0 && g.night.killTarget == "" {
		return false
	}
	for _, role := range []Role{RoleSeer, RoleSilencer, RoleWitch, RoleCupid} {
		for _, a := range g.roster.aliveWithRole(role) {
			if !g.roleSatisfiedLocked(a) {
				return false
			}
		}
	}
	return true
}

func (g *Game) roleSatisfiedLocked(a *Actor) bool {
	if g.lostPowers {
		return true
	}
	if a.Role == RoleCupid && (g.day != 1 || g.cupidDone) {
		return true
	}
	if a.IsBot() {
		return g.night.botDone[a.Role]
	}
	if a.Unreachable || a.ActedTonight {
		return true
	}
	if a.Role == RoleWitch {
		return !a.HealPotion && !a.KillPotion
	}
	return false
}

// beginDayTransitionLocked closes the night exactly once.
func (g *Game) beginDayTransitionLocked() {
	if g.phase != PhaseNight {
		return
	}
	g.phase = PhaseDayTransition
	g.gen++
	g.stopTimerLocked()
	g.publishLocked("day_transition")
	go g.finishNight(g.gen)
}

// markUnreachable records that a human could not be reached during the
// night identified by token.
func (g *Game) markUnreachable(actorID string, token Token) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != token || g.phase != PhaseNight {
		return
	}
	a, ok := g.roster.Get(actorID)
	if !ok || !a.Alive || a.Unreachable {
		return
	}
	a.Unreachable = true
	log.Printf("markUnreachable: game %s: %s cannot be reached tonight", g.ID, a.Name())
	if a.Role == RoleWolf && g.night.killTarget == "" && !g.humanWolfActiveLocked() {
		g.botWolfLocked()
	}
	if g.nightCompleteLocked() {
		g.beginDayTransitionLocked()
	}
}

// promptNightLocked sends each living human with a night ability their
// instructions.
func (g *Game) promptNightLocked() {
	for _, a := range g.roster.Alive() {
		if a.IsBot() {
			continue
		}
		var text string
		switch a.Role {
		case RoleWolf:
			text = "Choose tonight's victim with the kill action."
		case RoleSeer:
			text = "Choose one player to see their true role."
		case RoleSilencer:
			text = "Choose one player to silence for tomorrow."
		case RoleWitch:
			var potions []string
			if a.HealPotion {
				potions = append(potions, "heal")
			}
			if a.KillPotion {
				potions = append(potions, "poison")
			}
			if len(potions) == 0 {
				continue
			}
			text = fmt.Sprintf("Your potions: %s. Wait for the wolves, then use one or pass.", strings.Join(potions, ", "))
		case RoleCupid:
			if g.day != 1 || g.cupidDone {
				continue
			}
			text = "Choose two players to fall in love."
		default:
			continue
		}
		if a.Role != RoleWolf && g.lostPowers {
			continue
		}
		g.dmLocked(a, text)
	}
}
