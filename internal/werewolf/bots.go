package werewolf

import (
	"time"
)

// botStep is one bot decision during the night, run in causal order.
type botStep struct {
	role Role
	act  func()
}

func (g *Game) nightBotSteps() []botStep {
	return []botStep{
		{RoleSeer, g.botSeerLocked},
		{RoleWolf, g.botWolfLocked},
		{RoleSilencer, g.botSilencerLocked},
		{RoleWitch, func() {
			g.night.witchStep = true
			g.botWitchLocked()
		}},
		{RoleCupid, g.botCupidLocked},
	}
}

// runNightBots plays every bot-held night role for the night identified by
// token, pausing a random delay before each move a bot actually makes.
func (g *Game) runNightBots(token Token) {
	for _, step := range g.nightBotSteps() {
		g.mu.Lock()
		if g.gen != token || g.phase != PhaseNight {
			g.mu.Unlock()
			return
		}
		var delay time.Duration
		if g.botHoldsLocked(step.role) {
			delay = g.botDelayLocked()
		}
		g.mu.Unlock()

		if !g.sleep(delay) {
			return
		}

		g.mu.Lock()
		if g.gen != token || g.phase != PhaseNight {
			g.mu.Unlock()
			return
		}
		step.act()
		if g.nightCompleteLocked() {
			g.beginDayTransitionLocked()
		}
		g.mu.Unlock()
	}
}

func (g *Game) botHoldsLocked(role Role) bool {
	for _, a := range g.roster.aliveWithRole(role) {
		if a.IsBot() {
			return true
		}
	}
	return false
}

func (g *Game) firstBotLocked(role Role) *Actor {
	for _, a := range g.roster.aliveWithRole(role) {
		if a.IsBot() {
			return a
		}
	}
	return nil
}

// botDelayLocked picks a delay in [BotDelayMin, BotDelayMax].
func (g *Game) botDelayLocked() time.Duration {
	lo, hi := g.cfg.BotDelayMin, g.cfg.BotDelayMax
	if hi <= 0 {
		return 0
	}
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(g.rng.Int64N(int64(hi-lo)))
}

func (g *Game) pickLocked(actors []*Actor) *Actor {
	if len(actors) == 0 {
		return nil
	}
	return actors[g.rng.IntN(len(actors))]
}

func (g *Game) othersLocked(self *Actor, keep func(*Actor) bool) []*Actor {
	var out []*Actor
	for _, a := range g.roster.Alive() {
		if a != self && (keep == nil || keep(a)) {
			out = append(out, a)
		}
	}
	return out
}

// botSeerLocked looks at someone the seer has not seen yet, if possible.
func (g *Game) botSeerLocked() {
	seer := g.firstBotLocked(RoleSeer)
	if seer == nil || g.night.botDone[RoleSeer] {
		return
	}
	g.night.botDone[RoleSeer] = true
	if g.lostPowers {
		return
	}
	candidates := g.othersLocked(seer, func(a *Actor) bool {
		_, seen := g.seerMemory[a.ID()]
		return !seen
	})
	if len(candidates) == 0 {
		candidates = g.othersLocked(seer, nil)
	}
	if t := g.pickLocked(candidates); t != nil {
		g.applyBotActionLocked(seer, NightAction{Type: ActionSee, Target: t.ID()})
	}
}

// humanWolfActiveLocked reports whether a living, reachable human wolf can
// still make the pack's choice.
func (g *Game) humanWolfActiveLocked() bool {
	for _, w := range g.roster.aliveWithRole(RoleWolf) {
		if !w.IsBot() && !w.Unreachable {
			return true
		}
	}
	return false
}

// botWolfLocked makes the pack's choice when no human wolf can.
func (g *Game) botWolfLocked() {
	if g.night.killTarget != "" || g.humanWolfActiveLocked() {
		return
	}
	wolf := g.firstBotLocked(RoleWolf)
	if wolf == nil {
		return
	}
	prey := g.othersLocked(wolf, func(a *Actor) bool { return a.Role != RoleWolf })
	if t := g.pickLocked(prey); t != nil {
		g.applyBotActionLocked(wolf, NightAction{Type: ActionKill, Target: t.ID()})
	}
}

func (g *Game) botSilencerLocked() {
	s := g.firstBotLocked(RoleSilencer)
	if s == nil || g.night.botDone[RoleSilencer] {
		return
	}
	g.night.botDone[RoleSilencer] = true
	if g.lostPowers {
		return
	}
	if t := g.pickLocked(g.othersLocked(s, nil)); t != nil {
		g.applyBotActionLocked(s, NightAction{Type: ActionMute, Target: t.ID()})
	}
}

// botWitchLocked waits for the pack's choice, heals it unless the victim is
// a known wolf and poisons a known living wolf.
func (g *Game) botWitchLocked() {
	witch := g.firstBotLocked(RoleWitch)
	if witch == nil || g.night.botDone[RoleWitch] {
		return
	}
	if !g.lostPowers && g.night.killTarget == "" && len(g.roster.aliveWithRole(RoleWolf)) > 0 {
		return
	}
	g.night.botDone[RoleWitch] = true
	if g.lostPowers {
		return
	}

	if victim := g.night.killTarget; victim != "" && witch.HealPotion && g.seerMemory[victim] != RoleWolf {
		g.applyBotActionLocked(witch, NightAction{Type: ActionHeal})
	}
	if witch.KillPotion {
		known := g.othersLocked(witch, func(a *Actor) bool {
			r, seen := g.seerMemory[a.ID()]
			return seen && r == RoleWolf
		})
		if t := g.pickLocked(known); t != nil {
			g.applyBotActionLocked(witch, NightAction{Type: ActionPoison, Target: t.ID()})
		}
	}
}

func (g *Game) botCupidLocked() {
	c := g.firstBotLocked(RoleCupid)
	if c == nil || g.night.botDone[RoleCupid] {
		return
	}
	g.night.botDone[RoleCupid] = true
	if g.lostPowers || g.day != 1 || g.cupidDone {
		return
	}
	alive := g.roster.Alive()
	if len(alive) < 2 {
		return
	}
	i := g.rng.IntN(len(alive))
	j := g.rng.IntN(len(alive) - 1)
	if j >= i {
		j++
	}
	g.applyBotActionLocked(c, NightAction{Type: ActionPair, Target: alive[i].ID(), Second: alive[j].ID()})
}

func (g *Game) applyBotActionLocked(bot *Actor, action NightAction) {
	if _, err := g.applyNightActionLocked(bot, action); err != nil {
		g.cfg.Debugf("game %s: bot %s %s failed: %v", g.ID, bot.Name(), action.Type, err)
		return
	}
	g.publishLocked("night_action")
}

// botVote casts a bot's ballot after delay, leaning toward whoever already
// has votes.
func (g *Game) botVote(token Token, botID string, delay time.Duration) {
	if !g.sleep(delay) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != token || g.phase != PhaseDay || g.vote.closed {
		return
	}
	bot, ok := g.roster.Get(botID)
	if !ok || !bot.Alive {
		return
	}
	candidates := g.othersLocked(bot, nil)
	if len(candidates) == 0 {
		return
	}
	tally, _ := g.tallyLocked()
	target := candidates[g.weightedIndexLocked(bandwagonWeights(candidates, tally))]
	if _, err := g.castVoteLocked(botID, target.ID()); err != nil {
		g.cfg.Debugf("game %s: bot %s vote failed: %v", g.ID, bot.Name(), err)
	}
}

// bandwagonWeights gives each candidate 1 plus 3 per ballot already on them.
func bandwagonWeights(candidates []*Actor, tally map[string]int) []int {
	weights := make([]int, len(candidates))
	for i, c := range candidates {
		weights[i] = 1 + 3*tally[c.ID()]
	}
	return weights
}

func (g *Game) weightedIndexLocked(weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	r := g.rng.IntN(total)
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}
