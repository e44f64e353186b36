package werewolf

import (
	"context"
	"fmt"
	"log"
)

// Cause is how an actor died.
type Cause int

const (
	CauseWolves Cause = iota + 1
	CausePoison
	CauseLynch
	CauseHunter
	CauseHeartbreak
)

// Death is one actor leaving the game.
type Death struct {
	Actor *Actor
	Cause Cause
}

// wolfAttackLocked applies the wolves' choice after the witch's heal and the
// elder's one-time protection.
func (g *Game) wolfAttackLocked(victim *Actor) []Death {
	if !victim.Alive {
		return nil
	}
	if g.night.healed {
		g.cfg.Debugf("game %s: %s was healed", g.ID, victim.Name())
		return nil
	}
	if victim.Role == RoleElder && !victim.ImmunityUsed {
		victim.ImmunityUsed = true
		g.dmLocked(victim, "The wolves attacked you tonight, but you survived. It will not happen twice.")
		return nil
	}
	return g.killLocked(victim, CauseWolves)
}

// killLocked marks victim dead and follows the lover link. A lover dying of
// heartbreak still pulls their own lover along.
func (g *Game) killLocked(victim *Actor, cause Cause) []Death {
	if !victim.Alive {
		return nil
	}
	victim.Alive = false
	deaths := []Death{{Actor: victim, Cause: cause}}

	if cause == CauseLynch && victim.Role == RoleElder && !g.lostPowers {
		g.lostPowers = true
		g.logEventLocked("The village lynched its Elder and lost all its powers.")
	}
	if victim.LoverID != "" {
		if lover, ok := g.roster.Get(victim.LoverID); ok && lover.Alive {
			deaths = append(deaths, g.killLocked(lover, CauseHeartbreak)...)
		}
	}
	return deaths
}

// resolveNightLocked turns the night's choices into deaths.
func (g *Game) resolveNightLocked() []Death {
	var deaths []Death
	if id := g.night.killTarget; id != "" {
		if victim, ok := g.roster.Get(id); ok {
			deaths = append(deaths, g.wolfAttackLocked(victim)...)
		}
	}
	if len(deaths) == 0 {
		g.announceLocked("Dawn breaks and no one died to the wolves tonight.")
	}
	if id := g.night.poisonTarget; id != "" {
		if victim, ok := g.roster.Get(id); ok {
			deaths = append(deaths, g.killLocked(victim, CausePoison)...)
		}
	}
	return deaths
}

func (g *Game) announceDeathsLocked(deaths []Death) {
	for _, d := range deaths {
		name, role := d.Actor.Name(), d.Actor.Role
		var line string
		switch d.Cause {
		case CauseWolves:
			line = fmt.Sprintf("%s was torn apart by the werewolves. They were the %s.", name, role)
		case CausePoison:
			line = fmt.Sprintf("%s was found poisoned. They were the %s.", name, role)
		case CauseLynch:
			line = fmt.Sprintf("The village lynched %s. They were the %s.", name, role)
		case CauseHunter:
			line = fmt.Sprintf("The hunter's last shot hit %s. They were the %s.", name, role)
		case CauseHeartbreak:
			line = fmt.Sprintf("%s died of a broken heart. They were the %s.", name, role)
		}
		g.announceLocked(line)
		if !d.Actor.IsBot() {
			g.setMutedLocked(d.Actor, silencedFor(g.phase, d.Actor, g.silenced))
		}
	}
}

// pendingHunters returns the hunters among deaths who get a last shot.
// Heartbreak and hunter kills do not trigger one.
func pendingHunters(deaths []Death) []string {
	var ids []string
	for _, d := range deaths {
		if d.Actor.Role != RoleHunter {
			continue
		}
		if d.Cause == CauseHeartbreak || d.Cause == CauseHunter {
			continue
		}
		ids = append(ids, d.Actor.ID())
	}
	return ids
}

// runHunters lets each hunter shoot in turn. It reports false when the game
// moved on while waiting.
func (g *Game) runHunters(token Token, phase Phase, hunters []string) bool {
	for _, id := range hunters {
		g.mu.Lock()
		if g.gen != token || g.phase != phase {
			g.mu.Unlock()
			return false
		}
		hunter, _ := g.roster.Get(id)
		var options []Option
		for _, a := range g.roster.Alive() {
			options = append(options, Option{ID: a.ID(), Label: a.Name()})
		}
		if len(options) == 0 {
			g.mu.Unlock()
			continue
		}
		var choice string
		if hunter.IsBot() {
			choice = options[g.rng.IntN(len(options))].ID
		}
		identity := hunter.Identity
		g.mu.Unlock()

		if choice == "" {
			choice = g.askHunter(identity, options)
		}

		g.mu.Lock()
		if g.gen != token || g.phase != phase {
			g.mu.Unlock()
			return false
		}
		if target, ok := g.roster.Get(choice); ok && target.Alive {
			deaths := g.killLocked(target, CauseHunter)
			g.announceDeathsLocked(deaths)
		} else {
			g.announceLocked(fmt.Sprintf("%s, the hunter, died without firing.", identity.DisplayName()))
		}
		g.publishLocked("hunter")
		g.mu.Unlock()
	}
	return true
}

func (g *Game) askHunter(hunter Identity, options []Option) string {
	ctx, cancel := context.WithTimeout(g.ctx, g.cfg.HunterTimeout)
	defer cancel()
	choice, err := g.msg.PresentChoice(ctx, hunter, "You are dying. Who do you take with you?", options, g.cfg.HunterTimeout)
	if err != nil {
		log.Printf("askHunter: game %s: %s: %v", g.ID, hunter.DisplayName(), err)
		return ""
	}
	return choice
}

// winner decides the game from the living counts.
func winner(wolves, others int) Team {
	switch {
	case wolves == 0:
		return TeamVillage
	case wolves >= others:
		return TeamWolves
	}
	return TeamNone
}

// checkWinnerLocked finishes the game if one side has won.
func (g *Game) checkWinnerLocked() bool {
	w := winner(g.roster.countAlive())
	if w == TeamNone {
		return false
	}
	g.finishLocked(w)
	return true
}
