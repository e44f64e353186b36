package werewolf

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// startNightLocked opens the next night.
func (g *Game) startNightLocked() {
	g.day++
	g.phase = PhaseNight
	g.gen++
	g.night = newNightState()
	g.silenced = ""
	for _, a := range g.roster.All() {
		a.ActedTonight = false
		a.Unreachable = false
		a.VotedFor = ""
	}

	log.Printf("startNight: game %s night %d", g.ID, g.day)
	g.announceLocked(fmt.Sprintf("Night %d falls. Everyone closes their eyes.", g.day))
	g.applyVoiceLocked()
	g.promptNightLocked()
	g.armTimerLocked(g.cfg.NightTimeout)
	g.publishLocked("night")
	go g.runNightBots(g.gen)
}

// finishNight resolves the night closed under token and opens the day.
func (g *Game) finishNight(token Token) {
	g.mu.Lock()
	if g.gen != token || g.phase != PhaseDayTransition {
		g.mu.Unlock()
		return
	}
	deaths := g.resolveNightLocked()
	g.announceDeathsLocked(deaths)
	hunters := pendingHunters(deaths)
	g.publishLocked("dawn")
	g.mu.Unlock()

	if !g.runHunters(token, PhaseDayTransition, hunters) {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != token || g.phase != PhaseDayTransition {
		return
	}
	if g.checkWinnerLocked() {
		return
	}
	g.openDayLocked()
}

// finishDay applies the vote result closed under token and opens the next
// night.
func (g *Game) finishDay(token Token, outcome string) {
	g.mu.Lock()
	if g.gen != token || g.phase != PhaseDay {
		g.mu.Unlock()
		return
	}
	var deaths []Death
	if victim, ok := g.roster.Get(outcome); ok && victim.Alive {
		deaths = g.killLocked(victim, CauseLynch)
		g.announceDeathsLocked(deaths)
	} else {
		g.announceLocked("The village could not agree. No one was lynched today.")
	}
	hunters := pendingHunters(deaths)
	g.publishLocked("lynch")
	g.mu.Unlock()

	if !g.runHunters(token, PhaseDay, hunters) {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != token || g.phase != PhaseDay {
		return
	}
	if g.checkWinnerLocked() {
		return
	}
	g.startNightLocked()
}

// ForceTimeout ends the phase identified by token as if its timer fired.
// A token from an earlier phase returns ErrCancelled.
func (g *Game) ForceTimeout(token Token) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if token != g.gen {
		return ErrCancelled
	}
	switch g.phase {
	case PhaseNight:
		log.Printf("ForceTimeout: game %s night %d timed out", g.ID, g.day)
		g.beginDayTransitionLocked()
	case PhaseDay:
		if g.vote.closed {
			return ErrCancelled
		}
		g.closeVotingLocked(g.timeoutOutcomeLocked(), "timeout")
	case PhaseFinished, PhaseStopping:
		return ErrGameOver
	default:
		return ErrCancelled
	}
	return nil
}

// Stop ends the game at once without recording stats.
func (g *Game) Stop(reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase == PhaseFinished || g.phase == PhaseStopping {
		return ErrGameOver
	}
	g.phase = PhaseStopping
	g.gen++
	log.Printf("Stop: game %s: %s", g.ID, reason)
	line := "The game was stopped."
	if reason = strings.TrimSpace(reason); reason != "" {
		line = fmt.Sprintf("The game was stopped: %s", reason)
	}
	g.logEventLocked(line)
	g.noticeLocked(line)
	g.closeLocked()
	return nil
}

// finishLocked ends the game with a winner and records the result.
func (g *Game) finishLocked(w Team) {
	g.phase = PhaseFinished
	g.gen++
	g.winner = w

	var line string
	if w == TeamWolves {
		line = "The werewolves have taken the village. The wolves win!"
	} else {
		line = "The last werewolf is gone. The village wins!"
	}
	var reveal []string
	for _, a := range g.roster.All() {
		reveal = append(reveal, fmt.Sprintf("%s: %s", a.Name(), a.Role))
	}
	log.Printf("finish: game %s won by %s after %d days", g.ID, w, g.day)
	g.announceLocked(line)
	g.noticeLocked("Roles: " + strings.Join(reveal, ", "))

	for _, a := range g.roster.All() {
		if a.IsBot() {
			continue
		}
		id, name, won := a.ID(), a.Name(), a.Role.Team() == w
		g.out.push(func(ctx context.Context) {
			if err := g.stats.RecordOutcome(ctx, id, name, won); err != nil {
				log.Printf("recordOutcome: game %s: %s: %v", g.ID, name, err)
			}
		})
	}
	g.closeLocked()
}

// closeLocked releases everything a running game holds: timers, prompts,
// voice state and private groups.
func (g *Game) closeLocked() {
	g.stopTimerLocked()
	if g.vote.cancel != nil {
		g.vote.cancel()
	}
	if g.phase == PhaseStopping {
		g.phase = PhaseFinished
	}
	g.applyVoiceLocked()
	g.out.push(func(ctx context.Context) {
		g.mu.Lock()
		groups := g.groups
		g.groups = nil
		g.mu.Unlock()
		for _, h := range groups {
			if err := g.msg.Teardown(ctx, h); err != nil {
				log.Printf("teardown: game %s: %v", g.ID, err)
			}
		}
	})
	g.publishLocked("finished")
	g.out.close()
	g.feed.closeAll()
	if g.onFinish != nil {
		go g.onFinish(g)
	}
}
