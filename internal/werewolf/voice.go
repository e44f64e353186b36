package werewolf

import (
	"context"
	"log"
)

// muteRules says whether living ("alive") and dead ("dead") actors are
// silenced in each phase.
var muteRules = map[Phase]map[string]bool{
	PhaseJoining: {
		"alive": false,
		"dead":  false,
	},
	PhaseNight: {
		"alive": true,
		"dead":  false,
	},
	PhaseDayTransition: {
		"alive": false,
		"dead":  true,
	},
	PhaseDay: {
		"alive": false,
		"dead":  true,
	},
	PhaseStopping: {
		"alive": false,
		"dead":  false,
	},
	PhaseFinished: {
		"alive": false,
		"dead":  false,
	},
}

// silencedFor reports whether a should be muted in phase. silencedID is the
// actor the silencer chose for the current day.
func silencedFor(phase Phase, a *Actor, silencedID string) bool {
	state := "dead"
	if a.Alive {
		state = "alive"
	}
	muted := muteRules[phase][state]
	if phase == PhaseDay && a.Alive && a.ID() == silencedID {
		muted = true
	}
	return muted
}

// applyVoiceLocked pushes the voice state of every human for the current
// phase.
func (g *Game) applyVoiceLocked() {
	for _, a := range g.roster.All() {
		if a.IsBot() {
			continue
		}
		g.setMutedLocked(a, silencedFor(g.phase, a, g.silenced))
	}
}

func (g *Game) setMutedLocked(a *Actor, muted bool) {
	id := a.Identity
	g.out.push(func(ctx context.Context) {
		if err := g.msg.SetMuted(ctx, id, muted); err != nil {
			log.Printf("setMuted: game %s: %s: %v", g.ID, id.DisplayName(), err)
		}
	})
}
