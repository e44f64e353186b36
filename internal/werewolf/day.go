package werewolf

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
)

// dayState is the scratch state of the current vote.
type dayState struct {
	closed  bool
	outcome string
	reason  string
	ctx     context.Context
	cancel  context.CancelFunc
}

// SubmitVote records voterID's ballot for target, a name, an id or
// SkipVote. A later vote replaces an earlier one.
func (g *Game) SubmitVote(voterID, target string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.castVoteLocked(voterID, target)
}

func (g *Game) submitPromptedVote(token Token, voterID, target string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != token {
		return ErrCancelled
	}
	_, err := g.castVoteLocked(voterID, target)
	return err
}

func (g *Game) castVoteLocked(voterID, target string) (string, error) {
	if err := g.requirePhaseLocked(PhaseDay, ErrNotDayPhase); err != nil {
		return "", err
	}
	if g.vote.closed {
		return "", fmt.Errorf("%w: voting has closed", ErrNotDayPhase)
	}
	voter, ok := g.roster.Get(voterID)
	if !ok {
		return "", ErrNotInGame
	}
	if !voter.Alive {
		return "", ErrVoterDead
	}

	choice, label := SkipVote, "to skip"
	if !strings.EqualFold(strings.TrimSpace(target), SkipVote) {
		t, err := g.roster.resolveTarget(target)
		if err != nil {
			return "", err
		}
		if t == voter {
			return "", fmt.Errorf("%w: you cannot vote for yourself", ErrInvalidTarget)
		}
		choice, label = t.ID(), "for "+t.Name()
	}

	voter.VotedFor = choice
	g.cfg.Debugf("game %s: %s voted %s", g.ID, voter.Name(), label)
	g.publishLocked("vote")
	g.checkVotesLocked()
	return fmt.Sprintf("You voted %s.", label), nil
}

// tallyLocked counts the living actors' current ballots.
func (g *Game) tallyLocked() (tally map[string]int, voted int) {
	tally = make(map[string]int)
	for _, a := range g.roster.Alive() {
		if a.VotedFor == "" {
			continue
		}
		tally[a.VotedFor]++
		voted++
	}
	return tally, voted
}

// checkVotesLocked closes the vote early on a majority or once everyone
// living has voted.
func (g *Game) checkVotesLocked() {
	tally, voted := g.tallyLocked()
	alive := len(g.roster.Alive())
	need := alive/2 + 1
	for choice, n := range tally {
		if n >= need {
			if choice == SkipVote {
				choice = ""
			}
			g.closeVotingLocked(choice, "majority")
			return
		}
	}
	if voted == alive {
		g.closeVotingLocked(plurality(tally), "everyone voted")
	}
}

// plurality returns the single most voted actor, ignoring skips, or "" on a
// tie or when nobody was voted for.
func plurality(tally map[string]int) string {
	best, bestN, tied := "", 0, false
	keys := make([]string, 0, len(tally))
	for k := range tally {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n := tally[k]
		if k == SkipVote || n == 0 {
			continue
		}
		switch {
		case n > bestN:
			best, bestN, tied = k, n, false
		case n == bestN:
			tied = true
		}
	}
	if tied {
		return ""
	}
	return best
}

// closeVotingLocked ends the vote exactly once; later ballots are rejected.
func (g *Game) closeVotingLocked(outcome, reason string) {
	if g.vote.closed {
		return
	}
	g.vote.closed = true
	g.vote.outcome = outcome
	g.vote.reason = reason
	g.gen++
	g.stopTimerLocked()
	if g.vote.cancel != nil {
		g.vote.cancel()
	}
	log.Printf("closeVoting: game %s: day %d closed (%s)", g.ID, g.day, reason)
	g.publishLocked("vote_closed")
	go g.finishDay(g.gen, outcome)
}

// openDayLocked starts the day vote.
func (g *Game) openDayLocked() {
	g.phase = PhaseDay
	g.gen++
	g.vote = dayState{}
	g.vote.ctx, g.vote.cancel = context.WithCancel(g.ctx)
	for _, a := range g.roster.All() {
		a.VotedFor = ""
	}

	g.silenced = ""
	if t, ok := g.roster.Get(g.night.muteTarget); ok && t.Alive {
		g.silenced = t.ID()
		g.announceLocked(fmt.Sprintf("%s has been silenced for today.", t.Name()))
	}
	g.applyVoiceLocked()
	g.announceLocked(fmt.Sprintf("Day %d. The village gathers to decide who to lynch.", g.day))
	g.armTimerLocked(g.cfg.DayVoteTimeout)

	token := g.gen
	alive := g.roster.Alive()
	for _, voter := range alive {
		if voter.IsBot() {
			go g.botVote(token, voter.ID(), g.botDelayLocked())
			continue
		}
		options := make([]Option, 0, len(alive))
		for _, a := range alive {
			if a != voter {
				options = append(options, Option{ID: a.ID(), Label: a.Name()})
			}
		}
		options = append(options, Option{ID: SkipVote, Label: "Skip"})
		go g.promptVote(g.vote.ctx, token, voter.Identity, options)
	}
	g.publishLocked("day")
}

func (g *Game) promptVote(ctx context.Context, token Token, voter Identity, options []Option) {
	choice, err := g.msg.PresentChoice(ctx, voter, "Who should the village lynch?", options, g.cfg.DayVoteTimeout)
	if err != nil {
		if !errors.Is(err, ErrTimedOut) && !errors.Is(err, context.Canceled) {
			log.Printf("promptVote: game %s: %s: %v", g.ID, voter.DisplayName(), err)
		}
		return
	}
	if err := g.submitPromptedVote(token, voter.ExternalID(), choice); err != nil {
		g.cfg.Debugf("game %s: prompted vote from %s dropped: %v", g.ID, voter.DisplayName(), err)
	}
}

// timeoutOutcomeLocked is the result when the vote timer fires.
func (g *Game) timeoutOutcomeLocked() string {
	tally, _ := g.tallyLocked()
	return plurality(tally)
}
