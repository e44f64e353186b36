package werewolf

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Join adds an actor to the lobby and returns the join announcement.
func (g *Game) Join(id Identity) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requirePhaseLocked(PhaseJoining, ErrAlreadyStarted); err != nil {
		return "", err
	}
	if key := id.ExternalID(); key == "" || strings.EqualFold(key, SkipVote) {
		return "", fmt.Errorf("%w: reserved id %q", ErrInvalidTarget, key)
	}
	if g.roster.Len() >= g.cfg.MaxPlayers {
		return "", ErrLobbyFull
	}
	if _, err := g.roster.add(id); err != nil {
		return "", err
	}

	line := fmt.Sprintf("%s joined the game (%d players).", id.DisplayName(), g.roster.Len())
	g.logEventLocked(line)
	g.noticeLocked(line)
	g.publishLocked("join")
	return line, nil
}

// Leave removes an actor from the lobby.
func (g *Game) Leave(actorID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requirePhaseLocked(PhaseJoining, ErrAlreadyStarted); err != nil {
		return "", err
	}
	a, err := g.roster.remove(actorID)
	if err != nil {
		return "", err
	}

	line := fmt.Sprintf("%s left the game (%d players).", a.Name(), g.roster.Len())
	g.logEventLocked(line)
	g.noticeLocked(line)
	g.publishLocked("leave")
	return line, nil
}

// ConfigureAndStart fills the lobby with bots up to targetCount, deals the
// roles and opens the first night.
func (g *Game) ConfigureAndStart(selected []Role, targetCount int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requirePhaseLocked(PhaseJoining, ErrAlreadyStarted); err != nil {
		return err
	}
	targetCount = min(targetCount, g.cfg.MaxPlayers)
	for g.roster.Len() < targetCount {
		g.botCount++
		if _, err := g.roster.add(NewBot(fmt.Sprintf("Bot %d", g.botCount))); err != nil {
			return err
		}
	}
	n := g.roster.Len()
	if n < g.cfg.MinPlayers {
		return fmt.Errorf("%w: need at least %d, have %d", ErrNotEnoughPlayers, g.cfg.MinPlayers, n)
	}

	actors := g.roster.All()
	roles := AssignRoles(n, selected, g.cfg.Gates)
	deal(actors, roles, g.rng)
	log.Printf("ConfigureAndStart: game %s starting with %d players", g.ID, n)

	g.announceLocked(fmt.Sprintf("The game begins with %d players, %d of them werewolves.", n, countRole(roles, RoleWolf)))
	g.discloseRolesLocked()

	// A pack with nobody left to hunt has already won; any other deal plays
	// at least one night.
	if countRole(roles, RoleWolf) == n && g.checkWinnerLocked() {
		return nil
	}
	g.startNightLocked()
	return nil
}

func (g *Game) discloseRolesLocked() {
	wolves := g.roster.aliveWithRole(RoleWolf)
	var names []string
	var humanWolves []Identity
	for _, w := range wolves {
		names = append(names, w.Name())
		if !w.IsBot() {
			humanWolves = append(humanWolves, w.Identity)
		}
	}

	for _, a := range g.roster.All() {
		text := fmt.Sprintf("You are the %s. %s", a.Role, a.Role.Description())
		if a.Role == RoleWolf {
			text += fmt.Sprintf(" Your pack: %s.", strings.Join(names, ", "))
		}
		g.dmLocked(a, text)
	}

	if len(humanWolves) > 0 {
		g.createGroupLocked("Werewolves", humanWolves)
	}
}

func (g *Game) createGroupLocked(name string, members []Identity) {
	g.out.push(func(ctx context.Context) {
		h, err := g.msg.CreatePrivateGroup(ctx, g.ID, name, members)
		if err != nil {
			log.Printf("createGroup: game %s: %v", g.ID, err)
			return
		}
		g.mu.Lock()
		g.groups = append(g.groups, h)
		g.mu.Unlock()
	})
}

func countRole(roles []Role, r Role) int {
	n := 0
	for _, x := range roles {
		if x == r {
			n++
		}
	}
	return n
}
