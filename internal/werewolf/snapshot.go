package werewolf

// PlayerView is one roster entry as a given viewer may see it.
type PlayerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Alive bool   `json:"alive"`
	Bot   bool   `json:"bot"`
	Role  string `json:"role,omitempty"`
	Votes int    `json:"votes,omitempty"`
}

// Snapshot is a per-viewer view of a game. Secrets the viewer is not entitled
// to are left out.
type Snapshot struct {
	GameID   string            `json:"game_id"`
	HostID   string            `json:"host_id"`
	Phase    string            `json:"phase"`
	Day      int               `json:"day"`
	Token    Token             `json:"token"`
	Players  []PlayerView      `json:"players"`
	Events   []string          `json:"events"`
	Winner   string            `json:"winner,omitempty"`
	You      *PlayerView       `json:"you,omitempty"`
	Pack     []string          `json:"pack,omitempty"`
	Visions  map[string]string `json:"visions,omitempty"`
	Lover    string            `json:"lover,omitempty"`
	Victim   string            `json:"victim,omitempty"`
	VotedFor string            `json:"voted_for,omitempty"`
	Skips    int               `json:"skips,omitempty"`
	Silenced string            `json:"silenced,omitempty"`
	Powers   bool              `json:"powers_lost,omitempty"`
}

// Snapshot builds the view of the game for viewerID.
func (g *Game) Snapshot(viewerID string) Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	over := g.phase == PhaseFinished
	s := Snapshot{
		GameID: g.ID,
		HostID: g.HostID,
		Phase:  g.phase.String(),
		Day:    g.day,
		Token:  g.gen,
		Events: append([]string(nil), g.events...),
		Powers: g.lostPowers,
	}
	if g.winner != TeamNone {
		s.Winner = g.winner.String()
	}

	var tally map[string]int
	if g.phase == PhaseDay {
		tally, _ = g.tallyLocked()
		s.Skips = tally[SkipVote]
	}
	if g.silenced != "" {
		s.Silenced = g.nameOf(g.silenced)
	}

	viewer, _ := g.roster.Get(viewerID)
	started := g.phase != PhaseJoining
	for _, a := range g.roster.All() {
		v := PlayerView{ID: a.ID(), Name: a.Name(), Alive: a.Alive, Bot: a.IsBot(), Votes: tally[a.ID()]}
		if started && (over || !a.Alive || a == viewer || (viewer != nil && viewer.Role == RoleWolf && a.Role == RoleWolf)) {
			v.Role = a.Role.String()
		}
		s.Players = append(s.Players, v)
		if a == viewer {
			self := v
			s.You = &self
		}
	}
	if viewer == nil || !started {
		return s
	}

	s.VotedFor = g.nameOf(viewer.VotedFor)
	if viewer.LoverID != "" {
		s.Lover = g.nameOf(viewer.LoverID)
	}
	switch viewer.Role {
	case RoleWolf:
		for _, w := range g.roster.All() {
			if w.Role == RoleWolf {
				s.Pack = append(s.Pack, w.Name())
			}
		}
		if g.phase == PhaseNight && g.night.killTarget != "" {
			s.Victim = g.nameOf(g.night.killTarget)
		}
	case RoleSeer:
		s.Visions = make(map[string]string, len(g.seerMemory))
		for id, r := range g.seerMemory {
			s.Visions[g.nameOf(id)] = r.String()
		}
	case RoleWitch:
		if g.phase == PhaseNight && g.night.killTarget != "" && viewer.HealPotion && !g.lostPowers {
			s.Victim = g.nameOf(g.night.killTarget)
		}
	}
	return s
}
