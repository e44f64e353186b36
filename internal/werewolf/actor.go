package werewolf

import (
	"strings"

	"github.com/google/uuid"
)

// Role is the secret card an actor holds for the whole game.
type Role int

const (
	RoleVillager Role = iota
	RoleWolf
	RoleSeer
	RoleWitch
	RoleHunter
	RoleCupid
	RoleSilencer
	RoleElder
)

func (r Role) String() string {
	switch r {
	case RoleWolf:
		return "Werewolf"
	case RoleSeer:
		return "Seer"
	case RoleWitch:
		return "Witch"
	case RoleHunter:
		return "Hunter"
	case RoleCupid:
		return "Cupid"
	case RoleSilencer:
		return "Silencer"
	case RoleElder:
		return "Elder"
	default:
		return "Villager"
	}
}

// Description is the private text sent along with the role at game start.
func (r Role) Description() string {
	switch r {
	case RoleWolf:
		return "Each night the pack chooses one villager to devour. Win when the wolves equal or outnumber everyone else."
	case RoleSeer:
		return "Each night you may look into one player's soul and learn their true role."
	case RoleWitch:
		return "You brew two potions for the whole game: one that heals the wolves' victim and one that kills."
	case RoleHunter:
		return "When you die, you take one last shot and someone goes with you."
	case RoleCupid:
		return "On the first night you bind two players as lovers. If one dies, so does the other."
	case RoleSilencer:
		return "Each night you may silence one player for the following day."
	case RoleElder:
		return "You survive the first wolf attack. If the village lynches you, it loses all its powers."
	default:
		return "Find the werewolves and lynch them before they eat the village."
	}
}

// Team reports which side a role plays for.
func (r Role) Team() Team {
	if r == RoleWolf {
		return TeamWolves
	}
	return TeamVillage
}

// ParseRole accepts a role's display name or one of its aliases.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "villager":
		return RoleVillager, true
	case "werewolf", "wolf":
		return RoleWolf, true
	case "seer":
		return RoleSeer, true
	case "witch", "potion", "potion_user":
		return RoleWitch, true
	case "hunter":
		return RoleHunter, true
	case "cupid", "matchmaker":
		return RoleCupid, true
	case "silencer", "mute":
		return RoleSilencer, true
	case "elder", "immunity":
		return RoleElder, true
	}
	return RoleVillager, false
}

// Team is one side of the game.
type Team int

const (
	TeamNone Team = iota
	TeamVillage
	TeamWolves
)

func (t Team) String() string {
	switch t {
	case TeamVillage:
		return "village"
	case TeamWolves:
		return "wolves"
	default:
		return "none"
	}
}

// Identity is whatever the host knows an actor by.
type Identity interface {
	ExternalID() string
	DisplayName() string
	IsBot() bool
}

// Human is a real player reachable through the Messenger.
type Human struct {
	ID   string
	Name string
}

func (h Human) ExternalID() string  { return h.ID }
func (h Human) DisplayName() string { return h.Name }
func (h Human) IsBot() bool         { return false }

// Bot is a synthetic player driven by the engine itself.
type Bot struct {
	ID   string
	Name string
}

// NewBot returns a bot with a fresh unique id.
func NewBot(name string) Bot {
	return Bot{ID: "bot-" + uuid.NewString(), Name: name}
}

func (b Bot) ExternalID() string  { return b.ID }
func (b Bot) DisplayName() string { return b.Name }
func (b Bot) IsBot() bool         { return true }

// SkipVote is the ballot for not lynching anyone.
const SkipVote = "skip"

// Actor is a participant's per-game state. Fields are guarded by the
// owning Game's mutex.
type Actor struct {
	Identity

	Role         Role
	Alive        bool
	VotedFor     string
	LoverID      string
	HealPotion   bool
	KillPotion   bool
	ActedTonight bool
	ImmunityUsed bool
	Unreachable  bool
}

// ID is shorthand for ExternalID.
func (a *Actor) ID() string { return a.ExternalID() }

// Name is shorthand for DisplayName.
func (a *Actor) Name() string { return a.DisplayName() }
