package werewolf

import (
	crand "crypto/rand"
	"math/rand/v2"
	"sort"
)

// RoleGates maps each special role to the minimum player count at which it
// may be dealt.
type RoleGates map[Role]int

// DefaultRoleGates returns the standard unlock thresholds.
func DefaultRoleGates() RoleGates {
	return RoleGates{
		RoleSeer:     3,
		RoleWitch:    4,
		RoleHunter:   5,
		RoleCupid:    8,
		RoleSilencer: 9,
		RoleElder:    10,
	}
}

var specialRoles = []Role{RoleSeer, RoleWitch, RoleHunter, RoleCupid, RoleSilencer, RoleElder}

func (g RoleGates) gate(r Role) int {
	if n, ok := g[r]; ok {
		return n
	}
	return DefaultRoleGates()[r]
}

// AssignRoles builds the multiset of roles for n players. Wolves come first,
// then every selected special that n unlocks, then villagers.
func AssignRoles(n int, selected []Role, gates RoleGates) []Role {
	if n <= 0 {
		return nil
	}
	wolves := max(1, n/3)
	roles := make([]Role, 0, n)
	for range wolves {
		roles = append(roles, RoleWolf)
	}
	if n == 1 {
		return roles
	}

	want := make(map[Role]bool, len(selected))
	for _, r := range selected {
		want[r] = true
	}
	ordered := append([]Role(nil), specialRoles...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return gates.gate(ordered[i]) < gates.gate(ordered[j])
	})

	for _, r := range ordered {
		if !want[r] || len(roles) >= n {
			continue
		}
		// Two players only ever get a seer beside the wolf.
		if n == 2 {
			if r == RoleSeer {
				roles = append(roles, r)
			}
			continue
		}
		if n >= gates.gate(r) {
			roles = append(roles, r)
		}
	}
	for len(roles) < n {
		roles = append(roles, RoleVillager)
	}
	return roles
}

// deal shuffles roles and hands them out in roster order.
func deal(actors []*Actor, roles []Role, rng *rand.Rand) {
	rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})
	for i, a := range actors {
		a.Role = roles[i]
		a.Alive = true
		a.HealPotion = a.Role == RoleWitch
		a.KillPotion = a.Role == RoleWitch
	}
}

// newRand returns a generator seeded from crypto/rand.
func newRand() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewChaCha8(seed))
}
