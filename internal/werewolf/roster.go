package werewolf

import (
	"fmt"
	"strings"
)

// Roster holds a game's actors in join order. It is not safe for concurrent
// use; the owning Game serialises access.
type Roster struct {
	actors map[string]*Actor
	order  []string
}

func newRoster() *Roster {
	return &Roster{actors: make(map[string]*Actor)}
}

func (r *Roster) add(id Identity) (*Actor, error) {
	key := id.ExternalID()
	if _, ok := r.actors[key]; ok {
		return nil, fmt.Errorf("%w: %s is already in the game", ErrDuplicateActor, id.DisplayName())
	}
	a := &Actor{Identity: id, Alive: true}
	r.actors[key] = a
	r.order = append(r.order, key)
	return a, nil
}

func (r *Roster) remove(id string) (*Actor, error) {
	a, ok := r.actors[id]
	if !ok {
		return nil, fmt.Errorf("%w: no such player in the lobby", ErrNotFound)
	}
	delete(r.actors, id)
	for i, k := range r.order {
		if k == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return a, nil
}

// Get returns the actor with the given id, dead or alive.
func (r *Roster) Get(id string) (*Actor, bool) {
	a, ok := r.actors[id]
	return a, ok
}

// Len is the number of actors, dead or alive.
func (r *Roster) Len() int {
	return len(r.order)
}

// All returns every actor in join order.
func (r *Roster) All() []*Actor {
	out := make([]*Actor, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.actors[k])
	}
	return out
}

// Alive returns the living actors in join order.
func (r *Roster) Alive() []*Actor {
	var out []*Actor
	for _, k := range r.order {
		if a := r.actors[k]; a.Alive {
			out = append(out, a)
		}
	}
	return out
}

// FindByNameOrID matches a living actor by id or by case-insensitive name.
func (r *Roster) FindByNameOrID(token string) (*Actor, bool) {
	return r.find(token, true)
}

func (r *Roster) find(token string, aliveOnly bool) (*Actor, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, false
	}
	if a, ok := r.actors[token]; ok && (a.Alive || !aliveOnly) {
		return a, true
	}
	for _, k := range r.order {
		a := r.actors[k]
		if aliveOnly && !a.Alive {
			continue
		}
		if strings.EqualFold(a.DisplayName(), token) {
			return a, true
		}
	}
	return nil, false
}

func (r *Roster) aliveWithRole(role Role) []*Actor {
	var out []*Actor
	for _, a := range r.Alive() {
		if a.Role == role {
			out = append(out, a)
		}
	}
	return out
}

func (r *Roster) countAlive() (wolves, others int) {
	for _, a := range r.Alive() {
		if a.Role == RoleWolf {
			wolves++
		} else {
			others++
		}
	}
	return wolves, others
}

// resolveTarget maps a name or id to a living actor, telling apart the dead
// from the unknown.
func (r *Roster) resolveTarget(token string) (*Actor, error) {
	if a, ok := r.find(token, true); ok {
		return a, nil
	}
	if a, ok := r.find(token, false); ok {
		return nil, fmt.Errorf("%w: %s", ErrTargetDead, a.DisplayName())
	}
	return nil, fmt.Errorf("%w: nobody called %q", ErrInvalidTarget, token)
}

// link pairs two actors as lovers.
func link(a, b *Actor) {
	a.LoverID = b.ID()
	b.LoverID = a.ID()
}
