package main

import (
	"errors"
	"log"

	"werewolfbot/internal/werewolf"
)

// sendState pushes playerID's own view of g.
func (app *App) sendState(g *werewolf.Game, playerID string) {
	snap := g.Snapshot(playerID)
	err := app.hub.sendToPlayer(playerID, Frame{Type: "state", GameID: g.ID, State: &snap})
	if err != nil && !errors.Is(err, errNotConnected) {
		log.Printf("sendState: %s: %v", playerID, err)
	}
}

func (app *App) broadcastState(g *werewolf.Game) {
	for _, id := range app.hub.membersOf(g.ID) {
		app.sendState(g, id)
	}
}

// watchGame pushes a fresh state to every member after each change of g,
// and releases the members once g is over.
func (app *App) watchGame(g *werewolf.Game) {
	events := g.Subscribe()
	defer g.Unsubscribe(events)

	app.broadcastState(g)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			app.logger.Debugf("watchGame: %s %s (day %d)", ev.GameID, ev.Kind, ev.Day)
			app.broadcastState(g)
		case <-g.Done():
			app.broadcastState(g)
			app.hub.clearGame(g.ID)
			log.Printf("watchGame: game %s over (winner: %s)", g.ID, g.Winner())
			return
		}
	}
}
