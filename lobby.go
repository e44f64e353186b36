package main

import (
	"errors"
	"fmt"
	"log"

	"werewolfbot/internal/werewolf"
)

// currentGame returns the game the client plays in, telling them when there
// is none.
func (app *App) currentGame(client *Client) (*werewolf.Game, bool) {
	g, ok := app.games.GameFor(client.playerID)
	if !ok {
		sendToast(app.hub, client.playerID, "error", "You are not in a game")
	}
	return g, ok
}

// requireHost checks that client hosts g.
func (app *App) requireHost(client *Client, g *werewolf.Game) bool {
	if g.HostID != client.playerID {
		sendToast(app.hub, client.playerID, "error", "Only the host can do that")
		return false
	}
	return true
}

func (app *App) handleWSCreateLobby(client *Client) {
	g, err := app.games.CreateLobby(client.identity())
	if err != nil {
		sendErrorToast(app.hub, client.playerID, "handleWSCreateLobby: CreateLobby", err)
		return
	}
	app.hub.setGame(client.playerID, g.ID)
	go app.watchGame(g)

	log.Printf("Lobby %s created by %s", g.ID, client.name)
	sendToast(app.hub, client.playerID, "success", "Lobby created. Share the code "+g.ID)
	app.sendState(g, client.playerID)
}

func (app *App) handleWSJoin(client *Client, msg WSMessage) {
	if msg.GameID == "" {
		sendToast(app.hub, client.playerID, "error", "Which game?")
		return
	}
	g, line, err := app.games.Join(msg.GameID, client.identity())
	if err != nil {
		sendErrorToast(app.hub, client.playerID, "handleWSJoin: Join", err)
		return
	}
	app.hub.setGame(client.playerID, g.ID)
	app.logger.Debugf("handleWSJoin: %s", line)
	app.sendState(g, client.playerID)
}

func (app *App) handleWSLeave(client *Client) {
	g, ok := app.currentGame(client)
	if !ok {
		return
	}
	app.leaveGame(g, client.playerID)
}

// leaveGame takes playerID out of g. A leaving host closes the lobby.
func (app *App) leaveGame(g *werewolf.Game, playerID string) {
	if g.HostID == playerID {
		if err := g.Stop("the host left"); err != nil && !errors.Is(err, werewolf.ErrGameOver) {
			app.logger.Error("leaveGame: Stop", err)
		}
		return
	}
	if _, err := g.Leave(playerID); err != nil {
		sendErrorToast(app.hub, playerID, "leaveGame: Leave", err)
		return
	}
	app.hub.leaveGame(playerID)
	sendToast(app.hub, playerID, "info", "You left the game")
}

// playerDisconnected frees a lobby seat when its player's last connection
// closes. Started games keep the seat; the engine treats the player as
// unreachable.
func (app *App) playerDisconnected(playerID string) {
	g, ok := app.games.GameFor(playerID)
	if !ok || g.Phase() != werewolf.PhaseJoining {
		return
	}
	app.logger.Debugf("playerDisconnected: %s leaves lobby %s", playerID, g.ID)
	app.leaveGame(g, playerID)
}

func (app *App) handleWSStart(client *Client, msg WSMessage) {
	g, ok := app.currentGame(client)
	if !ok || !app.requireHost(client, g) {
		return
	}

	var roles []werewolf.Role
	for _, name := range msg.Roles {
		role, ok := werewolf.ParseRole(name)
		if !ok {
			sendToast(app.hub, client.playerID, "error", fmt.Sprintf("Unknown role %q", name))
			return
		}
		roles = append(roles, role)
	}

	if err := g.ConfigureAndStart(roles, msg.Players); err != nil {
		sendErrorToast(app.hub, client.playerID, "handleWSStart: ConfigureAndStart", err)
		return
	}
	log.Printf("Game %s started by %s", g.ID, client.name)
}

func (app *App) handleWSStop(client *Client) {
	g, ok := app.currentGame(client)
	if !ok || !app.requireHost(client, g) {
		return
	}
	if err := g.Stop("stopped by the host"); err != nil {
		sendErrorToast(app.hub, client.playerID, "handleWSStop: Stop", err)
	}
}
