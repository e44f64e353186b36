package main

import (
	"werewolfbot/internal/werewolf"
)

func (app *App) handleWSVote(client *Client, msg WSMessage) {
	g, ok := app.currentGame(client)
	if !ok {
		return
	}
	target := msg.Target
	if target == "" {
		target = werewolf.SkipVote
	}
	reply, err := g.SubmitVote(client.playerID, target)
	if err != nil {
		sendErrorToast(app.hub, client.playerID, "handleWSVote: SubmitVote", err)
		return
	}
	app.logger.Debugf("handleWSVote: %s voted %s", client.name, target)
	sendToast(app.hub, client.playerID, "success", reply)
}

// handleWSChoose answers an open prompt: a day ballot or a hunter's shot.
func (app *App) handleWSChoose(client *Client, msg WSMessage) {
	if err := app.hub.answerPrompt(client.playerID, msg.PromptID, msg.Choice); err != nil {
		sendToast(app.hub, client.playerID, "error", err.Error())
	}
}

// handleWSSay is open table talk. Muted players are not heard.
func (app *App) handleWSSay(client *Client, msg WSMessage) {
	g, ok := app.currentGame(client)
	if !ok || msg.Text == "" {
		return
	}
	if app.hub.isMuted(client.playerID) {
		sendToast(app.hub, client.playerID, "warning", "You cannot speak right now")
		return
	}
	app.hub.broadcastToGame(g.ID, Frame{Type: "chat", GameID: g.ID, From: client.name, Text: msg.Text})
}

// handleWSForceTimeout lets the host end the current phase early, as if its
// timer had run out. The token pins the phase the host was looking at.
func (app *App) handleWSForceTimeout(client *Client, msg WSMessage) {
	g, ok := app.currentGame(client)
	if !ok || !app.requireHost(client, g) {
		return
	}
	if err := g.ForceTimeout(werewolf.Token(msg.Token)); err != nil {
		sendErrorToast(app.hub, client.playerID, "handleWSForceTimeout: ForceTimeout", err)
	}
}
