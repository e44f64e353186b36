package main

import (
	"slices"

	"werewolfbot/internal/werewolf"
)

func (app *App) handleWSNightAction(client *Client, msg WSMessage) {
	g, ok := app.currentGame(client)
	if !ok {
		return
	}
	action := werewolf.NightAction{
		Type:   werewolf.ActionType(msg.Type),
		Target: msg.Target,
		Second: msg.Second,
	}
	reply, err := g.SubmitNightAction(client.playerID, action)
	if err != nil {
		sendErrorToast(app.hub, client.playerID, "handleWSNightAction: SubmitNightAction", err)
		return
	}
	app.logger.Debugf("handleWSNightAction: %s %s %s: %s", client.name, msg.Type, msg.Target, reply)
	app.hub.sendToPlayer(client.playerID, Frame{Type: "dm", GameID: g.ID, Text: reply})
}

// handleWSGroupMessage relays a line to a private group the sender belongs to.
func (app *App) handleWSGroupMessage(client *Client, msg WSMessage) {
	handle := werewolf.GroupHandle(msg.Group)
	members, ok := app.hub.groupMembers(handle)
	if !ok || !slices.Contains(members, client.playerID) {
		sendToast(app.hub, client.playerID, "error", "You are not in that group")
		return
	}
	if msg.Text == "" {
		return
	}
	frame := Frame{Type: "group_message", Group: msg.Group, From: client.name, Text: msg.Text}
	for _, id := range members {
		app.hub.sendToPlayer(id, frame)
	}
}
