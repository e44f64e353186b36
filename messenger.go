package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"werewolfbot/internal/werewolf"
)

// wsMessenger delivers the engine's messages over the websocket hub.
type wsMessenger struct {
	hub *Hub
}

func (m *wsMessenger) Announce(_ context.Context, gameID, text string) error {
	m.hub.broadcastToGame(gameID, Frame{Type: "announce", GameID: gameID, Text: text})
	return nil
}

func (m *wsMessenger) DirectMessage(_ context.Context, actor werewolf.Identity, text string) error {
	err := m.hub.sendToPlayer(actor.ExternalID(), Frame{Type: "dm", Text: text})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", werewolf.ErrUnreachable, actor.DisplayName(), err)
	}
	return nil
}

func (m *wsMessenger) PresentChoice(ctx context.Context, actor werewolf.Identity, prompt string, options []werewolf.Option, timeout time.Duration) (string, error) {
	playerID := actor.ExternalID()
	if !m.hub.connected(playerID) {
		return "", fmt.Errorf("%w: %s", werewolf.ErrUnreachable, actor.DisplayName())
	}

	id, answer := m.hub.openPrompt(playerID, options)
	defer m.hub.closePrompt(id)

	frame := Frame{Type: "prompt", PromptID: id, Text: prompt, TimeoutMS: timeout.Milliseconds()}
	for _, o := range options {
		frame.Options = append(frame.Options, optionFrame{ID: o.ID, Label: o.Label})
	}
	if err := m.hub.sendToPlayer(playerID, frame); err != nil {
		return "", fmt.Errorf("%w: %s: %v", werewolf.ErrUnreachable, actor.DisplayName(), err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case choice := <-answer:
		return choice, nil
	case <-timer.C:
		return "", werewolf.ErrTimedOut
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *wsMessenger) CreatePrivateGroup(_ context.Context, gameID, name string, members []werewolf.Identity) (werewolf.GroupHandle, error) {
	handle := werewolf.GroupHandle(uuid.NewString())
	ids := make([]string, 0, len(members))
	names := make([]string, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.ExternalID())
		names = append(names, member.DisplayName())
	}
	m.hub.addGroup(handle, ids)

	frame := Frame{Type: "group", GameID: gameID, Group: string(handle), Text: name, Members: names}
	// The handle is returned even when a member misses the frame, so the
	// game always tears the group down.
	for _, id := range ids {
		if err := m.hub.sendToPlayer(id, frame); err != nil && !errors.Is(err, errNotConnected) {
			m.hub.logger.Error("CreatePrivateGroup: send to "+id, err)
		}
	}
	m.hub.logger.Debugf("CreatePrivateGroup: %s %q for %v", handle, name, names)
	return handle, nil
}

func (m *wsMessenger) SetMuted(_ context.Context, actor werewolf.Identity, muted bool) error {
	playerID := actor.ExternalID()
	m.hub.setMuted(playerID, muted)
	err := m.hub.sendToPlayer(playerID, Frame{Type: "voice", Muted: &muted})
	if errors.Is(err, errNotConnected) {
		return nil
	}
	return err
}

func (m *wsMessenger) Teardown(_ context.Context, handle werewolf.GroupHandle) error {
	for _, id := range m.hub.removeGroup(handle) {
		m.hub.sendToPlayer(id, Frame{Type: "group_closed", Group: string(handle)})
	}
	return nil
}
