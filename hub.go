package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"werewolfbot/internal/werewolf"
)

// WSMessage represents a message from the client
type WSMessage struct {
	Action   string   `json:"action"`
	GameID   string   `json:"game_id,omitempty"`
	Type     string   `json:"type,omitempty"` // night action type
	Target   string   `json:"target,omitempty"`
	Second   string   `json:"second,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Players  int      `json:"players,omitempty"`
	PromptID string   `json:"prompt_id,omitempty"`
	Choice   string   `json:"choice,omitempty"`
	Group    string   `json:"group,omitempty"`
	Text     string   `json:"text,omitempty"`
	Token    uint64   `json:"token,omitempty"`
}

type optionFrame struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Frame is everything the server pushes to a client.
type Frame struct {
	Type      string             `json:"type"` // announce, dm, prompt, prompt_closed, group, group_closed, group_message, chat, voice, state, toast
	GameID    string             `json:"game_id,omitempty"`
	Text      string             `json:"text,omitempty"`
	From      string             `json:"from,omitempty"`
	PromptID  string             `json:"prompt_id,omitempty"`
	Options   []optionFrame      `json:"options,omitempty"`
	TimeoutMS int64              `json:"timeout_ms,omitempty"`
	Group     string             `json:"group,omitempty"`
	Members   []string           `json:"members,omitempty"`
	Muted     *bool              `json:"muted,omitempty"`
	State     *werewolf.Snapshot `json:"state,omitempty"`
	Toast     *Toast             `json:"toast,omitempty"`
}

var errNotConnected = errors.New("player is not connected")

// Client represents a websocket connection with player info
type Client struct {
	conn     *websocket.Conn
	playerID string
	name     string
	writeMu  sync.Mutex // Serialize writes to WebSocket (required by gorilla/websocket)
	limiter  *rate.Limiter
}

func (c *Client) write(message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

func (c *Client) identity() werewolf.Human {
	return werewolf.Human{ID: c.playerID, Name: c.name}
}

type pendingPrompt struct {
	playerID string
	options  []werewolf.Option
	answer   chan string
}

// Hub tracks the websocket connections and the per-player state the
// messenger needs: game membership, voice, open prompts and private groups.
type Hub struct {
	clients    map[*websocket.Conn]*Client
	register   chan *Client
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	stateMu sync.Mutex
	games   map[string]string // player id -> game id
	muted   map[string]bool
	prompts map[string]*pendingPrompt
	groups  map[werewolf.GroupHandle][]string

	// onDisconnect runs when a player's last connection closes.
	onDisconnect func(playerID string)

	logger *AppLogger
}

func newHub(logger *AppLogger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*websocket.Conn]*Client),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn, 64),
		games:      make(map[string]string),
		muted:      make(map[string]bool),
		prompts:    make(map[string]*pendingPrompt),
		groups:     make(map[werewolf.GroupHandle][]string),
	}
}

func (h *Hub) sendToPlayer(playerID string, frame Frame) error {
	message, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("sendToPlayer: marshal %s: %w", frame.Type, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := false
	for _, client := range h.clients {
		if client.playerID != playerID {
			continue
		}
		h.logger.Frame("OUT", client.name, string(message))
		if err := client.write(message); err != nil {
			log.Printf("WebSocket write error to player %s: %v", playerID, err)
			continue
		}
		sent = true
	}
	if !sent {
		return errNotConnected
	}
	return nil
}

func (h *Hub) connected(playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.playerID == playerID {
			return true
		}
	}
	return false
}

func (h *Hub) setGame(playerID, gameID string) {
	h.stateMu.Lock()
	h.games[playerID] = gameID
	h.stateMu.Unlock()
}

func (h *Hub) leaveGame(playerID string) {
	h.stateMu.Lock()
	delete(h.games, playerID)
	delete(h.muted, playerID)
	h.stateMu.Unlock()
}

// clearGame drops every membership of gameID.
func (h *Hub) clearGame(gameID string) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	for playerID, g := range h.games {
		if g == gameID {
			delete(h.games, playerID)
			delete(h.muted, playerID)
		}
	}
}

func (h *Hub) membersOf(gameID string) []string {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	var ids []string
	for playerID, g := range h.games {
		if g == gameID {
			ids = append(ids, playerID)
		}
	}
	slices.Sort(ids)
	return ids
}

func (h *Hub) broadcastToGame(gameID string, frame Frame) {
	for _, id := range h.membersOf(gameID) {
		if err := h.sendToPlayer(id, frame); err != nil && !errors.Is(err, errNotConnected) {
			log.Printf("broadcastToGame: %s: %v", id, err)
		}
	}
}

func (h *Hub) setMuted(playerID string, muted bool) {
	h.stateMu.Lock()
	if muted {
		h.muted[playerID] = true
	} else {
		delete(h.muted, playerID)
	}
	h.stateMu.Unlock()
}

func (h *Hub) isMuted(playerID string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	return h.muted[playerID]
}

func (h *Hub) openPrompt(playerID string, options []werewolf.Option) (string, <-chan string) {
	id := uuid.NewString()
	p := &pendingPrompt{playerID: playerID, options: options, answer: make(chan string, 1)}
	h.stateMu.Lock()
	h.prompts[id] = p
	h.stateMu.Unlock()
	return id, p.answer
}

func (h *Hub) closePrompt(id string) {
	h.stateMu.Lock()
	p, ok := h.prompts[id]
	delete(h.prompts, id)
	h.stateMu.Unlock()
	if ok {
		h.sendToPlayer(p.playerID, Frame{Type: "prompt_closed", PromptID: id})
	}
}

// answerPrompt delivers a choice to the open prompt id. Only the prompted
// player may answer, and only with one of the offered options.
func (h *Hub) answerPrompt(playerID, id, choice string) error {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	p, ok := h.prompts[id]
	if !ok || p.playerID != playerID {
		return errors.New("that question is no longer open")
	}
	if !slices.ContainsFunc(p.options, func(o werewolf.Option) bool { return o.ID == choice }) {
		return errors.New("that is not one of the options")
	}
	select {
	case p.answer <- choice:
	default:
		return errors.New("you already answered")
	}
	return nil
}

func (h *Hub) addGroup(handle werewolf.GroupHandle, members []string) {
	h.stateMu.Lock()
	h.groups[handle] = members
	h.stateMu.Unlock()
}

func (h *Hub) removeGroup(handle werewolf.GroupHandle) []string {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	members := h.groups[handle]
	delete(h.groups, handle)
	return members
}

func (h *Hub) groupMembers(handle werewolf.GroupHandle) ([]string, bool) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	members, ok := h.groups[handle]
	return members, ok
}

// run serves register and unregister requests until ctx is done, then
// closes every connection.
func (h *Hub) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client connected (player %s: %s). Total: %d", client.playerID, client.name, total)

		case conn := <-h.unregister:
			var gonePlayerID string
			h.mu.Lock()
			client, ok := h.clients[conn]
			if ok {
				delete(h.clients, conn)
				conn.Close()

				hasOtherConn := false
				for _, c := range h.clients {
					if c.playerID == client.playerID {
						hasOtherConn = true
						break
					}
				}
				if !hasOtherConn {
					h.logger.Debugf("hub.unregister: player '%s' (ID: %s) has no more connections", client.name, client.playerID)
					gonePlayerID = client.playerID
				}
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected. Total: %d", total)
			// onDisconnect may send frames, which needs the read lock
			if gonePlayerID != "" && h.onDisconnect != nil {
				h.onDisconnect(gonePlayerID)
			}
		}
	}
}

func (app *App) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	player, err := app.playerFromSession(r)
	if err != nil {
		app.logger.Debugf("handleWebSocket: rejected connection, not logged in")
		http.Error(w, "Not logged in", http.StatusUnauthorized)
		return
	}

	var upgrader = websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error for player %d (%s): %v", player.ID, player.Name, err)
		return
	}

	limit := rate.Limit(app.cfg.WSRateLimit)
	if app.cfg.WSRateLimit <= 0 {
		limit = rate.Inf
	}
	client := &Client{
		conn:     conn,
		playerID: player.ActorID(),
		name:     player.Name,
		limiter:  rate.NewLimiter(limit, max(1, app.cfg.WSRateBurst)),
	}
	app.hub.register <- client

	go func() {
		defer func() {
			app.hub.unregister <- conn
		}()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if !client.limiter.Allow() {
				sendToast(app.hub, client.playerID, "warning", "Slow down")
				continue
			}
			app.handleWSMessage(client, message)
		}
	}()
}
