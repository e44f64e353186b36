package main

import (
	"log"
	"strconv"
	"sync/atomic"

	"werewolfbot/internal/werewolf"
)

// Toast represents a notification message to show to the user
type Toast struct {
	ID      string `json:"id"`
	Type    string `json:"type"` // "error", "warning", "success", "info"
	Message string `json:"message"`
}

var toastCounter atomic.Int64

func sendToast(h *Hub, playerID, toastType, message string) {
	toast := Toast{ID: strconv.FormatInt(toastCounter.Add(1), 10), Type: toastType, Message: message}
	if err := h.sendToPlayer(playerID, Frame{Type: "toast", Toast: &toast}); err != nil {
		log.Printf("sendToast: %s: %v", playerID, err)
	}
}

// sendErrorToast tells one player why their action was refused. Engine
// rejections carry a readable message; anything else is logged instead.
func sendErrorToast(h *Hub, playerID string, context string, err error) {
	if werewolf.KindOf(err) == werewolf.KindNone {
		h.logger.Error(context, err)
		sendToast(h, playerID, "error", "Something went wrong")
		return
	}
	h.logger.Debugf("%s: rejected for %s: %v", context, playerID, err)
	sendToast(h, playerID, "error", err.Error())
}
