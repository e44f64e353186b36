package main

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"math/big"
	"net/http"
	"strconv"
)

const sessionCookieName = "werewolf_session"

func generateSecretCode() (string, error) {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (app *App) setSessionCookie(w http.ResponseWriter, playerID int64) error {
	tokenBig, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return err
	}
	token := tokenBig.Int64()
	if err := app.store.createSession(token, playerID); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    strconv.FormatInt(token, 10),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func sessionToken(r *http.Request) (int64, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return -1, err
	}
	return strconv.ParseInt(cookie.Value, 10, 64)
}

func (app *App) playerFromSession(r *http.Request) (Player, error) {
	token, err := sessionToken(r)
	if err != nil {
		return Player{}, err
	}
	return app.store.playerForSession(token)
}

func (app *App) handleSignup(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	secretCode, err := generateSecretCode()
	if err != nil {
		app.logger.Error("handleSignup: generateSecretCode", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	player, err := app.store.createPlayer(name, secretCode)
	if errors.Is(err, ErrNameTaken) {
		writeError(w, http.StatusConflict, "Name already taken. Use login with secret code if this is you.")
		return
	}
	if err != nil {
		app.logger.Error("handleSignup: createPlayer", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	log.Printf("New player created: name='%s', id=%d", name, player.ID)
	app.logger.Debugf("handleSignup: player '%s' signed up with ID %d", name, player.ID)
	app.logger.DumpDB("after signup: " + name)

	if err := app.setSessionCookie(w, player.ID); err != nil {
		app.logger.Error("handleSignup: setSessionCookie", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":          player.ActorID(),
		"name":        player.Name,
		"secret_code": player.SecretCode,
	})
}

func (app *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	secretCode := r.FormValue("secret_code")

	if name == "" || secretCode == "" {
		writeError(w, http.StatusBadRequest, "Name and secret code are required")
		return
	}

	player, err := app.store.playerByCredentials(name, secretCode)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusUnauthorized, "Invalid name or secret code")
		return
	}
	if err != nil {
		app.logger.Error("handleLogin: playerByCredentials", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	log.Printf("Player logged in: name='%s', id=%d", name, player.ID)
	if err := app.setSessionCookie(w, player.ID); err != nil {
		app.logger.Error("handleLogin: setSessionCookie", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": player.ActorID(), "name": player.Name})
}

func (app *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, err := sessionToken(r); err == nil {
		if err := app.store.deleteSession(token); err != nil {
			app.logger.Error("handleLogout: deleteSession", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
