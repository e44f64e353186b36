package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"werewolfbot/internal/werewolf"
)

// App ties the server's parts together: the stats store, the websocket hub,
// the games and the diagnostics logger. logger may be nil.
type App struct {
	cfg    AppConfig
	store  *Store
	hub    *Hub
	games  *werewolf.Manager
	logger *AppLogger
}

func newApp(cfg AppConfig, store *Store, narrator werewolf.Narrator, logger *AppLogger) *App {
	app := &App{cfg: cfg, store: store, hub: newHub(logger), logger: logger}
	ec := cfg.engineConfig()
	ec.Debugf = logger.Debugf
	app.games = werewolf.NewManager(ec, &wsMessenger{hub: app.hub}, narrator, store)
	app.hub.onDisconnect = app.playerDisconnected
	return app
}

func (app *App) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// The websocket outlives any request timeout.
	r.Get("/ws", app.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		r.Post("/signup", app.handleSignup)
		r.Post("/login", app.handleLogin)
		r.Post("/logout", app.handleLogout)
		r.Get("/leaderboard", app.handleLeaderboard)
		r.Get("/games/{id}", app.handleGameState)
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "games": len(app.games.Games())})
		})
	})

	if app.logger != nil && app.logger.logRequests {
		return &LoggingHandler{Handler: r, Logger: app.logger}
	}
	return r
}

func (app *App) handleWSMessage(client *Client, message []byte) {
	var msg WSMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("WebSocket unmarshal error for player %s: %v", client.playerID, err)
		sendToast(app.hub, client.playerID, "error", "Malformed message")
		return
	}

	app.logger.Frame("IN", client.name, string(message))

	switch msg.Action {
	case "create_lobby":
		app.handleWSCreateLobby(client)
	case "join":
		app.handleWSJoin(client, msg)
	case "leave":
		app.handleWSLeave(client)
	case "start":
		app.handleWSStart(client, msg)
	case "stop":
		app.handleWSStop(client)
	case "night_action":
		app.handleWSNightAction(client, msg)
	case "vote":
		app.handleWSVote(client, msg)
	case "choose":
		app.handleWSChoose(client, msg)
	case "say":
		app.handleWSSay(client, msg)
	case "group_message":
		app.handleWSGroupMessage(client, msg)
	case "force_timeout":
		app.handleWSForceTimeout(client, msg)
	default:
		log.Printf("Unknown action: %s for player %s (%s)", msg.Action, client.playerID, client.name)
		sendToast(app.hub, client.playerID, "error", "Unknown action")
	}
}

func (app *App) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	rows, err := app.store.Leaderboard(r.Context(), limit)
	if err != nil {
		app.logger.Error("handleLeaderboard: Leaderboard", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if rows == nil {
		rows = []PlayerStats{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleGameState returns the caller's view of a game they play in.
func (app *App) handleGameState(w http.ResponseWriter, r *http.Request) {
	player, err := app.playerFromSession(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	g, ok := app.games.Get(chi.URLParam(r, "id"))
	if !ok || !g.Has(player.ActorID()) {
		writeError(w, http.StatusNotFound, "No such game")
		return
	}
	writeJSON(w, http.StatusOK, g.Snapshot(player.ActorID()))
}

func main() {
	flags := registerFlags(flag.CommandLine)
	flag.Parse()
	cfg := loadConfig(*flags.configPath)
	flags.applyTo(&cfg)

	// Set up logging to both stdout and file
	logFile, err := os.OpenFile("werewolf.log", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		log.Fatal("Failed to open log file:", err)
	}
	defer logFile.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))

	logger, err := NewAppLogger(cfg.toLogConfig())
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Close()
	if logger.Enabled() {
		log.Println("Extended logging enabled")
	}

	store, err := openStore(cfg.DB, logger)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer store.Close()
	logger.WatchDB(store.db)
	logger.DumpDB("after initDB")

	app := newApp(cfg, store, newNarrator(cfg), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.Addr, Handler: app.router()}
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return app.hub.run(ctx)
	})
	eg.Go(func() error {
		log.Printf("Server starting on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down")
		app.games.StopAll("the server is shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := eg.Wait(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
