package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// AppLogger writes the server's extended diagnostics: request, WebSocket
// and database logs under outputDir, plus debug lines on the standard log.
// A nil *AppLogger is valid and only reports errors.
type AppLogger struct {
	outputDir   string
	logRequests bool
	logDB       bool
	logWS       bool
	debug       bool
	dev         bool

	mu         sync.Mutex
	requestLog *os.File
	dbLog      *os.File
	wsLog      *os.File
	db         *sqlx.DB
	requests   int
	frames     int
}

// LogConfig holds logging configuration
type LogConfig struct {
	OutputDir   string
	LogRequests bool
	LogDB       bool
	LogWS       bool
	Debug       bool
	Dev         bool
}

// NewAppLogger opens the log files config asks for.
func NewAppLogger(config LogConfig) (*AppLogger, error) {
	al := &AppLogger{
		outputDir:   config.OutputDir,
		logRequests: config.LogRequests,
		logDB:       config.LogDB,
		logWS:       config.LogWS,
		debug:       config.Debug,
		dev:         config.Dev,
	}
	if al.outputDir == "" {
		return al, nil
	}
	if err := os.MkdirAll(al.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("NewAppLogger: create %s: %w", al.outputDir, err)
	}

	files := []struct {
		enabled bool
		name    string
		dst     **os.File
	}{
		{al.logRequests, "requests.log", &al.requestLog},
		{al.logDB, "database.log", &al.dbLog},
		{al.logWS, "websocket.log", &al.wsLog},
	}
	for _, f := range files {
		if !f.enabled {
			continue
		}
		file, err := os.OpenFile(filepath.Join(al.outputDir, f.name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			al.Close()
			return nil, fmt.Errorf("NewAppLogger: open %s: %w", f.name, err)
		}
		*f.dst = file
	}
	return al, nil
}

// WatchDB sets the database dumped by DumpDB.
func (al *AppLogger) WatchDB(db *sqlx.DB) {
	if al == nil {
		return
	}
	al.mu.Lock()
	al.db = db
	al.mu.Unlock()
}

// Close closes all open log files
func (al *AppLogger) Close() {
	if al == nil {
		return
	}
	for _, f := range []*os.File{al.requestLog, al.dbLog, al.wsLog} {
		if f != nil {
			f.Close()
		}
	}
}

// Enabled reports whether any extended logging is on.
func (al *AppLogger) Enabled() bool {
	return al != nil && (al.logRequests || al.logDB || al.logWS || al.debug)
}

// Debugf logs a debug line when debug logging is on. The engine's Debugf
// hook points here.
func (al *AppLogger) Debugf(format string, args ...any) {
	if al == nil || !al.debug {
		return
	}
	log.Printf("[DEBUG] "+format, args...)
}

// Error logs err with its context and, in dev mode, dumps the database.
func (al *AppLogger) Error(context string, err error) {
	log.Printf("ERROR [%s]: %v", context, err)
	if al != nil && al.dev {
		al.DumpDB("error: " + context)
	}
}

// Frame records one WebSocket frame to or from a player.
func (al *AppLogger) Frame(direction, player, message string) {
	if al == nil || al.wsLog == nil {
		return
	}
	al.mu.Lock()
	defer al.mu.Unlock()
	al.frames++
	fmt.Fprintf(al.wsLog, "[%s] #%d %s [%s]: %s\n",
		time.Now().Format("15:04:05.000"), al.frames, direction, player, message)
}

// request records one HTTP exchange.
func (al *AppLogger) request(r *http.Request, reqBody []byte, status int, header http.Header, respBody []byte) {
	if al == nil || al.requestLog == nil {
		return
	}
	al.mu.Lock()
	defer al.mu.Unlock()
	al.requests++

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "\n== #%d [%s] %s %s -> %d\n", al.requests, time.Now().Format("15:04:05.000"), r.Method, r.URL, status)
	if len(reqBody) > 0 {
		fmt.Fprintf(&buf, "> %s\n", reqBody)
	}
	for k, v := range header {
		fmt.Fprintf(&buf, "< %s: %s\n", k, strings.Join(v, ", "))
	}
	if len(respBody) > 5000 {
		fmt.Fprintf(&buf, "< %s\n< ... %d bytes total\n", respBody[:5000], len(respBody))
	} else if len(respBody) > 0 {
		fmt.Fprintf(&buf, "< %s\n", respBody)
	}
	al.requestLog.Write(buf.Bytes())
}

// DumpDB writes every table of the watched database to database.log.
func (al *AppLogger) DumpDB(context string) {
	if al == nil {
		return
	}
	al.mu.Lock()
	defer al.mu.Unlock()
	if al.dbLog == nil || al.db == nil {
		return
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "\n== DATABASE [%s] %s\n", time.Now().Format("15:04:05.000"), context)

	var tables []string
	if err := al.db.Select(&tables, "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name"); err != nil {
		fmt.Fprintf(&buf, "tables: %v\n", err)
		al.dbLog.Write(buf.Bytes())
		return
	}
	for _, table := range tables {
		fmt.Fprintf(&buf, "-- %s\n", table)
		rows, err := al.db.Queryx("SELECT * FROM " + table)
		if err != nil {
			fmt.Fprintf(&buf, "%v\n", err)
			continue
		}
		n := 0
		for rows.Next() {
			cols, err := rows.SliceScan()
			if err != nil {
				fmt.Fprintf(&buf, "scan: %v\n", err)
				continue
			}
			n++
			cells := make([]string, len(cols))
			for i, v := range cols {
				switch val := v.(type) {
				case nil:
					cells[i] = "NULL"
				case []byte:
					cells[i] = string(val)
				default:
					cells[i] = fmt.Sprint(val)
				}
			}
			fmt.Fprintf(&buf, "%d: %s\n", n, strings.Join(cells, " | "))
		}
		rows.Close()
		if n == 0 {
			buf.WriteString("(empty)\n")
		}
	}
	al.dbLog.Write(buf.Bytes())
}

// LoggingHandler records every HTTP exchange to requests.log. The /ws
// upgrade needs http.Hijacker, so it is noted and passed through.
type LoggingHandler struct {
	Handler http.Handler
	Logger  *AppLogger
}

func (l *LoggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/ws" {
		l.Logger.request(r, nil, http.StatusSwitchingProtocols, nil, []byte("[WebSocket upgrade]"))
		l.Handler.ServeHTTP(w, r)
		return
	}

	var reqBody []byte
	if r.Body != nil {
		reqBody, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(reqBody))
	}

	rec := httptest.NewRecorder()
	l.Handler.ServeHTTP(rec, r)

	for k, v := range rec.Header() {
		w.Header()[k] = v
	}
	w.WriteHeader(rec.Code)
	respBody := rec.Body.Bytes()
	w.Write(respBody)

	l.Logger.request(r, reqBody, rec.Code, rec.Header(), respBody)
}
