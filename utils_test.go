package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *AppLogger
	logger.Debugf("ignored %d", 1)
	logger.Frame("IN", "Alice", "{}")
	logger.DumpDB("ignored")
	logger.Error("nil logger", errors.New("still logged"))
	logger.Close()
	if logger.Enabled() {
		t.Errorf("nil logger reports extended logging")
	}
}

func TestLoggerWritesFramesAndDumps(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewAppLogger(LogConfig{OutputDir: dir, LogWS: true, LogDB: true, Dev: true})
	if err != nil {
		t.Fatalf("NewAppLogger: %v", err)
	}
	store, err := openStore(filepath.Join(dir, "stats.db"), logger)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer store.Close()
	logger.WatchDB(store.db)

	logger.Frame("OUT", "Alice", `{"type":"toast"}`)
	logger.Error("handleSomething", errors.New("boom"))
	logger.Close()

	ws, err := os.ReadFile(filepath.Join(dir, "websocket.log"))
	if err != nil || !strings.Contains(string(ws), `OUT [Alice]: {"type":"toast"}`) {
		t.Errorf("websocket.log = %q, %v", ws, err)
	}
	db, err := os.ReadFile(filepath.Join(dir, "database.log"))
	if err != nil || !strings.Contains(string(db), "error: handleSomething") || !strings.Contains(string(db), "-- player_stats") {
		t.Errorf("database.log = %q, %v", db, err)
	}
}
