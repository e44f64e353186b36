package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"werewolfbot/internal/werewolf"
)

// AppConfig holds all server configuration.
// Priority (lowest → highest): defaults < .env file < env vars < JSON config file < CLI flags.
type AppConfig struct {
	// Server
	DB   string `json:"db"`   // database connection string
	Dev  bool   `json:"dev"`  // dev mode: verbose logging, db dumps on errors
	Addr string `json:"addr"` // HTTP listen address

	// Logging (extended diagnostics, off by default)
	LogOutputDir string `json:"log_output_dir"`
	LogRequests  bool   `json:"log_requests"`
	LogDB        bool   `json:"log_db"`
	LogWS        bool   `json:"log_ws"`
	LogDebug     bool   `json:"log_debug"`

	// Game timings, as time.ParseDuration strings
	NightTimeout      string `json:"night_timeout"`
	DayVoteTimeout    string `json:"day_vote_timeout"`
	HunterTimeout     string `json:"hunter_timeout"`
	BotDelayMin       string `json:"bot_delay_min"`
	BotDelayMax       string `json:"bot_delay_max"`
	NarrationTimeout  string `json:"narration_timeout"`
	NarrationPauseMax string `json:"narration_pause_max"`
	MaxPlayers        int    `json:"max_players"`

	// Role gates: minimum player count before a role is dealt
	Gates map[string]int `json:"gates"`

	// WebSocket inbound rate limit (messages per second, burst)
	WSRateLimit float64 `json:"ws_rate_limit"`
	WSRateBurst int     `json:"ws_rate_burst"`

	// AI Storyteller
	StorytellerProvider    string `json:"storyteller_provider"`    // ollama | openai | claude | gemini | groq | openai-compatible
	StorytellerModel       string `json:"storyteller_model"`       // model name
	StorytellerOllamaURL   string `json:"storyteller_ollama_url"`  // Ollama server URL
	StorytellerURL         string `json:"storyteller_url"`         // base URL for openai-compatible
	StorytellerAPIKey      string `json:"storyteller_api_key"`     // API key for openai-compatible
	StorytellerTemperature string `json:"storyteller_temperature"` // float 0-1 as string
	StorytellerThinking    string `json:"storyteller_thinking"`    // none | low | medium | high | auto
	GroqAPIKey             string `json:"groq_api_key"`            // API key for groq provider
}

func (cfg AppConfig) toLogConfig() LogConfig {
	return LogConfig{
		OutputDir:   cfg.LogOutputDir,
		LogRequests: cfg.LogRequests,
		LogDB:       cfg.LogDB,
		LogWS:       cfg.LogWS,
		Debug:       cfg.LogDebug,
		Dev:         cfg.Dev,
	}
}

func defaultConfig() AppConfig {
	return AppConfig{
		DB:                   "file::memory:?cache=shared",
		Addr:                 ":8080",
		NightTimeout:         "3m",
		DayVoteTimeout:       "3m",
		HunterTimeout:        "45s",
		BotDelayMin:          "2s",
		BotDelayMax:          "8s",
		NarrationTimeout:     "15s",
		NarrationPauseMax:    "20s",
		MaxPlayers:           30,
		WSRateLimit:          5,
		WSRateBurst:          10,
		StorytellerOllamaURL: "http://localhost:11434",
	}
}

// duration parses one of the timing keys, falling back to fallback when the
// value is empty or malformed.
func duration(key, value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Config: invalid %s %q: %v", key, value, err)
		return fallback
	}
	return d
}

// wait parses a delay key where an explicit zero turns the wait off. The
// engine reads zero as unset and negative as off.
func wait(key, value string, fallback time.Duration) time.Duration {
	d := duration(key, value, fallback)
	if d == 0 {
		return -1
	}
	return d
}

// engineConfig converts the timing and gate keys into the engine's Config.
func (cfg AppConfig) engineConfig() werewolf.Config {
	d := werewolf.DefaultConfig()
	ec := werewolf.Config{
		NightTimeout:      duration("night_timeout", cfg.NightTimeout, d.NightTimeout),
		DayVoteTimeout:    duration("day_vote_timeout", cfg.DayVoteTimeout, d.DayVoteTimeout),
		HunterTimeout:     duration("hunter_timeout", cfg.HunterTimeout, d.HunterTimeout),
		BotDelayMin:       wait("bot_delay_min", cfg.BotDelayMin, d.BotDelayMin),
		BotDelayMax:       wait("bot_delay_max", cfg.BotDelayMax, d.BotDelayMax),
		NarrationPauseMax: wait("narration_pause_max", cfg.NarrationPauseMax, d.NarrationPauseMax),
		MaxPlayers:        cfg.MaxPlayers,
		Gates:             werewolf.DefaultRoleGates(),
	}
	for name, n := range cfg.Gates {
		role, ok := werewolf.ParseRole(name)
		if !ok {
			log.Printf("Config: unknown role %q in gates", name)
			continue
		}
		ec.Gates[role] = n
	}
	return ec
}

// loadConfig builds a config by layering: defaults → .env → env vars → JSON config file.
// CLI flag overrides are applied separately by flagValues.applyTo after parsing.
func loadConfig(configPath string) AppConfig {
	cfg := defaultConfig()

	// Layer 1: .env file; never overrides variables already in the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Config: failed to load .env: %v", err)
	}

	// Layer 2: env vars
	envStr := os.Getenv
	envBool := func(key string) (val bool, set bool) {
		v := os.Getenv(key)
		if v == "" {
			return false, false
		}
		return v == "1" || v == "true" || v == "yes", true
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			} else {
				log.Printf("Config: invalid %s %q: %v", key, v, err)
			}
		}
	}

	if v := envStr("DB"); v != "" {
		cfg.DB = v
	}
	if v, ok := envBool("DEV"); ok {
		cfg.Dev = v
	}
	if v := envStr("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := envStr("LOG_OUTPUT_DIR"); v != "" {
		cfg.LogOutputDir = v
	}
	if v, ok := envBool("LOG_REQUESTS"); ok {
		cfg.LogRequests = v
	}
	if v, ok := envBool("LOG_DB"); ok {
		cfg.LogDB = v
	}
	if v, ok := envBool("LOG_WS"); ok {
		cfg.LogWS = v
	}
	if v, ok := envBool("LOG_DEBUG"); ok {
		cfg.LogDebug = v
	}
	for key, dst := range map[string]*string{
		"NIGHT_TIMEOUT":       &cfg.NightTimeout,
		"DAY_VOTE_TIMEOUT":    &cfg.DayVoteTimeout,
		"HUNTER_TIMEOUT":      &cfg.HunterTimeout,
		"BOT_DELAY_MIN":       &cfg.BotDelayMin,
		"BOT_DELAY_MAX":       &cfg.BotDelayMax,
		"NARRATION_TIMEOUT":   &cfg.NarrationTimeout,
		"NARRATION_PAUSE_MAX": &cfg.NarrationPauseMax,
	} {
		if v := envStr(key); v != "" {
			*dst = v
		}
	}
	envInt("MAX_PLAYERS", &cfg.MaxPlayers)
	envInt("WS_RATE_BURST", &cfg.WSRateBurst)
	if v := envStr("WS_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.WSRateLimit = f
		} else {
			log.Printf("Config: invalid WS_RATE_LIMIT %q: %v", v, err)
		}
	}
	// GATE_SEER=5, GATE_WITCH=6, ...
	for _, kv := range os.Environ() {
		key, value, _ := strings.Cut(kv, "=")
		name, ok := strings.CutPrefix(key, "GATE_")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("Config: invalid %s %q: %v", key, value, err)
			continue
		}
		if cfg.Gates == nil {
			cfg.Gates = make(map[string]int)
		}
		cfg.Gates[strings.ToLower(name)] = n
	}
	if v := envStr("STORYTELLER_PROVIDER"); v != "" {
		cfg.StorytellerProvider = v
	}
	if v := envStr("STORYTELLER_MODEL"); v != "" {
		cfg.StorytellerModel = v
	}
	if v := envStr("STORYTELLER_OLLAMA_URL"); v != "" {
		cfg.StorytellerOllamaURL = v
	}
	if v := envStr("STORYTELLER_URL"); v != "" {
		cfg.StorytellerURL = v
	}
	if v := envStr("STORYTELLER_API_KEY"); v != "" {
		cfg.StorytellerAPIKey = v
	}
	if v := envStr("STORYTELLER_TEMPERATURE"); v != "" {
		cfg.StorytellerTemperature = v
	}
	if v := envStr("STORYTELLER_THINKING"); v != "" {
		cfg.StorytellerThinking = v
	}
	if v := envStr("GROQ_API_KEY"); v != "" {
		cfg.GroqAPIKey = v
	}

	// Layer 3: JSON config file, only fields present in the file override env vars
	if data, err := os.ReadFile(configPath); err == nil {
		var overlay map[string]json.RawMessage
		if err := json.Unmarshal(data, &overlay); err != nil {
			log.Printf("Config: failed to parse %s: %v", configPath, err)
		} else {
			applyJSONOverlay(&cfg, overlay)
			log.Printf("Config: loaded from %s", configPath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Config: failed to read %s: %v", configPath, err)
	}

	return cfg
}

// applyJSONOverlay only sets fields that are explicitly present in the JSON map.
func applyJSONOverlay(cfg *AppConfig, m map[string]json.RawMessage) {
	field := func(key string, dst any) {
		if v, ok := m[key]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				log.Printf("Config: invalid %s: %v", key, err)
			}
		}
	}
	field("db", &cfg.DB)
	field("dev", &cfg.Dev)
	field("addr", &cfg.Addr)
	field("log_output_dir", &cfg.LogOutputDir)
	field("log_requests", &cfg.LogRequests)
	field("log_db", &cfg.LogDB)
	field("log_ws", &cfg.LogWS)
	field("log_debug", &cfg.LogDebug)
	field("night_timeout", &cfg.NightTimeout)
	field("day_vote_timeout", &cfg.DayVoteTimeout)
	field("hunter_timeout", &cfg.HunterTimeout)
	field("bot_delay_min", &cfg.BotDelayMin)
	field("bot_delay_max", &cfg.BotDelayMax)
	field("narration_timeout", &cfg.NarrationTimeout)
	field("narration_pause_max", &cfg.NarrationPauseMax)
	field("max_players", &cfg.MaxPlayers)
	field("ws_rate_limit", &cfg.WSRateLimit)
	field("ws_rate_burst", &cfg.WSRateBurst)
	if v, ok := m["gates"]; ok {
		var gates map[string]int
		if err := json.Unmarshal(v, &gates); err != nil {
			log.Printf("Config: invalid gates: %v", err)
		} else {
			if cfg.Gates == nil {
				cfg.Gates = make(map[string]int)
			}
			for k, n := range gates {
				cfg.Gates[strings.ToLower(k)] = n
			}
		}
	}
	field("storyteller_provider", &cfg.StorytellerProvider)
	field("storyteller_model", &cfg.StorytellerModel)
	field("storyteller_ollama_url", &cfg.StorytellerOllamaURL)
	field("storyteller_url", &cfg.StorytellerURL)
	field("storyteller_api_key", &cfg.StorytellerAPIKey)
	field("storyteller_temperature", &cfg.StorytellerTemperature)
	field("storyteller_thinking", &cfg.StorytellerThinking)
	field("groq_api_key", &cfg.GroqAPIKey)
}

// flagValues holds pointers to all registered CLI flags.
type flagValues struct {
	fs *flag.FlagSet

	configPath             *string
	db                     *string
	dev                    *bool
	addr                   *string
	logOutputDir           *string
	logRequests            *bool
	logDB                  *bool
	logWS                  *bool
	logDebug               *bool
	nightTimeout           *string
	dayVoteTimeout         *string
	hunterTimeout          *string
	botDelayMin            *string
	botDelayMax            *string
	narrationTimeout       *string
	narrationPauseMax      *string
	maxPlayers             *int
	wsRateLimit            *float64
	wsRateBurst            *int
	storytellerProvider    *string
	storytellerModel       *string
	storytellerOllamaURL   *string
	storytellerURL         *string
	storytellerAPIKey      *string
	storytellerTemperature *string
	storytellerThinking    *string
	groqAPIKey             *string
}

// registerFlags registers all CLI flags on fs and returns pointers to their values.
// Parse fs after this, then applyTo to layer them over the loaded config.
func registerFlags(fs *flag.FlagSet) flagValues {
	return flagValues{
		fs:                     fs,
		configPath:             fs.String("config", "config.json", "path to JSON config file"),
		db:                     fs.String("db", "", "database connection string"),
		dev:                    fs.Bool("dev", false, "enable development mode (verbose logging, db dumps on error)"),
		addr:                   fs.String("addr", "", "HTTP listen address (e.g. :8080)"),
		logOutputDir:           fs.String("log-output-dir", "", "directory for extended log files"),
		logRequests:            fs.Bool("log-requests", false, "log HTTP requests and responses"),
		logDB:                  fs.Bool("log-db", false, "log database dumps"),
		logWS:                  fs.Bool("log-ws", false, "log WebSocket messages"),
		logDebug:               fs.Bool("log-debug", false, "enable debug logging"),
		nightTimeout:           fs.String("night-timeout", "", "how long a night may last (e.g. 3m)"),
		dayVoteTimeout:         fs.String("day-vote-timeout", "", "how long the day vote may last"),
		hunterTimeout:          fs.String("hunter-timeout", "", "how long a dying hunter has to shoot"),
		botDelayMin:            fs.String("bot-delay-min", "", "shortest bot thinking time"),
		botDelayMax:            fs.String("bot-delay-max", "", "longest bot thinking time"),
		narrationTimeout:       fs.String("narration-timeout", "", "how long to wait for the storyteller"),
		narrationPauseMax:      fs.String("narration-pause-max", "", "longest pause after a narrated line"),
		maxPlayers:             fs.Int("max-players", 0, "lobby size limit"),
		wsRateLimit:            fs.Float64("ws-rate-limit", 0, "WebSocket messages per second per client"),
		wsRateBurst:            fs.Int("ws-rate-burst", 0, "WebSocket message burst per client"),
		storytellerProvider:    fs.String("storyteller-provider", "", "AI storyteller provider (ollama|openai|claude|gemini|groq|openai-compatible)"),
		storytellerModel:       fs.String("storyteller-model", "", "AI storyteller model name"),
		storytellerOllamaURL:   fs.String("storyteller-ollama-url", "", "Ollama server URL"),
		storytellerURL:         fs.String("storyteller-url", "", "base URL for openai-compatible provider"),
		storytellerAPIKey:      fs.String("storyteller-api-key", "", "API key for storyteller provider"),
		storytellerTemperature: fs.String("storyteller-temperature", "", "sampling temperature 0-1"),
		storytellerThinking:    fs.String("storyteller-thinking", "", "thinking mode: none|low|medium|high|auto"),
		groqAPIKey:             fs.String("groq-api-key", "", "Groq API key"),
	}
}

// applyTo overlays any CLI flags that were explicitly set onto cfg.
// Flags that were not passed on the command line are ignored (env/JSON values win).
func (fv flagValues) applyTo(cfg *AppConfig) {
	fv.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			cfg.DB = *fv.db
		case "dev":
			cfg.Dev = *fv.dev
		case "addr":
			cfg.Addr = *fv.addr
		case "log-output-dir":
			cfg.LogOutputDir = *fv.logOutputDir
		case "log-requests":
			cfg.LogRequests = *fv.logRequests
		case "log-db":
			cfg.LogDB = *fv.logDB
		case "log-ws":
			cfg.LogWS = *fv.logWS
		case "log-debug":
			cfg.LogDebug = *fv.logDebug
		case "night-timeout":
			cfg.NightTimeout = *fv.nightTimeout
		case "day-vote-timeout":
			cfg.DayVoteTimeout = *fv.dayVoteTimeout
		case "hunter-timeout":
			cfg.HunterTimeout = *fv.hunterTimeout
		case "bot-delay-min":
			cfg.BotDelayMin = *fv.botDelayMin
		case "bot-delay-max":
			cfg.BotDelayMax = *fv.botDelayMax
		case "narration-timeout":
			cfg.NarrationTimeout = *fv.narrationTimeout
		case "narration-pause-max":
			cfg.NarrationPauseMax = *fv.narrationPauseMax
		case "max-players":
			cfg.MaxPlayers = *fv.maxPlayers
		case "ws-rate-limit":
			cfg.WSRateLimit = *fv.wsRateLimit
		case "ws-rate-burst":
			cfg.WSRateBurst = *fv.wsRateBurst
		case "storyteller-provider":
			cfg.StorytellerProvider = *fv.storytellerProvider
		case "storyteller-model":
			cfg.StorytellerModel = *fv.storytellerModel
		case "storyteller-ollama-url":
			cfg.StorytellerOllamaURL = *fv.storytellerOllamaURL
		case "storyteller-url":
			cfg.StorytellerURL = *fv.storytellerURL
		case "storyteller-api-key":
			cfg.StorytellerAPIKey = *fv.storytellerAPIKey
		case "storyteller-temperature":
			cfg.StorytellerTemperature = *fv.storytellerTemperature
		case "storyteller-thinking":
			cfg.StorytellerThinking = *fv.storytellerThinking
		case "groq-api-key":
			cfg.GroqAPIKey = *fv.groqAPIKey
		}
	})
}
