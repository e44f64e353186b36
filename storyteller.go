package main

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"werewolfbot/internal/werewolf"
)

const storytellerSystemPrompt = `You are a dramatic storyteller for a medieval werewolf game. You are given one announcement from the game master. Retell it in 1-3 gothic, atmospheric sentences. Keep every name and every fact exactly as given; never invent deaths, roles or votes. Reply with the retelling only.`

// Narrated lines are read aloud at about this pace.
const wordsPerSecond = 2.5

// llmNarrator retells announcements through a language model. It never
// fails: errors, timeouts and empty answers fall back to the plain text.
type llmNarrator struct {
	llm          llms.Model
	systemPrompt string
	callOpts     []llms.CallOption
	timeout      time.Duration
}

func (s *llmNarrator) Narrate(ctx context.Context, text string) werewolf.Narration {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, s.systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	}
	resp, err := s.llm.GenerateContent(ctx, messages, s.callOpts...)
	if err != nil {
		log.Printf("Narrate: storyteller error: %v", err)
		return werewolf.Narration{Text: text}
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		log.Printf("Narrate: storyteller returned nothing")
		return werewolf.Narration{Text: text}
	}
	story := strings.TrimSpace(resp.Choices[0].Content)
	return werewolf.Narration{Text: story, Playback: estimatePlayback(story)}
}

// estimatePlayback is how long reading text aloud takes.
func estimatePlayback(text string) time.Duration {
	words := len(strings.Fields(text))
	return time.Duration(float64(words) / wordsPerSecond * float64(time.Second))
}

// buildCallOpts builds LLM call options from the config.
func buildCallOpts(cfg AppConfig) []llms.CallOption {
	var opts []llms.CallOption

	if cfg.StorytellerTemperature != "" {
		if f, err := strconv.ParseFloat(cfg.StorytellerTemperature, 64); err == nil {
			opts = append(opts, llms.WithTemperature(f))
			log.Printf("Storyteller: temperature=%.2f", f)
		} else {
			log.Printf("Storyteller: invalid temperature %q: %v", cfg.StorytellerTemperature, err)
		}
	}

	if cfg.StorytellerThinking != "" {
		mode := llms.ThinkingMode(cfg.StorytellerThinking)
		switch mode {
		case llms.ThinkingModeNone, llms.ThinkingModeLow, llms.ThinkingModeMedium, llms.ThinkingModeHigh, llms.ThinkingModeAuto:
			opts = append(opts, llms.WithThinkingMode(mode))
			log.Printf("Storyteller: thinking=%s", mode)
		default:
			log.Printf("Storyteller: invalid thinking %q (valid: none, low, medium, high, auto)", cfg.StorytellerThinking)
		}
	}

	return opts
}

// newModel builds the configured provider's model, or nil when the
// storyteller is disabled or fails to start.
func newModel(cfg AppConfig) llms.Model {
	model := cfg.StorytellerModel

	switch cfg.StorytellerProvider {
	case "ollama":
		llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(cfg.StorytellerOllamaURL))
		if err != nil {
			log.Printf("Storyteller: failed to init Ollama (%s at %s): %v", model, cfg.StorytellerOllamaURL, err)
			return nil
		}
		log.Printf("Storyteller: Ollama model=%s url=%s", model, cfg.StorytellerOllamaURL)
		return llm
	case "openai":
		llm, err := openai.New(openai.WithModel(model))
		if err != nil {
			log.Printf("Storyteller: failed to init OpenAI (%s): %v", model, err)
			return nil
		}
		log.Printf("Storyteller: OpenAI model=%s", model)
		return llm
	case "claude":
		llm, err := anthropic.New(anthropic.WithModel(model))
		if err != nil {
			log.Printf("Storyteller: failed to init Claude (%s): %v", model, err)
			return nil
		}
		log.Printf("Storyteller: Claude model=%s", model)
		return llm
	case "gemini":
		llm, err := googleai.New(context.Background(), googleai.WithDefaultModel(model))
		if err != nil {
			log.Printf("Storyteller: failed to init Gemini (%s): %v", model, err)
			return nil
		}
		log.Printf("Storyteller: Gemini model=%s", model)
		return llm
	case "groq":
		llm, err := openai.New(
			openai.WithModel(model),
			openai.WithBaseURL("https://api.groq.com/openai/v1"),
			openai.WithToken(cfg.GroqAPIKey),
		)
		if err != nil {
			log.Printf("Storyteller: failed to init Groq (%s): %v", model, err)
			return nil
		}
		log.Printf("Storyteller: Groq model=%s", model)
		return llm
	case "openai-compatible":
		if cfg.StorytellerURL == "" {
			log.Printf("Storyteller: storyteller_url is required for openai-compatible provider")
			return nil
		}
		opts := []openai.Option{
			openai.WithModel(model),
			openai.WithBaseURL(cfg.StorytellerURL),
		}
		if cfg.StorytellerAPIKey != "" {
			opts = append(opts, openai.WithToken(cfg.StorytellerAPIKey))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			log.Printf("Storyteller: failed to init openai-compatible (%s at %s): %v", model, cfg.StorytellerURL, err)
			return nil
		}
		log.Printf("Storyteller: openai-compatible model=%s url=%s", model, cfg.StorytellerURL)
		return llm
	default:
		log.Printf("Storyteller: disabled (set storyteller_provider to enable)")
		return nil
	}
}

// newNarrator returns the engine's Narrator: the language model when one is
// configured, plain text otherwise.
func newNarrator(cfg AppConfig) werewolf.Narrator {
	llm := newModel(cfg)
	if llm == nil {
		return werewolf.PlainNarrator{}
	}
	return &llmNarrator{
		llm:          llm,
		systemPrompt: storytellerSystemPrompt,
		callOpts:     buildCallOpts(cfg),
		timeout:      duration("narration_timeout", cfg.NarrationTimeout, 15*time.Second),
	}
}
