package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/xpanvictor/ava/internal/config"
	"github.com/xpanvictor/ava/pkg/Logger"
	"github.com/xpanvictor/ava/pkg/assistant"
	"github.com/xpanvictor/ava/pkg/assistant/providers/gemini"
	olp "github.com/xpanvictor/ava/pkg/assistant/providers/ollama"
	"github.com/xpanvictor/ava/pkg/io/stt/whisper"
	"github.com/xpanvictor/ava/pkg/io/tts/piper"
)

const (
	ProviderOpenAI  = "openai"
	ProviderOllama  = "ollama"
	ProviderGemini  = "gemini"
	ProviderWhisper = "whisper"
	ProviderPiper   = "piper"
)

// Collaborators are the external capabilities the pipeline calls into.
type Collaborators struct {
	Transcriber assistant.Transcriber
	Chat        assistant.ChatCompleter
	Speech      assistant.SpeechSynthesizer
	Images      assistant.ImageGenerator
}

// CollaboratorFactory picks a backend per capability from the settings.
type CollaboratorFactory struct {
	cfg        *config.Settings
	logger     *Logger.Logger
	httpClient *http.Client
	openai     *assistant.OpenAI
}

func NewCollaboratorFactory(cfg *config.Settings, logger *Logger.Logger) *CollaboratorFactory {
	return &CollaboratorFactory{
		cfg:        cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.Assistant.RequestTimeout},
	}
}

// openAI shares one client across every capability it backs.
func (f *CollaboratorFactory) openAI() *assistant.OpenAI {
	if f.openai == nil {
		if f.cfg.Assistant.OpenAiApiKey == "" {
			f.logger.Warn("OpenAI API key not configured, OpenAI backed calls will fail")
		}
		f.openai = assistant.NewOpenAI(f.cfg.Assistant)
	}
	return f.openai
}

func (f *CollaboratorFactory) Create() (*Collaborators, error) {
	c := &Collaborators{}

	switch f.cfg.Assistant.ChatProvider {
	case ProviderOpenAI, "":
		c.Chat = f.openAI()
	case ProviderOllama:
		provider, err := olp.New(f.cfg.Ollama, f.httpClient)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama provider: %w", err)
		}
		c.Chat = provider
	case ProviderGemini:
		provider, err := gemini.New(context.Background(), f.cfg.Gemini)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini provider: %w", err)
		}
		c.Chat = provider
	default:
		return nil, fmt.Errorf("unknown chat provider %q", f.cfg.Assistant.ChatProvider)
	}

	switch f.cfg.Assistant.Transcriber {
	case ProviderOpenAI, "":
		c.Transcriber = f.openAI()
	case ProviderWhisper:
		c.Transcriber = whisper.NewWhisperClient(f.cfg.Whisper.Url, f.cfg.Whisper.Language, f.logger)
	default:
		return nil, fmt.Errorf("unknown transcriber %q", f.cfg.Assistant.Transcriber)
	}

	switch f.cfg.Assistant.Synthesizer {
	case ProviderOpenAI, "":
		c.Speech = f.openAI()
	case ProviderPiper:
		c.Speech = piper.New(f.cfg.Piper.Url, f.cfg.Piper.Voice)
	default:
		return nil, fmt.Errorf("unknown synthesizer %q", f.cfg.Assistant.Synthesizer)
	}

	// image generation is only offered by OpenAI
	c.Images = f.openAI()

	f.logger.Infof("collaborators: chat=%s transcriber=%s synthesizer=%s",
		f.cfg.Assistant.ChatProvider, f.cfg.Assistant.Transcriber, f.cfg.Assistant.Synthesizer)
	return c, nil
}
