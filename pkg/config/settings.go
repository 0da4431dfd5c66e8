// Package config loads chatkit settings from a YAML file with environment
// overrides, and can hot-reload them while the session runs.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cexll/chatkit-go/pkg/respond"
)

// Service ids used by Settings.Apply. The catalog is fixed at startup; these
// are the ids the example wiring registers services under.
const (
	ServiceEliza  = "eliza"
	ServiceGemini = "gemini"
	ServiceOpenAI = "openai"
	ServiceClaude = "claude"
)

// Settings is the persisted user configuration, the durable counterpart of
// the original in-browser settings dialog.
type Settings struct {
	// Service selects the active responder at startup.
	Service string `yaml:"service"`

	History   HistorySettings   `yaml:"history"`
	Gemini    CredentialSetting `yaml:"gemini"`
	OpenAI    CredentialSetting `yaml:"openai"`
	Anthropic CredentialSetting `yaml:"anthropic"`
	Telemetry TelemetrySettings `yaml:"telemetry"`
}

// HistorySettings selects the persistence backend.
type HistorySettings struct {
	// Backend is "file", "sqlite" or "memory".
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// CredentialSetting carries one service credential.
type CredentialSetting struct {
	APIKey string `yaml:"apiKey"`
}

// TelemetrySettings toggles OTLP tracing.
type TelemetrySettings struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// Default returns the settings used when no file exists.
func Default() Settings {
	return Settings{
		Service: ServiceEliza,
		History: HistorySettings{
			Backend: "file",
			Path:    "chat-history.json",
		},
	}
}

// Load reads path and layers environment overrides on top. A missing file is
// not an error; defaults apply.
func Load(path string) (Settings, error) {
	s := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &s); err != nil {
				return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	s.applyEnv()
	if s.Service == "" {
		s.Service = ServiceEliza
	}
	return s, nil
}

func (s *Settings) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("CHATKIT_SERVICE")); v != "" {
		s.Service = v
	}
	if v := strings.TrimSpace(os.Getenv("CHATKIT_HISTORY_PATH")); v != "" {
		s.History.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		s.Gemini.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		s.OpenAI.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		s.Anthropic.APIKey = v
	}
}

// Apply pushes credentials into the registry and switches the configured
// service active. Credentials reach services whether or not they are active;
// ids missing from the registry are skipped silently so a trimmed-down
// catalog keeps working.
func (s Settings) Apply(reg *respond.Registry) error {
	creds := map[string]string{
		ServiceGemini: s.Gemini.APIKey,
		ServiceOpenAI: s.OpenAI.APIKey,
		ServiceClaude: s.Anthropic.APIKey,
	}
	for id, key := range creds {
		if key == "" {
			continue
		}
		if _, ok := reg.Get(id); !ok {
			continue
		}
		if err := reg.SetCredential(id, key); err != nil {
			return fmt.Errorf("config: apply credential for %s: %w", id, err)
		}
	}
	if s.Service != "" && s.Service != reg.ActiveID() {
		if _, err := reg.Switch(s.Service); err != nil {
			return fmt.Errorf("config: activate service: %w", err)
		}
	}
	return nil
}
