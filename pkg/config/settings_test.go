package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cexll/chatkit-go/pkg/respond"
)

type fakeService struct {
	name string
	key  string
}

func (f *fakeService) Respond(context.Context, string) (string, error) { return "ok", nil }
func (f *fakeService) Configured() bool                                { return f.key != "" }
func (f *fakeService) Name() string                                    { return f.name }
func (f *fakeService) SetCredential(value string)                      { f.key = value }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Service != ServiceEliza {
		t.Fatalf("service = %q, want %q", s.Service, ServiceEliza)
	}
	if s.History.Backend != "file" || s.History.Path != "chat-history.json" {
		t.Fatalf("history = %+v", s.History)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "chatkit.yaml", `
service: gemini
history:
  backend: sqlite
  path: history.db
gemini:
  apiKey: file-key
telemetry:
  enabled: true
  endpoint: localhost:4318
  insecure: true
`)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Service != ServiceGemini {
		t.Fatalf("service = %q", s.Service)
	}
	if s.History.Backend != "sqlite" || s.History.Path != "history.db" {
		t.Fatalf("history = %+v", s.History)
	}
	if s.Gemini.APIKey != "file-key" {
		t.Fatalf("gemini key = %q", s.Gemini.APIKey)
	}
	if !s.Telemetry.Enabled || s.Telemetry.Endpoint != "localhost:4318" || !s.Telemetry.Insecure {
		t.Fatalf("telemetry = %+v", s.Telemetry)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "chatkit.yaml", "service: [unterminated")
	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml accepted")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "chatkit.yaml", `
service: eliza
gemini:
  apiKey: from-file
`)
	t.Setenv("CHATKIT_SERVICE", "openai")
	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("OPENAI_API_KEY", "openai-env")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Service != ServiceOpenAI {
		t.Fatalf("service = %q, env override lost", s.Service)
	}
	if s.Gemini.APIKey != "from-env" {
		t.Fatalf("gemini key = %q", s.Gemini.APIKey)
	}
	if s.OpenAI.APIKey != "openai-env" {
		t.Fatalf("openai key = %q", s.OpenAI.APIKey)
	}
}

func TestApplyPushesCredentialsAndSwitches(t *testing.T) {
	reg := respond.NewRegistry()
	gemini := &fakeService{name: "Gemini"}
	_ = reg.Register(ServiceEliza, &fakeService{name: "Eliza"})
	_ = reg.Register(ServiceGemini, gemini)

	s := Default()
	s.Service = ServiceGemini
	s.Gemini.APIKey = "secret"

	if err := s.Apply(reg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if gemini.key != "secret" {
		t.Fatalf("credential not pushed: %q", gemini.key)
	}
	if reg.ActiveID() != ServiceGemini {
		t.Fatalf("active = %q", reg.ActiveID())
	}
}

func TestApplySkipsUnregisteredCredentials(t *testing.T) {
	reg := respond.NewRegistry()
	_ = reg.Register(ServiceEliza, &fakeService{name: "Eliza"})

	s := Default()
	s.OpenAI.APIKey = "unused"
	if err := s.Apply(reg); err != nil {
		t.Fatalf("apply with trimmed catalog: %v", err)
	}
	if reg.ActiveID() != ServiceEliza {
		t.Fatalf("active = %q", reg.ActiveID())
	}
}

func TestApplyUnknownServiceFails(t *testing.T) {
	reg := respond.NewRegistry()
	_ = reg.Register(ServiceEliza, &fakeService{name: "Eliza"})

	s := Default()
	s.Service = "ghost"
	err := s.Apply(reg)
	if !errors.Is(err, respond.ErrUnknownService) {
		t.Fatalf("err = %v, want ErrUnknownService", err)
	}
	if reg.ActiveID() != ServiceEliza {
		t.Fatalf("active changed to %q", reg.ActiveID())
	}
}
