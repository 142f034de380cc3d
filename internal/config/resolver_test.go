package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveDefaults(t *testing.T) {
	t.Setenv("SENSAI_LLM", "")
	t.Setenv("HOME", t.TempDir()) // keep a real ~/.sensai/config.yaml out of the test

	r, err := Resolve("", "", "", "", 0, 0)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.LLM.Value != DefaultLLM || r.LLM.Source != SourceDefault {
		t.Errorf("LLM = %+v, want default", r.LLM)
	}
	if r.ChunkSize.Value != "2600" {
		t.Errorf("ChunkSize = %+v", r.ChunkSize)
	}
}

func TestResolveExplicitMissingFileErrors(t *testing.T) {
	if _, err := Resolve(filepath.Join(t.TempDir(), "missing.yaml"), "", "", "", 0, 0); err == nil {
		t.Error("expected error for explicitly named missing config")
	}
}

func TestResolveFileValues(t *testing.T) {
	path := writeConfig(t, "llm: openai/gpt-4o-mini\nchunk_size: 1200\noutput_dir: /tmp/reports\n")

	r, err := Resolve(path, "", "", "", 0, 0)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.LLM.Value != "openai/gpt-4o-mini" || r.LLM.Source != SourceConfig {
		t.Errorf("LLM = %+v", r.LLM)
	}
	if r.ChunkSize.Value != "1200" || r.ChunkSize.Source != SourceConfig {
		t.Errorf("ChunkSize = %+v", r.ChunkSize)
	}
	// Values absent from the file fall through to defaults.
	if r.ChunkOverlap.Source != SourceDefault {
		t.Errorf("ChunkOverlap = %+v", r.ChunkOverlap)
	}
}

func TestResolveEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "llm: openai/gpt-4o-mini\n")
	t.Setenv("SENSAI_LLM", "deepseek/deepseek-chat")

	r, err := Resolve(path, "", "", "", 0, 0)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.LLM.Value != "deepseek/deepseek-chat" || r.LLM.Source != SourceEnv {
		t.Errorf("LLM = %+v, want env value", r.LLM)
	}
	if r.LLM.From != "SENSAI_LLM" {
		t.Errorf("From = %q", r.LLM.From)
	}
}

func TestResolveCLIOverridesEverything(t *testing.T) {
	path := writeConfig(t, "llm: openai/gpt-4o-mini\nchunk_size: 1200\n")
	t.Setenv("SENSAI_LLM", "deepseek/deepseek-chat")

	r, err := Resolve(path, "ollama/llama3.2", "", "", 900, 0)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.LLM.Value != "ollama/llama3.2" || r.LLM.Source != SourceCLI {
		t.Errorf("LLM = %+v, want CLI value", r.LLM)
	}
	if r.ChunkSize.Value != "900" || r.ChunkSize.Source != SourceCLI {
		t.Errorf("ChunkSize = %+v, want CLI value", r.ChunkSize)
	}
}

func TestResolveBadYAML(t *testing.T) {
	path := writeConfig(t, "llm: [unterminated\n")
	if _, err := Resolve(path, "", "", "", 0, 0); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
