// Package config resolves settings from CLI flags, environment variables, a
// YAML config file and built-in defaults, tracking where each value came
// from. Precedence: CLI > environment > config file > default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thsensai/sensai/internal/intel"
)

// DefaultConfigPath is the config file location unless overridden.
const DefaultConfigPath = "~/.sensai/config.yaml"

// DefaultLLM is the provider/model used when nothing else sets one.
const DefaultLLM = "ollama/qwen2.5:14b"

// DefaultOutputDir is where reports are written unless overridden.
const DefaultOutputDir = "."

// ValueSource records which layer supplied a resolved value.
type ValueSource string

const (
	SourceCLI     ValueSource = "cli"
	SourceEnv     ValueSource = "env"
	SourceConfig  ValueSource = "config"
	SourceDefault ValueSource = "default"
)

// ResolvedValue is a setting plus its provenance.
type ResolvedValue struct {
	Value  string
	Source ValueSource
	From   string // flag name, env var name, or config file path
}

// fileConfig is the YAML shape of the config file.
type fileConfig struct {
	LLM          string `yaml:"llm"`
	DBPath       string `yaml:"db_path"`
	OutputDir    string `yaml:"output_dir"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// Resolved is the merged configuration with per-value provenance.
type Resolved struct {
	LLM          ResolvedValue
	DBPath       ResolvedValue
	OutputDir    ResolvedValue
	ChunkSize    ResolvedValue
	ChunkOverlap ResolvedValue

	// ConfigPath is the file that was read, empty when none existed.
	ConfigPath string
}

// Resolve merges all layers. CLI values are passed in as already-parsed flag
// values (empty string or 0 means the flag was not given). configPath names
// the config file to read; empty means DefaultConfigPath, and a missing file
// is not an error.
func Resolve(configPath, cliLLM, cliDB, cliOutputDir string, cliChunkSize, cliChunkOverlap int) (*Resolved, error) {
	explicit := configPath != ""
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	configPath = expandPath(configPath)

	var fc fileConfig
	haveFile := false
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", configPath, err)
		}
		haveFile = true
	} else if explicit {
		return nil, fmt.Errorf("reading config %s: %w", configPath, err)
	}

	r := &Resolved{}
	if haveFile {
		r.ConfigPath = configPath
	}

	r.LLM = resolveString(cliLLM, "--llm", "SENSAI_LLM", fc.LLM, configPath, haveFile, DefaultLLM)
	r.DBPath = resolveString(cliDB, "--db", "SENSAI_DB", fc.DBPath, configPath, haveFile, "~/.sensai/sensai.db")
	r.OutputDir = resolveString(cliOutputDir, "--output", "SENSAI_OUTPUT_DIR", fc.OutputDir, configPath, haveFile, DefaultOutputDir)
	r.ChunkSize = resolveInt(cliChunkSize, "--chunk-size", fc.ChunkSize, configPath, haveFile, intel.DefaultChunkSize)
	r.ChunkOverlap = resolveInt(cliChunkOverlap, "--chunk-overlap", fc.ChunkOverlap, configPath, haveFile, intel.DefaultChunkOverlap)

	return r, nil
}

func resolveString(cli, flagName, envName, fileVal, configPath string, haveFile bool, def string) ResolvedValue {
	if cli != "" {
		return ResolvedValue{Value: cli, Source: SourceCLI, From: flagName}
	}
	if env := os.Getenv(envName); env != "" {
		return ResolvedValue{Value: env, Source: SourceEnv, From: envName}
	}
	if haveFile && fileVal != "" {
		return ResolvedValue{Value: fileVal, Source: SourceConfig, From: configPath}
	}
	return ResolvedValue{Value: def, Source: SourceDefault, From: "built-in"}
}

func resolveInt(cli int, flagName string, fileVal int, configPath string, haveFile bool, def int) ResolvedValue {
	if cli > 0 {
		return ResolvedValue{Value: fmt.Sprintf("%d", cli), Source: SourceCLI, From: flagName}
	}
	if haveFile && fileVal > 0 {
		return ResolvedValue{Value: fmt.Sprintf("%d", fileVal), Source: SourceConfig, From: configPath}
	}
	return ResolvedValue{Value: fmt.Sprintf("%d", def), Source: SourceDefault, From: "built-in"}
}

// Print writes the resolved configuration with provenance, one value per
// line.
func (r *Resolved) Print(w *os.File) {
	printValue(w, "llm", r.LLM)
	printValue(w, "db_path", r.DBPath)
	printValue(w, "output_dir", r.OutputDir)
	printValue(w, "chunk_size", r.ChunkSize)
	printValue(w, "chunk_overlap", r.ChunkOverlap)
	if r.ConfigPath != "" {
		fmt.Fprintf(w, "\nconfig file: %s\n", r.ConfigPath)
	} else {
		fmt.Fprintf(w, "\nconfig file: none\n")
	}
}

func printValue(w *os.File, name string, v ResolvedValue) {
	fmt.Fprintf(w, "%-14s %-24s (%s: %s)\n", name, v.Value, v.Source, v.From)
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
