package main

import (
	"fmt"
	"os"

	"github.com/thsensai/sensai/internal/config"
	"github.com/thsensai/sensai/internal/extract"
	"github.com/thsensai/sensai/internal/llm"
	sensaimcp "github.com/thsensai/sensai/internal/mcp"
	"github.com/thsensai/sensai/internal/store"
)

func runMCP(args []string) error {
	llmFlag := ""
	dbPath := ""
	configPath := ""
	numCtx := 4096
	numPredict := -1

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--llm":
			v, err := flagValue(args, &i)
			if err != nil {
				return err
			}
			llmFlag = v
		case "--db":
			v, err := flagValue(args, &i)
			if err != nil {
				return err
			}
			dbPath = v
		case "--config":
			v, err := flagValue(args, &i)
			if err != nil {
				return err
			}
			configPath = v
		case "--num-ctx":
			v, err := flagValue(args, &i)
			if err != nil {
				return err
			}
			if numCtx, err = parseIntFlag("--num-ctx", v); err != nil {
				return err
			}
		case "--num-predict":
			v, err := flagValue(args, &i)
			if err != nil {
				return err
			}
			if numPredict, err = parseIntFlag("--num-predict", v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	resolved, err := config.Resolve(configPath, llmFlag, dbPath, "", 0, 0)
	if err != nil {
		return err
	}

	llmCfg, err := llm.ParseFlag(resolved.LLM.Value)
	if err != nil {
		return err
	}
	if err := llmCfg.Validate(); err != nil {
		return err
	}

	s, err := store.NewStore(resolved.DBPath.Value)
	if err != nil {
		return err
	}
	defer s.Close()

	extractor := extract.NewExtractor(llm.NewClient(llmCfg), llm.CompletionOpts{
		MaxTokens:   numPredict,
		Temperature: extract.DefaultTemperature,
	})

	srv := sensaimcp.NewServer(sensaimcp.Config{
		Store:     s,
		Extractor: extractor,
		Params: extract.Params{
			ChunkSize:     mustInt(resolved.ChunkSize.Value),
			ChunkOverlap:  mustInt(resolved.ChunkOverlap.Value),
			MaxTokens:     numPredict,
			ContextWindow: numCtx,
		},
		Model:   extractor.Name(),
		Version: version,
	})

	fmt.Fprintln(os.Stderr, "sensai MCP server listening on stdio")
	return srv.ServeStdio()
}

func runConfig(args []string) error {
	configPath := ""
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			v, err := flagValue(args, &i)
			if err != nil {
				return err
			}
			configPath = v
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	resolved, err := config.Resolve(configPath, "", "", "", 0, 0)
	if err != nil {
		return err
	}
	resolved.Print(os.Stdout)
	return nil
}
