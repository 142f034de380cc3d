package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/thsensai/sensai/internal/config"
	"github.com/thsensai/sensai/internal/extract"
	"github.com/thsensai/sensai/internal/intel"
	"github.com/thsensai/sensai/internal/llm"
	"github.com/thsensai/sensai/internal/report"
	"github.com/thsensai/sensai/internal/store"
)

// analyzeFlags holds the parsed analyze command line.
type analyzeFlags struct {
	source       string
	llm          string
	chunkSize    int
	chunkOverlap int
	numCtx       int
	numPredict   int
	seed         *int
	cssSelector  string
	outputDir    string
	save         bool
	saveIntel    bool
	dbPath       string
	configPath   string
}

func parseAnalyzeFlags(args []string) (*analyzeFlags, error) {
	f := &analyzeFlags{numCtx: 4096, numPredict: -1}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--llm":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			f.llm = v
		case "--chunk-size":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			if f.chunkSize, err = parseIntFlag(arg, v); err != nil {
				return nil, err
			}
		case "--chunk-overlap":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			if f.chunkOverlap, err = parseIntFlag(arg, v); err != nil {
				return nil, err
			}
		case "--num-ctx":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			if f.numCtx, err = parseIntFlag(arg, v); err != nil {
				return nil, err
			}
		case "--num-predict":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			if f.numPredict, err = parseIntFlag(arg, v); err != nil {
				return nil, err
			}
		case "--seed":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			seed, err := parseIntFlag(arg, v)
			if err != nil {
				return nil, err
			}
			f.seed = &seed
		case "--css-selector":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			f.cssSelector = v
		case "--output":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			f.outputDir = v
		case "--save":
			f.save = true
		case "--save-intel":
			f.saveIntel = true
		case "--db":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			f.dbPath = v
		case "--config":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			f.configPath = v
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, fmt.Errorf("unknown flag: %s", arg)
			}
			if f.source != "" {
				return nil, fmt.Errorf("multiple sources given: %s and %s", f.source, arg)
			}
			f.source = arg
		}
	}

	if f.source == "" {
		return nil, fmt.Errorf("usage: sensai analyze <url-or-file> [flags]")
	}
	return f, nil
}

func runAnalyze(args []string) error {
	f, err := parseAnalyzeFlags(args)
	if err != nil {
		return err
	}

	resolved, err := config.Resolve(f.configPath, f.llm, f.dbPath, f.outputDir, f.chunkSize, f.chunkOverlap)
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

	params := extract.Params{
		ChunkSize:     mustInt(resolved.ChunkSize.Value),
		ChunkOverlap:  mustInt(resolved.ChunkOverlap.Value),
		MaxTokens:     f.numPredict,
		ContextWindow: f.numCtx,
		Seed:          f.seed,
	}

	extractor := extract.NewExtractor(llm.NewClient(llmCfg), llm.CompletionOpts{
		MaxTokens:   params.MaxTokens,
		Seed:        params.Seed,
		Temperature: extract.DefaultTemperature,
	})
	pipeline, err := extract.NewPipeline(extractor, params, newBarProgress("extracting"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Acquiring intel from %s...\n", f.source)
	data, err := intel.FromSource(ctx, nil, f.source, f.cssSelector)
	if err != nil {
		return err
	}

	if f.saveIntel {
		if err := data.SaveToDisk(resolved.OutputDir.Value); err != nil {
			return err
		}
	}

	set, err := pipeline.ExtractIOCs(ctx, data.Documents)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr)

	fmt.Println(set.Render())

	path, err := report.WriteIOCs(resolved.OutputDir.Value, f.source, set, params)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Report written to %s\n", path)

	if f.save {
		s, err := store.NewStore(resolved.DBPath.Value)
		if err != nil {
			return err
		}
		defer s.Close()
		runID, err := s.SaveRun(f.source, extractor.Name(), params.ChunkSize, params.ChunkOverlap, set)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved as run #%d\n", runID)
	}
	return nil
}

// mustInt converts a resolved numeric config value. Resolution only produces
// values that came from Atoi-able input or integer defaults.
func mustInt(v string) int {
	n, err := parseIntFlag("config", v)
	if err != nil {
		return 0
	}
	return n
}
