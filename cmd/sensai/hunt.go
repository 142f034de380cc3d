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
	"github.com/thsensai/sensai/internal/hunt"
	"github.com/thsensai/sensai/internal/ioc"
	"github.com/thsensai/sensai/internal/llm"
	"github.com/thsensai/sensai/internal/report"
)

type huntFlags struct {
	iocFile    string
	llm        string
	hypotheses int
	able       bool
	scopes     string
	playbooks  string
	outputDir  string
	configPath string
	numCtx     int
	numPredict int
	seed       *int
}

func parseHuntFlags(args []string) (*huntFlags, error) {
	f := &huntFlags{hypotheses: 3, numCtx: 4096, numPredict: -1}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--llm":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			f.llm = v
		case "--hypotheses":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			if f.hypotheses, err = parseIntFlag(arg, v); err != nil {
				return nil, err
			}
		case "--able":
			f.able = true
		case "--scopes":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			f.scopes = v
		case "--playbooks":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			f.playbooks = v
		case "--output":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			f.outputDir = v
		case "--config":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			f.configPath = v
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
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, fmt.Errorf("unknown flag: %s", arg)
			}
			if f.iocFile != "" {
				return nil, fmt.Errorf("multiple IOC files given: %s and %s", f.iocFile, arg)
			}
			f.iocFile = arg
		}
	}

	if f.iocFile == "" {
		return nil, fmt.Errorf("usage: sensai hunt <ioc-csv> [flags]")
	}
	if f.hypotheses <= 0 {
		return nil, fmt.Errorf("--hypotheses must be positive, got %d", f.hypotheses)
	}
	return f, nil
}

func runHunt(args []string) error {
	f, err := parseHuntFlags(args)
	if err != nil {
		return err
	}

	resolved, err := config.Resolve(f.configPath, f.llm, "", f.outputDir, 0, 0)
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

	set, err := ioc.SetFromCSVFile(f.iocFile)
	if err != nil {
		return err
	}
	if set.Len() == 0 {
		return fmt.Errorf("no IOCs in %s, nothing to hunt for", f.iocFile)
	}

	extractor := extract.NewExtractor(llm.NewClient(llmCfg), llm.CompletionOpts{
		MaxTokens:   f.numPredict,
		Seed:        f.seed,
		Temperature: extract.DefaultTemperature,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	plan := hunt.FromIOCs(extractor, set)

	fmt.Fprintf(os.Stderr, "Generating hunt metadata...\n")
	if err := plan.GenerateMeta(ctx); err != nil {
		return err
	}
	if f.scopes != "" {
		fmt.Fprintf(os.Stderr, "Refining scope targets from %s...\n", f.scopes)
		if err := plan.RefineTargets(ctx, f.scopes); err != nil {
			return err
		}
	}
	if f.playbooks != "" {
		fmt.Fprintf(os.Stderr, "Refining playbooks from %s...\n", f.playbooks)
		if err := plan.RefinePlaybooks(ctx, f.playbooks); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "Generating %d hypotheses...\n", f.hypotheses)
	if err := plan.GenerateHypotheses(ctx, f.hypotheses); err != nil {
		return err
	}
	if f.able {
		fmt.Fprintf(os.Stderr, "Enriching hypotheses with ABLE breakdowns...\n")
		if err := plan.EnrichABLE(ctx); err != nil {
			return err
		}
	}

	plan.Display(os.Stdout)

	params := extract.Params{
		ChunkSize:     mustInt(resolved.ChunkSize.Value),
		ChunkOverlap:  mustInt(resolved.ChunkOverlap.Value),
		MaxTokens:     f.numPredict,
		ContextWindow: f.numCtx,
	}
	path, err := report.WriteHunt(resolved.OutputDir.Value, f.iocFile, plan, params)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Hunt plan written to %s\n", path)
	return nil
}
