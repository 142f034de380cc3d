// Command sensai extracts Indicators of Compromise from threat intel
// sources with an LLM and turns them into threat hunting plans.
package main

import (
	"fmt"
	"os"
	"strconv"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "analyze":
		if err := runAnalyze(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "hunt":
		if err := runHunt(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "runs":
		if err := runRuns(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "export":
		if err := runExport(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "config":
		if err := runConfig(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "mcp":
		if err := runMCP(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("sensai %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`sensai - AI-powered threat intel analysis

Usage:
  sensai analyze <source> [flags]   Extract IOCs from a URL or text file
  sensai hunt <ioc-csv> [flags]     Generate a hunting plan from an IOC report
  sensai runs [--limit N]           List recent extraction runs
  sensai export <run-id> [flags]    Export a stored run as CSV
  sensai config [--config path]     Show resolved configuration
  sensai mcp [flags]                Serve extraction over MCP (stdio)
  sensai version                    Print version

Analyze flags:
  --llm <provider/model>     LLM backend (default ollama/qwen2.5:14b)
  --chunk-size <n>           Characters per chunk (default 2600)
  --chunk-overlap <n>        Overlap between chunks (default 300)
  --num-ctx <n>              Model context window in tokens (default 4096)
  --num-predict <n>          Max tokens per response, -1 unlimited (default -1)
  --seed <n>                 Fixed sampling seed for reproducible runs
  --css-selector <sel>       CSS selector for URL sources (default body)
  --output <dir>             Report output directory (default .)
  --save                     Record the run in the local database
  --save-intel               Also write the acquired raw text to the output dir
  --db <path>                Database path (default ~/.sensai/sensai.db)
  --config <path>            Config file (default ~/.sensai/config.yaml)

Hunt flags:
  --llm, --output, --config  As above
  --hypotheses <n>           Number of hypotheses to generate (default 3)
  --able                     Enrich each hypothesis with an ABLE breakdown
  --scopes <file>            Narrow targets to systems listed in file
  --playbooks <file>         Narrow playbooks to those listed in file`)
}

// parseIntFlag parses the value of an integer flag, naming the flag in the
// error.
func parseIntFlag(flag, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", flag, value)
	}
	return n, nil
}

// flagValue returns the value following args[i], advancing the index.
func flagValue(args []string, i *int) (string, error) {
	if *i+1 >= len(args) {
		return "", fmt.Errorf("%s requires a value", args[*i])
	}
	*i++
	return args[*i], nil
}
