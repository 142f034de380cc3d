package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/thsensai/sensai/internal/config"
	"github.com/thsensai/sensai/internal/store"
)

func runRuns(args []string) error {
	limit := 20
	dbPath := ""
	configPath := ""

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--limit":
			v, err := flagValue(args, &i)
			if err != nil {
				return err
			}
			if limit, err = parseIntFlag("--limit", v); err != nil {
				return err
			}
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
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	resolved, err := config.Resolve(configPath, "", dbPath, "", 0, 0)
	if err != nil {
		return err
	}

	s, err := store.NewStore(resolved.DBPath.Value)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet. Use 'sensai analyze --save' to record one.")
		return nil
	}

	fmt.Printf("%-5s %-40s %-28s %-6s %-6s %-6s %s\n", "ID", "SOURCE", "MODEL", "CS", "CO", "IOCS", "CREATED")
	for _, r := range runs {
		source := r.Source
		if len(source) > 40 {
			source = source[:37] + "..."
		}
		fmt.Printf("%-5d %-40s %-28s %-6d %-6d %-6d %s\n",
			r.ID, source, r.Model, r.ChunkSize, r.ChunkOverlap, r.IOCCount,
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runExport(args []string) error {
	dbPath := ""
	configPath := ""
	outFile := ""
	runArg := ""

	for i := 0; i < len(args); i++ {
		switch args[i] {
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
		case "--output":
			v, err := flagValue(args, &i)
			if err != nil {
				return err
			}
			outFile = v
		default:
			if strings.HasPrefix(args[i], "-") {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
			runArg = args[i]
		}
	}

	if runArg == "" {
		return fmt.Errorf("usage: sensai export <run-id> [--output file]")
	}
	runID, err := parseIntFlag("run id", runArg)
	if err != nil {
		return err
	}

	resolved, err := config.Resolve(configPath, "", dbPath, "", 0, 0)
	if err != nil {
		return err
	}

	s, err := store.NewStore(resolved.DBPath.Value)
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := s.GetRun(int64(runID))
	if err != nil {
		return err
	}
	set, err := s.RunIOCs(run.ID)
	if err != nil {
		return err
	}

	csv, err := set.ToCSV()
	if err != nil {
		return err
	}

	if outFile == "" {
		fmt.Print(csv)
		return nil
	}
	if err := os.WriteFile(outFile, []byte(csv), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outFile, err)
	}
	fmt.Fprintf(os.Stderr, "Run #%d (%s) exported to %s\n", run.ID, run.Source, outFile)
	return nil
}
