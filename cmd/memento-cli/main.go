// memento-cli is an operator tool for inspecting and maintaining a memento
// store outside of the MCP surface: status checks, manual sweep triggers,
// and export/import.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	memento "github.com/goblincore/memento"
	"github.com/spf13/cobra"
)

var dbPath string

func main() {
	root := &cobra.Command{
		Use:   "memento-cli",
		Short: "Operator CLI for the memento salient-memory store",
	}
	root.PersistentFlags().StringVar(&dbPath, "db", envOr("MEMENTO_DB_PATH", "./data/memento.db"), "path to the memento sqlite database")

	root.AddCommand(
		statusCmd(),
		forgetCmd(),
		restoreCmd(),
		recallCmd(),
		patternsCmd(),
		anticipateCmd(),
		exportCmd(),
		importCmd(),
		gcCmd(),
		decayCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore() (*memento.Memento, error) {
	return memento.Init(memento.Config{DBPath: dbPath})
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <user>",
		Short: "Print aggregate counters for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openStore()
			if err != nil {
				return err
			}
			defer m.Close()
			st, err := m.GetStatus(args[0])
			if err != nil {
				return err
			}
			return printJSON(st)
		},
	}
}

func forgetCmd() *cobra.Command {
	var mode, reason string
	cmd := &cobra.Command{
		Use:   "forget <memory-id>",
		Short: "Suppress, archive, or delete a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openStore()
			if err != nil {
				return err
			}
			defer m.Close()
			mem, err := m.Forget(context.Background(), args[0], memento.ForgetMode(mode), reason)
			if err != nil {
				return err
			}
			return printJSON(mem)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "suppress", "suppress, archive, or delete")
	cmd.Flags().StringVar(&reason, "reason", "", "why this memory is being forgotten")
	return cmd
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <memory-id>",
		Short: "Reinstate a suppressed or archived memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openStore()
			if err != nil {
				return err
			}
			defer m.Close()
			mem, err := m.Restore(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printJSON(mem)
		},
	}
}

func recallCmd() *cobra.Command {
	var query string
	var limit int
	cmd := &cobra.Command{
		Use:   "recall <user>",
		Short: "Search a user's memories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openStore()
			if err != nil {
				return err
			}
			defer m.Close()
			results, err := m.Recall(context.Background(), args[0], memento.RecallQuery{Query: query, Limit: limit})
			if err != nil {
				return err
			}
			return printJSON(results)
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "free-text search query")
	cmd.Flags().IntVar(&limit, "limit", 10, "max results")
	return cmd
}

func patternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns <user>",
		Short: "List learned behavioral patterns for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openStore()
			if err != nil {
				return err
			}
			defer m.Close()
			stats, err := m.PatternStats(args[0])
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
}

func anticipateCmd() *cobra.Command {
	var lookAhead int
	cmd := &cobra.Command{
		Use:   "anticipate <user>",
		Short: "Forecast upcoming context switches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openStore()
			if err != nil {
				return err
			}
			defer m.Close()
			a, err := m.Anticipate(args[0], nil, lookAhead)
			if err != nil {
				return err
			}
			return printJSON(a)
		},
	}
	cmd.Flags().IntVar(&lookAhead, "look-ahead-minutes", 60, "forecast horizon in minutes")
	return cmd
}

func exportCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export <user>",
		Short: "Export a user's memories, loops, and events to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openStore()
			if err != nil {
				return err
			}
			defer m.Close()
			bundle, err := m.ExportMemories(args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(bundle, "", "  ")
			if err != nil {
				return err
			}
			if outPath == "" {
				fmt.Println(string(data))
				return nil
			}
			return os.WriteFile(outPath, data, 0o644)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "write to this file instead of stdout")
	return cmd
}

func importCmd() *cobra.Command {
	var inPath string
	var skipRederivation bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a previously exported bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(inPath)
			if err != nil {
				return err
			}
			var bundle memento.ExportBundle
			if err := json.Unmarshal(data, &bundle); err != nil {
				return err
			}
			m, err := openStore()
			if err != nil {
				return err
			}
			defer m.Close()
			n, err := m.ImportMemories(context.Background(), bundle, skipRederivation)
			if err != nil {
				return err
			}
			fmt.Printf("imported %d memories\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "bundle file to import")
	cmd.Flags().BoolVar(&skipRederivation, "skip-rederivation", false, "insert verbatim instead of re-running extraction")
	cmd.MarkFlagRequired("in")
	return cmd
}

func gcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Trigger an out-of-band hard-delete sweep of past-retention memories",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openStore()
			if err != nil {
				return err
			}
			defer m.Close()
			m.RunHardDeleteSweep()
			fmt.Println("hard-delete sweep complete")
			return nil
		},
	}
}

func decayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decay",
		Short: "Trigger an out-of-band behavioral pattern formation sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openStore()
			if err != nil {
				return err
			}
			defer m.Close()
			m.RunPatternFormationSweep()
			fmt.Println("pattern formation sweep complete")
			return nil
		},
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
