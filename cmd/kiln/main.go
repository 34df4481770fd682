package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jward/kiln"
	"github.com/spf13/cobra"
)

var (
	flagDB      string
	flagFormat  string
	flagRoot    string
	flagVerbose bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "kiln",
	Short:         "Static build toolkit for pages, scripts and assets",
	Long:          "Kiln renders Risor page templates to markup, bundles scripts from their import graph with esbuild and writes content-addressed build artifacts.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .kiln/kiln.db under the project root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "project root for render, bundle and cache")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(bundleCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(cacheCmd)
}

var (
	flagOut     string
	flagHistory int
)

var buildCmd = &cobra.Command{
	Use:   "build [config]",
	Short: "Build the artifacts listed in a build file",
	Long:  "Reads a YAML build file (default kiln.yaml), writes every artifact under its output directory and reports which paths changed since the last build.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&flagOut, "out", "", "output directory, overriding the build file")
	buildCmd.Flags().IntVar(&flagHistory, "history", kiln.DefaultHistory, "builds per output directory to keep in the database (0 keeps all)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	start := time.Now()

	arg := "kiln.yaml"
	if len(args) > 0 {
		arg = args[0]
	}
	configPath, err := filepath.Abs(arg)
	if err != nil {
		return outputError("build", fmt.Errorf("resolving path %q: %w", arg, err))
	}

	cfg, err := kiln.LoadConfig(configPath)
	if err != nil {
		return outputError("build", err)
	}
	if flagOut != "" {
		out, err := filepath.Abs(flagOut)
		if err != nil {
			return outputError("build", fmt.Errorf("resolving path %q: %w", flagOut, err))
		}
		cfg.Out = out
	}

	root := filepath.Dir(configPath)
	engine, err := openEngine(root, kiln.WithHistory(flagHistory))
	if err != nil {
		return outputError("build", err)
	}
	defer engine.Close()

	res, err := engine.BuildConfig(context.Background(), cfg)
	if err != nil {
		return outputError("build", err)
	}

	fmt.Fprintf(os.Stderr, "Built %d artifacts in %s (%d changed, %d removed)\n",
		len(res.Manifest), time.Since(start).Round(time.Millisecond), len(res.Changed), len(res.Removed))

	return outputResult(cmd, CLIResult{
		Command: "build",
		Results: newCLIBuild(cfg.Out, res),
	})
}

// openEngine creates an Engine for root backed by the resolved database.
func openEngine(root string, opts ...kiln.Option) (*kiln.Engine, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", abs)
	}

	dbPath := resolveDBPath(abs)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	opts = append([]kiln.Option{
		kiln.WithDB(dbPath),
		kiln.WithLogger(newLogger()),
	}, opts...)
	engine, err := kiln.New(abs, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return engine, nil
}

// newLogger returns a text logger on stderr at the level --verbose selects.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(root string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(root, flagDB)
	}
	return filepath.Join(root, ".kiln", "kiln.db")
}
