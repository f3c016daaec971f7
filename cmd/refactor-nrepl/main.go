package main

import (
	"context"
	"log/slog"
	"os"
	"runtime"

	"github.com/andrewmcveigh/refactor-nrepl/output"
	"github.com/andrewmcveigh/refactor-nrepl/refactor"
	"github.com/andrewmcveigh/refactor-nrepl/symbols"
	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "refactor-nrepl",
		Usage: "namespace-aware refactoring for Clojure source trees",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log progress to stderr",
			},
		},
		Commands: []*cli.Command{
			renameCommand(),
			findSymbolCommand(),
			debugInvocationsCommand(),
			dependentsCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		output.WriteError(err)
		os.Exit(1)
	}
}

func newLogger(cmd *cli.Command) *slog.Logger {
	level := slog.LevelWarn
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func renameCommand() *cli.Command {
	return &cli.Command{
		Name:  "rename",
		Usage: "move a file or directory, updating every dependent namespace",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "old",
				Usage:    "current path (required)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "new",
				Usage:    "destination path (required)",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:    "source-root",
				Aliases: []string{"r"},
				Value:   []string{"src", "test"},
				Usage:   "source root directories, in resolution order",
			},
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "minimize output",
			},
		},
		Action: runRename,
	}
}

func runRename(_ context.Context, cmd *cli.Command) error {
	engine := refactor.NewEngine(refactor.Config{
		SourceRoots: cmd.StringSlice("source-root"),
		Logger:      newLogger(cmd),
	})

	affected, err := engine.Rename(cmd.String("old"), cmd.String("new"))
	if err != nil {
		return err
	}

	return output.New(output.Config{Compact: cmd.Bool("compact")}).Write(map[string]any{
		"touched": affected,
	})
}

func findSymbolCommand() *cli.Command {
	return &cli.Command{
		Name:  "find-symbol",
		Usage: "locate occurrences of a symbol",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Aliases:  []string{"n"},
				Usage:    "symbol name (required)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "ns",
				Usage: "symbol namespace; defaults to the one declared by --file",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "anchor file for namespace and local search",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "root directory for the global search",
			},
			&cli.IntFlag{
				Name:  "line",
				Usage: "line of a local binding occurrence (1-based)",
			},
			&cli.IntFlag{
				Name:  "column",
				Usage: "column of a local binding occurrence (1-based)",
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Value:   runtime.NumCPU(),
				Usage:   "number of parallel workers",
			},
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "minimize output",
			},
		},
		Action: runFindSymbol,
	}
}

func runFindSymbol(_ context.Context, cmd *cli.Command) error {
	finder := symbols.NewFinder(symbols.FinderConfig{Logger: newLogger(cmd)})

	refs, err := finder.Find(symbols.Options{
		Name:   cmd.String("name"),
		Ns:     cmd.String("ns"),
		File:   cmd.String("file"),
		Dir:    cmd.String("dir"),
		Line:   cmd.Int("line"),
		Column: cmd.Int("column"),
		Jobs:   cmd.Int("jobs"),
	})
	if err != nil {
		return err
	}

	return output.New(output.Config{Compact: cmd.Bool("compact")}).Write(refs)
}

func debugInvocationsCommand() *cli.Command {
	return &cli.Command{
		Name:  "debug-invocations",
		Usage: "find invocations of debug functions in a file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "file to scan (required)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "names",
				Value: "println,prn,pr,print,printf",
				Usage: "comma-separated function names to look for",
			},
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "minimize output",
			},
		},
		Action: runDebugInvocations,
	}
}

func runDebugInvocations(_ context.Context, cmd *cli.Command) error {
	data, err := os.ReadFile(cmd.String("file"))
	if err != nil {
		return err
	}

	refs, err := symbols.FindDebugInvocations(string(data), cmd.String("names"))
	if err != nil {
		return err
	}
	for i := range refs {
		refs[i].File = cmd.String("file")
	}

	return output.New(output.Config{Compact: cmd.Bool("compact")}).Write(refs)
}

func dependentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "dependents",
		Usage: "list files that require a namespace",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "ns",
				Usage:    "namespace to look up (required)",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:    "source-root",
				Aliases: []string{"r"},
				Value:   []string{"src", "test"},
				Usage:   "source root directories to scan",
			},
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "minimize output",
			},
		},
		Action: runDependents,
	}
}

func runDependents(_ context.Context, cmd *cli.Command) error {
	tracker := refactor.NewScanTracker(cmd.StringSlice("source-root"), newLogger(cmd))

	files, err := tracker.Dependents(cmd.String("ns"))
	if err != nil {
		return err
	}

	return output.New(output.Config{Compact: cmd.Bool("compact")}).Write(map[string]any{
		"dependents": files,
	})
}
