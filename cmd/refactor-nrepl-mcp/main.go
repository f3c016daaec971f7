package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/andrewmcveigh/refactor-nrepl/refactor"
	"github.com/andrewmcveigh/refactor-nrepl/symbols"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	version := flag.String("version", "0.1.0", "MCP server version")
	verbose := flag.Bool("verbose", false, "log progress to stderr")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	srv := server.NewMCPServer(
		"refactor-nrepl-mcp-server",
		*version,
		server.WithInstructions(
			strings.Join([]string{
				"This is an MCP server for namespace-aware refactoring of Clojure source trees.",
				"The following tools are available:",
				"- rename-file: Move a file or directory; dependent namespaces are rewritten to match.",
				"- find-symbol: Locate occurrences of a symbol using AST analysis.",
			}, "\n"),
		),
		server.WithLogging(),
		server.WithRecovery(),
	)

	renameTool := mcp.NewTool("rename-file",
		mcp.WithDescription("Moves a file or directory. When the file declares a namespace, the declaration and every dependent file's references are rewritten to the namespace implied by the new location."),
		mcp.WithString("old",
			mcp.Required(),
			mcp.Description("The current path of the file or directory."),
		),
		mcp.WithString("new",
			mcp.Required(),
			mcp.Description("The destination path."),
		),
		mcp.WithString("source-roots",
			mcp.Description("Comma-separated source root directories, in resolution order. Defaults to src,test."),
		),
	)
	srv.AddTool(renameTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		oldPath, _ := req.Params.Arguments["old"].(string)
		newPath, _ := req.Params.Arguments["new"].(string)
		rootsArg, _ := req.Params.Arguments["source-roots"].(string)
		roots := []string{"src", "test"}
		if rootsArg != "" {
			roots = strings.Split(rootsArg, ",")
		}

		engine := refactor.NewEngine(refactor.Config{SourceRoots: roots, Logger: logger})
		affected, err := engine.Rename(oldPath, newPath)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"touched": affected})
	})

	findTool := mcp.NewTool("find-symbol",
		mcp.WithDescription("Locates occurrences of a symbol using AST analysis. With a file, line and column pointing at a local binding, only the occurrences of that binding are returned; otherwise the whole tree is searched."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The symbol's simple name."),
		),
		mcp.WithString("ns",
			mcp.Description("The symbol's namespace. Defaults to the namespace declared by the anchor file."),
		),
		mcp.WithString("file",
			mcp.Description("Anchor file: supplies the default namespace and search root, and is required for a local-binding search."),
		),
		mcp.WithString("dir",
			mcp.Description("Root directory for the global search. Defaults to the anchor file's directory."),
		),
		mcp.WithNumber("line",
			mcp.Description("Line of a local binding occurrence (1-based)."),
		),
		mcp.WithNumber("column",
			mcp.Description("Column of a local binding occurrence (1-based)."),
		),
	)
	srv.AddTool(findTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, _ := req.Params.Arguments["name"].(string)
		nsName, _ := req.Params.Arguments["ns"].(string)
		file, _ := req.Params.Arguments["file"].(string)
		dir, _ := req.Params.Arguments["dir"].(string)
		line, _ := req.Params.Arguments["line"].(float64)
		column, _ := req.Params.Arguments["column"].(float64)

		finder := symbols.NewFinder(symbols.FinderConfig{Logger: logger})
		refs, err := finder.Find(symbols.Options{
			Name:   name,
			Ns:     nsName,
			File:   file,
			Dir:    dir,
			Line:   int(line),
			Column: int(column),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(refs)
	})

	if err := server.ServeStdio(srv); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
