// Package cli implements the rag-mcp command-line surface: a serve
// subcommand that runs the dispatcher, and thin subcommands (add, search,
// list, delete, stats) that translate flags into the same core operations
// the dispatcher exposes as tools (spec §6 "Process invocation").
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/rag-mcp/internal/config"
	"github.com/rcliao/rag-mcp/internal/model"
	"github.com/rcliao/rag-mcp/internal/service"
	"github.com/rcliao/rag-mcp/internal/store"
)

var (
	projectPathFlag string
	scopeFlag       string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "rag-mcp",
	Short: "BM25 keyword memory for AI coding agents",
	Long:  "rag-mcp stores and retrieves text memories scoped to a session, project, or globally, ranked by BM25 keyword search.",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&projectPathFlag, "project", "", "Project path (for project scope; default: current directory)")
	RootCmd.PersistentFlags().StringVar(&scopeFlag, "scope", "global", "Scope: session, project, or global")
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Server.LogLevel {
	case "trace", "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func openService(cfg *config.Config) *service.Service {
	st := store.New(cfg.Storage.GlobalDBPath, cfg.Storage.ProjectDBName, cfg.Storage.MaxSessionMemories)
	return service.New(st, cfg.Search.BM25K1, cfg.Search.BM25B)
}

// resolveScope builds a model.Scope from the persistent --scope/--project
// flags, defaulting a project scope's path to the current directory.
func resolveScope() (model.Scope, error) {
	path := projectPathFlag
	if scopeFlag == "project" && path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return model.Scope{}, fmt.Errorf("resolve working directory: %w", err)
		}
		path = wd
	}

	switch scopeFlag {
	case "session":
		return model.Scope{Kind: model.ScopeSession}, nil
	case "global":
		return model.Scope{Kind: model.ScopeGlobal}, nil
	case "project":
		return model.Scope{Kind: model.ScopeProject, ProjectPath: path}, nil
	default:
		return model.Scope{}, fmt.Errorf("invalid scope: %q", scopeFlag)
	}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
