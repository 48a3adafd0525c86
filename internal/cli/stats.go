package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rcliao/rag-mcp/internal/model"
)

type scopeStats struct {
	Scope       string `json:"scope"`
	DBPath      string `json:"db_path,omitempty"`
	DBSize      string `json:"db_size,omitempty"`
	DBSizeBytes int64  `json:"db_size_bytes,omitempty"`
	Memories    int    `json:"memories"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory counts and database size for a scope",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	scope, err := resolveScope()
	if err != nil {
		exitErr("resolve scope", err)
	}

	svc := openService(cfg)
	defer svc.Close()

	count, err := svc.CountMemories(cmd.Context(), scope)
	if err != nil {
		exitErr("stats", err)
	}

	st := scopeStats{Scope: string(scope.Kind), Memories: count}

	var dbPath string
	switch scope.Kind {
	case model.ScopeGlobal:
		dbPath = cfg.Storage.GlobalDBPath
	case model.ScopeProject:
		dbPath = filepath.Join(scope.ProjectPath, cfg.Storage.ProjectDBName)
	}
	if dbPath != "" {
		st.DBPath = dbPath
		if info, err := os.Stat(dbPath); err == nil {
			st.DBSizeBytes = info.Size()
			st.DBSize = humanize.Bytes(uint64(info.Size()))
		}
	}

	b, _ := json.MarshalIndent(st, "", "  ")
	fmt.Println(string(b))
}
