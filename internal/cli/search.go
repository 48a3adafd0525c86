package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/rag-mcp/internal/service"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories using BM25 keyword search",
		Run:   runSearch,
	}

	cmd.Flags().IntP("k", "k", 5, "Number of results to return")
	cmd.Flags().StringP("tags", "t", "", "Filter by tags (comma-separated, match-any)")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		exitErr("search", fmt.Errorf("query is required"))
	}
	query := strings.Join(args, " ")

	k, _ := cmd.Flags().GetInt("k")
	tagsStr, _ := cmd.Flags().GetString("tags")
	var tags []string
	if tagsStr != "" {
		for _, t := range strings.Split(tagsStr, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

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

	results, err := svc.SearchMemory(cmd.Context(), service.SearchParams{
		Scope: scope,
		Query: query,
		K:     k,
		Tags:  tags,
	})
	if err != nil {
		exitErr("search", err)
	}

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}
