package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories in a scope",
		Run:   runList,
	}

	cmd.Flags().IntP("limit", "l", 50, "Max results")
	cmd.Flags().Int("offset", 0, "Results to skip")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

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

	memories, err := svc.ListMemories(cmd.Context(), scope, limit, offset)
	if err != nil {
		exitErr("list", err)
	}

	b, _ := json.MarshalIndent(memories, "", "  ")
	fmt.Println(string(b))
}
