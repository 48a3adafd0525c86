package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a memory by id",
		Run:   runDelete,
	}

	RootCmd.AddCommand(cmd)
}

func runDelete(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		exitErr("delete", fmt.Errorf("id is required"))
	}
	id := args[0]

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

	existed, err := svc.DeleteMemory(cmd.Context(), scope, id)
	if err != nil {
		exitErr("delete", err)
	}
	if existed {
		fmt.Printf("deleted %s\n", id)
	} else {
		fmt.Printf("%s not found\n", id)
	}
}
