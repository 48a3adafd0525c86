package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/rag-mcp/internal/service"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Store a memory",
		Long:  "Store a memory. Content can be a positional arg or piped via stdin.",
		Run:   runAdd,
	}

	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().String("source-file", "", "Originating file path")
	cmd.Flags().String("language", "", "Source language")

	RootCmd.AddCommand(cmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	tagsStr, _ := cmd.Flags().GetString("tags")
	sourceFile, _ := cmd.Flags().GetString("source-file")
	language, _ := cmd.Flags().GetString("language")

	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}
	if strings.TrimSpace(content) == "" {
		exitErr("add", fmt.Errorf("content is required (positional arg or stdin)"))
	}

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

	mem, err := svc.StoreMemory(cmd.Context(), service.StoreParams{
		Scope:      scope,
		Content:    strings.TrimSpace(content),
		Tags:       tags,
		SourceFile: sourceFile,
		Language:   language,
	})
	if err != nil {
		exitErr("add", err)
	}

	b, _ := json.Marshal(mem)
	fmt.Println(string(b))
}
