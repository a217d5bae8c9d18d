package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/studykit/engine/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "studykitd",
		Short: "Studykit engine daemon",
		Long:  "Studykit daemon for running the query orchestration API server",
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
