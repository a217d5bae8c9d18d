package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/studykit/engine/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "studykit",
		Short: "Studykit CLI - question answering over your documents",
		Long: `Studykit CLI asks questions, uploads documents, and manages the index.

Environment variables:
  STUDYKIT_USER_ID   User identifier sent with every request (required)
  STUDYKIT_API_KEY   Service API key for authentication
  STUDYKIT_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().String("api-key", "", "Service API key (overrides env)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	rootCmd.PersistentFlags().String("user", "", "User ID (overrides env)")

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.UploadCmd())
	rootCmd.AddCommand(client.DocsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
