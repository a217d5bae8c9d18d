package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// DocumentList represents one page of documents in API responses.
type DocumentList struct {
	Items   []Document `json:"items"`
	Cursor  string     `json:"cursor,omitempty"`
	HasMore bool       `json:"has_more"`
}

// DocsCmd creates the docs command group.
func DocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage uploaded documents",
	}

	cmd.AddCommand(docsListCmd())
	cmd.AddCommand(docsGetCmd())
	cmd.AddCommand(docsDeleteCmd())

	return cmd
}

func docsListCmd() *cobra.Command {
	var (
		limit      int
		cursor     string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			q := url.Values{}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if cursor != "" {
				q.Set("cursor", cursor)
			}
			path := "/documents"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			resp, err := api.Get(path)
			if err != nil {
				return fmt.Errorf("failed to list documents: %w", err)
			}

			var page DocumentList
			if err := json.Unmarshal(resp.Data, &page); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(page, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			if len(page.Items) == 0 {
				fmt.Println("No documents found.")
				return nil
			}

			for _, d := range page.Items {
				fmt.Printf("%s  %-10s  %3d chunks  %s\n", d.ID, d.Status, d.ChunkCount, d.Title)
			}
			if page.HasMore {
				fmt.Printf("\nMore results available. Next page: --cursor %s\n", page.Cursor)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum documents per page (0 = server default)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from a previous page")
	cmd.Flags().BoolVarP(&outputJSON, "output", "o", false, "Output raw JSON")

	return cmd
}

func docsGetCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/documents/" + url.PathEscape(args[0]))
			if err != nil {
				return fmt.Errorf("failed to get document: %w", err)
			}

			var doc Document
			if err := json.Unmarshal(resp.Data, &doc); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(doc, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			fmt.Printf("ID:       %s\n", doc.ID)
			fmt.Printf("Title:    %s\n", doc.Title)
			fmt.Printf("File:     %s\n", doc.FileName)
			fmt.Printf("Status:   %s\n", doc.Status)
			fmt.Printf("Chunks:   %d\n", doc.ChunkCount)
			fmt.Printf("Created:  %s\n", doc.CreatedAt)
			fmt.Printf("Updated:  %s\n", doc.UpdatedAt)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&outputJSON, "output", "o", false, "Output raw JSON")

	return cmd
}

func docsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			if _, err := api.Delete("/documents/" + url.PathEscape(args[0])); err != nil {
				return fmt.Errorf("failed to delete document: %w", err)
			}

			fmt.Printf("Deleted document: %s\n", args[0])
			return nil
		},
	}

	return cmd
}
