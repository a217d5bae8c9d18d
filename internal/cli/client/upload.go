package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// UploadDocumentRequest represents the document upload API request.
type UploadDocumentRequest struct {
	FileName string `json:"file_name"`
	Title    string `json:"title,omitempty"`
	Content  string `json:"content"`
}

// Document represents a document in API responses.
type Document struct {
	ID         string `json:"id"`
	FileName   string `json:"file_name"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	var (
		title      string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "upload [file]",
		Short: "Upload a text document for indexing",
		Long: `Upload a document from a file or stdin. The server chunks and embeds it
in the background; check its status with 'studykit docs get'.

Examples:
  studykit upload notes.txt
  cat chapter1.txt | studykit upload --title "Chương 1"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var content []byte
			fileName := "stdin.txt"
			if len(args) == 1 {
				content, err = os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("failed to read file: %w", err)
				}
				fileName = filepath.Base(args[0])
			} else {
				content, err = io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
			}

			if len(content) == 0 {
				return fmt.Errorf("no content provided")
			}

			resp, err := api.Post("/documents", UploadDocumentRequest{
				FileName: fileName,
				Title:    title,
				Content:  string(content),
			})
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
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

			fmt.Printf("Uploaded document: %s\n", doc.ID)
			fmt.Printf("Title: %s\n", doc.Title)
			fmt.Printf("Status: %s\n", doc.Status)

			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Document title (defaults to file name)")
	cmd.Flags().BoolVarP(&outputJSON, "output", "o", false, "Output raw JSON")

	return cmd
}
