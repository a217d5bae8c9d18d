package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// QueryRequest represents the query API request.
type QueryRequest struct {
	Question       string   `json:"question"`
	DocumentIDs    []string `json:"document_ids,omitempty"`
	TopK           int      `json:"top_k,omitempty"`
	ScoreThreshold float32  `json:"score_threshold,omitempty"`
	Temperature    float32  `json:"temperature,omitempty"`
	MaxTokens      int      `json:"max_tokens,omitempty"`
}

// QueryContext represents one retrieved chunk in the query response.
type QueryContext struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	FileName   string  `json:"file_name,omitempty"`
	Title      string  `json:"title,omitempty"`
}

// QueryResult represents the query API response.
type QueryResult struct {
	Answer           string         `json:"answer"`
	Contexts         []QueryContext `json:"contexts"`
	Intent           string         `json:"intent"`
	ProviderUsed     string         `json:"provider_used"`
	EstimatedTokens  int            `json:"estimated_tokens"`
	ProcessingTimeMS int64          `json:"processing_time_ms"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		docIDs     []string
		topK       int
		threshold  float32
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question, optionally grounded in your documents",
		Long: `Ask a question. The engine classifies the intent and routes it to the
matching pipeline (chat, retrieval, summarization, question generation,
or homework help).

Examples:
  studykit ask "Quang hợp là gì?"
  studykit ask --doc 4f7c2a "Tóm tắt tài liệu này"
  studykit ask --doc 4f7c2a --doc 91be30 "Tạo câu hỏi ôn tập"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			req := QueryRequest{
				Question:       strings.Join(args, " "),
				DocumentIDs:    docIDs,
				TopK:           topK,
				ScoreThreshold: threshold,
			}

			resp, err := api.Post("/query", req)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			var result QueryResult
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(result, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			fmt.Println(result.Answer)
			fmt.Println()
			fmt.Printf("intent=%s provider=%s tokens=%d time=%dms\n",
				result.Intent, result.ProviderUsed, result.EstimatedTokens, result.ProcessingTimeMS)
			if len(result.Contexts) > 0 {
				fmt.Printf("sources: %d chunk(s)\n", len(result.Contexts))
				for _, c := range result.Contexts {
					fmt.Printf("  [%.2f] %s #%d\n", c.Score, c.Title, c.ChunkIndex)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringArrayVar(&docIDs, "doc", nil, "Scope retrieval to a document ID (repeatable)")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of chunks to retrieve (0 = server default)")
	cmd.Flags().Float32Var(&threshold, "threshold", 0, "Minimum similarity score (0 = server default)")
	cmd.Flags().BoolVarP(&outputJSON, "output", "o", false, "Output raw JSON")

	return cmd
}
