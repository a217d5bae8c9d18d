//go:build e2e

package e2e

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bioContent = `Quang hợp là quá trình thực vật sử dụng ánh sáng mặt trời để tổng hợp chất hữu cơ từ khí CO2 và nước.
Diệp lục trong lá cây hấp thụ ánh sáng và chuyển hóa năng lượng ánh sáng thành năng lượng hóa học.
Sản phẩm của quang hợp là glucose và khí oxy, trong đó oxy được thải ra môi trường.
Hô hấp tế bào là quá trình ngược lại, phân giải glucose để giải phóng năng lượng cho hoạt động sống.
Quang hợp và hô hấp tế bào tạo thành một chu trình trao đổi chất cơ bản của sinh giới.`

// TestE2E_Auth tests the service key gate on protected routes
func TestE2E_Auth(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("health endpoint is open", func(t *testing.T) {
		resp, err := env.HTTPClient.Get(env.ServerURL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("missing key returns 401", func(t *testing.T) {
		_, err := env.PostAs("/query", map[string]string{"question": "hi"}, "", e2eUserID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("wrong key returns 401", func(t *testing.T) {
		_, err := env.PostAs("/query", map[string]string{"question": "hi"}, "wrong-key", e2eUserID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("missing user id returns 400", func(t *testing.T) {
		_, err := env.PostAs("/query", map[string]string{"question": "hi"}, e2eServiceKey, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})
}

// TestE2E_DocumentLifecycle tests upload, background ingest, listing, and
// deletion of a document
func TestE2E_DocumentLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	var docID string

	t.Run("upload document", func(t *testing.T) {
		docID = env.UploadDocument("sinh-hoc.txt", "Sinh học 11", bioContent)
		assert.NotEmpty(t, docID)
	})

	t.Run("ingest worker indexes the document", func(t *testing.T) {
		env.WaitForIndexed(docID, 15*time.Second)

		resp, err := env.Get("/documents/" + docID)
		require.NoError(t, err)

		var doc struct {
			Status     string `json:"status"`
			ChunkCount int    `json:"chunk_count"`
			Title      string `json:"title"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &doc))
		assert.Equal(t, "indexed", doc.Status)
		assert.Greater(t, doc.ChunkCount, 0)
		assert.Equal(t, "Sinh học 11", doc.Title)
	})

	t.Run("list contains the document", func(t *testing.T) {
		resp, err := env.Get("/documents")
		require.NoError(t, err)

		var list struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &list))

		found := false
		for _, item := range list.Items {
			if item.ID == docID {
				found = true
				break
			}
		}
		assert.True(t, found, "uploaded document should be in list")
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		_, err := env.Post("/documents", map[string]string{
			"file_name": "empty.txt",
			"content":   "   ",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("delete removes the document", func(t *testing.T) {
		_, err := env.Delete("/documents/" + docID)
		require.NoError(t, err)

		_, err = env.Get("/documents/" + docID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

// TestE2E_QueryPipeline tests intent routing through the full HTTP stack
func TestE2E_QueryPipeline(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	docID := env.UploadDocument("sinh-hoc.txt", "Sinh học 11", bioContent)
	env.WaitForIndexed(docID, 15*time.Second)

	type queryResponse struct {
		Answer       string `json:"answer"`
		Intent       string `json:"intent"`
		ProviderUsed string `json:"provider_used"`
		Contexts     []struct {
			DocumentID string  `json:"document_id"`
			Score      float32 `json:"score"`
			Text       string  `json:"text"`
		} `json:"contexts"`
		EstimatedTokens int `json:"estimated_tokens"`
	}

	ask := func(t *testing.T, body map[string]interface{}) queryResponse {
		t.Helper()
		resp, err := env.Post("/query", body)
		require.NoError(t, err)
		var qr queryResponse
		require.NoError(t, json.Unmarshal(resp.Data, &qr))
		return qr
	}

	t.Run("direct chat without documents", func(t *testing.T) {
		qr := ask(t, map[string]interface{}{
			"question": "Xin chào, hôm nay học môn nào nhỉ",
		})

		assert.Equal(t, "direct_chat", qr.Intent)
		assert.Equal(t, "gemini-flash", qr.ProviderUsed)
		assert.True(t, strings.HasPrefix(qr.Answer, "[gemini/flash-test]"))
		assert.Empty(t, qr.Contexts)
	})

	t.Run("rag query retrieves matching chunks", func(t *testing.T) {
		qr := ask(t, map[string]interface{}{
			"question":        "Theo tài liệu, quang hợp là gì?",
			"document_ids":    []string{docID},
			"score_threshold": 0.1,
		})

		assert.Equal(t, "rag_query", qr.Intent)
		assert.Equal(t, "gemini-flash", qr.ProviderUsed)
		require.NotEmpty(t, qr.Contexts, "word overlap should clear the threshold")
		for _, c := range qr.Contexts {
			assert.Equal(t, docID, c.DocumentID)
			assert.Greater(t, c.Score, float32(0))
		}
		assert.Greater(t, qr.EstimatedTokens, 0)
	})

	t.Run("rag query without matching content degrades gracefully", func(t *testing.T) {
		qr := ask(t, map[string]interface{}{
			"question":     "Theo tài liệu, thủ đô của Pháp ở đâu vậy nhỉ nhỉ nhỉ",
			"document_ids": []string{docID},
		})

		assert.Equal(t, "rag_query", qr.Intent)
		// Either real contexts cleared the default threshold or the canned
		// no-context answer came back; both are valid outcomes here.
		if len(qr.Contexts) == 0 {
			assert.Equal(t, "none", qr.ProviderUsed)
			assert.Zero(t, qr.EstimatedTokens)
		}
	})

	t.Run("summarization scans the whole document", func(t *testing.T) {
		qr := ask(t, map[string]interface{}{
			"question":     "Tóm tắt tài liệu này giúp mình",
			"document_ids": []string{docID},
		})

		assert.Equal(t, "summarization", qr.Intent)
		assert.Equal(t, "gemini-pro", qr.ProviderUsed)
		require.NotEmpty(t, qr.Contexts)
		for _, c := range qr.Contexts {
			assert.Equal(t, float32(1.0), c.Score)
		}
	})

	t.Run("question generation uses the wide retrieval profile", func(t *testing.T) {
		qr := ask(t, map[string]interface{}{
			"question":     "Tạo câu hỏi ôn tập về quang hợp và hô hấp tế bào",
			"document_ids": []string{docID},
		})

		assert.Equal(t, "question_generation", qr.Intent)
		assert.Equal(t, "gemini-pro", qr.ProviderUsed)
		require.NotEmpty(t, qr.Contexts)
	})

	t.Run("homework solver skips retrieval", func(t *testing.T) {
		qr := ask(t, map[string]interface{}{
			"question": "Giải bài tập 5 trang 20 sách giáo khoa",
		})

		assert.Equal(t, "homework_solver", qr.Intent)
		assert.Equal(t, "gemini-pro", qr.ProviderUsed)
		assert.Empty(t, qr.Contexts)
	})

	t.Run("empty question returns 400", func(t *testing.T) {
		_, err := env.Post("/query", map[string]interface{}{"question": "   "})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})
}

// TestE2E_RateLimitFallback tests the single failover hop end to end
func TestE2E_RateLimitFallback(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	env.Gemini.SetRateLimited(true)
	defer env.Gemini.SetRateLimited(false)

	resp, err := env.Post("/query", map[string]interface{}{
		"question": "Kể một câu chuyện ngắn về mùa thu",
	})
	require.NoError(t, err)

	var qr struct {
		Answer       string `json:"answer"`
		ProviderUsed string `json:"provider_used"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &qr))

	assert.Equal(t, "groq-llama (fallback from gemini-flash)", qr.ProviderUsed)
	assert.True(t, strings.HasPrefix(qr.Answer, "[groq/llama-test]"))
	assert.GreaterOrEqual(t, env.Gemini.Calls(), 1)
	assert.GreaterOrEqual(t, env.Groq.Calls(), 1)
}
