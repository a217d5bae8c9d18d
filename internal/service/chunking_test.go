package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText(t *testing.T) {
	cfg := ChunkConfig{MaxChars: 100, MinChars: 30, Overlap: 20, MaxChunks: 500}

	t.Run("empty input yields no chunks", func(t *testing.T) {
		assert.Nil(t, chunkText("", cfg))
		assert.Nil(t, chunkText("   \n\t  ", cfg))
	})

	t.Run("short input stays a single chunk", func(t *testing.T) {
		chunks := chunkText("một đoạn văn ngắn", cfg)
		require.Len(t, chunks, 1)
		assert.Equal(t, "một đoạn văn ngắn", chunks[0])
	})

	t.Run("long input splits with overlap", func(t *testing.T) {
		words := make([]string, 100)
		for i := range words {
			words[i] = "từ"
		}
		text := strings.Join(words, " ")

		chunks := chunkText(text, cfg)

		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, len([]rune(c)), cfg.MaxChars)
			assert.NotEmpty(t, c)
		}
		// Consecutive chunks share text because of the overlap
		tail := []rune(chunks[0])
		tail = tail[len(tail)-5:]
		assert.Contains(t, chunks[1], string(tail))
	})

	t.Run("prefers whitespace boundaries", func(t *testing.T) {
		text := strings.Repeat("từvự ", 50)
		chunks := chunkText(text, cfg)
		for _, c := range chunks {
			assert.False(t, strings.HasPrefix(c, " "))
			assert.False(t, strings.HasSuffix(c, " "))
		}
	})

	t.Run("respects the chunk cap", func(t *testing.T) {
		capped := cfg
		capped.MaxChunks = 3
		text := strings.Repeat("a ", 1000)

		chunks := chunkText(text, capped)

		assert.Len(t, chunks, 3)
	})

	t.Run("unbreakable run still makes progress", func(t *testing.T) {
		text := strings.Repeat("x", 350)
		chunks := chunkText(text, cfg)

		require.NotEmpty(t, chunks)
		total := 0
		for _, c := range chunks {
			total += len(c)
		}
		assert.GreaterOrEqual(t, total, 350)
	})
}
