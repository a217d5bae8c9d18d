//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studykit/engine/internal/api/handlers"
	"github.com/studykit/engine/internal/domain"
	"github.com/studykit/engine/internal/embedding"
	"github.com/studykit/engine/internal/jobs"
	"github.com/studykit/engine/internal/provider"
	"github.com/studykit/engine/internal/repository"
	"github.com/studykit/engine/internal/server"
	"github.com/studykit/engine/internal/service"
	"github.com/studykit/engine/internal/testutil"
)

const (
	e2eServiceKey = "e2e-secret"
	e2eUserID     = "e2e-user"
	embeddingDim  = 1536
)

// E2ETestEnv holds all resources needed for E2E tests.
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	Gemini     *scriptedGenerator
	Groq       *scriptedGenerator
	HTTPClient *http.Client
	worker     *jobs.Worker
}

// SetupE2EEnv starts a Postgres container and a full in-process server with
// deterministic embedding and generation stubs. Only the model providers are
// faked; everything else is the real stack.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	jobRepo := repository.NewIngestJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	embedder := &hashEmbedder{}

	ingestSvc := service.NewIngestService(docRepo, chunkRepo, embedder, service.ChunkConfig{
		MaxChars:  200,
		MinChars:  40,
		Overlap:   20,
		MaxChunks: 500,
	})
	ingestWorker := jobs.NewIngestWorker(jobRepo, ingestSvc)
	worker := jobs.NewWorker(ingestWorker, 100*time.Millisecond)
	go worker.Start(ctx)

	registry := provider.NewRegistry(provider.RegistryConfig{
		GeminiConfigured: true,
		GroqConfigured:   true,
		GeminiFlashModel: "flash-test",
		GeminiProModel:   "pro-test",
		GroqLlamaModel:   "llama-test",
	})

	gemini := &scriptedGenerator{name: "gemini"}
	groq := &scriptedGenerator{name: "groq"}
	gateway := provider.NewGateway(registry, map[domain.ProviderName]provider.Generator{
		domain.ProviderGeminiFlash: gemini,
		domain.ProviderGeminiPro:   gemini,
		domain.ProviderGroq:        groq,
	}, 30*time.Second)

	retriever := service.NewRetriever(embedder, chunkRepo, service.RetrieverConfig{
		MinScoreThreshold: 0.05,
		EnableFallback:    true,
		ScanLimit:         100,
		EmbedTimeout:      10 * time.Second,
		SearchTimeout:     10 * time.Second,
	})

	orchestrator := service.NewOrchestrator(
		service.NewClassifier(),
		retriever,
		registry,
		gateway,
		service.DefaultOrchestratorConfig(),
	)

	docSvc := service.NewDocumentService(txRunner, docRepo, nil)

	router := server.NewRouter(server.RouterConfig{
		ServiceAPIKey:   e2eServiceKey,
		QueryHandler:    handlers.NewQueryHandler(orchestrator),
		DocumentHandler: handlers.NewDocumentHandler(docSvc),
	})

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return &E2ETestEnv{
		T:         t,
		Ctx:       ctx,
		PostgresC: pgC,
		Pool:      pool,
		ServerURL: serverURL,
		ServerCloser: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		},
		Gemini:     gemini,
		Groq:       groq,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		worker:     worker,
	}
}

// Cleanup releases all resources.
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.worker != nil {
		e.worker.Stop()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// APIResponse represents a standard API response envelope.
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs an authenticated GET request.
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, e2eServiceKey, e2eUserID)
}

// Post performs an authenticated POST request.
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body, e2eServiceKey, e2eUserID)
}

// Delete performs an authenticated DELETE request.
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, e2eServiceKey, e2eUserID)
}

// PostAs performs a POST with explicit credentials, for auth tests.
func (e *E2ETestEnv) PostAs(path string, body interface{}, apiKey, userID string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, apiKey, userID)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, apiKey, userID string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return &APIResponse{}, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// UploadDocument uploads a document and returns its ID.
func (e *E2ETestEnv) UploadDocument(fileName, title, content string) string {
	resp, err := e.Post("/documents", map[string]string{
		"file_name": fileName,
		"title":     title,
		"content":   content,
	})
	if err != nil {
		e.T.Fatalf("failed to upload document: %v", err)
	}

	var doc struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		e.T.Fatalf("failed to parse upload response: %v", err)
	}
	return doc.ID
}

// WaitForIndexed polls until the ingest worker has indexed the document.
func (e *E2ETestEnv) WaitForIndexed(docID string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := e.Get("/documents/" + docID)
		if err == nil {
			var doc struct {
				Status string `json:"status"`
			}
			if json.Unmarshal(resp.Data, &doc) == nil {
				switch doc.Status {
				case "indexed":
					return
				case "failed":
					e.T.Fatalf("document %s failed to ingest", docID)
				}
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatalf("document %s was not indexed within %v", docID, timeout)
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// hashEmbedder maps each word to a dimension bucket, so texts sharing words
// get high cosine similarity. Deterministic and offline.
type hashEmbedder struct{}

func (h *hashEmbedder) Embed(_ context.Context, texts []string, _ embedding.Mode) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, embeddingDim)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			hash := fnv.New32a()
			hash.Write([]byte(word))
			v[hash.Sum32()%embeddingDim]++
		}
		normalize(v)
		vectors[i] = v
	}
	return vectors, nil
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

// scriptedGenerator is a provider adapter stub with a switchable rate-limit
// mode for failover tests.
type scriptedGenerator struct {
	mu          sync.Mutex
	name        string
	rateLimited bool
	calls       int
}

func (g *scriptedGenerator) GenerateText(_ context.Context, model string, req provider.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.rateLimited {
		return "", domain.ErrRateLimited
	}
	return fmt.Sprintf("[%s/%s] %s", g.name, model, firstLine(req.Prompt)), nil
}

func (g *scriptedGenerator) SetRateLimited(limited bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rateLimited = limited
}

func (g *scriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
