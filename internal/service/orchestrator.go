package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/studykit/engine/internal/domain"
	"github.com/studykit/engine/internal/provider"
	"github.com/studykit/engine/internal/telemetry"
)

// ContextRetriever defines the retrieval interface the orchestrator consumes.
type ContextRetriever interface {
	Search(ctx context.Context, query string, filters SearchFilters, topK int, scoreThreshold float32) []domain.ContextChunk
	ScanDocuments(ctx context.Context, userID string, documentIDs []string) []domain.ContextChunk
}

// ModelSelector picks a provider and model for a task.
type ModelSelector interface {
	SelectModel(task domain.TaskType, complexity domain.Complexity, forced domain.ProviderName) (domain.ProviderModel, error)
}

// TextGenerator produces text with automatic rate-limit failover.
type TextGenerator interface {
	GenerateWithFallback(ctx context.Context, pm domain.ProviderModel, req provider.Request) (string, string, error)
}

// OrchestratorConfig holds per-intent defaults for the query pipeline.
type OrchestratorConfig struct {
	DefaultTopK           int
	DefaultScoreThreshold float32
	DefaultMaxTokens      int

	// Question generation trades precision for recall: more chunks at a
	// lower threshold than normal RAG.
	QuestionGenTopK      int
	QuestionGenThreshold float32

	HomeworkMaxTokens int

	// SummaryContextSample caps how many chunks a summarization result
	// echoes back to the caller.
	SummaryContextSample int
}

// DefaultOrchestratorConfig returns the default orchestrator configuration.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		DefaultTopK:           5,
		DefaultScoreThreshold: 0.5,
		DefaultMaxTokens:      2048,
		QuestionGenTopK:       10,
		QuestionGenThreshold:  0.3,
		HomeworkMaxTokens:     3072,
		SummaryContextSample:  10,
	}
}

// Orchestrator classifies each query's intent and dispatches it to the
// matching handler. It is stateless per request; all collaborators are
// read-only at request time, so queries may run concurrently without
// coordination.
type Orchestrator struct {
	classifier *Classifier
	retriever  ContextRetriever
	selector   ModelSelector
	generator  TextGenerator
	cfg        OrchestratorConfig
}

func NewOrchestrator(classifier *Classifier, retriever ContextRetriever, selector ModelSelector, generator TextGenerator, cfg OrchestratorConfig) *Orchestrator {
	if cfg.DefaultTopK <= 0 {
		cfg = DefaultOrchestratorConfig()
	}
	return &Orchestrator{
		classifier: classifier,
		retriever:  retriever,
		selector:   selector,
		generator:  generator,
		cfg:        cfg,
	}
}

// handlerResult is the uniform shape every intent handler returns; the
// orchestrator adds intent and processing time on top.
type handlerResult struct {
	Answer          string
	Contexts        []domain.ContextChunk
	ProviderUsed    string
	EstimatedTokens int
}

// ProcessQuery is the single entry point: classify, retrieve when the intent
// calls for it, build a prompt, and generate.
func (o *Orchestrator) ProcessQuery(ctx context.Context, q domain.Query) (*domain.QueryResult, error) {
	start := time.Now()

	o.applyDefaults(&q)
	if err := q.Validate(); err != nil {
		return nil, err
	}

	hasDocs := q.HasDocuments()
	intent := o.classifier.Classify(q.Question, hasDocs, len(q.DocumentIDs))

	ctx, span := telemetry.StartSpan(ctx, "Orchestrator.ProcessQuery", telemetry.SpanAttributes{
		UserID:    q.UserID,
		Intent:    string(intent),
		Operation: "process_query",
	})
	defer span.End()

	log.Printf("orchestrator: intent=%s has_docs=%v question=%q", intent, hasDocs, truncate(q.Question, 50))

	var result *handlerResult
	var err error

	switch intent {
	case domain.IntentDirectChat, domain.IntentCodeHelp:
		result, err = o.handleDirectChat(ctx, q)
	case domain.IntentRAGQuery:
		result, err = o.handleRAGQuery(ctx, q)
	case domain.IntentSummarization:
		result, err = o.handleSummarization(ctx, q)
	case domain.IntentQuestionGeneration:
		result, err = o.handleQuestionGeneration(ctx, q)
	case domain.IntentHomeworkSolver:
		result, err = o.handleHomework(ctx, q)
	default:
		result, err = o.handleDirectChat(ctx, q)
	}

	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &domain.QueryResult{
		Answer:          result.Answer,
		Contexts:        result.Contexts,
		ProviderUsed:    result.ProviderUsed,
		EstimatedTokens: result.EstimatedTokens,
		Intent:          intent,
		ProcessingTime:  time.Since(start),
	}, nil
}

func (o *Orchestrator) handleDirectChat(ctx context.Context, q domain.Query) (*handlerResult, error) {
	pm, err := o.selector.SelectModel(domain.TaskDirectChat, domain.ComplexityLow, "")
	if err != nil {
		return nil, err
	}

	answer, used, err := o.generator.GenerateWithFallback(ctx, pm, provider.Request{
		Prompt:            q.Question,
		SystemInstruction: directChatSystemInstruction,
		Temperature:       o.temperature(q, domain.IntentDirectChat),
		MaxTokens:         q.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	return &handlerResult{
		Answer:          answer,
		Contexts:        []domain.ContextChunk{},
		ProviderUsed:    used,
		EstimatedTokens: estimateTokens(q.Question, answer),
	}, nil
}

func (o *Orchestrator) handleRAGQuery(ctx context.Context, q domain.Query) (*handlerResult, error) {
	filters := SearchFilters{UserID: q.UserID, DocumentIDs: q.DocumentIDs}
	contexts := o.retriever.Search(ctx, q.Question, filters, q.TopK, q.ScoreThreshold)

	// Empty retrieval is not an error; skip generation entirely.
	if len(contexts) == 0 {
		return cannedResult(answerNoContext), nil
	}

	complexity := domain.ComplexityLow
	if o.classifier.IsComplex(q.Question) {
		complexity = domain.ComplexityHigh
	}

	pm, err := o.selector.SelectModel(domain.TaskRAGQuery, complexity, "")
	if err != nil {
		return nil, err
	}

	prompt := buildRAGPrompt(q.Question, contexts)
	answer, used, err := o.generator.GenerateWithFallback(ctx, pm, provider.Request{
		Prompt:            prompt,
		SystemInstruction: ragSystemInstruction,
		Temperature:       o.temperature(q, domain.IntentRAGQuery),
		MaxTokens:         q.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	return &handlerResult{
		Answer:          answer,
		Contexts:        contexts,
		ProviderUsed:    used,
		EstimatedTokens: estimateTokens(prompt, answer),
	}, nil
}

func (o *Orchestrator) handleSummarization(ctx context.Context, q domain.Query) (*handlerResult, error) {
	if !q.HasDocuments() {
		return cannedResult(answerChooseDocument), nil
	}

	contexts := o.retriever.ScanDocuments(ctx, q.UserID, q.DocumentIDs)
	if len(contexts) == 0 {
		return cannedResult(answerEmptyDocument), nil
	}

	pm, err := o.selector.SelectModel(domain.TaskSummarization, domain.ComplexityHigh, "")
	if err != nil {
		return nil, err
	}

	prompt := buildSummarizationPrompt(contexts)
	answer, used, err := o.generator.GenerateWithFallback(ctx, pm, provider.Request{
		Prompt:            prompt,
		SystemInstruction: summarizationSystemInstruction,
		Temperature:       o.temperature(q, domain.IntentSummarization),
		MaxTokens:         q.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	sample := contexts
	if len(sample) > o.cfg.SummaryContextSample {
		sample = sample[:o.cfg.SummaryContextSample]
	}

	return &handlerResult{
		Answer:          answer,
		Contexts:        sample,
		ProviderUsed:    used,
		EstimatedTokens: estimateTokens(prompt, answer),
	}, nil
}

func (o *Orchestrator) handleQuestionGeneration(ctx context.Context, q domain.Query) (*handlerResult, error) {
	filters := SearchFilters{UserID: q.UserID, DocumentIDs: q.DocumentIDs}
	contexts := o.retriever.Search(ctx, q.Question, filters, o.cfg.QuestionGenTopK, o.cfg.QuestionGenThreshold)

	if len(contexts) == 0 {
		return cannedResult(answerNoQuestionSource), nil
	}

	pm, err := o.selector.SelectModel(domain.TaskQuestionGeneration, domain.ComplexityHigh, "")
	if err != nil {
		return nil, err
	}

	prompt := buildQuestionGenerationPrompt(q.Question, contexts)
	answer, used, err := o.generator.GenerateWithFallback(ctx, pm, provider.Request{
		Prompt:            prompt,
		SystemInstruction: questionGenerationSystemInstruction,
		Temperature:       o.temperature(q, domain.IntentQuestionGeneration),
		MaxTokens:         o.cfg.DefaultMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	return &handlerResult{
		Answer:          answer,
		Contexts:        contexts,
		ProviderUsed:    used,
		EstimatedTokens: estimateTokens(prompt, answer),
	}, nil
}

func (o *Orchestrator) handleHomework(ctx context.Context, q domain.Query) (*handlerResult, error) {
	pm, err := o.selector.SelectModel(domain.TaskHomeworkSolver, domain.ComplexityHigh, "")
	if err != nil {
		return nil, err
	}

	maxTokens := q.MaxTokens
	if maxTokens < o.cfg.HomeworkMaxTokens {
		maxTokens = o.cfg.HomeworkMaxTokens
	}

	prompt := buildHomeworkPrompt(q.Question)
	answer, used, err := o.generator.GenerateWithFallback(ctx, pm, provider.Request{
		Prompt:            prompt,
		SystemInstruction: homeworkSystemInstruction,
		Temperature:       o.temperature(q, domain.IntentHomeworkSolver),
		MaxTokens:         maxTokens,
	})
	if err != nil {
		return nil, err
	}

	return &handlerResult{
		Answer:          answer,
		Contexts:        []domain.ContextChunk{},
		ProviderUsed:    used,
		EstimatedTokens: estimateTokens(prompt, answer),
	}, nil
}

func (o *Orchestrator) applyDefaults(q *domain.Query) {
	if q.TopK <= 0 {
		q.TopK = o.cfg.DefaultTopK
	}
	if q.ScoreThreshold <= 0 {
		q.ScoreThreshold = o.cfg.DefaultScoreThreshold
	}
	if q.MaxTokens <= 0 {
		q.MaxTokens = o.cfg.DefaultMaxTokens
	}
}

// temperature uses the caller's value when set, otherwise the intent's bias.
func (o *Orchestrator) temperature(q domain.Query, intent domain.Intent) float32 {
	if q.Temperature > 0 {
		return q.Temperature
	}
	return intent.Info().TemperatureBias
}

func cannedResult(answer string) *handlerResult {
	return &handlerResult{
		Answer:          answer,
		Contexts:        []domain.ContextChunk{},
		ProviderUsed:    string(domain.ProviderNone),
		EstimatedTokens: 0,
	}
}

// estimateTokens is a cheap word-count proxy, not a real tokenizer. Good
// enough for rough usage metadata, never for billing.
func estimateTokens(input, output string) int {
	return len(strings.Fields(input)) + len(strings.Fields(output))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
