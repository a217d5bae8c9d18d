package domain

// ProviderName identifies a generation backend.
type ProviderName string

const (
	ProviderGeminiFlash ProviderName = "gemini-flash"
	ProviderGeminiPro   ProviderName = "gemini-pro"
	ProviderGroq        ProviderName = "groq-llama"

	// ProviderNone labels degraded responses that skipped generation.
	ProviderNone ProviderName = "none"
)

// TaskType classifies the work a model is selected for.
type TaskType string

const (
	TaskDirectChat         TaskType = "direct_chat"
	TaskRAGQuery           TaskType = "rag_query"
	TaskSummarization      TaskType = "summarization"
	TaskQuestionGeneration TaskType = "question_generation"
	TaskHomeworkSolver     TaskType = "homework_solver"
	TaskCodeHelp           TaskType = "code_help"
	TaskGeneral            TaskType = "general"
)

// Complexity biases model selection toward the fast or high-capability tier.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// ProviderModel pairs a provider with the concrete model identifier the
// registry chose for a task. The registry owns the mapping table; values are
// read-only at request time.
type ProviderModel struct {
	Provider ProviderName
	Model    string
}
