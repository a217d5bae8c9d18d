package domain

// Intent represents the task category inferred from a question. It governs
// which handler runs and which model tier serves the request.
type Intent string

const (
	IntentDirectChat         Intent = "direct_chat"
	IntentRAGQuery           Intent = "rag_query"
	IntentSummarization      Intent = "summarization"
	IntentQuestionGeneration Intent = "question_generation"
	IntentHomeworkSolver     Intent = "homework_solver"
	IntentCodeHelp           Intent = "code_help"
)

// IntentInfo carries static metadata for an intent.
type IntentInfo struct {
	RequiresDocuments    bool
	RequiresFullDocument bool
	TemperatureBias      float32
}

var intentInfo = map[Intent]IntentInfo{
	IntentDirectChat:         {TemperatureBias: 0.7},
	IntentRAGQuery:           {RequiresDocuments: true, TemperatureBias: 0.7},
	IntentSummarization:      {RequiresDocuments: true, RequiresFullDocument: true, TemperatureBias: 0.5},
	IntentQuestionGeneration: {RequiresDocuments: true, TemperatureBias: 0.9},
	IntentHomeworkSolver:     {TemperatureBias: 0.7},
	IntentCodeHelp:           {TemperatureBias: 0.7},
}

// Info returns the static metadata for the intent. Unknown intents get
// direct_chat semantics.
func (i Intent) Info() IntentInfo {
	if info, ok := intentInfo[i]; ok {
		return info
	}
	return intentInfo[IntentDirectChat]
}

// IsValid reports whether the intent is one of the known categories.
func (i Intent) IsValid() bool {
	_, ok := intentInfo[i]
	return ok
}
