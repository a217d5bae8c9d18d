package service

import (
	"strings"

	"github.com/studykit/engine/internal/domain"
)

// Keyword lists are substring-matched against the lower-cased question. The
// product serves Vietnamese students, so the lists mix Vietnamese and English
// phrasing.
var (
	summarizationKeywords = []string{
		"tóm tắt", "summarize", "tổng hợp", "tổng kết",
		"summary", "overview", "nội dung chính",
		"điểm chính", "key points",
	}

	questionGenerationKeywords = []string{
		"tạo câu hỏi", "đưa ra câu hỏi", "gợi ý câu hỏi",
		"câu hỏi khác", "câu hỏi thêm", "câu hỏi tương tự",
		"generate questions", "suggest questions",
		"questions about", "quiz", "practice questions",
	}

	documentReferenceKeywords = []string{
		"theo tài liệu", "trong file", "trong tài liệu",
		"dựa vào", "dựa theo", "file nói gì",
		"tài liệu có", "trong bài", "theo bài",
	}

	homeworkKeywords = []string{
		"giải bài", "giải bài tập", "homework",
		"bài tập", "exercise", "problem",
		"làm giúp", "hướng dẫn giải",
	}

	codeKeywords = []string{
		"code", "viết code", "lập trình", "program",
		"implement", "function", "class", "debug",
	}

	factualPatterns = []string{
		"là gì", "what is", "define",
		"nghĩa là", "meaning",
		"khác nhau", "difference", "so sánh", "compare",
		"là", "means", "refers to",
	}

	complexityKeywords = []string{
		"phân tích", "analyze", "analysis",
		"so sánh", "compare", "comparison",
		"tổng hợp", "synthesize", "synthesis",
		"đánh giá", "evaluate", "evaluation",
		"giải thích chi tiết", "explain in detail",
		"tại sao", "why", "how does",
		"mối quan hệ", "relationship between",
	}
)

// classifyRule is one entry of the ordered rule table. The first rule whose
// predicate matches decides the intent.
type classifyRule struct {
	match  func(question string, hasDocuments bool, documentCount int) bool
	intent func(hasDocuments bool) domain.Intent
}

// Classifier maps a raw question plus context availability to an intent.
// It is a pure function of its inputs and never fails; unmatched input
// resolves to direct chat.
type Classifier struct {
	rules []classifyRule
}

func NewClassifier() *Classifier {
	fixed := func(intent domain.Intent) func(bool) domain.Intent {
		return func(bool) domain.Intent { return intent }
	}

	return &Classifier{rules: []classifyRule{
		{
			match: func(q string, hasDocs bool, _ int) bool {
				return hasDocs && containsAny(q, summarizationKeywords)
			},
			intent: fixed(domain.IntentSummarization),
		},
		{
			// Without documents there is nothing to generate questions from,
			// so the request degrades to plain chat.
			match: func(q string, _ bool, _ int) bool {
				return containsAny(q, questionGenerationKeywords)
			},
			intent: func(hasDocs bool) domain.Intent {
				if hasDocs {
					return domain.IntentQuestionGeneration
				}
				return domain.IntentDirectChat
			},
		},
		{
			// Explicit document reference forces rag_query even without
			// documents; the handler covers the empty-context case.
			match: func(q string, _ bool, _ int) bool {
				return containsAny(q, documentReferenceKeywords)
			},
			intent: fixed(domain.IntentRAGQuery),
		},
		{
			match: func(q string, _ bool, _ int) bool {
				return containsAny(q, homeworkKeywords)
			},
			intent: fixed(domain.IntentHomeworkSolver),
		},
		{
			match: func(q string, _ bool, _ int) bool {
				return containsAny(q, codeKeywords)
			},
			intent: fixed(domain.IntentCodeHelp),
		},
		{
			match: func(q string, hasDocs bool, _ int) bool {
				return hasDocs && containsAny(q, factualPatterns)
			},
			intent: fixed(domain.IntentRAGQuery),
		},
		{
			// Documents present without explicit cues: still try retrieval.
			match: func(_ string, hasDocs bool, documentCount int) bool {
				return hasDocs && documentCount > 0
			},
			intent: fixed(domain.IntentRAGQuery),
		},
	}}
}

// Classify returns the intent for a question given document availability.
func (c *Classifier) Classify(question string, hasDocuments bool, documentCount int) domain.Intent {
	q := strings.ToLower(question)

	for _, rule := range c.rules {
		if rule.match(q, hasDocuments, documentCount) {
			return rule.intent(hasDocuments)
		}
	}

	return domain.IntentDirectChat
}

// IsComplex flags questions that warrant the high-capability model tier. It
// biases model selection only and never changes the intent.
func (c *Classifier) IsComplex(question string) bool {
	if len(question) > 100 {
		return true
	}
	if containsAny(strings.ToLower(question), complexityKeywords) {
		return true
	}
	return strings.Count(question, "?") > 1
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
