package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lectern/internal/middleware"
	"lectern/internal/text"
)

// Confidence constants for scoped answers. These are coarse labels for
// how the context was obtained, not calibrated probabilities.
const (
	ConfidenceRetrieved = 0.8
	ConfidenceFallback  = 0.5
	ConfidenceNone      = 0.0
)

// summaryMaxLen bounds the text sent to the LLM for summarization.
const summaryMaxLen = 10000

const truncationMarker = "\n\n[Document truncated for summary]"

const noContextAnswer = "I cannot answer this question: the document has no indexed or extractable content."

// DocumentContext is everything the answer and summary flows need to
// know about a document.
type DocumentContext struct {
	ID            string
	Filename      string
	RawText       string
	DocumentType  string
	SourcePath    string
	PluginName    string
	CourseContext string
	DegreeContext string
}

// DocumentProvider resolves document context, returning ErrNotFound for
// unknown ids.
type DocumentProvider interface {
	DocumentContext(ctx context.Context, documentID string) (*DocumentContext, error)
}

// TextExtractor re-extracts text from the original file, the summary
// flow's last resort.
type TextExtractor interface {
	ExtractText(ctx context.Context, path, pluginName string) (string, error)
}

// excerptMaxLen bounds the excerpt carried on each source record.
const excerptMaxLen = 200

// Source is one citation attached to an answer: the chunk's document,
// page, similarity score, and a short excerpt of its content.
type Source struct {
	DocumentID string  `json:"document_id"`
	PageNumber *int    `json:"page_number,omitempty"`
	Similarity float64 `json:"similarity"`
	Excerpt    string  `json:"excerpt"`
}

type QueryResult struct {
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	Documents []Source `json:"documents"`
	LatencyMs int64    `json:"latency_ms"`
}

type AnswerResult struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
}

type SummaryResult struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

type Service struct {
	embedder  Embedder
	searcher  Searcher
	llm       LLM
	documents DocumentProvider
	templates TemplateStore
	extractor TextExtractor
	logger    *QueryLogger
	topK      int
}

func NewService(e Embedder, s Searcher, llm LLM, docs DocumentProvider, templates TemplateStore, extractor TextExtractor, logger *QueryLogger, topK int) *Service {
	if topK <= 0 {
		topK = 5
	}
	return &Service{
		embedder:  e,
		searcher:  s,
		llm:       llm,
		documents: docs,
		templates: templates,
		extractor: extractor,
		logger:    logger,
		topK:      topK,
	}
}

// Query answers a question over the whole corpus, optionally narrowed
// to one document.
func (s *Service) Query(ctx context.Context, question string, topK int, documentID string) (*QueryResult, error) {
	start := time.Now()

	if topK <= 0 {
		topK = s.topK
	}

	results, err := s.search(ctx, question, documentID, topK)
	if err != nil {
		return nil, err
	}

	prompt := renderPrompt(s.resolveTemplate(ctx, PromptGeneralQA), map[string]string{
		"context":  assembleContext(results),
		"question": question,
	})

	answer, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, &LLMError{Err: err}
	}

	s.logQuery(ctx, question, documentID, len(results), time.Since(start))

	sources := buildSources(results)
	return &QueryResult{
		Answer:    answer,
		Sources:   sources,
		Documents: distinctByDocument(sources),
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// AnswerQuestion answers a question scoped to one document. Retrieval
// hits give full confidence; falling back to the cached raw text gives
// degraded confidence; with no context at all the LLM is not called.
func (s *Service) AnswerQuestion(ctx context.Context, documentID, question string) (*AnswerResult, error) {
	start := time.Now()

	doc, err := s.documents.DocumentContext(ctx, documentID)
	if err != nil {
		return nil, err
	}

	results, err := s.search(ctx, question, documentID, s.topK)
	if err != nil {
		return nil, err
	}

	var contextText string
	confidence := ConfidenceNone

	switch {
	case len(results) > 0:
		contextText = assembleContext(results)
		confidence = ConfidenceRetrieved
	case strings.TrimSpace(doc.RawText) != "":
		contextText = doc.RawText
		confidence = ConfidenceFallback
	default:
		return &AnswerResult{
			Answer:     noContextAnswer,
			Sources:    []Source{},
			Confidence: ConfidenceNone,
		}, nil
	}

	prompt := renderPrompt(s.resolveTemplate(ctx, qaPromptName(doc.DocumentType)), map[string]string{
		"context":  enrich(doc, contextText),
		"question": question,
	})

	answer, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, &LLMError{Err: err}
	}

	s.logQuery(ctx, question, documentID, len(results), time.Since(start))

	return &AnswerResult{
		Answer:     answer,
		Sources:    buildSources(results),
		Confidence: confidence,
	}, nil
}

// Summarize produces a summary and key points for one document. Text is
// resolved from the cached raw text, then the index, then the original
// file.
func (s *Service) Summarize(ctx context.Context, documentID string) (*SummaryResult, error) {
	doc, err := s.documents.DocumentContext(ctx, documentID)
	if err != nil {
		return nil, err
	}

	fullText, err := s.resolveFullText(ctx, doc)
	if err != nil {
		return nil, err
	}

	if len(fullText) > summaryMaxLen {
		fullText = text.Truncate(fullText, summaryMaxLen) + truncationMarker
	}

	prompt := renderPrompt(s.resolveTemplate(ctx, summaryPromptName(doc.DocumentType)), map[string]string{
		"document_text": enrich(doc, fullText),
	})

	response, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, &LLMError{Err: err}
	}

	summary, keyPoints := parseSummaryResponse(response)
	return &SummaryResult{Summary: summary, KeyPoints: keyPoints}, nil
}

func (s *Service) search(ctx context.Context, question, documentID string, limit int) ([]SearchResult, error) {
	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.searcher.SearchByVector(ctx, vector, documentID, limit)
}

func (s *Service) resolveFullText(ctx context.Context, doc *DocumentContext) (string, error) {
	if strings.TrimSpace(doc.RawText) != "" {
		return doc.RawText, nil
	}

	contents, err := s.searcher.ChunkContents(ctx, doc.ID)
	if err != nil {
		return "", err
	}
	if joined := strings.TrimSpace(strings.Join(contents, "\n\n")); joined != "" {
		return joined, nil
	}

	if s.extractor != nil && doc.SourcePath != "" {
		extracted, err := s.extractor.ExtractText(ctx, doc.SourcePath, doc.PluginName)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(extracted) != "" {
			return extracted, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNoContent, doc.ID)
}

func (s *Service) logQuery(ctx context.Context, question, documentID string, numResults int, elapsed time.Duration) {
	if s.logger == nil {
		return
	}
	s.logger.Log(QueryLogEntry{
		Query:         question,
		DocumentID:    documentID,
		NumResults:    numResults,
		Duration:      elapsed,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
}

// buildSources converts retrieval hits into citation records, keeping
// per-chunk granularity and retrieval order.
func buildSources(results []SearchResult) []Source {
	sources := make([]Source, 0, len(results))
	for _, result := range results {
		id, _ := result.Metadata["document_id"].(string)
		sources = append(sources, Source{
			DocumentID: id,
			PageNumber: metaPage(result.Metadata),
			Similarity: result.Similarity,
			Excerpt:    text.Truncate(result.Content, excerptMaxLen),
		})
	}
	return sources
}

// distinctByDocument keeps the first source per document, preserving
// retrieval order, so callers can report which documents were referenced.
func distinctByDocument(sources []Source) []Source {
	seen := make(map[string]bool, len(sources))
	distinct := make([]Source, 0, len(sources))
	for _, source := range sources {
		if seen[source.DocumentID] {
			continue
		}
		seen[source.DocumentID] = true
		distinct = append(distinct, source)
	}
	return distinct
}

func metaPage(metadata map[string]interface{}) *int {
	switch v := metadata["page_number"].(type) {
	case int:
		return &v
	case float64:
		page := int(v)
		return &page
	}
	return nil
}

// assembleContext numbers each retrieved chunk so the model can refer
// back to sources.
func assembleContext(results []SearchResult) string {
	if len(results) == 0 {
		return "(no relevant context found)"
	}

	var b strings.Builder
	for i, result := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source %d]\n%s", i+1, result.Content)
	}
	return b.String()
}

// enrich prepends course and degree prompt context when the document is
// linked to them.
func enrich(doc *DocumentContext, contextText string) string {
	var prefix strings.Builder
	if doc.DegreeContext != "" {
		fmt.Fprintf(&prefix, "Degree context: %s\n", doc.DegreeContext)
	}
	if doc.CourseContext != "" {
		fmt.Fprintf(&prefix, "Course context: %s\n", doc.CourseContext)
	}
	if prefix.Len() == 0 {
		return contextText
	}
	return prefix.String() + "\n" + contextText
}
