package rag

import (
	"context"
	"log/slog"
	"strings"
)

// Prompt template names resolved through the template store.
const (
	PromptGeneralQA       = "general_qa"
	PromptLegalQA         = "legal_qa"
	PromptResearchQA      = "research_qa"
	PromptDocumentSummary = "document_summary"
	PromptLegalSummary    = "legal_document_summary"
)

// TemplateStore resolves a prompt template by name. An empty template
// and nil error means the store has no entry.
type TemplateStore interface {
	Template(ctx context.Context, name string) (string, error)
}

// fallbackTemplates keep the pipeline working when the store is empty.
var fallbackTemplates = map[string]string{
	PromptGeneralQA: `Use the following context to answer the question. If the answer is not in the context, say so.

Context:
{context}

Question: {question}

Answer:`,
	PromptLegalQA: `You are assisting with a legal document. Answer strictly from the context below, citing clauses where possible. If the context does not contain the answer, say so.

Context:
{context}

Question: {question}

Answer:`,
	PromptResearchQA: `You are assisting with an academic paper. Answer from the context below, referring to sections or findings where possible. If the context does not contain the answer, say so.

Context:
{context}

Question: {question}

Answer:`,
	PromptDocumentSummary: `Summarize the following document. Respond in exactly this format:

SUMMARY:
<a concise summary>

KEY POINTS:
- <point>
- <point>

Document:
{document_text}`,
	PromptLegalSummary: `Summarize the following legal document, highlighting parties, obligations, and deadlines. Respond in exactly this format:

SUMMARY:
<a concise summary>

KEY POINTS:
- <point>
- <point>

Document:
{document_text}`,
}

// resolveTemplate prefers the stored template, falling back to the
// built-in text on miss or store error.
func (s *Service) resolveTemplate(ctx context.Context, name string) string {
	if s.templates != nil {
		tpl, err := s.templates.Template(ctx, name)
		if err != nil {
			slog.WarnContext(ctx, "template store lookup failed", "template", name, "error", err)
		} else if tpl != "" {
			return tpl
		}
	}
	return fallbackTemplates[name]
}

func renderPrompt(template string, vars map[string]string) string {
	out := template
	for key, value := range vars {
		out = strings.ReplaceAll(out, "{"+key+"}", value)
	}
	return out
}

func qaPromptName(documentType string) string {
	switch normalizeDocType(documentType) {
	case "legal":
		return PromptLegalQA
	case "research":
		return PromptResearchQA
	default:
		return PromptGeneralQA
	}
}

func summaryPromptName(documentType string) string {
	if normalizeDocType(documentType) == "legal" {
		return PromptLegalSummary
	}
	return PromptDocumentSummary
}

func normalizeDocType(documentType string) string {
	t := strings.ToLower(documentType)
	switch {
	case strings.Contains(t, "legal"), strings.Contains(t, "contract"):
		return "legal"
	case strings.Contains(t, "research"), strings.Contains(t, "paper"), strings.Contains(t, "academic"):
		return "research"
	default:
		return "general"
	}
}

// parseSummaryResponse splits an LLM reply into summary and key points
// following the SUMMARY:/KEY POINTS: convention. A reply that ignores
// the convention becomes the whole summary with a placeholder point.
func parseSummaryResponse(raw string) (string, []string) {
	trimmed := strings.TrimSpace(raw)

	upper := strings.ToUpper(trimmed)
	sumIdx := strings.Index(upper, "SUMMARY:")
	kpIdx := strings.Index(upper, "KEY POINTS:")

	if sumIdx < 0 || kpIdx < 0 || kpIdx < sumIdx {
		return trimmed, []string{"See summary"}
	}

	summary := strings.TrimSpace(trimmed[sumIdx+len("SUMMARY:") : kpIdx])

	var keyPoints []string
	for _, line := range strings.Split(trimmed[kpIdx+len("KEY POINTS:"):], "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		if line != "" {
			keyPoints = append(keyPoints, line)
		}
	}
	if len(keyPoints) == 0 {
		keyPoints = []string{"See summary"}
	}
	return summary, keyPoints
}
