package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderPrompt(t *testing.T) {
	got := renderPrompt("Q: {question}\nC: {context}", map[string]string{
		"question": "why",
		"context":  "because",
	})
	assert.Equal(t, "Q: why\nC: because", got)
}

func TestQAPromptName(t *testing.T) {
	tests := []struct {
		docType string
		want    string
	}{
		{"legal", PromptLegalQA},
		{"Legal Contract", PromptLegalQA},
		{"research paper", PromptResearchQA},
		{"academic", PromptResearchQA},
		{"", PromptGeneralQA},
		{"lecture notes", PromptGeneralQA},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, qaPromptName(tt.docType), "docType %q", tt.docType)
	}
}

func TestSummaryPromptName(t *testing.T) {
	assert.Equal(t, PromptLegalSummary, summaryPromptName("legal"))
	assert.Equal(t, PromptDocumentSummary, summaryPromptName("research"))
	assert.Equal(t, PromptDocumentSummary, summaryPromptName(""))
}

func TestParseSummaryResponse(t *testing.T) {
	summary, points := parseSummaryResponse("SUMMARY:\nThe gist.\n\nKEY POINTS:\n- first\n* second\n• third\n")
	assert.Equal(t, "The gist.", summary)
	assert.Equal(t, []string{"first", "second", "third"}, points)
}

func TestParseSummaryResponse_CaseInsensitiveHeaders(t *testing.T) {
	summary, points := parseSummaryResponse("Summary:\nshort\n\nKey Points:\n- a\n")
	assert.Equal(t, "short", summary)
	assert.Equal(t, []string{"a"}, points)
}

func TestParseSummaryResponse_Malformed(t *testing.T) {
	summary, points := parseSummaryResponse("no sections here at all")
	assert.Equal(t, "no sections here at all", summary)
	assert.Equal(t, []string{"See summary"}, points)
}

func TestParseSummaryResponse_EmptyKeyPoints(t *testing.T) {
	summary, points := parseSummaryResponse("SUMMARY:\nonly a summary\n\nKEY POINTS:\n")
	assert.Equal(t, "only a summary", summary)
	assert.Equal(t, []string{"See summary"}, points)
}

func TestFallbackTemplatesCoverAllNames(t *testing.T) {
	for _, name := range []string{PromptGeneralQA, PromptLegalQA, PromptResearchQA, PromptDocumentSummary, PromptLegalSummary} {
		assert.NotEmpty(t, fallbackTemplates[name], "missing fallback for %s", name)
	}
}
