package document_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lectern/features/document"
	"lectern/internal/parser"
	"lectern/internal/rag"
)

type stubPlugin struct{}

func (stubPlugin) Name() string                   { return "pdf_parser" }
func (stubPlugin) SupportedIdentifiers() []string { return []string{".pdf"} }
func (stubPlugin) Process(ctx context.Context, sourcePath string) ([]parser.Record, error) {
	return nil, nil
}

func testRegistry(t *testing.T) *parser.Registry {
	t.Helper()
	reg := parser.NewRegistry()
	require.NoError(t, reg.Register(stubPlugin{}))
	return reg
}

func multipartBody(t *testing.T, filename string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("file payload"))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHandler_Upload_Success(t *testing.T) {
	repo := &mockRepo{}
	pub := &mockPublisher{}
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	pub.On("Publish", "ingest.task", mock.Anything).Return(nil)

	uploadDir := t.TempDir()
	svc := document.NewService(repo, pub, &mockChunkStore{})
	h := document.NewHandler(svc, nil, testRegistry(t), uploadDir, 10)

	body, contentType := multipartBody(t, "lecture.pdf", map[string]string{"document_type": "legal"})
	req := httptest.NewRequest("POST", "/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data document.Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "doc-1", resp.Data.ID)
	assert.Equal(t, "lecture.pdf", resp.Data.Filename)
	assert.Equal(t, "pending", resp.Data.Status)

	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_lecture.pdf"))
}

func TestHandler_Upload_UnsupportedFormat(t *testing.T) {
	svc := document.NewService(&mockRepo{}, &mockPublisher{}, &mockChunkStore{})
	h := document.NewHandler(svc, nil, testRegistry(t), t.TempDir(), 10)

	body, contentType := multipartBody(t, "archive.xyz", nil)
	req := httptest.NewRequest("POST", "/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNSUPPORTED_FORMAT")
}

func TestHandler_Upload_UnknownPlugin(t *testing.T) {
	svc := document.NewService(&mockRepo{}, &mockPublisher{}, &mockChunkStore{})
	h := document.NewHandler(svc, nil, testRegistry(t), t.TempDir(), 10)

	body, contentType := multipartBody(t, "lecture.pdf", map[string]string{"plugin_name": "no_such_parser"})
	req := httptest.NewRequest("POST", "/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_such_parser")
}

func TestHandler_Question_Validation(t *testing.T) {
	h := document.NewHandler(nil, nil, testRegistry(t), t.TempDir(), 10)

	req := httptest.NewRequest("POST", "/documents/doc-1/question", strings.NewReader(`{"question": "  "}`))
	req.SetPathValue("id", "doc-1")
	rec := httptest.NewRecorder()

	h.Question(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestHandler_Question_DocumentNotFound(t *testing.T) {
	repo := &mockRepo{}
	repo.On("DocumentContext", mock.Anything, "ghost").Return(nil, rag.ErrNotFound)

	ragSvc := rag.NewService(nil, nil, nil, repo, nil, nil, nil, 5)
	h := document.NewHandler(nil, ragSvc, testRegistry(t), t.TempDir(), 10)

	req := httptest.NewRequest("POST", "/documents/ghost/question", strings.NewReader(`{"question": "why"}`))
	req.SetPathValue("id", "ghost")
	rec := httptest.NewRecorder()

	h.Question(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestHandler_Delete_NotFound(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Get", mock.Anything, "ghost").Return(nil, sql.ErrNoRows)

	svc := document.NewService(repo, &mockPublisher{}, &mockChunkStore{})
	h := document.NewHandler(svc, nil, testRegistry(t), t.TempDir(), 10)

	req := httptest.NewRequest("DELETE", "/documents/ghost", nil)
	req.SetPathValue("id", "ghost")
	rec := httptest.NewRecorder()

	h.Delete(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
