package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPlugin struct {
	name    string
	idents  []string
	records []Record
	err     error
}

func (s *stubPlugin) Name() string                   { return s.name }
func (s *stubPlugin) SupportedIdentifiers() []string { return s.idents }
func (s *stubPlugin) Process(ctx context.Context, sourcePath string) ([]Record, error) {
	return s.records, s.err
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubPlugin{name: "pdf_parser", idents: []string{".pdf"}}))

	err := r.Register(&stubPlugin{name: "pdf_parser", idents: []string{".pdf"}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_ByName(t *testing.T) {
	r := NewRegistry()
	p := &stubPlugin{name: "docx_parser", idents: []string{".docx"}}
	require.NoError(t, r.Register(p))

	got, err := r.ByName("docx_parser")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = r.ByName("missing")
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestRegistry_ByIdentifier_FirstRegisteredWins(t *testing.T) {
	r := NewRegistry()
	first := &stubPlugin{name: "first", idents: []string{".txt"}}
	second := &stubPlugin{name: "second", idents: []string{".txt"}}
	require.NoError(t, r.Register(first))
	require.NoError(t, r.Register(second))

	got, err := r.ByIdentifier(".txt")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name())
}

func TestRegistry_ByIdentifier_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubPlugin{name: "pdf_parser", idents: []string{".pdf"}}))

	got, err := r.ByIdentifier(".PDF")
	require.NoError(t, err)
	assert.Equal(t, "pdf_parser", got.Name())

	_, err = r.ByIdentifier(".xyz")
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestRegistry_ForFile(t *testing.T) {
	r := NewRegistry()
	pdf := &stubPlugin{name: "pdf_parser", idents: []string{".pdf"}}
	epub := &stubPlugin{name: "epub_parser", idents: []string{".epub"}}
	require.NoError(t, r.Register(pdf))
	require.NoError(t, r.Register(epub))

	byExt, err := r.ForFile("/tmp/lecture.PDF", "")
	require.NoError(t, err)
	assert.Equal(t, "pdf_parser", byExt.Name())

	byName, err := r.ForFile("/tmp/lecture.pdf", "epub_parser")
	require.NoError(t, err)
	assert.Equal(t, "epub_parser", byName.Name())
}

func TestRegistry_SupportedFormats(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubPlugin{name: "a", idents: []string{".pdf", ".png"}}))
	require.NoError(t, r.Register(&stubPlugin{name: "b", idents: []string{".png", ".docx"}}))

	assert.Equal(t, []string{".docx", ".pdf", ".png"}, r.SupportedFormats())
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubPlugin{name: "pdf_parser", idents: []string{".pdf"}}))
	require.NoError(t, r.Register(&stubPlugin{name: "docx_parser", idents: []string{".docx"}}))

	infos := r.List()
	require.Len(t, infos, 2)
	assert.Equal(t, "pdf_parser", infos[0].Name)
	assert.Equal(t, "docx_parser", infos[1].Name)
}

func TestProcess_WrapsError(t *testing.T) {
	cause := errors.New("boom")
	p := &stubPlugin{name: "pdf_parser", err: cause}

	_, err := Process(context.Background(), p, "/tmp/f.pdf")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "pdf_parser", perr.Plugin)
	assert.ErrorIs(t, err, cause)
}

func TestProcess_KeepsExistingParseError(t *testing.T) {
	orig := &ParseError{Plugin: "pdf_parser", Path: "/tmp/f.pdf", Err: errors.New("inner")}
	p := &stubPlugin{name: "other", err: orig}

	_, err := Process(context.Background(), p, "/tmp/f.pdf")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "pdf_parser", perr.Plugin)
}
