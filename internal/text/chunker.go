package text

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Chapter markers embedded by the e-book parsers and consumed here.
const (
	ChapterStartFormat = "[CHAPTER_START:%d]"
	ChapterEndFormat   = "[CHAPTER_END:%d]"
)

var chapterRe = regexp.MustCompile(`(?s)\[CHAPTER_START:(\d+)\]\n?(.*?)\[CHAPTER_END:(\d+)\]`)

// Chunk is a segment of extracted text ready for embedding.
type Chunk struct {
	Content        string
	SequenceNumber int
	PageNumber     *int
	Metadata       map[string]interface{}
}

// Page is extracted text already split by source pagination.
type Page struct {
	Text   string
	Number *int
}

// Chunker splits extracted text into overlapping segments. ChunkSize is
// a soft cap; only hard-sliced oversized atomic parts may hit it exactly.
type Chunker struct {
	ChunkSize    int
	ChunkOverlap int
}

func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	return &Chunker{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// ChunkText chunks a single string, splitting chapter-marked e-book text
// by chapter first and plain text directly.
func (c *Chunker) ChunkText(input string) []Chunk {
	if chapterRe.MatchString(input) {
		return c.chunkChapters(input)
	}

	var chunks []Chunk
	for i, content := range c.SplitText(input) {
		chunks = append(chunks, Chunk{
			Content:        content,
			SequenceNumber: i,
			Metadata:       map[string]interface{}{},
		})
	}
	return chunks
}

// ChunkPages chunks each page independently. Page numbers carry through
// and sequence numbers stay global and increasing across pages.
func (c *Chunker) ChunkPages(pages []Page) []Chunk {
	var chunks []Chunk
	seq := 0
	for _, page := range pages {
		for _, content := range c.SplitText(page.Text) {
			chunks = append(chunks, Chunk{
				Content:        content,
				SequenceNumber: seq,
				PageNumber:     page.Number,
				Metadata:       map[string]interface{}{},
			})
			seq++
		}
	}
	return chunks
}

// chunkChapters splits chapter-marked text and chunks each chapter body
// independently. The first chunk of a chapter is prefixed with its title
// annotation, later chunks with a continued annotation; chapter number
// and title land in chunk metadata.
func (c *Chunker) chunkChapters(input string) []Chunk {
	var chunks []Chunk
	seq := 0

	// Front matter before the first marker (book metadata, table of
	// contents) is chunked without chapter annotations.
	if loc := chapterRe.FindStringIndex(input); loc != nil && loc[0] > 0 {
		for _, content := range c.SplitText(strings.TrimSpace(input[:loc[0]])) {
			chunks = append(chunks, Chunk{
				Content:        content,
				SequenceNumber: seq,
				Metadata:       map[string]interface{}{},
			})
			seq++
		}
	}

	for _, m := range chapterRe.FindAllStringSubmatch(input, -1) {
		num, _ := strconv.Atoi(m[1])
		body := m[2]

		title := fmt.Sprintf("Chapter %d", num)
		if line, rest, found := strings.Cut(strings.TrimLeft(body, "\n"), "\n"); found && strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			body = rest
		}

		for i, content := range c.SplitText(strings.TrimSpace(body)) {
			annotation := fmt.Sprintf("Chapter %d: %s", num, title)
			if i > 0 {
				annotation += " (continued)"
			}
			chunks = append(chunks, Chunk{
				Content:        annotation + "\n\n" + content,
				SequenceNumber: seq,
				Metadata: map[string]interface{}{
					"chapter_number": num,
					"chapter_title":  title,
				},
			})
			seq++
		}
	}
	return chunks
}

// SplitText splits text into chunk-sized strings with overlap.
//
// Separators run from coarse (paragraph) to fine (character), but the
// loop deliberately stops after the first pass over any non-empty
// separator; the finer separators only apply to oversized atomic parts,
// which are hard-sliced with stride ChunkSize-ChunkOverlap.
func (c *Chunker) SplitText(input string) []string {
	if input == "" {
		return nil
	}

	separators := []string{"\n\n", "\n", ". ", " ", ""}

	var chunks []string
	current := ""

	for _, sep := range separators {
		var parts []string
		if sep != "" {
			parts = strings.Split(input, sep)
		} else {
			parts = strings.Split(input, "")
		}

		for _, part := range parts {
			if len(current)+len(part)+len(sep) <= c.ChunkSize {
				if current != "" {
					current += sep + part
				} else {
					current = part
				}
				continue
			}

			if current != "" {
				chunks = append(chunks, current)
			}

			if len(part) > c.ChunkSize {
				sub := c.hardSlice(part)
				chunks = append(chunks, sub[:len(sub)-1]...)
				current = sub[len(sub)-1]
			} else if len(chunks) > 0 && c.ChunkOverlap > 0 {
				prev := chunks[len(chunks)-1]
				overlap := prev
				if len(prev) > c.ChunkOverlap {
					overlap = prev[len(prev)-c.ChunkOverlap:]
				}
				current = overlap + sep + part
			} else {
				current = part
			}
		}

		if sep != "" {
			break
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// hardSlice cuts an atomic oversized part into fixed windows. Always
// returns at least one window.
func (c *Chunker) hardSlice(part string) []string {
	stride := c.ChunkSize - c.ChunkOverlap
	if stride <= 0 {
		stride = c.ChunkSize
	}

	var windows []string
	for i := 0; i < len(part); i += stride {
		end := i + c.ChunkSize
		if end > len(part) {
			end = len(part)
		}
		windows = append(windows, part[i:end])
	}
	return windows
}

// Truncate cuts s to at most max bytes, backing up so a multi-byte
// UTF-8 sequence is never split at the boundary.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
