package parser

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"lectern/internal/text"
)

// minChapterLen filters out front-matter spine items (cover, title page)
// that carry no substantial text.
const minChapterLen = 100

// EPUBPlugin extracts chapters from an EPUB archive following the OPF
// spine order. It emits a single record whose text carries chapter
// markers consumed by the chunking engine, plus a metadata/TOC header.
type EPUBPlugin struct{}

func NewEPUBPlugin() *EPUBPlugin { return &EPUBPlugin{} }

func (p *EPUBPlugin) Name() string { return "epub_parser" }

func (p *EPUBPlugin) SupportedIdentifiers() []string { return []string{".epub"} }

type epubChapter struct {
	Title   string
	Content string
}

func (p *EPUBPlugin) Process(ctx context.Context, sourcePath string) ([]Record, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: err}
	}

	zr, err := zip.OpenReader(sourcePath)
	if err != nil {
		return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: err}
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	opfPath, err := containerRootfile(files)
	if err != nil {
		return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: err}
	}

	meta, spine, err := parseOPF(files, opfPath)
	if err != nil {
		return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: err}
	}

	var chapters []epubChapter
	for _, href := range spine {
		f, ok := files[href]
		if !ok {
			continue
		}
		title, content, err := extractXHTML(f)
		if err != nil {
			continue // skip unreadable spine items, keep the rest
		}
		if len(strings.TrimSpace(content)) < minChapterLen {
			continue
		}
		if title == "" {
			title = fmt.Sprintf("Chapter %d", len(chapters)+1)
		}
		chapters = append(chapters, epubChapter{Title: title, Content: content})
	}

	var out strings.Builder
	out.WriteString("=== BOOK METADATA ===\n")
	for _, kv := range meta {
		out.WriteString(kv[0] + ": " + kv[1] + "\n")
	}
	out.WriteString("\n=== TABLE OF CONTENTS ===\n")
	for i, ch := range chapters {
		fmt.Fprintf(&out, "Chapter %d: %s\n", i+1, ch.Title)
	}
	out.WriteString("\n=== CONTENT ===\n")
	for i, ch := range chapters {
		fmt.Fprintf(&out, "\n"+text.ChapterStartFormat+"\n", i+1)
		out.WriteString("# " + ch.Title + "\n")
		out.WriteString(ch.Content)
		fmt.Fprintf(&out, "\n"+text.ChapterEndFormat+"\n", i+1)
	}

	md := map[string]interface{}{
		"source_file": path.Base(sourcePath),
		"parser":      p.Name(),
		"chapters":    len(chapters),
	}
	for _, kv := range meta {
		md[strings.ToLower(kv[0])] = kv[1]
	}

	return []Record{{TextContent: out.String(), Metadata: md}}, nil
}

func containerRootfile(files map[string]*zip.File) (string, error) {
	f, ok := files["META-INF/container.xml"]
	if !ok {
		return "", fmt.Errorf("missing META-INF/container.xml")
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var container struct {
		Rootfiles []struct {
			FullPath string `xml:"full-path,attr"`
		} `xml:"rootfiles>rootfile"`
	}
	if err := xml.NewDecoder(rc).Decode(&container); err != nil {
		return "", err
	}
	if len(container.Rootfiles) == 0 {
		return "", fmt.Errorf("container.xml lists no rootfile")
	}
	return container.Rootfiles[0].FullPath, nil
}

// parseOPF returns book metadata as ordered key/value pairs and the spine
// as zip-relative hrefs of HTML content documents.
func parseOPF(files map[string]*zip.File, opfPath string) ([][2]string, []string, error) {
	f, ok := files[opfPath]
	if !ok {
		return nil, nil, fmt.Errorf("missing OPF %s", opfPath)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	var pkg struct {
		Metadata struct {
			Title    string   `xml:"title"`
			Creators []string `xml:"creator"`
			Language string   `xml:"language"`
			Pub      string   `xml:"publisher"`
		} `xml:"metadata"`
		Manifest struct {
			Items []struct {
				ID        string `xml:"id,attr"`
				Href      string `xml:"href,attr"`
				MediaType string `xml:"media-type,attr"`
			} `xml:"item"`
		} `xml:"manifest"`
		Spine struct {
			Itemrefs []struct {
				IDRef string `xml:"idref,attr"`
			} `xml:"itemref"`
		} `xml:"spine"`
	}
	if err := xml.NewDecoder(rc).Decode(&pkg); err != nil {
		return nil, nil, err
	}

	var meta [][2]string
	if pkg.Metadata.Title != "" {
		meta = append(meta, [2]string{"Title", pkg.Metadata.Title})
	}
	if len(pkg.Metadata.Creators) > 0 {
		meta = append(meta, [2]string{"Authors", strings.Join(pkg.Metadata.Creators, ", ")})
	}
	if pkg.Metadata.Pub != "" {
		meta = append(meta, [2]string{"Publisher", pkg.Metadata.Pub})
	}
	if pkg.Metadata.Language != "" {
		meta = append(meta, [2]string{"Language", pkg.Metadata.Language})
	}

	items := make(map[string]string, len(pkg.Manifest.Items))
	opfDir := path.Dir(opfPath)
	for _, item := range pkg.Manifest.Items {
		if strings.Contains(item.MediaType, "html") {
			href := item.Href
			if opfDir != "." {
				href = path.Join(opfDir, href)
			}
			items[item.ID] = href
		}
	}

	var spine []string
	for _, ref := range pkg.Spine.Itemrefs {
		if href, ok := items[ref.IDRef]; ok {
			spine = append(spine, href)
		}
	}
	return meta, spine, nil
}

// extractXHTML pulls the first heading as the chapter title and all
// visible text from an XHTML content document. The decoder runs in
// permissive mode since EPUB content is frequently not strict XML.
func extractXHTML(f *zip.File) (title, content string, err error) {
	rc, err := f.Open()
	if err != nil {
		return "", "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	var (
		out      strings.Builder
		heading  strings.Builder
		inScript bool
		hDepth   int
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch strings.ToLower(t.Name.Local) {
			case "head", "script", "style":
				inScript = true
			case "h1", "h2", "h3":
				if title == "" {
					hDepth++
					heading.Reset()
				}
			case "p", "div", "br", "li":
				out.WriteString("\n")
			}
		case xml.EndElement:
			switch strings.ToLower(t.Name.Local) {
			case "head", "script", "style":
				inScript = false
			case "h1", "h2", "h3":
				if hDepth > 0 {
					hDepth--
					if title == "" {
						title = strings.TrimSpace(heading.String())
					}
				}
			}
		case xml.CharData:
			if inScript {
				continue
			}
			s := string(t)
			if hDepth > 0 {
				heading.WriteString(s)
			}
			out.WriteString(s)
		}
	}

	return title, normalizeWhitespace(out.String()), nil
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
