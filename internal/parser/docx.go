package parser

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// paragraphsPerPage approximates page boundaries for DOCX, which has no
// explicit pagination in its XML.
const paragraphsPerPage = 30

// DOCXPlugin extracts paragraphs and tables from word/document.xml.
// Paragraphs are batched into pseudo-pages; tables become separate
// records tagged content_type=table.
type DOCXPlugin struct{}

func NewDOCXPlugin() *DOCXPlugin { return &DOCXPlugin{} }

func (p *DOCXPlugin) Name() string { return "docx_parser" }

func (p *DOCXPlugin) SupportedIdentifiers() []string { return []string{".docx"} }

func (p *DOCXPlugin) Process(ctx context.Context, sourcePath string) ([]Record, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: err}
	}

	zr, err := zip.OpenReader(sourcePath)
	if err != nil {
		return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: err}
	}
	defer zr.Close()

	var docXML io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docXML, err = f.Open()
			if err != nil {
				return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: err}
			}
			break
		}
	}
	if docXML == nil {
		return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: io.ErrUnexpectedEOF}
	}
	defer docXML.Close()

	paragraphs, tables, err := walkDocumentXML(docXML)
	if err != nil {
		return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: err}
	}

	base := filepath.Base(sourcePath)
	var records []Record

	var pageText []string
	pageNum := 1
	flush := func() {
		if len(pageText) == 0 {
			return
		}
		records = append(records, Record{
			TextContent: strings.Join(pageText, "\n"),
			Metadata: map[string]interface{}{
				"page_number": pageNum,
				"source_file": base,
				"parser":      p.Name(),
			},
		})
		pageText = nil
		pageNum++
	}

	for _, para := range paragraphs {
		if para == "" {
			continue
		}
		pageText = append(pageText, para)
		if len(pageText) >= paragraphsPerPage {
			flush()
		}
	}
	flush()

	for _, table := range tables {
		if table == "" {
			continue
		}
		records = append(records, Record{
			TextContent: table,
			Metadata: map[string]interface{}{
				"content_type": "table",
				"source_file":  base,
				"parser":       p.Name(),
			},
		})
	}

	return records, nil
}

// walkDocumentXML streams the WordprocessingML token stream, collecting
// body paragraphs and table rows. Paragraphs inside tables are attributed
// to the table only.
func walkDocumentXML(r io.Reader) (paragraphs []string, tables []string, err error) {
	dec := xml.NewDecoder(r)

	var (
		tableDepth int
		para       strings.Builder
		inPara     bool
		cell       strings.Builder
		rowCells   []string
		tableRows  []string
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "p":
				if tableDepth == 0 {
					inPara = true
					para.Reset()
				}
			case "tc":
				if tableDepth > 0 {
					cell.Reset()
				}
			case "tr":
				if tableDepth > 0 {
					rowCells = nil
				}
			case "t":
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return nil, nil, err
				}
				if tableDepth > 0 {
					cell.WriteString(text)
				} else if inPara {
					para.WriteString(text)
				}
			case "tab":
				if inPara && tableDepth == 0 {
					para.WriteString("\t")
				}
			case "br":
				if inPara && tableDepth == 0 {
					para.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth--
				if tableDepth == 0 && len(tableRows) > 0 {
					tables = append(tables, strings.Join(tableRows, "\n"))
					tableRows = nil
				}
			case "p":
				if tableDepth == 0 && inPara {
					inPara = false
					if text := strings.TrimSpace(para.String()); text != "" {
						paragraphs = append(paragraphs, text)
					}
				}
			case "tc":
				if tableDepth > 0 {
					rowCells = append(rowCells, strings.TrimSpace(cell.String()))
				}
			case "tr":
				if tableDepth > 0 && len(rowCells) > 0 {
					tableRows = append(tableRows, strings.Join(rowCells, " | "))
				}
			}
		}
	}

	return paragraphs, tables, nil
}
