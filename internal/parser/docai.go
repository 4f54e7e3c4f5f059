package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/dgallion1/recgest/internal/logger"
)

// DocAIOptions identifies the Document AI processor used for layout
// extraction.
type DocAIOptions struct {
	Project          string
	Location         string
	ProcessorID      string
	ProcessorVersion string
	Timeout          time.Duration
	Log              *logger.Logger
}

type processFunc func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error)

// DocAIConverter sends documents to a Google Document AI processor and
// renders the returned layout as markdown.
type DocAIConverter struct {
	client  *documentai.DocumentProcessorClient
	process processFunc
	name    string
	timeout time.Duration
	log     *logger.Logger
}

func NewDocAIConverter(ctx context.Context, opts DocAIOptions) (*DocAIConverter, error) {
	name := processorName(opts.Project, opts.Location, opts.ProcessorID, opts.ProcessorVersion)
	if name == "" {
		return nil, errors.New("documentai: project, location and processor id are required")
	}
	location := strings.TrimSpace(opts.Location)
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)

	clientOpts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptionsFromEnv()...)
	c, err := documentai.NewDocumentProcessorClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}

	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("component", "documentai")
	log.Info("document ai initialized", "endpoint", endpoint, "processor", name)

	process := func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error) {
		return c.ProcessDocument(ctx, req)
	}
	d := newDocAIConverter(name, process, opts.Timeout, log)
	d.client = c
	return d, nil
}

func newDocAIConverter(name string, process processFunc, timeout time.Duration, log *logger.Logger) *DocAIConverter {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &DocAIConverter{process: process, name: name, timeout: timeout, log: log}
}

func (d *DocAIConverter) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *DocAIConverter) ToMarkdown(ctx context.Context, data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	resp, err := d.process(ctx, &documentaipb.ProcessRequest{
		Name: d.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mimeTypeFor(filename),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("documentai process: %w", err)
	}
	if resp == nil || resp.Document == nil {
		return "", nil
	}
	md := documentToMarkdown(resp.Document)
	d.log.Debug("document converted", "filename", filename, "chars", len(md), "duration_ms", time.Since(start).Milliseconds())
	return md, nil
}

func mimeTypeFor(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"):
		return "text/html"
	default:
		return "application/pdf"
	}
}

// documentToMarkdown prefers the layout parser's block tree, then page
// paragraphs and tables, then the raw text.
func documentToMarkdown(doc *documentaipb.Document) string {
	if doc == nil {
		return ""
	}
	if dl := doc.GetDocumentLayout(); dl != nil && len(dl.GetBlocks()) > 0 {
		var blocks []string
		for _, b := range dl.GetBlocks() {
			blocks = append(blocks, layoutBlocks(b)...)
		}
		if md := joinBlocks(blocks); md != "" {
			return md
		}
	}

	var blocks []string
	for i, p := range doc.GetPages() {
		if p == nil {
			continue
		}
		pageNum := int(p.GetPageNumber())
		if pageNum == 0 {
			pageNum = i + 1
		}
		var body []string
		for _, para := range p.GetParagraphs() {
			if para == nil || para.GetLayout() == nil {
				continue
			}
			if t := strings.TrimSpace(textFromAnchor(doc.GetText(), para.GetLayout().GetTextAnchor())); t != "" {
				body = append(body, t)
			}
		}
		for _, table := range p.GetTables() {
			if md := strings.TrimSpace(tableToMarkdown(doc.GetText(), table)); md != "" {
				body = append(body, md)
			}
		}
		if len(body) == 0 {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("## Page %d\n\n%s", pageNum, joinBlocks(body)))
	}
	if md := joinBlocks(blocks); md != "" {
		return md
	}
	return strings.TrimSpace(doc.GetText())
}

func layoutBlocks(b *documentaipb.Document_DocumentLayout_DocumentLayoutBlock) []string {
	if b == nil {
		return nil
	}
	if tb := b.GetTextBlock(); tb != nil {
		var out []string
		text := strings.TrimSpace(tb.GetText())
		if text != "" {
			if lvl := headingLevelForType(tb.GetType()); lvl > 0 {
				out = append(out, heading(lvl, text))
			} else {
				out = append(out, text)
			}
		}
		for _, child := range tb.GetBlocks() {
			out = append(out, layoutBlocks(child)...)
		}
		return out
	}
	if lb := b.GetListBlock(); lb != nil {
		var items []string
		for _, entry := range lb.GetListEntries() {
			var parts []string
			for _, child := range entry.GetBlocks() {
				parts = append(parts, layoutBlocks(child)...)
			}
			if t := strings.Join(strings.Fields(strings.Join(parts, " ")), " "); t != "" {
				items = append(items, "- "+t)
			}
		}
		return []string{strings.Join(items, "\n")}
	}
	if tb := b.GetTableBlock(); tb != nil {
		var rows [][]string
		for _, r := range tb.GetHeaderRows() {
			rows = append(rows, layoutRowCells(r))
		}
		for _, r := range tb.GetBodyRows() {
			rows = append(rows, layoutRowCells(r))
		}
		return []string{rowsToMarkdown(rows)}
	}
	return nil
}

func layoutRowCells(r *documentaipb.Document_DocumentLayout_DocumentLayoutBlock_LayoutTableRow) []string {
	var cells []string
	for _, c := range r.GetCells() {
		var parts []string
		for _, child := range c.GetBlocks() {
			parts = append(parts, layoutBlocks(child)...)
		}
		cells = append(cells, strings.Join(strings.Fields(strings.Join(parts, " ")), " "))
	}
	return cells
}

// headingLevelForType maps layout block types such as "heading-2" and
// "title" to markdown heading depth.
func headingLevelForType(t string) int {
	t = strings.ToLower(strings.TrimSpace(t))
	switch {
	case t == "title":
		return 1
	case strings.HasPrefix(t, "heading-"):
		var n int
		if _, err := fmt.Sscanf(t, "heading-%d", &n); err == nil && n > 0 {
			return n
		}
		return 2
	}
	return 0
}

func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || len(anchor.TextSegments) == 0 || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.TextSegments {
		if seg == nil {
			continue
		}
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(full) {
			end = len(full)
		}
		if start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}

func tableToMarkdown(full string, t *documentaipb.Document_Page_Table) string {
	if t == nil {
		return ""
	}
	var rows [][]string
	for _, r := range t.HeaderRows {
		rows = append(rows, tableRowToCells(full, r))
	}
	for _, r := range t.BodyRows {
		rows = append(rows, tableRowToCells(full, r))
	}
	return rowsToMarkdown(rows)
}

func tableRowToCells(full string, r *documentaipb.Document_Page_Table_TableRow) []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Cells))
	for _, c := range r.Cells {
		if c == nil || c.Layout == nil {
			out = append(out, "")
			continue
		}
		out = append(out, strings.Join(strings.Fields(textFromAnchor(full, c.Layout.TextAnchor)), " "))
	}
	return out
}

// rowsToMarkdown renders a pipe table, treating the first non-empty row as
// the header.
func rowsToMarkdown(rows [][]string) string {
	var kept [][]string
	maxCols := 0
	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		kept = append(kept, r)
		if len(r) > maxCols {
			maxCols = len(r)
		}
	}
	if len(kept) == 0 || maxCols == 0 {
		return ""
	}

	var out strings.Builder
	writeRow := func(r []string) {
		cells := make([]string, maxCols)
		for i := range cells {
			if i < len(r) {
				cells[i] = strings.ReplaceAll(r[i], "|", "\\|")
			}
		}
		out.WriteString("| ")
		out.WriteString(strings.Join(cells, " | "))
		out.WriteString(" |\n")
	}
	writeRow(kept[0])
	sep := make([]string, maxCols)
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, r := range kept[1:] {
		writeRow(r)
	}
	return strings.TrimRight(out.String(), "\n")
}

func processorName(project, location, processorID, version string) string {
	project = strings.TrimSpace(project)
	location = strings.TrimSpace(location)
	processorID = strings.TrimSpace(processorID)
	version = strings.TrimSpace(version)

	if project == "" || location == "" || processorID == "" {
		return ""
	}
	base := fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID)
	if version != "" {
		return base + "/processorVersions/" + version
	}
	return base
}

// ClientOptionsFromEnv reads Google credentials from
// GOOGLE_APPLICATION_CREDENTIALS_JSON (inline) or
// GOOGLE_APPLICATION_CREDENTIALS (file path). With neither set the client
// falls back to application default credentials.
func ClientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}
