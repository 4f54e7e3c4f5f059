package parser

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForFile_RoutesByExtension(t *testing.T) {
	layout := &DocAIConverter{}

	c, err := ForFile("Guideline.PDF", Options{})
	require.NoError(t, err)
	assert.IsType(t, &PDFConverter{}, c)

	c, err = ForFile("guideline.pdf", Options{Layout: layout})
	require.NoError(t, err)
	assert.Same(t, layout, c)

	c, err = ForFile("notes.docx", Options{Layout: layout})
	require.NoError(t, err)
	assert.IsType(t, &DOCXConverter{}, c)

	_, err = ForFile("sheet.xlsx", Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, IsSupportedExtension("sheet.xlsx"))
	assert.True(t, IsSupportedExtension("page.HTM"))
}

func TestHTMLConverter_HeadingsAndBlocks(t *testing.T) {
	src := `<html><head><title>T</title><style>p{}</style></head><body>
<nav>skip me</nav>
<h1>Hypertension</h1>
<p>Intro   text.</p>
<h2>Treatment</h2>
<ul><li>Start an ACE inhibitor.</li><li>Recheck in 4 weeks.</li></ul>
<table><tr><th>Drug</th><th>Dose</th></tr><tr><td>Lisinopril</td><td>10 mg</td></tr></table>
<script>var x = 1;</script>
</body></html>`
	md, err := (&HTMLConverter{}).ToMarkdown(context.Background(), []byte(src), "g.html")
	require.NoError(t, err)
	assert.Equal(t, "# Hypertension\n\nIntro text.\n\n## Treatment\n\n- Start an ACE inhibitor.\n\n- Recheck in 4 weeks.\n\nDrug | Dose\n\nLisinopril | 10 mg", md)
}

func TestPagesToMarkdown_NumbersByPosition(t *testing.T) {
	md := pagesToMarkdown(splitPages("first page\f  \fthird page\n"))
	assert.Equal(t, "## Page 1\n\nfirst page\n\n## Page 3\n\nthird page", md)
}

func TestDocumentToMarkdown_LayoutBlocks(t *testing.T) {
	text := func(typ, s string, children ...*documentaipb.Document_DocumentLayout_DocumentLayoutBlock) *documentaipb.Document_DocumentLayout_DocumentLayoutBlock {
		return &documentaipb.Document_DocumentLayout_DocumentLayoutBlock{
			Block: &documentaipb.Document_DocumentLayout_DocumentLayoutBlock_TextBlock{
				TextBlock: &documentaipb.Document_DocumentLayout_DocumentLayoutBlock_LayoutTextBlock{
					Text:   s,
					Type:   typ,
					Blocks: children,
				},
			},
		}
	}
	doc := &documentaipb.Document{
		DocumentLayout: &documentaipb.Document_DocumentLayout{
			Blocks: []*documentaipb.Document_DocumentLayout_DocumentLayoutBlock{
				text("title", "Sepsis Guideline"),
				text("heading-2", "Antibiotics",
					text("paragraph", "Give antibiotics within 1 hour."),
				),
			},
		},
	}
	assert.Equal(t, "# Sepsis Guideline\n\n## Antibiotics\n\nGive antibiotics within 1 hour.", documentToMarkdown(doc))
}

func TestDocumentToMarkdown_PagesAndTables(t *testing.T) {
	full := "Para one.\nDrugDose"
	anchor := func(start, end int64) *documentaipb.Document_TextAnchor {
		return &documentaipb.Document_TextAnchor{
			TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{{StartIndex: start, EndIndex: end}},
		}
	}
	cell := func(start, end int64) *documentaipb.Document_Page_Table_TableCell {
		return &documentaipb.Document_Page_Table_TableCell{Layout: &documentaipb.Document_Page_Layout{TextAnchor: anchor(start, end)}}
	}
	doc := &documentaipb.Document{
		Text: full,
		Pages: []*documentaipb.Document_Page{{
			PageNumber: 2,
			Paragraphs: []*documentaipb.Document_Page_Paragraph{
				{Layout: &documentaipb.Document_Page_Layout{TextAnchor: anchor(0, 9)}},
			},
			Tables: []*documentaipb.Document_Page_Table{{
				HeaderRows: []*documentaipb.Document_Page_Table_TableRow{{Cells: []*documentaipb.Document_Page_Table_TableCell{cell(10, 14), cell(14, 18)}}},
			}},
		}},
	}
	assert.Equal(t, "## Page 2\n\nPara one.\n\n| Drug | Dose |\n| --- | --- |", documentToMarkdown(doc))
}

func TestDocumentToMarkdown_FallsBackToText(t *testing.T) {
	assert.Equal(t, "raw text", documentToMarkdown(&documentaipb.Document{Text: "  raw text \n"}))
	assert.Equal(t, "", documentToMarkdown(nil))
}

func TestDocAIConverter_SendsRawDocument(t *testing.T) {
	var got *documentaipb.ProcessRequest
	d := newDocAIConverter("projects/p/locations/us/processors/x", func(_ context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error) {
		got = req
		return &documentaipb.ProcessResponse{Document: &documentaipb.Document{Text: "hello"}}, nil
	}, 0, nil)

	md, err := d.ToMarkdown(context.Background(), []byte("%PDF"), "g.pdf")
	require.NoError(t, err)
	assert.Equal(t, "hello", md)
	require.NotNil(t, got)
	assert.Equal(t, "projects/p/locations/us/processors/x", got.GetName())
	assert.Equal(t, "application/pdf", got.GetRawDocument().GetMimeType())
	assert.Equal(t, []byte("%PDF"), got.GetRawDocument().GetContent())
}

func TestProcessorName(t *testing.T) {
	assert.Equal(t, "", processorName("p", "", "x", ""))
	assert.Equal(t, "projects/p/locations/eu/processors/x/processorVersions/v2", processorName(" p", "eu", "x", "v2"))
}

type memLayouts struct {
	data  map[string]string
	saves int
}

func (m *memLayouts) GetLayoutMarkdown(_ context.Context, id, sha string) (string, bool, error) {
	md, ok := m.data[id+"/"+sha]
	return md, ok, nil
}

func (m *memLayouts) SaveLayoutMarkdown(_ context.Context, id, sha, md string) error {
	m.saves++
	m.data[id+"/"+sha] = md
	return nil
}

type countingConverter struct {
	calls int
	out   string
	err   error
}

func (c *countingConverter) ToMarkdown(context.Context, []byte, string) (string, error) {
	c.calls++
	return c.out, c.err
}

func TestCachingConverter_ConvertsOncePerHash(t *testing.T) {
	cache := &memLayouts{data: map[string]string{}}
	next := &countingConverter{out: "  # Title\n\nBody  "}
	c := NewCachingConverter(next, cache, nil)

	for i := 0; i < 3; i++ {
		md, err := c.Convert(context.Background(), "g1", "sha", []byte("x"), "g.pdf")
		require.NoError(t, err)
		assert.Equal(t, "# Title\n\nBody", md)
	}
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, cache.saves)

	_, err := c.Convert(context.Background(), "g1", "sha2", []byte("y"), "g.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachingConverter_EmptyAndErrorsAreNotCached(t *testing.T) {
	cache := &memLayouts{data: map[string]string{}}
	next := &countingConverter{out: "   "}
	c := NewCachingConverter(next, cache, nil)

	md, err := c.Convert(context.Background(), "g1", "sha", nil, "g.pdf")
	require.NoError(t, err)
	assert.Empty(t, md)
	assert.Zero(t, cache.saves)

	next.err = errors.New("boom")
	_, err = c.Convert(context.Background(), "g1", "sha", nil, "g.pdf")
	assert.Error(t, err)
	assert.Zero(t, cache.saves)
}
