package parser

import (
	"bufio"
	"bytes"
	"context"
	"strings"
)

// TextConverter handles plain text files. Paragraphs are kept as-is and
// separated by a single blank line; no headings are inferred.
type TextConverter struct{}

func (p *TextConverter) ToMarkdown(_ context.Context, data []byte, filename string) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return joinBlocks(paragraphs), nil
}
