package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// markdownText flattens markdown into plain text by walking the parsed AST
// and collecting text segments. Headings, paragraphs, and code blocks are
// separated by newlines; inline markup is dropped.
func markdownText(content []byte) string {
	reader := text.NewReader(content)
	doc := markdownParser.Parser().Parse(reader)

	var builder strings.Builder

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			segment := node.Segment
			builder.Write(segment.Value(content))
			if node.HardLineBreak() || node.SoftLineBreak() {
				builder.WriteByte('\n')
			}
		case *ast.String:
			builder.Write(node.Value)
		case *ast.CodeBlock:
			writeBlockSeparator(&builder)
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				builder.Write(line.Value(content))
			}
		case *ast.FencedCodeBlock:
			writeBlockSeparator(&builder)
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				builder.Write(line.Value(content))
			}
		case *ast.Heading, *ast.Paragraph, *ast.ListItem, *ast.Blockquote:
			writeBlockSeparator(&builder)
		}

		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(builder.String())
}

func writeBlockSeparator(builder *strings.Builder) {
	if builder.Len() > 0 && !strings.HasSuffix(builder.String(), "\n") {
		builder.WriteByte('\n')
	}
}
