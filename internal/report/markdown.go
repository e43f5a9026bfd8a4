package report

import (
	"strconv"
	"strings"
)

// MarkdownRenderer renders documents as GitHub flavoured Markdown. Colours and
// fonts in the style are ignored.
type MarkdownRenderer struct{}

// NewMarkdownRenderer returns a Markdown renderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

func (r *MarkdownRenderer) ContentType() string { return "text/markdown; charset=utf-8" }

func (r *MarkdownRenderer) Extension() string { return "md" }

// Render never fails.
func (r *MarkdownRenderer) Render(doc *Document, _ Style) ([]byte, error) {
	var b strings.Builder
	b.WriteString("# " + doc.Title + "\n\n")
	for _, s := range doc.Sections {
		b.WriteString("## " + s.Heading + "\n\n")
		for _, n := range s.Nodes {
			writeMarkdownNode(&b, n)
		}
	}
	if doc.Footer != "" {
		b.WriteString("_" + doc.Footer + "_\n")
	}
	return []byte(b.String()), nil
}

func writeMarkdownNode(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case Paragraph:
		b.WriteString(markdownRuns(n.Runs) + "\n\n")
	case Subheading:
		b.WriteString("### " + n.Text + "\n\n")
	case BulletList:
		for _, item := range n.Items {
			b.WriteString("- " + item + "\n")
		}
		b.WriteString("\n")
	case NumberedList:
		for i, item := range n.Items {
			b.WriteString(strconv.Itoa(i+1) + ". " + markdownRuns(item) + "\n")
		}
		b.WriteString("\n")
	case Table:
		writeMarkdownTable(b, n)
	case Callout:
		if n.Title != "" {
			b.WriteString("> **" + n.Title + "**\n>\n")
		}
		for i, line := range n.Lines {
			if i > 0 {
				b.WriteString(">\n")
			}
			b.WriteString("> " + markdownRuns(line) + "\n")
		}
		b.WriteString("\n")
	case Rule:
		b.WriteString("---\n\n")
	}
}

// Tables without a header row are written as a list of their non-empty cells.
func writeMarkdownTable(b *strings.Builder, t Table) {
	if len(t.Header) == 0 {
		for _, row := range t.Rows {
			for _, c := range row {
				if len(c.Runs) > 0 {
					b.WriteString("- " + markdownRuns(c.Runs) + "\n")
				}
			}
		}
		b.WriteString("\n")
		return
	}

	b.WriteString("| " + strings.Join(escapeCells(t.Header), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(t.Header)) + "\n")
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.ReplaceAll(markdownRuns(c.Runs), "|", `\|`)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	b.WriteString("\n")
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}

func markdownRuns(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		if r.Bold && strings.TrimSpace(r.Text) != "" {
			b.WriteString("**" + r.Text + "**")
			continue
		}
		b.WriteString(r.Text)
	}
	return b.String()
}
