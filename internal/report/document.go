// Package report assembles the patient diagnostic document and renders it.
//
// Assemble is a pure function from patient metadata, the clinical feature vector and
// the diagnosis decision to a Document: an ordered list of sections, each holding
// content nodes drawn from a closed set of variants. Renderers turn a Document into
// bytes (PDF for download, Markdown for text surfaces).
package report

// Document is a titled, ordered sequence of sections plus a footer line.
type Document struct {
	Title       string
	PatientName string
	Date        string
	Sections    []Section
	Footer      string
}

// Section is a numbered heading followed by its content.
type Section struct {
	Heading string
	Nodes   []Node
}

// Node is one content block. The set of implementations is closed.
type Node interface {
	isNode()
}

// Run is a span of text, optionally bold.
type Run struct {
	Text string
	Bold bool
}

// Plain returns a regular run.
func Plain(s string) Run { return Run{Text: s} }

// Bold returns a bold run.
func Bold(s string) Run { return Run{Text: s, Bold: true} }

// Paragraph is a line of mixed runs.
type Paragraph struct {
	Runs []Run
}

// Subheading is a minor heading within a section.
type Subheading struct {
	Text string
}

// BulletList is an unordered list of plain items.
type BulletList struct {
	Items []string
}

// NumberedList is an ordered list whose items may mix bold and plain runs.
type NumberedList struct {
	Items [][]Run
}

// Cell is one table cell.
type Cell struct {
	Runs []Run
}

// TextCell returns a plain cell.
func TextCell(s string) Cell { return Cell{Runs: []Run{Plain(s)}} }

// BoldCell returns a bold cell.
func BoldCell(s string) Cell { return Cell{Runs: []Run{Bold(s)}} }

// Text flattens the cell runs.
func (c Cell) Text() string {
	return runsText(c.Runs)
}

// Table is a grid. Header may be empty. Widths are relative column weights.
type Table struct {
	Header  []string
	Rows    [][]Cell
	Widths  []float64
	Striped bool
}

// Tone selects callout colouring.
type Tone int

const (
	ToneNormal Tone = iota
	ToneElevated
	ToneAdvisory
)

// Callout is a framed box with an optional title bar.
type Callout struct {
	Title string
	Lines [][]Run
	Tone  Tone
}

// Rule is a horizontal divider.
type Rule struct{}

func (Paragraph) isNode()    {}
func (Subheading) isNode()   {}
func (BulletList) isNode()   {}
func (NumberedList) isNode() {}
func (Table) isNode()        {}
func (Callout) isNode()      {}
func (Rule) isNode()         {}

// Section returns the section with the given heading, or nil.
func (d *Document) Section(heading string) *Section {
	for i := range d.Sections {
		if d.Sections[i].Heading == heading {
			return &d.Sections[i]
		}
	}
	return nil
}

func runsText(runs []Run) string {
	n := 0
	for _, r := range runs {
		n += len(r.Text)
	}
	b := make([]byte, 0, n)
	for _, r := range runs {
		b = append(b, r.Text...)
	}
	return string(b)
}
