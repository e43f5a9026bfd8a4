package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/breast-dx-server/internal/domain"
	"github.com/breast-dx-server/internal/scoring"
)

// DateLayout is the report date format.
const DateLayout = "2006-01-02"

// Assemble builds the diagnostic document. It never fails: absent metadata is
// rendered as "N/A" and routed to the neutral guidance band.
func Assemble(meta domain.PatientMetadata, features domain.FeatureVector, d domain.DiagnosisDecision, now time.Time) *Document {
	name := meta.DisplayName()
	date := now.Format(DateLayout)

	doc := &Document{
		Title:       reportTitle,
		PatientName: name,
		Date:        date,
		Footer:      fmt.Sprintf(footerFormat, name, date),
	}
	doc.Sections = []Section{
		patientSection(meta, d, date),
		clinicalSection(features),
		snapshotSection(features),
		riskSection(features, d),
		guidanceSection(meta),
		bulletSection(headingLifestyle, lifestyleByOutcome[OutcomeFor(d)]),
		bulletSection(headingFollowUp, followUpByOutcome[OutcomeFor(d)]),
		resourcesSection(),
		advisorySection(),
	}
	return doc
}

func patientSection(meta domain.PatientMetadata, d domain.DiagnosisDecision, date string) Section {
	diagnosis := d.Diagnosis
	if diagnosis == "" {
		diagnosis = unknownDiagnosis
	}
	labelled := func(label, value string) Cell {
		return Cell{Runs: []Run{Bold(label + ":"), Plain(" "), Bold(value)}}
	}
	return Section{
		Heading: headingPatient,
		Nodes: []Node{Table{
			Rows: [][]Cell{
				{labelled("Name", meta.DisplayName()), labelled("Age", meta.AgeText()), labelled("Gender", meta.GenderText())},
				{labelled("Diagnosis", diagnosis), labelled("Date", date), {}},
			},
			Widths: []float64{180, 160, 140},
		}},
	}
}

func clinicalSection(features domain.FeatureVector) Section {
	rows := make([][]Cell, 0, len(features))
	for _, f := range features {
		rows = append(rows, []Cell{
			BoldCell(f.Name),
			TextCell(formatRounded(f.Value, 4)),
			TextCell(explanationFor(f.Name)),
		})
	}
	return Section{
		Heading: headingClinical,
		Nodes: []Node{Table{
			Header:  clinicalTableHeader,
			Rows:    rows,
			Widths:  []float64{150, 100, 220},
			Striped: true,
		}},
	}
}

func snapshotSection(features domain.FeatureVector) Section {
	nodes := []Node{Subheading{Text: snapshotSubheading}}
	for _, f := range scoring.TopFeatures(features, scoring.DefaultTopFeatures) {
		nodes = append(nodes, Paragraph{Runs: []Run{
			Bold(f.Name),
			Plain(" of "),
			Bold(formatRounded(f.Value, 3)),
			Plain(" - " + snapshotAnnotation(f)),
		}})
	}
	return Section{Heading: headingSnapshot, Nodes: nodes}
}

func riskSection(features domain.FeatureVector, d domain.DiagnosisDecision) Section {
	score := scoring.RiskScore(features)
	category := scoring.RiskCategoryFor(score)

	tone := ToneNormal
	if category == domain.RiskElevated {
		tone = ToneElevated
	}
	return Section{
		Heading: headingRisk,
		Nodes: []Node{
			Callout{
				Title: riskBoxTitle,
				Tone:  tone,
				Lines: [][]Run{
					{Bold("Score:"), Plain(" " + formatRounded(score, 1) + "%")},
					{Bold("Status:"), Plain(" " + string(category))},
					{Bold("Assessment:"), Plain(" " + scoring.RiskNarrative(category, d.Malignant))},
				},
			},
			Paragraph{Runs: []Run{Plain(riskExplanation)}},
			Paragraph{Runs: []Run{Plain(riskThresholdKey)}},
		},
	}
}

func guidanceSection(meta domain.PatientMetadata) Section {
	g := guidanceByBand[GuidanceBandFor(meta)]
	age := meta.AgeText()
	return Section{
		Heading: headingGuidance,
		Nodes: []Node{
			Paragraph{Runs: []Run{Plain(g.intro(age))}},
			Paragraph{Runs: []Run{Bold(meta.DisplayName()), Plain(g.personal(age))}},
			BulletList{Items: append([]string(nil), g.points...)},
		},
	}
}

func bulletSection(heading string, items []string) Section {
	return Section{
		Heading: heading,
		Nodes:   []Node{BulletList{Items: append([]string(nil), items...)}},
	}
}

func resourcesSection() Section {
	items := make([][]Run, len(supportResources))
	for i, r := range supportResources {
		items[i] = []Run{Bold(r.name), Plain(" " + r.contact + " - " + r.description)}
	}
	return Section{Heading: headingResources, Nodes: []Node{NumberedList{Items: items}}}
}

func advisorySection() Section {
	return Section{
		Heading: headingAdvisory,
		Nodes: []Node{
			Callout{Lines: [][]Run{{Plain(advisoryText)}}, Tone: ToneAdvisory},
			Rule{},
		},
	}
}

// formatRounded rounds half away from zero to places decimals and prints the
// shortest representation, keeping at least one decimal ("20.0", "0.1235").
func formatRounded(v float64, places int) string {
	p := math.Pow10(places)
	r := math.Round(v*p) / p
	s := strconv.FormatFloat(r, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
