package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breast-dx-server/internal/domain"
)

var reportDate = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleFeatures() domain.FeatureVector {
	return domain.FeatureVector{
		{Name: "concave_points_mean", Value: 0.05},
		{Name: "concave_points_worst", Value: 0.2},
		{Name: "radius_worst", Value: 20},
		{Name: "perimeter_worst", Value: 130},
		{Name: "area_worst", Value: 900},
		{Name: "concavity_mean", Value: 0.3},
		{Name: "perimeter_mean", Value: 90},
		{Name: "area_mean", Value: 600},
	}
}

func malignantDecision() domain.DiagnosisDecision {
	return domain.DiagnosisDecision{
		Label:                domain.LabelMalignant,
		Diagnosis:            domain.DiagnosisMalignant,
		Malignant:            true,
		Confidence:           82,
		MalignantProbability: 0.82,
		BenignProbability:    0.18,
	}
}

func benignDecision() domain.DiagnosisDecision {
	return domain.DiagnosisDecision{
		Label:                domain.LabelBenign,
		Diagnosis:            domain.DiagnosisBenign,
		Confidence:           97,
		MalignantProbability: 0.03,
		BenignProbability:    0.97,
	}
}

func sampleMetadata() domain.PatientMetadata {
	return domain.PatientMetadata{Name: "Jane Doe", Age: domain.IntPtr(45), Gender: "Female"}
}

func paragraphTexts(s *Section) []string {
	var out []string
	for _, n := range s.Nodes {
		if p, ok := n.(Paragraph); ok {
			out = append(out, runsText(p.Runs))
		}
	}
	return out
}

func bulletItems(t *testing.T, s *Section) []string {
	t.Helper()
	for _, n := range s.Nodes {
		if b, ok := n.(BulletList); ok {
			return b.Items
		}
	}
	t.Fatalf("section %q has no bullet list", s.Heading)
	return nil
}

func TestAssemble_SectionOrder(t *testing.T) {
	doc := Assemble(sampleMetadata(), sampleFeatures(), malignantDecision(), reportDate)

	require.Len(t, doc.Sections, 9)
	headings := make([]string, len(doc.Sections))
	for i, s := range doc.Sections {
		headings[i] = s.Heading
	}
	assert.Equal(t, []string{
		"1. PATIENT INFORMATION",
		"2. CLINICAL INPUT DATA",
		"3. YOUR CLINICAL SNAPSHOT",
		"4. RISK SCORE AND CATEGORY",
		"5. AGE & GENDER-BASED GUIDANCE",
		"6. LIFESTYLE & NUTRITION RECOMMENDATIONS",
		"7. MONITORING & FOLLOW-UP",
		"8. SUPPORT RESOURCES",
		"9. ADDITIONAL INFORMATION",
	}, headings)
	assert.Equal(t, "BREAST CANCER DIAGNOSTIC REPORT", doc.Title)
	assert.Equal(t, "2025-03-14", doc.Date)
	assert.Equal(t, "Report generated for: Jane Doe | Date: 2025-03-14 | CONFIDENTIAL MEDICAL INFORMATION", doc.Footer)
}

func TestAssemble_PatientInformation(t *testing.T) {
	doc := Assemble(sampleMetadata(), sampleFeatures(), malignantDecision(), reportDate)

	table, ok := doc.Section(headingPatient).Nodes[0].(Table)
	require.True(t, ok)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Name: Jane Doe", table.Rows[0][0].Text())
	assert.Equal(t, "Age: 45", table.Rows[0][1].Text())
	assert.Equal(t, "Gender: Female", table.Rows[0][2].Text())
	assert.Equal(t, "Diagnosis: Malignant (M)", table.Rows[1][0].Text())
	assert.Equal(t, "Date: 2025-03-14", table.Rows[1][1].Text())
}

func TestAssemble_MissingMetadata(t *testing.T) {
	doc := Assemble(domain.PatientMetadata{}, sampleFeatures(), domain.DiagnosisDecision{}, reportDate)

	table := doc.Section(headingPatient).Nodes[0].(Table)
	assert.Equal(t, "Name: Anonymous", table.Rows[0][0].Text())
	assert.Equal(t, "Age: N/A", table.Rows[0][1].Text())
	assert.Equal(t, "Gender: N/A", table.Rows[0][2].Text())
	assert.Equal(t, "Diagnosis: Unknown", table.Rows[1][0].Text())

	guidance := paragraphTexts(doc.Section(headingGuidance))
	assert.Equal(t, "Based on your age of N/A, we recommend:", guidance[0])
	assert.Equal(t, "Anonymous, regular breast health monitoring is appropriate for your age of N/A.", guidance[1])
	assert.Contains(t, doc.Footer, "Report generated for: Anonymous")
}

func TestAssemble_ClinicalTable(t *testing.T) {
	features := append(sampleFeatures(), domain.Feature{Name: "custom_marker", Value: 0.123456})
	doc := Assemble(sampleMetadata(), features, benignDecision(), reportDate)

	table := doc.Section(headingClinical).Nodes[0].(Table)
	assert.Equal(t, []string{"Feature", "Value", "Prediction Impact"}, table.Header)
	require.Len(t, table.Rows, len(features))

	for i, f := range features {
		assert.Equal(t, f.Name, table.Rows[i][0].Text())
		assert.True(t, table.Rows[i][0].Runs[0].Bold)
	}
	assert.Equal(t, "20.0", table.Rows[2][1].Text())
	assert.Equal(t, "Strong predictor - larger worst case indicates risk", table.Rows[2][2].Text())
	assert.Equal(t, "0.1235", table.Rows[8][1].Text())
	assert.Equal(t, "Contributes to overall prediction model", table.Rows[8][2].Text())
}

func TestAssemble_Snapshot(t *testing.T) {
	doc := Assemble(sampleMetadata(), sampleFeatures(), malignantDecision(), reportDate)

	s := doc.Section(headingSnapshot)
	assert.Equal(t, Subheading{Text: "Top 3 Significant Features:"}, s.Nodes[0])
	assert.Equal(t, []string{
		"area_worst of 900.0 - Enlarged area measurement suggests abnormal cell growth",
		"perimeter_worst of 130.0 - Extended perimeter indicates larger boundary of the cells",
		"radius_worst of 20.0 - Increased radius indicates larger than normal cell size",
	}, paragraphTexts(s))
}

func TestAssemble_RiskSection(t *testing.T) {
	tests := []struct {
		name     string
		features domain.FeatureVector
		decision domain.DiagnosisDecision
		lines    []string
		tone     Tone
	}{
		{
			name:     "elevated malignant",
			features: sampleFeatures(),
			decision: malignantDecision(),
			lines: []string{
				"Score: 683.3%",
				"Status: Elevated",
				"Assessment: Your elevated risk score requires immediate medical attention.",
			},
			tone: ToneElevated,
		},
		{
			name: "normal benign",
			features: domain.FeatureVector{
				{Name: "radius_worst", Value: 12},
				{Name: "concavity_mean", Value: 0.05},
				{Name: "concave_points_worst", Value: 0.08},
			},
			decision: benignDecision(),
			lines: []string{
				"Score: 404.3%",
				"Status: Normal",
				"Assessment: Your risk profile is within normal range. Continue routine screenings.",
			},
			tone: ToneNormal,
		},
		{
			name:     "threshold is elevated",
			features: domain.FeatureVector{{Name: "radius_worst", Value: 15}},
			decision: benignDecision(),
			lines: []string{
				"Score: 500.0%",
				"Status: Elevated",
				"Assessment: Further testing recommended due to elevated risk indicators.",
			},
			tone: ToneElevated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Assemble(sampleMetadata(), tt.features, tt.decision, reportDate)
			s := doc.Section(headingRisk)

			box, ok := s.Nodes[0].(Callout)
			require.True(t, ok)
			assert.Equal(t, "RISK ASSESSMENT", box.Title)
			assert.Equal(t, tt.tone, box.Tone)

			var lines []string
			for _, l := range box.Lines {
				lines = append(lines, runsText(l))
			}
			assert.Equal(t, tt.lines, lines)
			assert.Equal(t, []string{
				"Estimated from clinical features like concavity, perimeter, etc.",
				"A score > 500% indicates high risk. Normal range: <500%",
			}, paragraphTexts(s))
		})
	}
}

func TestAssemble_Guidance(t *testing.T) {
	tests := []struct {
		name     string
		meta     domain.PatientMetadata
		intro    string
		personal string
		first    string
	}{
		{
			name:     "young woman",
			meta:     domain.PatientMetadata{Name: "Ana", Age: domain.IntPtr(35), Gender: "female"},
			intro:    "At 35 years old as a woman, your risk of breast cancer is lower than older age groups, but vigilance is still important:",
			personal: "Ana, we recommend clinical breast examinations every 1-3 years at your age of 35.",
			first:    "Learn and practice monthly breast self-examinations - early detection is key",
		},
		{
			name:     "woman in her forties",
			meta:     domain.PatientMetadata{Name: "Jane Doe", Age: domain.IntPtr(45), Gender: "Female"},
			intro:    "At 45 years old as a woman, you're entering a period where regular screening becomes increasingly important:",
			personal: "Jane Doe, we strongly recommend annual mammograms starting at your current age of 45.",
			first:    "Continue monthly breast self-examinations to monitor any changes",
		},
		{
			name:     "woman at fifty",
			meta:     domain.PatientMetadata{Name: "Rita", Age: domain.IntPtr(50), Gender: "FEMALE"},
			intro:    "At 50 years old as a woman, your age group has an increased risk that requires diligent monitoring:",
			personal: "Rita, at 50, annual mammograms are essential - schedule your next one promptly.",
			first:    "Consider additional screening methods like breast MRI if you have other risk factors",
		},
		{
			name:     "man",
			meta:     domain.PatientMetadata{Name: "Tom", Age: domain.IntPtr(61), Gender: "male"},
			intro:    "As a 61-year-old man, breast cancer is rare but still possible:",
			personal: "Tom, even as a male at 61, be aware of any unusual changes to chest tissue.",
			first:    "Discuss any family history of breast cancer (especially in male relatives) with your doctor",
		},
		{
			name:     "unspecified gender",
			meta:     domain.PatientMetadata{Name: "Sam", Age: domain.IntPtr(30), Gender: "other"},
			intro:    "Based on your age of 30, we recommend:",
			personal: "Sam, regular breast health monitoring is appropriate for your age of 30.",
			first:    "Discuss personalized screening recommendations with your healthcare provider",
		},
		{
			name:     "woman without age",
			meta:     domain.PatientMetadata{Name: "Lee", Gender: "female"},
			intro:    "Based on your age of N/A, we recommend:",
			personal: "Lee, regular breast health monitoring is appropriate for your age of N/A.",
			first:    "Discuss personalized screening recommendations with your healthcare provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Assemble(tt.meta, sampleFeatures(), benignDecision(), reportDate)
			s := doc.Section(headingGuidance)

			assert.Equal(t, []string{tt.intro, tt.personal}, paragraphTexts(s))
			items := bulletItems(t, s)
			require.Len(t, items, 2)
			assert.Equal(t, tt.first, items[0])

			name := s.Nodes[1].(Paragraph).Runs[0]
			assert.True(t, name.Bold)
			assert.Equal(t, tt.meta.Name, name.Text)
		})
	}
}

func TestAssemble_OutcomeSections(t *testing.T) {
	malignant := Assemble(sampleMetadata(), sampleFeatures(), malignantDecision(), reportDate)
	benign := Assemble(sampleMetadata(), sampleFeatures(), benignDecision(), reportDate)

	ml := bulletItems(t, malignant.Section(headingLifestyle))
	bl := bulletItems(t, benign.Section(headingLifestyle))
	assert.Len(t, ml, 7)
	assert.Len(t, bl, 7)
	assert.True(t, strings.HasPrefix(ml[0], "Prioritize a plant-based diet"))
	assert.True(t, strings.HasPrefix(bl[0], "Maintain a balanced Mediterranean-style diet"))

	mf := bulletItems(t, malignant.Section(headingFollowUp))
	bf := bulletItems(t, benign.Section(headingFollowUp))
	assert.Len(t, mf, 8)
	assert.Len(t, bf, 8)
	assert.Equal(t, "Schedule appointment with oncologist within one week for treatment planning", mf[0])
	assert.Equal(t, "Follow up with your physician in 6 months for clinical breast examination", bf[0])
}

func TestAssemble_OutcomeFollowsMalignantFlag(t *testing.T) {
	d := benignDecision()
	d.Diagnosis = "malignant"

	doc := Assemble(sampleMetadata(), sampleFeatures(), d, reportDate)

	assert.True(t, strings.HasPrefix(bulletItems(t, doc.Section(headingLifestyle))[0], "Maintain a balanced"))
}

func TestAssemble_ResourcesAndAdvisory(t *testing.T) {
	doc := Assemble(sampleMetadata(), sampleFeatures(), benignDecision(), reportDate)

	list := doc.Section(headingResources).Nodes[0].(NumberedList)
	require.Len(t, list.Items, 4)
	assert.Equal(t, "American Cancer Society: https://www.cancer.org - Comprehensive cancer information and support services", runsText(list.Items[0]))
	assert.Equal(t, "National Cancer Helpline: 1-800-227-2345 - 24/7 assistance and guidance", runsText(list.Items[3]))

	advisory := doc.Section(headingAdvisory)
	box := advisory.Nodes[0].(Callout)
	assert.Equal(t, ToneAdvisory, box.Tone)
	assert.True(t, strings.HasPrefix(runsText(box.Lines[0]), "This report is intended to serve as a supplemental tool"))
	assert.Equal(t, Rule{}, advisory.Nodes[1])
}

func TestAssemble_Deterministic(t *testing.T) {
	a := Assemble(sampleMetadata(), sampleFeatures(), malignantDecision(), reportDate)
	b := Assemble(sampleMetadata(), sampleFeatures(), malignantDecision(), reportDate)
	assert.Equal(t, a, b)
}

func TestAssemble_DoesNotMutateInput(t *testing.T) {
	features := sampleFeatures()
	before := features.Clone()

	Assemble(sampleMetadata(), features, malignantDecision(), reportDate)

	assert.Equal(t, before, features)
}

func TestFormatRounded(t *testing.T) {
	tests := []struct {
		value  float64
		places int
		want   string
	}{
		{20, 4, "20.0"},
		{0.123456, 4, "0.1235"},
		{0.1, 4, "0.1"},
		{676.6666666666666, 1, "676.7"},
		{500, 1, "500.0"},
		{1800, 3, "1800.0"},
		{0.00004, 4, "0.0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatRounded(tt.value, tt.places))
	}
}
