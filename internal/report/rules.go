package report

import (
	"strings"

	"github.com/breast-dx-server/internal/domain"
)

// snapshotRule annotates a top feature whose name contains pattern and whose value
// exceeds threshold. Rules are tried in order and the first match wins.
type snapshotRule struct {
	pattern   string
	threshold float64
	text      string
}

var snapshotRules = []snapshotRule{
	{"concave_points", 0.1, "Elevated concave points suggest abnormal curvature in cell structure"},
	{"radius", 15, "Increased radius indicates larger than normal cell size"},
	{"area", 800, "Enlarged area measurement suggests abnormal cell growth"},
	{"perimeter", 100, "Extended perimeter indicates larger boundary of the cells"},
	{"texture", 20, "Higher texture variation shows cellular structural irregularity"},
}

const snapshotFallback = "Notable indicator for diagnostic assessment"

// snapshotAnnotation returns the annotation of the first matching rule.
func snapshotAnnotation(f domain.Feature) string {
	for _, r := range snapshotRules {
		if strings.Contains(f.Name, r.pattern) && f.Value > r.threshold {
			return r.text
		}
	}
	return snapshotFallback
}

// GuidanceBand selects the age and gender guidance variant.
type GuidanceBand int

const (
	GuidanceFemaleUnder40 GuidanceBand = iota
	GuidanceFemale40s
	GuidanceFemale50Plus
	GuidanceMale
	GuidanceOther
)

// GuidanceBandFor picks the band from metadata. A female patient without a known
// age gets the neutral band.
func GuidanceBandFor(meta domain.PatientMetadata) GuidanceBand {
	switch strings.ToLower(strings.TrimSpace(meta.Gender)) {
	case "female", "f", "woman":
		if meta.Age == nil {
			return GuidanceOther
		}
		switch age := *meta.Age; {
		case age < 40:
			return GuidanceFemaleUnder40
		case age < 50:
			return GuidanceFemale40s
		default:
			return GuidanceFemale50Plus
		}
	case "male", "m", "man":
		return GuidanceMale
	default:
		return GuidanceOther
	}
}

// guidance holds the wording of one band. personal is the sentence that follows
// the patient's name.
type guidance struct {
	intro    func(age string) string
	personal func(age string) string
	points   []string
}

var guidanceByBand = map[GuidanceBand]guidance{
	GuidanceFemaleUnder40: {
		intro: func(age string) string {
			return "At " + age + " years old as a woman, your risk of breast cancer is lower than older age groups, but vigilance is still important:"
		},
		personal: func(age string) string {
			return ", we recommend clinical breast examinations every 1-3 years at your age of " + age + "."
		},
		points: []string{
			"Learn and practice monthly breast self-examinations - early detection is key",
			"Discuss your family history with your doctor to identify any hereditary risk factors",
		},
	},
	GuidanceFemale40s: {
		intro: func(age string) string {
			return "At " + age + " years old as a woman, you're entering a period where regular screening becomes increasingly important:"
		},
		personal: func(age string) string {
			return ", we strongly recommend annual mammograms starting at your current age of " + age + "."
		},
		points: []string{
			"Continue monthly breast self-examinations to monitor any changes",
			"Consider digital mammography which may be more effective for your age group",
		},
	},
	GuidanceFemale50Plus: {
		intro: func(age string) string {
			return "At " + age + " years old as a woman, your age group has an increased risk that requires diligent monitoring:"
		},
		personal: func(age string) string {
			return ", at " + age + ", annual mammograms are essential - schedule your next one promptly."
		},
		points: []string{
			"Consider additional screening methods like breast MRI if you have other risk factors",
			"Maintain regular clinical examinations every 6-12 months",
		},
	},
	GuidanceMale: {
		intro: func(age string) string {
			return "As a " + age + "-year-old man, breast cancer is rare but still possible:"
		},
		personal: func(age string) string {
			return ", even as a male at " + age + ", be aware of any unusual changes to chest tissue."
		},
		points: []string{
			"Discuss any family history of breast cancer (especially in male relatives) with your doctor",
			"Regular physical examinations are recommended to monitor overall health",
		},
	},
	GuidanceOther: {
		intro: func(age string) string {
			return "Based on your age of " + age + ", we recommend:"
		},
		personal: func(age string) string {
			return ", regular breast health monitoring is appropriate for your age of " + age + "."
		},
		points: []string{
			"Discuss personalized screening recommendations with your healthcare provider",
			"Be aware of any changes in breast tissue and report them promptly",
		},
	},
}

// Outcome selects the lifestyle and follow-up variant.
type Outcome int

const (
	OutcomeNotMalignant Outcome = iota
	OutcomeMalignant
)

// OutcomeFor keys on the decision's malignant flag.
func OutcomeFor(d domain.DiagnosisDecision) Outcome {
	if d.Malignant {
		return OutcomeMalignant
	}
	return OutcomeNotMalignant
}

var lifestyleByOutcome = map[Outcome][]string{
	OutcomeMalignant: {
		"Prioritize a plant-based diet rich in cruciferous vegetables, berries, and leafy greens",
		"Include sources of omega-3 fatty acids such as flaxseeds, walnuts, and fatty fish",
		"Strictly limit alcohol consumption and avoid tobacco products entirely",
		"Maintain moderate physical activity (with physician approval) - aim for gentle exercise like walking",
		"Consider joining a cancer nutrition program for personalized dietary guidance",
		"Stay well-hydrated with filtered water and herbal teas without added sugars",
		"Minimize exposure to environmental toxins and chemicals in personal care products",
	},
	OutcomeNotMalignant: {
		"Maintain a balanced Mediterranean-style diet rich in fruits, vegetables, and whole grains",
		"Limit alcohol consumption to reduce breast cancer risk (no more than one drink per day)",
		"Maintain healthy weight through balanced nutrition and regular exercise",
		"Incorporate regular physical activity for at least 150 minutes per week",
		"Ensure adequate vitamin D through sun exposure or supplements (with physician guidance)",
		"Practice stress reduction techniques like meditation, yoga, or mindfulness",
		"Get sufficient sleep (7-8 hours nightly) to support immune function",
	},
}

var followUpByOutcome = map[Outcome][]string{
	OutcomeMalignant: {
		"Schedule appointment with oncologist within one week for treatment planning",
		"Prepare for additional diagnostic imaging (MRI, PET scan) as recommended",
		"Discuss surgical options and timing with breast cancer surgeon",
		"Consider genetic testing for treatment planning if not already completed",
		"Schedule consultation with radiation and medical oncology teams",
		"Keep detailed journal of symptoms, side effects, and questions for medical team",
		"Look into clinical trial opportunities that may be appropriate for your specific diagnosis",
		"Meet with patient navigator to coordinate appointments and support services",
	},
	OutcomeNotMalignant: {
		"Follow up with your physician in 6 months for clinical breast examination",
		"Schedule next mammogram according to age-appropriate guidelines (typically annually)",
		"Consider supplemental screening with ultrasound if you have dense breast tissue",
		"Report any changes in breast tissue or symptoms immediately to your doctor",
		"Maintain records of all imaging and examination results for comparison over time",
		"Continue or establish regular breast self-examination routine",
		"Annual risk re-evaluation with your healthcare provider",
		"Consider consultation with genetic counselor if you have family history of breast cancer",
	},
}
