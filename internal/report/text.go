package report

// Fixed report wording.

const (
	reportTitle = "BREAST CANCER DIAGNOSTIC REPORT"

	headingPatient   = "1. PATIENT INFORMATION"
	headingClinical  = "2. CLINICAL INPUT DATA"
	headingSnapshot  = "3. YOUR CLINICAL SNAPSHOT"
	headingRisk      = "4. RISK SCORE AND CATEGORY"
	headingGuidance  = "5. AGE & GENDER-BASED GUIDANCE"
	headingLifestyle = "6. LIFESTYLE & NUTRITION RECOMMENDATIONS"
	headingFollowUp  = "7. MONITORING & FOLLOW-UP"
	headingResources = "8. SUPPORT RESOURCES"
	headingAdvisory  = "9. ADDITIONAL INFORMATION"

	snapshotSubheading = "Top 3 Significant Features:"

	riskBoxTitle     = "RISK ASSESSMENT"
	riskExplanation  = "Estimated from clinical features like concavity, perimeter, etc."
	riskThresholdKey = "A score > 500% indicates high risk. Normal range: <500%"

	unknownDiagnosis = "Unknown"

	defaultExplanation = "Contributes to overall prediction model"

	advisoryText = "This report is intended to serve as a supplemental tool for breast cancer screening and risk assessment. " +
		"It is not a replacement for professional medical advice, diagnosis, or treatment. Always seek the advice of your " +
		"physician with any questions regarding your medical condition or the results presented in this report."

	footerFormat = "Report generated for: %s | Date: %s | CONFIDENTIAL MEDICAL INFORMATION"
)

var clinicalTableHeader = []string{"Feature", "Value", "Prediction Impact"}

var featureExplanations = map[string]string{
	"radius_mean":             "Larger values suggest potential malignancy",
	"texture_mean":            "Higher values indicate irregular cell structure",
	"perimeter_mean":          "Larger perimeter correlates with abnormal growth",
	"area_mean":               "Increased area is a key malignancy indicator",
	"smoothness_mean":         "Higher values suggest cell membrane abnormality",
	"compactness_mean":        "Greater compactness indicates malignant tendency",
	"concavity_mean":          "Strong predictor of cell boundary irregularity",
	"concave_points_mean":     "Critical indicator of invasive potential",
	"symmetry_mean":           "Asymmetry suggests abnormal cell development",
	"fractal_dimension_mean":  "Higher complexity often indicates malignancy",
	"radius_worst":            "Strong predictor - larger worst case indicates risk",
	"texture_worst":           "High texture variance strongly predicts malignancy",
	"perimeter_worst":         "Large worst perimeter strongly indicates cancer",
	"area_worst":              "One of the strongest predictors of malignancy",
	"smoothness_worst":        "Extreme values suggest abnormal cell surface",
	"compactness_worst":       "High compactness extremes predict malignancy",
	"concavity_worst":         "Key predictor of invasive characteristics",
	"concave_points_worst":    "Critical predictor of boundary irregularity",
	"symmetry_worst":          "Extreme asymmetry suggests aggressive growth",
	"fractal_dimension_worst": "Complex boundaries suggest malignancy",
}

// explanationFor returns the static explanation of a feature.
func explanationFor(name string) string {
	if e, ok := featureExplanations[name]; ok {
		return e
	}
	return defaultExplanation
}

type resource struct {
	name        string
	contact     string
	description string
}

var supportResources = []resource{
	{"American Cancer Society:", "https://www.cancer.org", "Comprehensive cancer information and support services"},
	{"National Cancer Institute:", "https://www.cancer.gov", "Government resource for cancer research and patient support"},
	{"Breast Cancer Research Foundation:", "https://www.bcrf.org", "Research updates and patient resources"},
	{"National Cancer Helpline:", "1-800-227-2345", "24/7 assistance and guidance"},
}
