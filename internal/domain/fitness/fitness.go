// Package fitness validates the fitness and health questionnaire and decides
// whether an athlete needs medical clearance before continuing.
package fitness

import (
	"math"
	"strconv"
	"strings"
)

// Answer values accepted by the categorical questions.
const (
	Yes = "yes"
	No  = "no"

	InjuryRecent = "yes-recent"
	InjuryPast   = "yes-past"

	SubstancesRegularly    = "yes-regularly"
	SubstancesOccasionally = "yes-occasionally"

	StressOften     = "often"
	StressSometimes = "sometimes"
	StressRarely    = "rarely"
	StressNever     = "never"

	MedicationsDaily        = "yes-daily"
	MedicationsOccasionally = "yes-occasionally"
)

// Blocking reasons.
const (
	ReasonChronicDisease = "Chronic disease condition requires medical clearance"
	ReasonRecentInjury   = "Recent major injury requires medical clearance"
	ReasonSubstances     = "Regular substance use is not compatible with athletic performance programs"
	ReasonStress         = "Frequent stress/anxiety may require professional support"
	ReasonMedications    = "Daily medications require medical review"
)

const (
	minHeightCM = 100
	maxHeightCM = 250
	minWeightKG = 30
	maxWeightKG = 200

	msgHeight   = "Height must be between 100-250 cm"
	msgWeight   = "Weight must be between 30-200 kg"
	msgRequired = "Please answer this question"
)

// BMI categories.
const (
	Underweight = "Underweight"
	Normal      = "Normal"
	Overweight  = "Overweight"
	Obese       = "Obese"
)

// Form is the questionnaire as submitted. Height and weight are kept as typed.
type Form struct {
	Height                string `json:"height"`
	Weight                string `json:"weight"`
	ChronicDisease        string `json:"chronicDisease"`
	ChronicDiseaseDetails string `json:"chronicDiseaseDetails,omitempty"`
	Injury                string `json:"injury"`
	InjuryDetails         string `json:"injuryDetails,omitempty"`
	Substances            string `json:"substances"`
	Stress                string `json:"stress"`
	Medications           string `json:"medications"`
	MedicationDetails     string `json:"medicationDetails,omitempty"`
}

// Contact is the medical support desk shown on a blocked assessment.
type Contact struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Assessment is the outcome of a valid form.
type Assessment struct {
	HeightCM        float64  `json:"heightCm"`
	WeightKG        float64  `json:"weightKg"`
	BMI             float64  `json:"bmi"`
	BMICategory     string   `json:"bmiCategory"`
	BlockingReasons []string `json:"blockingReasons"`
	IsBlocked       bool     `json:"isBlocked"`
	Message         string   `json:"message"`
	NextSteps       []string `json:"nextSteps,omitempty"`
	Contact         *Contact `json:"contact,omitempty"`
}

// Validate returns per-field messages. An empty map means the form is valid.
func Validate(f Form) FieldErrors {
	errs := FieldErrors{}

	if _, ok := parseRange(f.Height, minHeightCM, maxHeightCM); !ok {
		errs["height"] = msgHeight
	}
	if _, ok := parseRange(f.Weight, minWeightKG, maxWeightKG); !ok {
		errs["weight"] = msgWeight
	}

	switch f.ChronicDisease {
	case Yes:
		if blank(f.ChronicDiseaseDetails) {
			errs["chronicDiseaseDetails"] = "Please specify your condition"
		}
	case No:
	default:
		errs["chronicDisease"] = msgRequired
	}

	switch f.Injury {
	case InjuryRecent:
		if blank(f.InjuryDetails) {
			errs["injuryDetails"] = "Please specify your recent injury"
		}
	case InjuryPast:
		if blank(f.InjuryDetails) {
			errs["injuryDetails"] = "Please specify your past injury"
		}
	case No:
	default:
		errs["injury"] = msgRequired
	}

	switch f.Substances {
	case SubstancesRegularly, SubstancesOccasionally, No:
	default:
		errs["substances"] = msgRequired
	}

	switch f.Stress {
	case StressOften, StressSometimes, StressRarely, StressNever:
	default:
		errs["stress"] = msgRequired
	}

	switch f.Medications {
	case MedicationsDaily:
		if blank(f.MedicationDetails) {
			errs["medicationDetails"] = "Please specify your daily medications"
		}
	case MedicationsOccasionally:
		if blank(f.MedicationDetails) {
			errs["medicationDetails"] = "Please specify your occasional medications"
		}
	case No:
	default:
		errs["medications"] = msgRequired
	}

	return errs
}

// Reasons applies the rule table. Rules are independent; every trigger adds
// its reason.
func Reasons(f Form) []string {
	reasons := []string{}
	if f.ChronicDisease == Yes {
		reasons = append(reasons, ReasonChronicDisease)
	}
	if f.Injury == InjuryRecent {
		reasons = append(reasons, ReasonRecentInjury)
	}
	if f.Substances == SubstancesRegularly {
		reasons = append(reasons, ReasonSubstances)
	}
	if f.Stress == StressOften {
		reasons = append(reasons, ReasonStress)
	}
	if f.Medications == MedicationsDaily {
		reasons = append(reasons, ReasonMedications)
	}
	return reasons
}

// Assess validates the form and, when valid, evaluates it. Field errors are
// returned as FieldErrors and no assessment is produced.
func Assess(f Form) (Assessment, error) {
	if errs := Validate(f); len(errs) > 0 {
		return Assessment{}, errs
	}
	h, _ := parseRange(f.Height, minHeightCM, maxHeightCM)
	w, _ := parseRange(f.Weight, minWeightKG, maxWeightKG)
	bmi := BMI(h, w)

	a := Assessment{
		HeightCM:        h,
		WeightKG:        w,
		BMI:             bmi,
		BMICategory:     Category(bmi),
		BlockingReasons: Reasons(f),
	}
	a.IsBlocked = len(a.BlockingReasons) > 0
	if !a.IsBlocked {
		a.Message = "Assessment Complete. You are cleared to continue to video analysis."
		return a, nil
	}
	a.Message = "Cannot Proceed Without Medical Clearance. Based on your health questionnaire responses, you require medical clearance before participating in our athletic performance program."
	a.NextSteps = []string{
		"Consult with a qualified sports medicine physician",
		"Obtain medical clearance for athletic participation",
		"Submit medical clearance certificate to our team",
		"Return to complete your athlete assessment",
	}
	a.Contact = &Contact{Phone: "Medical Support: +91 98765 43210", Email: "Email: medical@teamsankalp.in"}
	return a, nil
}

// BMI is weight / (height in metres)^2 rounded to one decimal.
func BMI(heightCM, weightKG float64) float64 {
	m := heightCM / 100
	if m <= 0 {
		return 0
	}
	return math.Round(weightKG/(m*m)*10) / 10
}

// Category buckets a BMI value.
func Category(bmi float64) string {
	switch {
	case bmi < 18.5:
		return Underweight
	case bmi < 25:
		return Normal
	case bmi < 30:
		return Overweight
	}
	return Obese
}

// Score rates an assessment for the admin roster: blocked athletes get 0,
// cleared ones are graded by BMI category.
func Score(a Assessment) int {
	if a.IsBlocked {
		return 0
	}
	switch a.BMICategory {
	case Normal:
		return 100
	case Underweight, Overweight:
		return 80
	}
	return 60
}

func parseRange(s string, lo, hi float64) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || v < lo || v > hi {
		return 0, false
	}
	return v, true
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
