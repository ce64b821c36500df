package fitness_test

import (
	"errors"
	"testing"

	"github.com/okian/apas/internal/domain/fitness"
	. "github.com/smartystreets/goconvey/convey"
)

func healthyForm() fitness.Form {
	return fitness.Form{
		Height:         "175",
		Weight:         "70",
		ChronicDisease: fitness.No,
		Injury:         fitness.No,
		Substances:     fitness.No,
		Stress:         fitness.StressRarely,
		Medications:    fitness.No,
	}
}

func TestValidate(t *testing.T) {
	Convey("Given a fitness form", t, func() {
		f := healthyForm()

		Convey("When every field is valid", func() {
			Convey("Then there are no field errors", func() {
				So(fitness.Validate(f), ShouldBeEmpty)
			})
		})

		Convey("When height and weight are out of range or unparseable", func() {
			f.Height = "99"
			f.Weight = "heavy"

			Convey("Then both carry the range message", func() {
				errs := fitness.Validate(f)
				So(errs["height"], ShouldEqual, "Height must be between 100-250 cm")
				So(errs["weight"], ShouldEqual, "Weight must be between 30-200 kg")
			})
		})

		Convey("When the range edges are used", func() {
			f.Height = "250"
			f.Weight = "30"

			Convey("Then they are accepted", func() {
				So(fitness.Validate(f), ShouldBeEmpty)
			})
		})

		Convey("When a categorical answer is missing", func() {
			f.Stress = ""

			Convey("Then it asks for an answer", func() {
				So(fitness.Validate(f)["stress"], ShouldEqual, "Please answer this question")
			})
		})

		Convey("When conditional details are missing", func() {
			f.ChronicDisease = fitness.Yes
			f.Injury = fitness.InjuryPast
			f.Medications = fitness.MedicationsOccasionally

			Convey("Then each detail field is requested", func() {
				errs := fitness.Validate(f)
				So(errs["chronicDiseaseDetails"], ShouldEqual, "Please specify your condition")
				So(errs["injuryDetails"], ShouldEqual, "Please specify your past injury")
				So(errs["medicationDetails"], ShouldEqual, "Please specify your occasional medications")
			})
		})
	})
}

func TestAssess(t *testing.T) {
	Convey("Given a valid healthy form", t, func() {
		a, err := fitness.Assess(healthyForm())

		Convey("Then the athlete is cleared with a normal BMI", func() {
			So(err, ShouldBeNil)
			So(a.IsBlocked, ShouldBeFalse)
			So(a.BlockingReasons, ShouldBeEmpty)
			So(a.BMI, ShouldEqual, 22.9)
			So(a.BMICategory, ShouldEqual, fitness.Normal)
			So(a.Contact, ShouldBeNil)
			So(fitness.Score(a), ShouldEqual, 100)
		})
	})

	Convey("Given a form with several concerns", t, func() {
		f := healthyForm()
		f.ChronicDisease = fitness.Yes
		f.ChronicDiseaseDetails = "Asthma"
		f.Stress = fitness.StressOften
		f.Medications = fitness.MedicationsDaily
		f.MedicationDetails = "Inhaler"

		a, err := fitness.Assess(f)

		Convey("Then every triggered rule adds its reason", func() {
			So(err, ShouldBeNil)
			So(a.IsBlocked, ShouldBeTrue)
			So(a.BlockingReasons, ShouldResemble, []string{
				fitness.ReasonChronicDisease,
				fitness.ReasonStress,
				fitness.ReasonMedications,
			})
			So(a.NextSteps, ShouldHaveLength, 4)
			So(a.Contact.Email, ShouldContainSubstring, "medical@teamsankalp.in")
			So(fitness.Score(a), ShouldEqual, 0)
		})
	})

	Convey("Given a form with field errors", t, func() {
		f := healthyForm()
		f.Injury = fitness.InjuryRecent

		_, err := fitness.Assess(f)

		Convey("Then no assessment is produced", func() {
			So(errors.Is(err, fitness.ErrInvalidForm), ShouldBeTrue)
			var fe fitness.FieldErrors
			So(errors.As(err, &fe), ShouldBeTrue)
			So(fe["injuryDetails"], ShouldEqual, "Please specify your recent injury")
		})
	})
}

func TestReasons(t *testing.T) {
	cases := []struct {
		name   string
		edit   func(f *fitness.Form)
		reason string
	}{
		{"chronic disease", func(f *fitness.Form) {
			f.ChronicDisease, f.ChronicDiseaseDetails = fitness.Yes, "Diabetes"
		}, fitness.ReasonChronicDisease},
		{"recent injury", func(f *fitness.Form) {
			f.Injury, f.InjuryDetails = fitness.InjuryRecent, "ACL tear"
		}, fitness.ReasonRecentInjury},
		{"regular substances", func(f *fitness.Form) {
			f.Substances = fitness.SubstancesRegularly
		}, fitness.ReasonSubstances},
		{"frequent stress", func(f *fitness.Form) {
			f.Stress = fitness.StressOften
		}, fitness.ReasonStress},
		{"daily medications", func(f *fitness.Form) {
			f.Medications, f.MedicationDetails = fitness.MedicationsDaily, "Insulin"
		}, fitness.ReasonMedications},
		{"past injury", func(f *fitness.Form) {
			f.Injury, f.InjuryDetails = fitness.InjuryPast, "Sprained ankle"
		}, ""},
		{"occasional substances", func(f *fitness.Form) {
			f.Substances = fitness.SubstancesOccasionally
		}, ""},
		{"occasional medications", func(f *fitness.Form) {
			f.Medications, f.MedicationDetails = fitness.MedicationsOccasionally, "Antihistamine"
		}, ""},
		{"stress sometimes", func(f *fitness.Form) {
			f.Stress = fitness.StressSometimes
		}, ""},
		{"stress never", func(f *fitness.Form) {
			f.Stress = fitness.StressNever
		}, ""},
	}

	Convey("Given forms that differ from a healthy one in a single answer", t, func() {
		for _, tc := range cases {
			Convey("When the answer is "+tc.name, func() {
				f := healthyForm()
				tc.edit(&f)
				a, err := fitness.Assess(f)
				So(err, ShouldBeNil)

				if tc.reason == "" {
					Convey("Then nothing blocks the athlete", func() {
						So(a.BlockingReasons, ShouldBeEmpty)
						So(a.IsBlocked, ShouldBeFalse)
					})
				} else {
					Convey("Then exactly its reason is listed", func() {
						So(a.BlockingReasons, ShouldResemble, []string{tc.reason})
						So(a.IsBlocked, ShouldBeTrue)
					})
				}
			})
		}
	})

	Convey("Given every yes-shaped answer that does not block at once", t, func() {
		f := healthyForm()
		for _, tc := range cases {
			if tc.reason == "" {
				tc.edit(&f)
			}
		}

		Convey("Then the reasons list stays empty", func() {
			So(fitness.Reasons(f), ShouldBeEmpty)
		})
	})

	Convey("Given every blocking answer at once", t, func() {
		f := healthyForm()
		for _, tc := range cases {
			if tc.reason != "" {
				tc.edit(&f)
			}
		}

		Convey("Then all five reasons are listed in rule order", func() {
			So(fitness.Reasons(f), ShouldResemble, []string{
				fitness.ReasonChronicDisease,
				fitness.ReasonRecentInjury,
				fitness.ReasonSubstances,
				fitness.ReasonStress,
				fitness.ReasonMedications,
			})
		})
	})
}

func TestBMI(t *testing.T) {
	Convey("Given height and weight", t, func() {
		Convey("Then BMI is rounded to one decimal", func() {
			So(fitness.BMI(180, 81), ShouldEqual, 25.0)
			So(fitness.BMI(160, 40), ShouldEqual, 15.6)
		})

		Convey("Then categories follow the usual cut-offs", func() {
			So(fitness.Category(18.4), ShouldEqual, fitness.Underweight)
			So(fitness.Category(18.5), ShouldEqual, fitness.Normal)
			So(fitness.Category(25), ShouldEqual, fitness.Overweight)
			So(fitness.Category(30), ShouldEqual, fitness.Obese)
		})
	})
}
