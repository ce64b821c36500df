package model_test

import (
	"testing"

	"github.com/okian/apas/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestValidationStatus(t *testing.T) {
	convey.Convey("Given validation statuses", t, func() {
		convey.Convey("Then the four review states are valid", func() {
			for _, s := range []model.ValidationStatus{
				model.StatusValidated, model.StatusPending, model.StatusRejected, model.StatusUnderReview,
			} {
				convey.So(s.Valid(), convey.ShouldBeTrue)
			}
		})

		convey.Convey("Then anything else is not", func() {
			convey.So(model.ValidationStatus("Approved").Valid(), convey.ShouldBeFalse)
			convey.So(model.ValidationStatus("").Valid(), convey.ShouldBeFalse)
		})
	})
}

func TestJobStatus(t *testing.T) {
	convey.Convey("Given job statuses", t, func() {
		convey.Convey("Then only completed and failed are final", func() {
			convey.So(model.JobCompleted.Done(), convey.ShouldBeTrue)
			convey.So(model.JobFailed.Done(), convey.ShouldBeTrue)
			convey.So(model.JobPending.Done(), convey.ShouldBeFalse)
			convey.So(model.JobProcessing.Done(), convey.ShouldBeFalse)
		})
	})
}

func TestUser(t *testing.T) {
	convey.Convey("Given a user", t, func() {
		u := model.User{FirstName: "Priya", LastName: "Patel"}

		convey.Convey("Then the full name joins both parts", func() {
			convey.So(u.FullName(), convey.ShouldEqual, "Priya Patel")
		})
	})
}

func TestVideoRef(t *testing.T) {
	convey.Convey("Given a stored video", t, func() {
		v := model.Video{Name: "jump.mp4", Key: "1_jump.mp4", Path: "/tmp/1_jump.mp4", Size: 42, ContentType: "video/mp4"}

		convey.Convey("Then the scorer input carries every field", func() {
			ref := v.Ref()
			convey.So(ref.Name, convey.ShouldEqual, "jump.mp4")
			convey.So(ref.Key, convey.ShouldEqual, "1_jump.mp4")
			convey.So(ref.Path, convey.ShouldEqual, "/tmp/1_jump.mp4")
			convey.So(ref.Size, convey.ShouldEqual, 42)
			convey.So(ref.ContentType, convey.ShouldEqual, "video/mp4")
		})
	})
}
