package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/apas/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestVideoEnvelope(t *testing.T) {
	Convey("Given a failed video envelope", t, func() {
		env := types.VideoEnvelope{Success: false, Message: "No file uploaded"}

		Convey("When it is encoded", func() {
			raw, err := json.Marshal(env)
			So(err, ShouldBeNil)

			Convey("Then data is omitted and success is explicit", func() {
				So(string(raw), ShouldEqual, `{"success":false,"message":"No file uploaded"}`)
			})
		})
	})
}

func TestErrorBody(t *testing.T) {
	Convey("Given an error body without field errors", t, func() {
		raw, err := json.Marshal(types.ErrorBody{Code: "not_found", Message: "athlete not found"})
		So(err, ShouldBeNil)

		Convey("Then fields are omitted", func() {
			So(string(raw), ShouldNotContainSubstring, "fields")
		})
	})

	Convey("Given an error body with field errors", t, func() {
		raw, err := json.Marshal(types.ErrorBody{
			Code:    "invalid_form",
			Message: "invalid form",
			Fields:  map[string]string{"height": "Height is required"},
		})
		So(err, ShouldBeNil)

		Convey("Then each field message is present", func() {
			So(string(raw), ShouldContainSubstring, `"height":"Height is required"`)
		})
	})
}

func TestOTPChallenge(t *testing.T) {
	Convey("Given a challenge sent by SMS", t, func() {
		raw, err := json.Marshal(types.OTPChallenge{Phone: "9876543210"})
		So(err, ShouldBeNil)

		Convey("Then the code is not leaked", func() {
			So(string(raw), ShouldNotContainSubstring, "code")
		})
	})
}
