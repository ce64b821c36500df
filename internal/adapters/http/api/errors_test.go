package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/okian/apas/internal/adapters/mq/queue"
	"github.com/okian/apas/internal/adapters/repository"
	"github.com/okian/apas/internal/domain/account"
	"github.com/okian/apas/internal/domain/fitness"
	"github.com/okian/apas/internal/domain/pipeline"
	"github.com/okian/apas/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOpError(t *testing.T) {
	Convey("Given an error wrapped with a kind", t, func() {
		cause := errors.New("boom")
		err := WrapKind("api.test", ErrBadRequest, cause)

		Convey("It should match both the kind and the cause", func() {
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.test: bad request: boom")
		})

		Convey("Wrap of nil should stay nil", func() {
			So(Wrap("api.test", nil), ShouldBeNil)
		})

		Convey("NewKind should carry only the kind", func() {
			k := NewKind("api.test", ErrForbidden)
			So(errors.Is(k, ErrForbidden), ShouldBeTrue)
			So(k.Error(), ShouldEqual, "api.test: forbidden")
		})
	})
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{account.FieldErrors{"aadhaar": "bad"}, http.StatusBadRequest, "invalid_form"},
		{fitness.FieldErrors{"height": "bad"}, http.StatusBadRequest, "invalid_form"},
		{fmt.Errorf("x: %w", types.ErrInvalidSkill), http.StatusBadRequest, "invalid_skill"},
		{account.ErrWrongPassword, http.StatusUnauthorized, "wrong_password"},
		{account.ErrNameUnknown, http.StatusNotFound, "unknown_user"},
		{fmt.Errorf("job 1: %w", repository.ErrNotFound), http.StatusNotFound, "not_found"},
		{account.ErrDuplicate, http.StatusConflict, "duplicate"},
		{fmt.Errorf("%w: token at a, server at b", pipeline.ErrStaleToken), http.StatusConflict, "stale_token"},
		{pipeline.ErrInvalidTransition, http.StatusConflict, "invalid_stage"},
		{queue.ErrFull, http.StatusTooManyRequests, "backpressure"},
		{types.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}

	Convey("Given domain errors", t, func() {
		for _, c := range cases {
			f := classify(c.err)
			So(f.status, ShouldEqual, c.status)
			So(f.code, ShouldEqual, c.code)
		}
	})

	Convey("Field errors should be exposed on the body", t, func() {
		err := fmt.Errorf("register: %w", account.FieldErrors{"state": "Please select a state"})
		So(fieldErrors(err), ShouldResemble, map[string]string{"state": "Please select a state"})
		So(fieldErrors(errors.New("plain")), ShouldBeNil)
	})
}
