package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/internal/domain/pipeline"
)

func demoUser(id, first, aadhaar, gmail string) model.User {
	return model.User{
		ID: id, FirstName: first, LastName: "Sharma", Aadhaar: aadhaar, Gmail: gmail,
		Phone: "9876543210", State: "Maharashtra", District: "Mumbai", City: "Mumbai", Pincode: "400001",
		RegisteredAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

// testUserStore runs the behaviour every UserStore shares.
func testUserStore(store UserStore) {
	ctx := context.Background()

	Convey("When two users register", func() {
		So(store.Create(ctx, demoUser("u1", "Rahul", "123456789012", "rahul.sharma@gmail.com")), ShouldBeNil)
		So(store.Create(ctx, demoUser("u2", "rahul", "987654321098", "")), ShouldBeNil)

		Convey("Then both are counted and retrievable", func() {
			n, err := store.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
			u, err := store.Get(ctx, "u1")
			So(err, ShouldBeNil)
			So(u.FullName(), ShouldEqual, "Rahul Sharma")
		})

		Convey("Then a repeated aadhaar is a conflict", func() {
			err := store.Create(ctx, demoUser("u3", "Amit", "123456789012", ""))
			So(errors.Is(err, ErrConflict), ShouldBeTrue)
		})

		Convey("Then a repeated gmail is a conflict regardless of case", func() {
			err := store.Create(ctx, demoUser("u3", "Amit", "111122223333", "Rahul.Sharma@gmail.com"))
			So(errors.Is(err, ErrConflict), ShouldBeTrue)
		})

		Convey("Then empty gmails never collide", func() {
			So(store.Create(ctx, demoUser("u3", "Amit", "111122223333", "")), ShouldBeNil)
		})

		Convey("Then lookup by aadhaar reports presence", func() {
			u, ok, err := store.ByAadhaar(ctx, "987654321098")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(u.ID, ShouldEqual, "u2")

			_, ok, err = store.ByAadhaar(ctx, "000000000000")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("Then first names match case-insensitively", func() {
			users, err := store.ByFirstName(ctx, " RAHUL ")
			So(err, ShouldBeNil)
			So(len(users), ShouldEqual, 2)
		})

		Convey("Then updates keep the identifiers", func() {
			u, _ := store.Get(ctx, "u1")
			u.PhoneVerified = true
			u.Aadhaar = "999999999999"
			So(store.Update(ctx, u), ShouldBeNil)
			got, _ := store.Get(ctx, "u1")
			So(got.PhoneVerified, ShouldBeTrue)
			So(got.Aadhaar, ShouldEqual, "123456789012")
		})
	})

	Convey("When an unknown user is read or updated", func() {
		_, err := store.Get(ctx, "ghost")
		So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		err = store.Update(ctx, model.User{ID: "ghost"})
		So(errors.Is(err, ErrNotFound), ShouldBeTrue)
	})
}

func TestMemoryUsers(t *testing.T) {
	Convey("Given an empty user store", t, func() {
		testUserStore(NewMemoryUsers())
	})
}

func TestMemoryAthletes(t *testing.T) {
	Convey("Given a roster with two athletes", t, func() {
		ctx := context.Background()
		store := NewMemoryAthletes()
		So(store.Upsert(ctx, model.Athlete{ID: "ATH002", FirstName: "Priya", ValidationStatus: model.StatusValidated}), ShouldBeNil)
		So(store.Upsert(ctx, model.Athlete{ID: "ATH001", FirstName: "Arjun", ValidationStatus: model.StatusPending}), ShouldBeNil)

		Convey("When listing", func() {
			list, err := store.List(ctx)
			So(err, ShouldBeNil)

			Convey("Then insertion order is preserved", func() {
				So(len(list), ShouldEqual, 2)
				So(list[0].ID, ShouldEqual, "ATH002")
				So(list[1].ID, ShouldEqual, "ATH001")
			})
		})

		Convey("When an existing athlete is upserted", func() {
			So(store.Upsert(ctx, model.Athlete{ID: "ATH002", FirstName: "Priya", OverallScore: 85}), ShouldBeNil)
			list, _ := store.List(ctx)

			Convey("Then it is replaced in place", func() {
				So(len(list), ShouldEqual, 2)
				So(list[0].OverallScore, ShouldEqual, 85)
			})
		})

		Convey("When a status is changed", func() {
			a, err := store.SetStatus(ctx, "ATH001", model.StatusRejected)
			So(err, ShouldBeNil)
			So(a.ValidationStatus, ShouldEqual, model.StatusRejected)

			_, err = store.SetStatus(ctx, "ATH999", model.StatusRejected)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("When an athlete has no id", func() {
			err := store.Upsert(ctx, model.Athlete{})
			So(errors.Is(err, ErrInvalidEntry), ShouldBeTrue)
		})
	})
}

func TestMemorySelections(t *testing.T) {
	Convey("Given a selection store", t, func() {
		ctx := context.Background()
		store := NewMemorySelections()

		_, err := store.Get(ctx, "u1")
		So(errors.Is(err, ErrNotFound), ShouldBeTrue)

		Convey("When a user selects twice", func() {
			So(store.Put(ctx, model.Selection{UserID: "u1", SportID: "tennis", SkillLevel: model.SkillBeginner}), ShouldBeNil)
			So(store.Put(ctx, model.Selection{UserID: "u1", SportID: "boxing", SkillLevel: model.SkillAdvanced}), ShouldBeNil)

			Convey("Then only the latest selection is active", func() {
				sel, err := store.Get(ctx, "u1")
				So(err, ShouldBeNil)
				So(sel.SportID, ShouldEqual, "boxing")
				So(sel.SkillLevel, ShouldEqual, model.SkillAdvanced)
			})
		})
	})
}

// testProgressStore runs the behaviour every ProgressStore shares. userID must exist.
func testProgressStore(store ProgressStore, userID string) {
	ctx := context.Background()

	Convey("When progress is applied for a user without a row", func() {
		p, err := store.Apply(ctx, userID, func(cur model.Progress) (model.Progress, error) {
			So(cur.Stage, ShouldEqual, pipeline.Stage(""))
			cur.Stage = pipeline.Registered
			cur.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
			return cur, nil
		})
		So(err, ShouldBeNil)
		So(p.Stage, ShouldEqual, pipeline.Registered)

		Convey("Then Get returns it", func() {
			got, err := store.Get(ctx, userID)
			So(err, ShouldBeNil)
			So(got.Stage, ShouldEqual, pipeline.Registered)
		})

		Convey("Then a failing fn leaves the row untouched", func() {
			boom := errors.New("boom")
			_, err := store.Apply(ctx, userID, func(cur model.Progress) (model.Progress, error) {
				cur.Stage = pipeline.QuizPassed
				return cur, boom
			})
			So(errors.Is(err, boom), ShouldBeTrue)
			got, _ := store.Get(ctx, userID)
			So(got.Stage, ShouldEqual, pipeline.Registered)
		})
	})

	Convey("When nothing was stored for a user", func() {
		_, err := store.Get(ctx, "nobody")
		So(errors.Is(err, ErrNotFound), ShouldBeTrue)
	})
}

func TestMemoryProgress(t *testing.T) {
	Convey("Given a progress store", t, func() {
		testProgressStore(NewMemoryProgress(), "u1")
	})

	Convey("Given concurrent transitions on one user", t, func() {
		ctx := context.Background()
		store := NewMemoryProgress()
		So(store.Put(ctx, model.Progress{UserID: "u1", Stage: pipeline.QuizInProgress}), ShouldBeNil)

		var wg sync.WaitGroup
		results := make(chan error, 10)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Apply(ctx, "u1", func(cur model.Progress) (model.Progress, error) {
					next, err := pipeline.Transition(cur.Stage, pipeline.PassQuiz)
					cur.Stage = next
					return cur, err
				})
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		Convey("Then exactly one transition wins", func() {
			ok := 0
			for err := range results {
				if err == nil {
					ok++
				} else {
					So(errors.Is(err, pipeline.ErrInvalidTransition), ShouldBeTrue)
				}
			}
			So(ok, ShouldEqual, 1)
		})
	})
}

func TestMemoryJobs(t *testing.T) {
	Convey("Given a pending job", t, func() {
		ctx := context.Background()
		store := NewMemoryJobs()
		So(store.Put(ctx, model.AnalysisJob{ID: "j1", Status: model.JobPending}), ShouldBeNil)

		Convey("When the id is reused", func() {
			err := store.Put(ctx, model.AnalysisJob{ID: "j1"})
			So(errors.Is(err, ErrConflict), ShouldBeTrue)
		})

		Convey("When a waiter blocks and the job completes", func() {
			done := make(chan model.AnalysisJob, 1)
			go func() {
				j, _ := store.Wait(ctx, "j1")
				done <- j
			}()
			_, err := store.Update(ctx, "j1", func(j *model.AnalysisJob) { j.Status = model.JobProcessing; j.Progress = 40 })
			So(err, ShouldBeNil)
			_, err = store.Update(ctx, "j1", func(j *model.AnalysisJob) { j.Status = model.JobCompleted; j.Progress = 100 })
			So(err, ShouldBeNil)

			Convey("Then the waiter sees the final state", func() {
				j := <-done
				So(j.Status, ShouldEqual, model.JobCompleted)
				So(j.Progress, ShouldEqual, 100)
			})

			Convey("Then finished jobs are frozen", func() {
				j, err := store.Update(ctx, "j1", func(j *model.AnalysisJob) { j.Status = model.JobFailed })
				So(err, ShouldBeNil)
				So(j.Status, ShouldEqual, model.JobCompleted)
			})
		})

		Convey("When the wait context ends first", func() {
			wctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()
			_, err := store.Wait(wctx, "j1")
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})

		Convey("When an unknown job is requested", func() {
			_, err := store.Get(ctx, "nope")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			_, err = store.Wait(ctx, "nope")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})
}
