package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/apas/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("Then it starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When a key is claimed for the first time", func() {
			v, seen := d.Claim(ctx, "key-1", "job-1")

			Convey("Then it is recorded with its value", func() {
				So(seen, ShouldBeFalse)
				So(v, ShouldEqual, "job-1")
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a key is claimed twice", func() {
			d.Claim(ctx, "key-1", "job-1")
			v, seen := d.Claim(ctx, "key-1", "job-2")

			Convey("Then the first value wins", func() {
				So(seen, ShouldBeTrue)
				So(v, ShouldEqual, "job-1")
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a claimed key is released", func() {
			d.Claim(ctx, "key-1", "job-1")
			d.Release(ctx, "key-1")
			d.Release(ctx, "missing")

			Convey("Then it can be claimed again", func() {
				So(d.Size(), ShouldEqual, 0)
				v, seen := d.Claim(ctx, "key-1", "job-3")
				So(seen, ShouldBeFalse)
				So(v, ShouldEqual, "job-3")
			})
		})
	})
}

func TestBoundedDeduper(t *testing.T) {
	Convey("Given a deduper bounded to three keys", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When a fourth key is claimed", func() {
			for i := 1; i <= 4; i++ {
				d.Claim(ctx, fmt.Sprintf("k%d", i), fmt.Sprintf("v%d", i))
			}

			Convey("Then the oldest key is evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				_, seen := d.Claim(ctx, "k4", "x")
				So(seen, ShouldBeTrue)
				_, seen = d.Claim(ctx, "k2", "x")
				So(seen, ShouldBeTrue)
				_, seen = d.Claim(ctx, "k1", "x")
				So(seen, ShouldBeFalse)
			})
		})

		Convey("When a middle key is released before eviction", func() {
			d.Claim(ctx, "k1", "v1")
			d.Claim(ctx, "k2", "v2")
			d.Claim(ctx, "k3", "v3")
			d.Release(ctx, "k2")
			d.Claim(ctx, "k4", "v4")
			d.Claim(ctx, "k5", "v5")

			Convey("Then eviction still removes the oldest survivor", func() {
				So(d.Size(), ShouldEqual, 3)
				_, seen := d.Claim(ctx, "k3", "x")
				So(seen, ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

		Convey("Then nothing is evicted", func() {
			for i := 0; i < 500; i++ {
				d.Claim(context.Background(), fmt.Sprintf("k%d", i), "v")
			}
			So(d.Size(), ShouldEqual, 500)
		})
	})
}

func TestConcurrentClaims(t *testing.T) {
	Convey("Given many goroutines claiming the same key", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0

		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, seen := d.Claim(context.Background(), "shared", fmt.Sprint(i)); !seen {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		Convey("Then exactly one claim wins", func() {
			So(winners, ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 1)
		})
	})
}
