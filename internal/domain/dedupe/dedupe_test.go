package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/cadence/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should start empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording submissions", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the id is new", func() {
				seen := d.SeenAndRecord(ctx, "s1/sub-1")

				Convey("Then it should return false and record it", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id was already seen", func() {
				d.SeenAndRecord(ctx, "s1/sub-1")
				seen := d.SeenAndRecord(ctx, "s1/sub-1")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id is unrecorded", func() {
				d.SeenAndRecord(ctx, "s1/sub-1")
				d.Unrecord(ctx, "s1/sub-1")

				Convey("Then it can be recorded again", func() {
					So(d.Size(), ShouldEqual, 0)
					So(d.SeenAndRecord(ctx, "s1/sub-1"), ShouldBeFalse)
				})
			})
		})

		Convey("When the bounded deduper is full", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for i := 0; i < 4; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("id-%d", i))
			}

			Convey("Then the oldest id is evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "id-3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "id-0"), ShouldBeFalse)
			})
		})

		Convey("When unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			for i := 0; i < 1000; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("id-%d", i))
			}

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, 1000)
				So(d.SeenAndRecord(ctx, "id-0"), ShouldBeTrue)
			})
		})

		Convey("When used concurrently", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(100))
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(ctx, "same") {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one caller records the id", func() {
				So(fresh, ShouldEqual, 1)
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}
