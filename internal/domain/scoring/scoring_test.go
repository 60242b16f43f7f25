package scoring_test

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/okian/livescore/internal/domain/model"
	scoring "github.com/okian/livescore/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("c-%d", n)
	}
}

func TestCatalog(t *testing.T) {
	Convey("Given a catalog with Innovation and Impact", t, func() {
		c := scoring.NewCatalog(scoring.WithIDGenerator(sequentialIDs()))
		innovation, err := c.Add("Innovation", 10)
		So(err, ShouldBeNil)
		_, err = c.Add("Impact", 10)
		So(err, ShouldBeNil)

		Convey("When listing", func() {
			list := c.List()

			Convey("Then criteria are ordered by name with generated ids", func() {
				So(list, ShouldResemble, []model.Criterion{
					{ID: "c-2", Name: "Impact", MaxScore: 10},
					{ID: "c-1", Name: "Innovation", MaxScore: 10},
				})
			})
		})

		Convey("When adding a duplicate name", func() {
			_, err := c.Add("Innovation", 5)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, scoring.ErrDuplicateCriterion), ShouldBeTrue)
				So(c.Len(), ShouldEqual, 2)
			})
		})

		Convey("When adding an invalid definition", func() {
			_, errZero := c.Add("Design", 0)
			_, errBlank := c.Add("  ", 3)

			Convey("Then both are validation errors", func() {
				So(errors.Is(errZero, scoring.ErrInvalidDefinition), ShouldBeTrue)
				So(errors.Is(errBlank, scoring.ErrInvalidDefinition), ShouldBeTrue)
			})
		})

		Convey("When validating a good submission", func() {
			err := c.Validate(map[string]int{"Innovation": 8, "Impact": 0})

			Convey("Then it passes", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When a value exceeds the maximum", func() {
			err := c.Validate(map[string]int{"Innovation": 11})

			Convey("Then it is out of range", func() {
				So(errors.Is(err, scoring.ErrOutOfRange), ShouldBeTrue)
			})
		})

		Convey("When a value is negative", func() {
			err := c.Validate(map[string]int{"Impact": -1})

			Convey("Then it is out of range", func() {
				So(errors.Is(err, scoring.ErrOutOfRange), ShouldBeTrue)
			})
		})

		Convey("When a key is unknown", func() {
			err := c.Validate(map[string]int{"Innovation": 3, "Style": 2})

			Convey("Then it is an invalid criterion", func() {
				So(errors.Is(err, scoring.ErrInvalidCriterion), ShouldBeTrue)
			})
		})

		Convey("When the map is empty", func() {
			So(errors.Is(c.Validate(nil), scoring.ErrEmptyScores), ShouldBeTrue)
		})

		Convey("When removing a criterion", func() {
			removed, err := c.Remove(innovation.ID)

			Convey("Then it is gone and new submissions may not reference it", func() {
				So(err, ShouldBeNil)
				So(removed.Name, ShouldEqual, "Innovation")
				_, ok := c.Lookup("Innovation")
				So(ok, ShouldBeFalse)
				So(errors.Is(c.Validate(map[string]int{"Innovation": 1}), scoring.ErrInvalidCriterion), ShouldBeTrue)
			})

			Convey("Then removing it again is not found", func() {
				_, err := c.Remove(innovation.ID)
				So(errors.Is(err, scoring.ErrCriterionNotFound), ShouldBeTrue)
			})
		})

		Convey("When hydrating with Put over an existing id", func() {
			c.Put(model.Criterion{ID: innovation.ID, Name: "Novelty", MaxScore: 5})

			Convey("Then the old name no longer resolves", func() {
				_, ok := c.Lookup("Innovation")
				So(ok, ShouldBeFalse)
				cr, ok := c.Lookup("Novelty")
				So(ok, ShouldBeTrue)
				So(cr.MaxScore, ShouldEqual, 5)
			})
		})

		Convey("When validating concurrently with mutations", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(2)
				go func(i int) {
					defer wg.Done()
					_, _ = c.Add(fmt.Sprintf("extra-%d", i), 3)
				}(i)
				go func() {
					defer wg.Done()
					_ = c.Validate(map[string]int{"Impact": 5})
				}()
			}
			wg.Wait()

			Convey("Then every add landed", func() {
				So(c.Len(), ShouldEqual, 52)
			})
		})
	})
}

func TestToIntegers(t *testing.T) {
	Convey("Given decoded numeric scores", t, func() {
		Convey("When every value is whole", func() {
			out, err := scoring.ToIntegers(map[string]float64{"A": 5, "B": 0})

			Convey("Then they convert exactly", func() {
				So(err, ShouldBeNil)
				So(out, ShouldResemble, map[string]int{"A": 5, "B": 0})
			})
		})

		Convey("When a value is fractional", func() {
			_, err := scoring.ToIntegers(map[string]float64{"A": 7.5})

			Convey("Then it is rejected as not an integer", func() {
				So(errors.Is(err, scoring.ErrNotInteger), ShouldBeTrue)
			})
		})

		Convey("When a value is not finite", func() {
			_, err := scoring.ToIntegers(map[string]float64{"A": math.Inf(1)})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, scoring.ErrNotInteger), ShouldBeTrue)
			})
		})
	})
}
