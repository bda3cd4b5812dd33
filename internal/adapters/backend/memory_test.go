package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/swipe/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func testCatalog() []model.Candidate {
	mk := func(name string, food, beaches float64) model.Candidate {
		return model.Candidate{Name: name, Categories: []model.Category{
			{Category: "Food", Value: food},
			{Category: "Beaches", Value: beaches},
		}}
	}
	return []model.Candidate{
		mk("FoodTown", 10, 1),
		mk("BeachTown", 1, 10),
		mk("Mixed", 6, 6),
		mk("FoodVillage", 9, 2),
		mk("FoodTown", 0, 0),
	}
}

func TestMemoryBackend(t *testing.T) {
	Convey("Given an in-memory backend", t, func() {
		ctx := context.Background()
		m := NewMemory(testCatalog(), WithSeed(7))

		Convey("Duplicate catalog entries are dropped", func() {
			cands, err := m.FetchCandidates(ctx, 10)
			So(err, ShouldBeNil)
			So(len(cands), ShouldEqual, 4)
		})

		Convey("Unvoted candidates keep their place in line", func() {
			first, err := m.FetchCandidates(ctx, 2)
			So(err, ShouldBeNil)
			So(len(first), ShouldEqual, 2)
			again, err := m.FetchCandidates(ctx, 2)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, first)

			So(m.SubmitVote(ctx, model.Decision{CandidateID: first[0].Name, Outcome: model.Accept}), ShouldBeNil)
			next, err := m.FetchCandidates(ctx, 2)
			So(err, ShouldBeNil)
			So(next[0].Name, ShouldEqual, first[1].Name)
		})

		Convey("Voted candidates are not offered again", func() {
			So(m.SubmitVote(ctx, model.Decision{ID: "1", CandidateID: "FoodTown", Outcome: model.Accept}), ShouldBeNil)
			So(m.SubmitVote(ctx, model.Decision{ID: "2", CandidateID: "BeachTown", Outcome: model.Reject}), ShouldBeNil)
			So(m.SubmitVote(ctx, model.Decision{ID: "3", CandidateID: "Mixed", Outcome: model.Reject}), ShouldBeNil)
			So(m.SubmitVote(ctx, model.Decision{ID: "4", CandidateID: "FoodVillage", Outcome: model.Reject}), ShouldBeNil)
			cands, err := m.FetchCandidates(ctx, 10)
			So(err, ShouldBeNil)
			So(cands, ShouldBeEmpty)
			So(m.Votes(), ShouldEqual, 4)
		})

		Convey("Unknown candidates are rejected as invalid", func() {
			err := m.SubmitVote(ctx, model.Decision{CandidateID: "Atlantis", Outcome: model.Accept})
			So(errors.Is(err, ErrValidation), ShouldBeTrue)
		})

		Convey("A like pulls importance toward the candidate's ratings", func() {
			So(m.SubmitVote(ctx, model.Decision{ID: "a", CandidateID: "FoodTown", Outcome: model.Accept}), ShouldBeNil)
			imp := m.Importance()
			So(imp["Food"], ShouldAlmostEqual, 5.5, 1e-9)
			So(imp["Beaches"], ShouldAlmostEqual, 4.6, 1e-9)

			Convey("And a replayed idempotency key is not applied twice", func() {
				So(m.SubmitVote(ctx, model.Decision{ID: "a", CandidateID: "FoodTown", Outcome: model.Accept}), ShouldBeNil)
				So(m.Importance()["Food"], ShouldAlmostEqual, 5.5, 1e-9)
			})
		})

		Convey("Recommendations follow what was liked", func() {
			for i := 0; i < 20; i++ {
				So(m.SubmitVote(ctx, model.Decision{CandidateID: "FoodVillage", Outcome: model.Accept}), ShouldBeNil)
			}
			recs, err := m.FetchRecommendations(ctx, 10)
			So(err, ShouldBeNil)
			So(len(recs), ShouldEqual, 3)
			So(recs[0].Name, ShouldEqual, "FoodTown")
			So(recs[1].Name, ShouldEqual, "Mixed")
			So(recs[2].Name, ShouldEqual, "BeachTown")
			So(recs[0].Categories[0].Category, ShouldEqual, "Food")
		})

		Convey("Importance stays within bounds", func() {
			for i := 0; i < 200; i++ {
				So(m.SubmitVote(ctx, model.Decision{CandidateID: "BeachTown", Outcome: model.Reject}), ShouldBeNil)
			}
			for _, v := range m.Importance() {
				So(v, ShouldBeBetweenOrEqual, minImportance, maxImportance)
			}
		})
	})

	Convey("Given simulated latency", t, func() {
		m := NewMemory(testCatalog(), WithLatency(time.Second))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		Convey("A deadline turns into a network error", func() {
			_, err := m.FetchCandidates(ctx, 5)
			So(errors.Is(err, ErrNetwork), ShouldBeTrue)
		})
	})
}
