package service_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	service "github.com/okian/swipe/internal/app"
	"github.com/okian/swipe/internal/domain/model"
	"github.com/okian/swipe/internal/domain/swipe"
	. "github.com/smartystreets/goconvey/convey"
)

type snapshot = swipe.Snapshot

type actionResult struct {
	Accepted bool     `json:"accepted"`
	Outcome  string   `json:"outcome"`
	Frame    snapshot `json:"frame"`
}

type recommendationList struct {
	Version uint64 `json:"version"`
	Entries []struct {
		Rank int    `json:"rank"`
		Name string `json:"name"`
	} `json:"entries"`
}

func testCatalog() []model.Candidate {
	out := make([]model.Candidate, 0, 8)
	for i := 0; i < 8; i++ {
		out = append(out, model.Candidate{
			Name: fmt.Sprintf("City-%d", i),
			Categories: []model.Category{
				{Category: "Food", Value: float64(1 + i)},
				{Category: "Nature", Value: float64(10 - i)},
				{Category: "Culture", Value: 5},
			},
		})
	}
	return out
}

// waitFor polls the engine until ok holds or the test times out.
func waitFor(t *testing.T, svc *service.Service, ok func(snapshot) bool) snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := svc.Snapshot(context.Background())
		if err == nil && ok(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not reached; last state %q err %v", snap.State, err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func post(t *testing.T, base, path, body string) actionResult {
	t.Helper()
	resp, err := http.Post(base+path, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("post %s: status %d: %s", path, resp.StatusCode, raw)
	}
	var out actionResult
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	return out
}

func getJSON(t *testing.T, base, path string, v any) {
	t.Helper()
	resp, err := http.Get(base + path)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
}

func startService(t *testing.T, opts ...service.Option) (*service.Service, string) {
	t.Helper()
	base := []service.Option{
		service.WithCatalog(testCatalog()),
		service.WithFrameRate(120),
		service.WithSettleMax(300 * time.Millisecond),
	}
	svc := service.New(append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(svc.Stop)
	h, err := svc.Handler()
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	waitFor(t, svc, func(s snapshot) bool { return s.State == "presenting" })
	return svc, srv.URL
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a running service over the in-memory catalog", t, func() {
		svc, url := startService(t)

		Convey("When a card is dragged past the commit threshold", func() {
			first := waitFor(t, svc, func(s snapshot) bool { return s.State == "presenting" })
			So(post(t, url, "/v1/gesture/start", `{"x":100,"y":300,"t":0}`).Accepted, ShouldBeTrue)
			moved := post(t, url, "/v1/gesture/move", `{"x":170,"y":305,"t":40}`)
			So(moved.Frame.Lean, ShouldEqual, "positive")
			end := post(t, url, "/v1/gesture/end", `{"x":260,"y":310,"t":80}`)

			Convey("Then it is accepted and the next card follows once the exit settles", func() {
				So(end.Outcome, ShouldEqual, "accept")
				So(end.Frame.State, ShouldEqual, "submitting")
				next := waitFor(t, svc, func(s snapshot) bool {
					return s.State == "presenting" && s.Card != nil && s.Card.Name != first.Card.Name
				})
				So(next.Progress.Decided, ShouldEqual, 1)
				acked := waitFor(t, svc, func(s snapshot) bool { return s.Votes.Acknowledged == 1 })
				So(acked.Votes.Failed, ShouldEqual, 0)
			})
		})

		Convey("When a card is released where it was pressed", func() {
			post(t, url, "/v1/gesture/start", `{"x":100,"y":300,"t":0}`)
			end := post(t, url, "/v1/gesture/end", `{"x":102,"y":301,"t":90}`)

			Convey("Then it is a click that opens the detail view", func() {
				So(end.Outcome, ShouldEqual, "cancel")
				So(end.Frame.Detail, ShouldNotBeNil)
				So(len(end.Frame.Detail.Categories), ShouldEqual, 3)
				So(end.Frame.Progress.Decided, ShouldEqual, 0)

				Convey("And gestures wait until it is closed", func() {
					So(post(t, url, "/v1/gesture/start", `{"x":0,"y":0,"t":100}`).Accepted, ShouldBeFalse)
					closed := post(t, url, "/v1/detail/close", "")
					So(closed.Accepted, ShouldBeTrue)
					So(closed.Frame.Detail, ShouldBeNil)
					So(post(t, url, "/v1/gesture/start", `{"x":0,"y":0,"t":200}`).Accepted, ShouldBeTrue)
				})
			})
		})

		Convey("When three cards are liked", func() {
			voted := map[string]bool{}
			for len(voted) < 3 {
				snap := waitFor(t, svc, func(s snapshot) bool { return s.State == "presenting" })
				res := post(t, url, "/v1/like", "")
				if res.Accepted {
					voted[snap.Card.Name] = true
				}
			}
			waitFor(t, svc, func(s snapshot) bool { return s.Votes.Acknowledged == 3 })

			Convey("Then recommendations refresh without the voted candidates", func() {
				var recs recommendationList
				deadline := time.Now().Add(5 * time.Second)
				for {
					getJSON(t, url, "/v1/recommendations", &recs)
					if len(recs.Entries) == 5 || time.Now().After(deadline) {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				So(recs.Version, ShouldBeGreaterThanOrEqualTo, 1)
				So(len(recs.Entries), ShouldEqual, 5)
				for i, e := range recs.Entries {
					So(voted[e.Name], ShouldBeFalse)
					So(e.Rank, ShouldEqual, i+1)
				}
			})
		})

		Convey("When every card is decided with the buttons", func() {
			seen := map[string]int{}
			decided := 0
			deadline := time.Now().Add(10 * time.Second)
			for time.Now().Before(deadline) {
				snap, err := svc.Snapshot(context.Background())
				So(err, ShouldBeNil)
				if snap.State == "exhausted" {
					break
				}
				if snap.State != "presenting" {
					time.Sleep(5 * time.Millisecond)
					continue
				}
				path := "/v1/like"
				if decided%2 == 1 {
					path = "/v1/dislike"
				}
				if res := post(t, url, path, ""); res.Accepted {
					seen[snap.Card.Name]++
					decided++
				}
			}

			Convey("Then each candidate was presented once and every vote counted", func() {
				So(decided, ShouldEqual, 8)
				So(len(seen), ShouldEqual, 8)
				for _, n := range seen {
					So(n, ShouldEqual, 1)
				}
				final := waitFor(t, svc, func(s snapshot) bool { return s.Votes.Acknowledged == 8 })
				So(final.State, ShouldEqual, "exhausted")
				So(final.Progress.Complete, ShouldBeTrue)
				So(final.Card, ShouldBeNil)
			})

			Convey("And a reset starts over from an empty stream", func() {
				res := post(t, url, "/v1/reset", "")
				So(res.Accepted, ShouldBeTrue)
				final := waitFor(t, svc, func(s snapshot) bool { return s.State == "exhausted" })
				So(final.Progress.Decided, ShouldEqual, 0)
			})
		})
	})
}
