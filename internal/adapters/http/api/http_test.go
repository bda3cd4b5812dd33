package api_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/okian/swipe/internal/adapters/http/api"
	"github.com/okian/swipe/internal/adapters/repository"
	"github.com/okian/swipe/internal/domain/model"
	"github.com/okian/swipe/internal/domain/swipe"
	"github.com/okian/swipe/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeEngine records calls and reports them through its snapshot.
type fakeEngine struct {
	calls    []string
	points   []model.Point
	outcome  model.Outcome
	accept   bool
	decided  int
	onLoop   bool
	offLoop  int
	resetted int
}

func (f *fakeEngine) record(name string) {
	if !f.onLoop {
		f.offLoop++
	}
	f.calls = append(f.calls, name)
}

func (f *fakeEngine) StartGesture(p model.Point) bool {
	f.record("start")
	f.points = append(f.points, p)
	return f.accept
}

func (f *fakeEngine) UpdateGesture(p model.Point) bool {
	f.record("move")
	f.points = append(f.points, p)
	return f.accept
}

func (f *fakeEngine) EndGesture(p model.Point) model.Outcome {
	f.record("end")
	f.points = append(f.points, p)
	if f.outcome.IsCommit() {
		f.decided++
	}
	return f.outcome
}

func (f *fakeEngine) LikeButton() bool {
	f.record("like")
	f.decided++
	return f.accept
}

func (f *fakeEngine) DislikeButton() bool {
	f.record("dislike")
	f.decided++
	return f.accept
}

func (f *fakeEngine) CloseDetail() bool { f.record("close"); return f.accept }
func (f *fakeEngine) Retry() bool       { f.record("retry"); return f.accept }
func (f *fakeEngine) Reset()            { f.record("reset"); f.resetted++ }

func (f *fakeEngine) Snapshot() swipe.Snapshot {
	return swipe.Snapshot{
		State:    "presenting",
		Card:     &swipe.Card{Name: "Lisbon"},
		Progress: swipe.Progress{Decided: f.decided, Minimum: 5},
	}
}

// loopExecutor marks the engine as on-loop while fn runs.
type loopExecutor struct {
	engine *fakeEngine
	err    error
}

func (e *loopExecutor) Do(_ context.Context, fn func()) error {
	if e.err != nil {
		return e.err
	}
	e.engine.onLoop = true
	defer func() { e.engine.onLoop = false }()
	fn()
	return nil
}

type staticStats map[string]any

func (s staticStats) GetStats() map[string]any { return s }

type actionBody struct {
	Accepted bool           `json:"accepted"`
	Outcome  string         `json:"outcome"`
	Frame    swipe.Snapshot `json:"frame"`
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServerRoutes(t *testing.T) {
	Convey("Given an API server over a fake engine", t, func() {
		eng := &fakeEngine{accept: true}
		exec := &loopExecutor{engine: eng}
		store := repository.NewMemoryStore()
		srv := api.NewServer(eng, exec, store, staticStats{"votes_submitted": 3})
		h := srv.Routes()

		Convey("Health and stats are served", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"ok"`)

			w = do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "votes_submitted")
		})

		Convey("Metrics are exposed in the text format", func() {
			_ = do(h, http.MethodGet, "/healthz", "")
			w := do(h, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
		})

		Convey("The frame endpoint returns the engine snapshot", func() {
			w := do(h, http.MethodGet, "/v1/frame", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var snap swipe.Snapshot
			So(json.Unmarshal(w.Body.Bytes(), &snap), ShouldBeNil)
			So(snap.State, ShouldEqual, "presenting")
			So(snap.Card.Name, ShouldEqual, "Lisbon")
		})

		Convey("A drag is forwarded to the engine on the loop", func() {
			eng.outcome = model.Accept
			So(do(h, http.MethodPost, "/v1/gesture/start", `{"x":0,"y":0,"t":0}`).Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodPost, "/v1/gesture/move", `{"x":80,"y":4,"t":16}`).Code, ShouldEqual, http.StatusOK)
			w := do(h, http.MethodPost, "/v1/gesture/end", `{"x":160,"y":5,"t":32}`)
			So(w.Code, ShouldEqual, http.StatusOK)

			var body actionBody
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Accepted, ShouldBeTrue)
			So(body.Outcome, ShouldEqual, "accept")
			So(body.Frame.Progress.Decided, ShouldEqual, 1)

			So(eng.calls, ShouldResemble, []string{"start", "move", "end"})
			So(eng.points[2], ShouldResemble, model.Point{X: 160, Y: 5, TimestampMs: 32})
			So(eng.offLoop, ShouldEqual, 0)
		})

		Convey("A released drag under the threshold reports a cancel", func() {
			eng.outcome = model.Cancel
			w := do(h, http.MethodPost, "/v1/gesture/end", `{"x":3,"y":0,"t":5}`)
			var body actionBody
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Accepted, ShouldBeFalse)
			So(body.Outcome, ShouldEqual, "cancel")
		})

		Convey("Buttons commit through the engine", func() {
			w := do(h, http.MethodPost, "/v1/like", "")
			var body actionBody
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Outcome, ShouldEqual, "accept")

			w = do(h, http.MethodPost, "/v1/dislike", "")
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Outcome, ShouldEqual, "reject")
			So(body.Frame.Progress.Decided, ShouldEqual, 2)
			So(eng.calls, ShouldResemble, []string{"like", "dislike"})
		})

		Convey("A refused button press has no outcome", func() {
			eng.accept = false
			w := do(h, http.MethodPost, "/v1/like", "")
			var body actionBody
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Accepted, ShouldBeFalse)
			So(body.Outcome, ShouldBeEmpty)
		})

		Convey("Retry, reset and detail close reach the engine", func() {
			So(do(h, http.MethodPost, "/v1/retry", "").Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodPost, "/v1/reset", "").Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodPost, "/v1/detail/close", "").Code, ShouldEqual, http.StatusOK)
			So(eng.calls, ShouldResemble, []string{"retry", "reset", "close"})
			So(eng.resetted, ShouldEqual, 1)
		})

		Convey("Malformed pointer samples are rejected", func() {
			for _, body := range []string{`{"x":`, `{"x":1,"y":2,"t":3,"z":4}`, ``} {
				w := do(h, http.MethodPost, "/v1/gesture/start", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "bad_request")
			}
			So(eng.calls, ShouldBeEmpty)
		})

		Convey("Unknown routes and methods are refused", func() {
			So(do(h, http.MethodGet, "/v1/nope", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(h, http.MethodGet, "/v1/like", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})

	Convey("Given a stopped event loop", t, func() {
		eng := &fakeEngine{accept: true}
		exec := &loopExecutor{engine: eng, err: errors.New("loop stopped")}
		h := api.NewServer(eng, exec, repository.NewMemoryStore(), nil).Routes()

		Convey("Engine routes answer service unavailable", func() {
			w := do(h, http.MethodPost, "/v1/like", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(w.Body.String(), ShouldContainSubstring, "unavailable")
			So(eng.calls, ShouldBeEmpty)
		})

		Convey("Stats still answer", func() {
			So(do(h, http.MethodGet, "/stats", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestRecommendationsRoutes(t *testing.T) {
	Convey("Given a recommendation store", t, func() {
		ctx := context.Background()
		eng := &fakeEngine{}
		store := repository.NewMemoryStore()
		h := api.NewServer(eng, &loopExecutor{engine: eng}, store, nil).Routes()

		Convey("Before the first refresh the list is empty", func() {
			w := do(h, http.MethodGet, "/v1/recommendations", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"entries":[]`)
		})

		Convey("After a refresh entries come back in rank order", func() {
			_, err := store.Replace(ctx, []model.Candidate{
				{Name: "Rome", Categories: []model.Category{{Category: "Food", Value: 10}}},
				{Name: "Paris"},
				{Name: "Lisbon"},
			})
			So(err, ShouldBeNil)

			w := do(h, http.MethodGet, "/v1/recommendations?limit=2", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body struct {
				Version uint64             `json:"version"`
				Entries []repository.Entry `json:"entries"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Version, ShouldEqual, 1)
			So(len(body.Entries), ShouldEqual, 2)
			So(body.Entries[0].Name, ShouldEqual, "Rome")
			So(body.Entries[1].Rank, ShouldEqual, 2)

			Convey("And a single entry can be looked up", func() {
				w := do(h, http.MethodGet, "/v1/recommendations/Lisbon", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"rank":3`)

				w = do(h, http.MethodGet, "/v1/recommendations/Atlantis", "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("Invalid limits are rejected", func() {
			for _, q := range []string{"0", "abc", "-2"} {
				w := do(h, http.MethodGet, "/v1/recommendations?limit="+q, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
			w := do(h, http.MethodGet, "/v1/recommendations?limit=31", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(strings.Contains(w.Body.String(), "limit_exceeded"), ShouldBeTrue)
		})
	})
}
