package swipesim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/swipe/pkg/logger"
)

// errExhausted marks the end of the candidate stream.
var errExhausted = errors.New("candidate stream exhausted")

// input is one way of committing a decision.
type input int

const (
	inputLike input = iota
	inputDragRight
	inputDislike
	inputDragLeft
)

var inputNames = map[input]string{
	inputLike:      "like_button",
	inputDragRight: "drag_right",
	inputDislike:   "dislike_button",
	inputDragLeft:  "drag_left",
}

// script rotates through every input so each path is exercised.
func script(n int) input {
	return input(n % len(inputNames))
}

func (in input) String() string { return inputNames[in] }

// expected is the outcome the input should commit.
func (in input) expected() string {
	if in == inputLike || in == inputDragRight {
		return "accept"
	}
	return "reject"
}

// driver feeds scripted input to one engine and records what it saw.
type driver struct {
	client *HTTPClient
	config *Config
	stats  *Stats
	report *Report
	seen   map[string]bool
	clock  int64
}

func newDriver(client *HTTPClient, config *Config, stats *Stats, report *Report) *driver {
	return &driver{
		client: client,
		config: config,
		stats:  stats,
		report: report,
		seen:   make(map[string]bool),
	}
}

func (d *driver) frame(ctx context.Context) (Frame, error) {
	var f Frame
	err := d.client.getJSON(ctx, "/v1/frame", &f)
	return f, err
}

// nextCard polls until a card other than last is presented. It retries a
// failed load and returns errExhausted once the stream runs dry.
func (d *driver) nextCard(ctx context.Context, last string) (Frame, error) {
	deadline := time.Now().Add(d.config.SettleWait)
	retries := 0
	for {
		f, err := d.frame(ctx)
		if err != nil {
			return f, err
		}
		switch f.State {
		case StateExhausted:
			return f, errExhausted
		case StateError:
			if !f.CanRetry || retries >= MaxRetries {
				return f, fmt.Errorf("engine failed: %s", f.Error)
			}
			retries++
			d.stats.Retries++
			logger.Get().Warn(ctx, "engine in error, retrying", logger.String("error", f.Error), logger.Int("attempt", retries))
			if err := d.client.postJSON(ctx, "/v1/retry", nil, nil); err != nil {
				return f, err
			}
		case StatePresenting:
			if f.Card != nil && f.Card.Name != last && f.Detail == nil {
				d.presented(ctx, f.Card.Name)
				return f, nil
			}
		}
		if time.Now().After(deadline) {
			return f, fmt.Errorf("timed out waiting for the next card (state %s)", f.State)
		}
		if err := sleep(ctx, d.config.PollInterval); err != nil {
			return f, err
		}
	}
}

func (d *driver) presented(ctx context.Context, name string) {
	d.stats.CardsPresented++
	d.report.Presented = append(d.report.Presented, name)
	if d.seen[name] {
		d.stats.DuplicateCards++
		logger.Get().Warn(ctx, "candidate presented twice", logger.String("candidate", name))
		return
	}
	d.seen[name] = true
	if d.config.Verbose {
		logger.Get().Info(ctx, "card presented", logger.String("candidate", name))
	}
}

// drive makes decisions until the configured count is reached or the
// stream is exhausted. It returns the last frame it observed.
func (d *driver) drive(ctx context.Context) (Frame, error) {
	last := ""
	for n := 0; d.config.Decisions == 0 || n < d.config.Decisions; n++ {
		f, err := d.nextCard(ctx, last)
		if errors.Is(err, errExhausted) {
			logger.Get().Info(ctx, "stream exhausted", logger.Int("decisions", n))
			return f, nil
		}
		if err != nil {
			return f, err
		}
		name := f.Card.Name

		if d.config.ClickEvery > 0 && n%d.config.ClickEvery == 0 {
			if err := d.inspect(ctx, name); err != nil {
				return f, err
			}
		}

		in := script(n)
		if err := d.decide(ctx, name, in); err != nil {
			return f, err
		}
		last = name
	}
	return d.frame(ctx)
}

// inspect clicks the card, checks the detail view and closes it.
func (d *driver) inspect(ctx context.Context, name string) error {
	t := d.tick()
	at := Point{X: cardCenterX, Y: cardCenterY, T: t}
	if _, err := d.send(ctx, "/v1/gesture/start", at); err != nil {
		return err
	}
	at.X += 2
	at.T += sampleStepMs
	resp, err := d.send(ctx, "/v1/gesture/end", at)
	if err != nil {
		return err
	}
	if resp.Frame.Detail == nil || resp.Frame.Detail.Name != name {
		return fmt.Errorf("click on %s did not open its detail view", name)
	}
	d.stats.Clicks++

	var closed ActionResponse
	if err := d.client.postJSON(ctx, "/v1/detail/close", nil, &closed); err != nil {
		return err
	}
	if !closed.Accepted || closed.Frame.Detail != nil {
		return fmt.Errorf("detail view of %s did not close", name)
	}
	return nil
}

// decide commits one decision on name, retrying inputs the engine turns away.
func (d *driver) decide(ctx context.Context, name string, in input) error {
	for attempt := 0; ; attempt++ {
		outcome, err := d.commit(ctx, in)
		if err != nil {
			return err
		}
		if outcome == in.expected() {
			d.record(ctx, name, outcome, in)
			return nil
		}
		d.stats.InputsRejected++
		if attempt >= MaxRetries {
			return fmt.Errorf("%s on %s was not accepted (outcome %q)", in, name, outcome)
		}
		if err := sleep(ctx, d.config.PollInterval); err != nil {
			return err
		}
	}
}

func (d *driver) commit(ctx context.Context, in input) (string, error) {
	var resp ActionResponse
	switch in {
	case inputLike:
		if err := d.client.postJSON(ctx, "/v1/like", nil, &resp); err != nil {
			return "", err
		}
	case inputDislike:
		if err := d.client.postJSON(ctx, "/v1/dislike", nil, &resp); err != nil {
			return "", err
		}
	case inputDragRight:
		return d.drag(ctx, 1)
	case inputDragLeft:
		return d.drag(ctx, -1)
	}
	if !resp.Accepted {
		return "", nil
	}
	return resp.Outcome, nil
}

// drag moves the card dir*dragDistance px sideways in three samples.
func (d *driver) drag(ctx context.Context, dir float64) (string, error) {
	t := d.tick()
	samples := []struct {
		path string
		p    Point
	}{
		{"/v1/gesture/start", Point{X: cardCenterX, Y: cardCenterY, T: t}},
		{"/v1/gesture/move", Point{X: cardCenterX + dir*dragDistance/2, Y: cardCenterY + 5, T: t + sampleStepMs}},
		{"/v1/gesture/end", Point{X: cardCenterX + dir*dragDistance, Y: cardCenterY + 10, T: t + 2*sampleStepMs}},
	}
	var resp ActionResponse
	for i, s := range samples {
		r, err := d.send(ctx, s.path, s.p)
		if err != nil {
			return "", err
		}
		if i == 0 && !r.Accepted {
			return "", nil
		}
		resp = r
	}
	return resp.Outcome, nil
}

func (d *driver) send(ctx context.Context, path string, p Point) (ActionResponse, error) {
	var resp ActionResponse
	err := d.client.postJSON(ctx, path, p, &resp)
	return resp, err
}

func (d *driver) record(ctx context.Context, name, outcome string, in input) {
	d.stats.DecisionsMade++
	if outcome == "accept" {
		d.stats.Accepts++
	} else {
		d.stats.Rejects++
	}
	d.report.Decisions = append(d.report.Decisions, Decision{Candidate: name, Outcome: outcome, Input: in.String()})
	if d.config.Verbose {
		logger.Get().Info(ctx, "decision committed",
			logger.String("candidate", name),
			logger.String("outcome", outcome),
			logger.String("input", in.String()))
	}
}

// tick advances the pointer clock so every gesture starts later than the last.
func (d *driver) tick() int64 {
	d.clock += 1000
	return d.clock
}

// waitForVotes polls until every decision's vote has been sent and none is
// in flight, and returns the final frame. A vote is only sent once its exit
// animation settles, so a frame still submitting is not drained yet. Votes
// parked for retry are resubmitted once.
func (d *driver) waitForVotes(ctx context.Context, baseline VoteStats) (Frame, error) {
	deadline := time.Now().Add(d.config.SettleWait)
	want := len(d.report.Decisions)
	retried := false
	for {
		f, err := d.frame(ctx)
		if err != nil {
			return f, err
		}
		votes := voteDelta(baseline, f.Votes, d.config.Reset)
		switch {
		case f.State == StateSubmitting || votes.Submitted < want:
			// the last exit is still settling
		case votes.AwaitingRetry > 0 && !retried:
			retried = true
			d.stats.Retries++
			if err := d.client.postJSON(ctx, "/v1/retry", nil, nil); err != nil {
				return f, err
			}
		case votes.InFlight == 0:
			return f, nil
		}
		if time.Now().After(deadline) {
			return f, fmt.Errorf("timed out draining votes (state %s, %d of %d sent, %d in flight)",
				f.State, votes.Submitted, want, votes.InFlight)
		}
		if err := sleep(ctx, d.config.PollInterval); err != nil {
			return f, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
