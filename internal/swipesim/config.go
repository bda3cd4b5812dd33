package swipesim

import "time"

// Config holds configuration for a simulated evaluation run
type Config struct {
	BaseURL      string        // Base URL of the service
	Decisions    int           // Decisions to make; 0 runs until the stream is exhausted
	ClickEvery   int           // Open the detail view on every n-th card; 0 never clicks
	Timeout      time.Duration // HTTP request timeout
	SettleWait   time.Duration // How long to wait for the next card or the vote drain
	PollInterval time.Duration // Frame polling interval
	Reset        bool          // Reset the evaluation before driving it
	OutputFile   string        // Output file for the run report
	LogFile      string        // Log file for test output
	Verbose      bool          // Enable verbose logging
}

// Category is one rated aspect of a candidate.
type Category struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
	Descr    string  `json:"descr"`
}

// Card is the candidate on screen.
type Card struct {
	Name          string     `json:"name"`
	TopCategories []Category `json:"top_categories"`
}

// Detail is the expanded view opened by a click.
type Detail struct {
	Name       string     `json:"name"`
	Categories []Category `json:"categories"`
}

// VoteStats mirrors the engine's vote counters.
type VoteStats struct {
	Submitted     int `json:"submitted"`
	Acknowledged  int `json:"acknowledged"`
	Failed        int `json:"failed"`
	InFlight      int `json:"in_flight"`
	AwaitingRetry int `json:"awaiting_retry"`
	Refreshes     int `json:"refreshes"`
}

// Banner is a non-blocking error notice.
type Banner struct {
	Message   string `json:"message"`
	Candidate string `json:"candidate"`
	Retryable bool   `json:"retryable"`
}

// Frame is the subset of the engine frame the simulator reads.
type Frame struct {
	Frame      uint64    `json:"frame"`
	Generation uint64    `json:"generation"`
	State      string    `json:"state"`
	Lean       string    `json:"lean"`
	Animating  bool      `json:"animating"`
	Card       *Card     `json:"card,omitempty"`
	Detail     *Detail   `json:"detail,omitempty"`
	Error      string    `json:"error,omitempty"`
	CanRetry   bool      `json:"can_retry"`
	Banner     *Banner   `json:"banner,omitempty"`
	Pending    int       `json:"pending"`
	Votes      VoteStats `json:"votes"`
}

// ActionResponse is the reply to every input the simulator sends.
type ActionResponse struct {
	Accepted bool   `json:"accepted"`
	Outcome  string `json:"outcome,omitempty"`
	Frame    Frame  `json:"frame"`
}

// Point is one pointer sample.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T int64   `json:"t"`
}

// Entry is one ranked recommendation
type Entry struct {
	Rank       int        `json:"rank"`
	Name       string     `json:"name"`
	Categories []Category `json:"categories"`
}

// Recommendations is the recommendation list reply.
type Recommendations struct {
	Version uint64  `json:"version"`
	Entries []Entry `json:"entries"`
}

// Decision is one committed decision made by the simulator.
type Decision struct {
	Candidate string `json:"candidate"`
	Outcome   string `json:"outcome"`
	Input     string `json:"input"`
}

// Report is the record of one run written to the output file.
type Report struct {
	RunID           string     `json:"run_id"`
	BaseURL         string     `json:"base_url"`
	Presented       []string   `json:"presented"`
	Decisions       []Decision `json:"decisions"`
	FinalState      string     `json:"final_state"`
	Votes           VoteStats  `json:"votes"`
	Recommendations []Entry    `json:"recommendations"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
}

// Stats holds test statistics
type Stats struct {
	CardsPresented  int
	DecisionsMade   int
	Accepts         int
	Rejects         int
	Clicks          int
	InputsRejected  int
	Retries         int
	VotesAcked      int
	VotesFailed     int
	Recommendations int
	DuplicateCards  int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
