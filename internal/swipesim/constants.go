package swipesim

import "time"

// HTTP status code constants.
const (
	StatusOK = 200
)

// Engine states the simulator waits on.
const (
	StatePresenting = "presenting"
	StateSubmitting = "submitting"
	StateExhausted  = "exhausted"
	StateError      = "error"
)

// Runner configuration constants.
const (
	DefaultSettleWait    = 10 * time.Second
	DefaultPollInterval  = 10 * time.Millisecond
	MaxRetries           = 3
	RecommendationsLimit = 30
	PercentageMultiplier = 100
)

// Pointer script constants, in px and ms.
const (
	cardCenterX  = 250.0
	cardCenterY  = 300.0
	dragDistance = 160.0
	sampleStepMs = 40
)
