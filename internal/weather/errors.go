package weather

import "fmt"

// ValidationError reports bad caller input. No cache or upstream access
// happens once it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamKind separates transport failures from upstream-reported ones.
type UpstreamKind int

const (
	// UpstreamTransport covers network errors, timeouts, undecodable bodies
	// and an open circuit breaker.
	UpstreamTransport UpstreamKind = iota
	// UpstreamApplication means the upstream answered with a non-success
	// application code, e.g. an unknown city.
	UpstreamApplication
)

func (k UpstreamKind) String() string {
	if k == UpstreamApplication {
		return "application"
	}
	return "transport"
}

// Feed names used in UpstreamError and metrics.
const (
	FeedCurrent  = "current"
	FeedForecast = "forecast"
)

// UpstreamError is returned when either upstream feed cannot be used.
type UpstreamError struct {
	Feed    string
	Kind    UpstreamKind
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s feed %s error: %s: %v", e.Feed, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s feed %s error: %s", e.Feed, e.Kind, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// GenericUpstreamMessage is the message used when the upstream did not
// provide one.
func GenericUpstreamMessage(feed string) string {
	if feed == FeedForecast {
		return "Unable to fetch forecast"
	}
	return "Unable to fetch current weather"
}
