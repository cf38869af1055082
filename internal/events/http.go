package events

import (
	"net/http"
	"time"
)

// HTTPStart is published when the GraphQL handler receives a request. The
// context carries its request id.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is published once the response is written. Operations counts
// the GraphQL operations of the request; it is 0 when decoding failed.
type HTTPFinish struct {
	Request    *http.Request
	Status     int
	Operations int
	Duration   time.Duration
}
