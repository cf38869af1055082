package events

import "time"

// MongoCommandStart is emitted when the driver sends a command.
type MongoCommandStart struct {
	RequestID  int64
	Database   string
	Collection string
	Command    string
}

// MongoCommandFinish is emitted when a command succeeds or fails.
type MongoCommandFinish struct {
	RequestID  int64
	Database   string
	Collection string
	Command    string
	Err        error
	Duration   time.Duration
}
