package diskqueue

import (
	"time"

	"github.com/google/uuid"
)

// Job is one deferred invocation. A job is never modified once appended; it
// is removed by PopTask or appended again verbatim after a failure.
type Job struct {
	ID         uuid.UUID      `msgpack:"id"`
	Ref        string         `msgpack:"ref"`
	Args       []any          `msgpack:"args"`
	Kwargs     map[string]any `msgpack:"kwargs"`
	EnqueuedAt time.Time      `msgpack:"enqueued_at"`
}

// State is the persisted content of a queue file, head first.
type State []Job

// Arguments returns the arguments the handler of j is invoked with.
func (j Job) Arguments() Args {
	return Args{Positional: j.Args, Keyword: j.Kwargs}
}
