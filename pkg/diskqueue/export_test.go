package diskqueue

// WithClock pins the time stamped on enqueued jobs.
var WithClock = withClock
