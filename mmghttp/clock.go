package mmghttp

import "time"

// Clock abstracts wall-clock access so the `timestamp` field every
// response carries (spec §6.1) can be pinned in a test instead of
// racing real time.
type Clock interface {
	NowMillis() int64
}

// systemClock is the default Clock, backed by time.Now.
type systemClock struct{}

func (systemClock) NowMillis() int64 { return time.Now().UnixMilli() }
