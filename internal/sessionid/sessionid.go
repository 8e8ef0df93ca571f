// Package sessionid generates the opaque correlators that tie together all
// events of one build or one run. IDs are unique for the process lifetime:
// a strictly increasing atomic counter is combined with a coarse timestamp
// so uniqueness holds even under clock adjustments or rapid repeated calls.
package sessionid

import (
	"fmt"
	"sync/atomic"
	"time"
)

const (
	kindBuild = "build"
	kindRun   = "run"
)

var counter atomic.Uint64

// NewBuildID returns a fresh build session id.
func NewBuildID() string {
	return next(kindBuild)
}

// NewRunID returns a fresh run session id.
func NewRunID() string {
	return next(kindRun)
}

// next is safe for concurrent callers; the counter increment is the only
// shared state.
func next(kind string) string {
	n := counter.Add(1)
	return fmt.Sprintf("%s-%d-%d", kind, time.Now().Unix(), n)
}
