package engine

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so settlement decisions are deterministic
// in tests. Every operation samples the clock exactly once on entry; no
// wall-clock reads happen inside the engine.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts transfer reference generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
