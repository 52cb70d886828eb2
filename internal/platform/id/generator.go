package id

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator creates opaque ids for websocket connections and locally
// authored matches.
type Generator interface {
	NewID(prefix string) string
}

type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator {
	return UUIDGenerator{}
}

// NewID returns prefix followed by a random v4 uuid.
func (UUIDGenerator) NewID(prefix string) string {
	return prefix + uuid.NewString()
}

// SequenceGenerator hands out prefix1, prefix2, ... and is safe for
// concurrent use.
type SequenceGenerator struct {
	next atomic.Uint64
}

func (g *SequenceGenerator) NewID(prefix string) string {
	return prefix + strconv.FormatUint(g.next.Add(1), 10)
}
