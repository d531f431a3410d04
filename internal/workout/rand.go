package workout

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Rand drives shuffling and instance id generation. Production code uses [NewRandomRand] for variety while tests
// inject [NewRand] with a fixed seed to assert exact selections. A Rand is not safe for concurrent use.
type Rand struct {
	rnd *rand.Rand
	src *rand.ChaCha8
}

// NewRand returns a deterministic source for seed.
func NewRand(seed uint64) *Rand {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	src := rand.NewChaCha8(key)
	return &Rand{rnd: rand.New(src), src: src}
}

// NewRandomRand returns a source seeded from the operating system.
func NewRandomRand() *Rand {
	var key [32]byte
	_, _ = crand.Read(key[:]) // crypto/rand.Read never returns an error.
	src := rand.NewChaCha8(key)
	return &Rand{rnd: rand.New(src), src: src}
}

func (r *Rand) shuffle(n int, swap func(i, j int)) {
	r.rnd.Shuffle(n, swap)
}

// instanceID returns a version 4 UUID drawn from the same stream as the shuffles.
func (r *Rand) instanceID() string {
	id, err := uuid.NewRandomFromReader(r.src)
	if err != nil {
		// ChaCha8 reads never fail.
		return uuid.NewString()
	}
	return id.String()
}
