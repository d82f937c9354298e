package server

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// codeAllocator hands out fixed-width numeric room codes. It is not safe for
// concurrent use; the registry calls it under its write lock.
type codeAllocator struct {
	width    int
	attempts int
	space    int
	rng      *rand.Rand
}

func newCodeAllocator(width, attempts int, rng *rand.Rand) *codeAllocator {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>17|1))
	}
	space := 1
	for i := 0; i < width; i++ {
		space *= 10
	}
	return &codeAllocator{
		width:    width,
		attempts: attempts,
		space:    space,
		rng:      rng,
	}
}

// allocate draws random codes a bounded number of times, then falls back to a
// linear scan so it always finds a free code while one exists.
func (a *codeAllocator) allocate(taken func(code string) bool) (string, error) {
	for i := 0; i < a.attempts; i++ {
		code := a.format(a.rng.IntN(a.space))
		if !taken(code) {
			return code, nil
		}
	}
	for n := 0; n < a.space; n++ {
		code := a.format(n)
		if !taken(code) {
			return code, nil
		}
	}
	return "", ErrCapacityExhausted
}

func (a *codeAllocator) format(n int) string {
	return fmt.Sprintf("%0*d", a.width, n)
}

// normalize left-pads numeric input to the code width. Anything else is
// rejected so it can never match a room.
func (a *codeAllocator) normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > a.width {
		return "", false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return strings.Repeat("0", a.width-len(raw)) + raw, true
}
