package server

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeAllocatorDistinctUntilExhausted(t *testing.T) {
	alloc := newCodeAllocator(2, 5, rand.New(rand.NewPCG(7, 7)))
	taken := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := alloc.allocate(func(code string) bool { return taken[code] })
		require.NoError(t, err)
		require.Len(t, code, 2)
		require.False(t, taken[code], "code %s handed out twice", code)
		taken[code] = true
	}
	_, err := alloc.allocate(func(code string) bool { return taken[code] })
	assert.ErrorIs(t, err, ErrCapacityExhausted)
}

func TestCodeAllocatorFallsBackToScan(t *testing.T) {
	alloc := newCodeAllocator(1, 3, rand.New(rand.NewPCG(1, 1)))
	code, err := alloc.allocate(func(code string) bool { return code != "7" })
	require.NoError(t, err)
	assert.Equal(t, "7", code)
}

func TestCodeNormalize(t *testing.T) {
	alloc := newCodeAllocator(6, 5, nil)
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "42", want: "000042", ok: true},
		{raw: " 123456 ", want: "123456", ok: true},
		{raw: "1234567", ok: false},
		{raw: "A1B2C3", ok: false},
		{raw: "", ok: false},
	}
	for _, tc := range cases {
		got, ok := alloc.normalize(tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}
