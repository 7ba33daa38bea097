package shm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyHandle(t *testing.T) {
	for name, h := range map[string]*Handle{"empty": Empty(), "nil": nil} {
		t.Run(name, func(t *testing.T) {
			assert.False(t, h.Present())
			assert.Nil(t, h.Region())
			for _, off := range []uint32{0, 1, Capacity - 1, Capacity, Capacity + 1, 0xFFFFFFFF} {
				assert.NotPanics(t, func() { h.StoreByte(off, 0xAB) })
				assert.Equal(t, byte(0), h.LoadByte(off), "offset %#x", off)
			}
			assert.NoError(t, h.Release())
			assert.NoError(t, h.Release())
			assert.False(t, h.Present())
		})
	}
}

func TestOutOfBoundsError(t *testing.T) {
	err := &OutOfBoundsError{Op: "read", Offset: 0x10400, Capacity: 0x10400}
	assert.Equal(t, "shm: index error in read byte, 0x10400 is out of bounds (capacity 0x10400)", err.Error())
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}
