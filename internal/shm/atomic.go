package shm

import (
	"sync/atomic"
	"unsafe"
)

// Go has no 8-bit atomics, so every byte access goes through an atomic operation on
// the aligned 32-bit word that contains it. The compiler can neither cache nor drop
// these accesses, and a store never clobbers the other three bytes of the word, even
// when another process writes them concurrently. base must be 4-byte aligned.

var littleEndian = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()

func wordOf(base unsafe.Pointer, off uintptr) (*uint32, uint32) {
	word := (*uint32)(unsafe.Add(base, off&^3))
	shift := uint32(off&3) * 8
	if !littleEndian {
		shift = 24 - shift
	}
	return word, shift
}

// LoadByte reads the byte at base+off.
func LoadByte(base unsafe.Pointer, off uintptr) byte {
	word, shift := wordOf(base, off)
	return byte(atomic.LoadUint32(word) >> shift)
}

// StoreByte writes v at base+off, leaving neighbouring bytes untouched.
func StoreByte(base unsafe.Pointer, off uintptr, v byte) {
	word, shift := wordOf(base, off)
	mask := uint32(0xff) << shift
	for {
		old := atomic.LoadUint32(word)
		if atomic.CompareAndSwapUint32(word, old, old&^mask|uint32(v)<<shift) {
			return
		}
	}
}

// Aligned reports whether base can be used with LoadByte and StoreByte.
func Aligned(base unsafe.Pointer) bool {
	return uintptr(base)&3 == 0
}
