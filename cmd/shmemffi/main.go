// Command shmemffi builds the C shared library that lets a host application and
// its companion tool reach the shared region:
//
//	go build -buildmode=c-shared -o libshmem.so ./cmd/shmemffi
//
// ffi_create only attaches: until the host has published the region it returns a
// token for which ffi_is_real is false. A host that loads this library to create
// the region sets SHMREGION_FFI_POLICY=create-or-open.
//
// Tokens returned by ffi_create stay valid until passed to ffi_cleanup, exactly
// once. A failed create or an out of bounds access on an attached region panics,
// which terminates the host process.
package main

/*
#include <stdbool.h>
#include <stdint.h>
*/
import "C"

import (
	"github.com/srediag/shmregion/pkg/ffi"
)

//export ffi_create
func ffi_create() C.uintptr_t {
	return C.uintptr_t(ffi.Create())
}

//export ffi_read
func ffi_read(token C.uintptr_t, off C.uint32_t) C.uint8_t {
	return C.uint8_t(ffi.Read(ffi.Token(token), uint32(off)))
}

//export ffi_write
func ffi_write(token C.uintptr_t, off C.uint32_t, v C.uint8_t) {
	ffi.Write(ffi.Token(token), uint32(off), uint8(v))
}

//export ffi_is_real
func ffi_is_real(token C.uintptr_t) C.bool {
	return C.bool(ffi.IsPresent(ffi.Token(token)))
}

//export ffi_cleanup
func ffi_cleanup(token C.uintptr_t) {
	ffi.Release(ffi.Token(token))
}

func main() {}
