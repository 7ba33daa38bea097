package shm

// Handle is a Region or nothing. The empty state is a normal value: loads return 0,
// stores are dropped and Present reports false. A nil *Handle is empty too.
type Handle struct {
	region *Region
}

// Empty returns a Handle holding no region.
func Empty() *Handle {
	return &Handle{}
}

// Present reports whether the Handle holds an attached region. It never touches
// mapped memory.
func (h *Handle) Present() bool {
	return h != nil && h.region != nil
}

// Region returns the held region, or nil.
func (h *Handle) Region() *Region {
	if h == nil {
		return nil
	}
	return h.region
}

// LoadByte returns the byte at off, or 0 when the Handle is empty. On a present
// Handle an offset at or past the capacity panics.
func (h *Handle) LoadByte(off uint32) byte {
	if !h.Present() {
		return 0
	}
	return h.region.LoadByte(off)
}

// StoreByte writes v at off; it does nothing when the Handle is empty. On a present
// Handle an offset at or past the capacity panics.
func (h *Handle) StoreByte(off uint32, v byte) {
	if !h.Present() {
		return
	}
	h.region.StoreByte(off, v)
}

// Release unmaps the held region and leaves the Handle empty. The shared object is
// never destroyed. Releasing an empty Handle does nothing.
func (h *Handle) Release() error {
	if !h.Present() {
		return nil
	}
	r := h.region
	h.region = nil
	return r.release()
}
