package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
)

const defaultReadLen = 64

func parseOffset(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q: %w", s, err)
	}
	return uint32(v), nil
}

func parseBytes(args []string) ([]byte, error) {
	p := make([]byte, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseUint(a, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte %q: %w", a, err)
		}
		p = append(p, byte(v))
	}
	return p, nil
}

func readCmd(e *Env) *Command {
	return &Command{
		Flags: newFlags("read"),
		Usage: "read <off> [n]",
		Short: "Hexdump n bytes starting at off",
		Long: `Hexdump n bytes (default 64) of the region starting at off.

Offsets and counts accept 0x prefixes. A range running past the end of the
region is cut short.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := requireArgs(args, 1, 2, "offset"); err != nil {
				return err
			}
			off, err := parseOffset(args[0])
			if err != nil {
				return err
			}
			n := uint64(defaultReadLen)
			if len(args) == 2 {
				if n, err = strconv.ParseUint(args[1], 0, 32); err != nil {
					return fmt.Errorf("invalid length %q: %w", args[1], err)
				}
			}

			h, err := e.attach(ctx)
			if err != nil {
				return err
			}
			defer h.Release()

			r := h.Region()
			if uint64(off) >= uint64(r.Capacity()) {
				return fmt.Errorf("offset %#x: %w", off, io.EOF)
			}
			p := make([]byte, min(n, uint64(r.Capacity())-uint64(off)))
			if _, err := r.ReadAt(p, int64(off)); err != nil && err != io.EOF {
				return err
			}
			return writeHexdump(o, off, p)
		},
	}
}

func writeCmd(e *Env) *Command {
	return &Command{
		Flags: newFlags("write"),
		Usage: "write <off> <byte>...",
		Short: "Store bytes starting at off",
		Long: `Store the given bytes at off, off+1, ... Values accept 0x prefixes.

The write is all or nothing: a range that does not fit is rejected.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := requireArgs(args, 2, -1, "offset and at least one byte"); err != nil {
				return err
			}
			off, err := parseOffset(args[0])
			if err != nil {
				return err
			}
			p, err := parseBytes(args[1:])
			if err != nil {
				return err
			}

			h, err := e.attach(ctx)
			if err != nil {
				return err
			}
			defer h.Release()

			if _, err := h.Region().WriteAt(p, int64(off)); err != nil {
				return err
			}
			o.Printf("wrote %d bytes at %#x\n", len(p), off)
			return nil
		},
	}
}
