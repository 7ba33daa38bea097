package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/natefinch/atomic"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func dumpCmd(e *Env) *Command {
	flags := newFlags("dump")
	compress := flags.Bool("zstd", false, "Compress the snapshot with zstd")

	return &Command{
		Flags: flags,
		Usage: "dump <file> [--zstd]",
		Short: "Snapshot the whole region to a file",
		Long: `Copy the whole region into file. The file is replaced atomically, so a
reader never sees a partial snapshot.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := requireArgs(args, 1, 1, "file"); err != nil {
				return err
			}
			h, err := e.attach(ctx)
			if err != nil {
				return err
			}
			defer h.Release()

			r := h.Region()
			snap := make([]byte, r.Capacity())
			if _, err := r.ReadAt(snap, 0); err != nil {
				return err
			}
			data := snap
			if *compress {
				if data, err = compressSnapshot(snap); err != nil {
					return err
				}
			}
			if err := atomic.WriteFile(args[0], bytes.NewReader(data)); err != nil {
				return fmt.Errorf("writing snapshot: %w", err)
			}
			o.Printf("dumped %#x bytes to %s (%d on disk)\n", len(snap), args[0], len(data))
			return nil
		},
	}
}

func loadCmd(e *Env) *Command {
	return &Command{
		Flags: newFlags("load"),
		Usage: "load <file>",
		Short: "Write a snapshot back into the region",
		Long: `Write the contents of file into the region starting at offset 0. zstd
compressed snapshots are detected and decompressed. A snapshot larger than the
region is rejected without writing anything.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := requireArgs(args, 1, 1, "file"); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading snapshot: %w", err)
			}
			if bytes.HasPrefix(data, zstdMagic) {
				if data, err = decompressSnapshot(data); err != nil {
					return err
				}
			}

			h, err := e.attach(ctx)
			if err != nil {
				return err
			}
			defer h.Release()

			if _, err := h.Region().WriteAt(data, 0); err != nil {
				return err
			}
			o.Printf("loaded %#x bytes from %s\n", len(data), args[0])
			return nil
		},
	}
}

func compressSnapshot(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := enc.Write(p); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("zstd write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("zstd close: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressSnapshot(p []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(p, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}
