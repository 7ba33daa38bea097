package cli

import (
	"context"

	"github.com/srediag/shmregion/pkg/shm"
)

func infoCmd(e *Env) *Command {
	return &Command{
		Flags: newFlags("info"),
		Usage: "info",
		Short: "Show whether the region is present and how it is mapped",
		Long: `Attach to the region without creating it and print its state.

An absent region is reported, not treated as an error.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := requireArgs(args, 0, 0, ""); err != nil {
				return err
			}
			h, err := shm.Open(ctx, e.Config.Region(shm.PolicyOpenOnly))
			if err != nil {
				return err
			}
			defer h.Release()

			o.Printf("link:      %s\n", e.LinkPath())
			o.Printf("present:   %v\n", h.Present())
			if !h.Present() {
				return nil
			}
			r := h.Region()
			o.Printf("id:        %s\n", r.ID())
			o.Printf("capacity:  %#x\n", r.Capacity())
			o.Printf("mapped:    %#x\n", r.MappedSize())
			o.Printf("ownership: %s\n", r.Ownership())
			return nil
		},
	}
}

func rmCmd(e *Env) *Command {
	return &Command{
		Flags: newFlags("rm"),
		Usage: "rm",
		Short: "Destroy the region and its link file",
		Long: `Unlink the shared object named by the link file and remove the link.

Processes that still have the region mapped keep their view; new attaches
find nothing until a creator runs again.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if err := requireArgs(args, 0, 0, ""); err != nil {
				return err
			}
			if err := shm.Remove(e.Config.Region(shm.PolicyOpenOnly)); err != nil {
				return err
			}
			o.Println("removed", e.LinkPath())
			return nil
		},
	}
}

func printConfigCmd(e *Env) *Command {
	return &Command{
		Flags: newFlags("print-config"),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			formatted, err := FormatConfig(e.Config)
			if err != nil {
				return err
			}
			o.Println(formatted)
			o.Println()
			o.Println("# Sources:")
			if e.Config.Source != "" {
				o.Println("#  ", e.Config.Source)
			} else {
				o.Println("#   (using defaults only)")
			}
			return nil
		},
	}
}
