package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/pointer"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/types"
)

// reportReader is the part of pointer.Device the decode command needs.
type reportReader interface {
	ReadReport() (types.PointerSample, error)
}

// CreateDecodeCmd creates the decode command.
func CreateDecodeCmd() *cobra.Command {
	var device string
	var count int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Print decoded pointer reports",
		Long: `Opens the pointer device in blocking mode and prints every 3-byte report ` +
			`as button state and motion. Useful for checking which device node the mouse is on.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			dev, err := pointer.OpenBlocking(device)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", device, err)
			}
			defer dev.Close()

			fmt.Fprintf(c.ErrOrStderr(), "Reading %s, move or click the mouse (Ctrl+C to quit)\n", dev.Path())
			return printReports(c.OutOrStdout(), dev, count, asJSON)
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", pointer.DefaultDevice, "Pointer device to read")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Stop after this many reports (0 reads forever)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON object per report")

	return cmd
}

// printReports reads reports until count is reached or the reader fails.
// End of input, including a trailing partial report, is not an error.
func printReports(w io.Writer, r reportReader, count int, asJSON bool) error {
	enc := json.NewEncoder(w)
	for n := 0; count <= 0 || n < count; n++ {
		sample, err := r.ReadReport()
		if errors.Is(err, io.EOF) || errors.Is(err, pointer.ErrShortReport) {
			return nil
		}
		if err != nil {
			return err
		}

		if asJSON {
			if err := enc.Encode(sample); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(w, "%s dx=%-4d dy=%-4d\n", buttons(sample), sample.DX, sample.DY)
	}
	return nil
}

func buttons(s types.PointerSample) string {
	b := []byte("---")
	if s.Left {
		b[0] = 'L'
	}
	if s.Middle {
		b[1] = 'M'
	}
	if s.Right {
		b[2] = 'R'
	}
	return string(b)
}
