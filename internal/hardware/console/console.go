// Package console reports the end of a run on a terminal.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/samraisbeck/MEDS/internal/hardware"
)

const bell = "\a"

// Reporter writes the outcome to out and, when waiting is enabled, blocks
// until the operator presses Enter on in.
type Reporter struct {
	out  io.Writer
	in   io.Reader
	wait bool
}

var _ hardware.Reporter = (*Reporter)(nil)

// New creates a Reporter. A nil out or in falls back to stdout or stdin.
func New(out io.Writer, in io.Reader, wait bool) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	if in == nil {
		in = os.Stdin
	}
	return &Reporter{out: out, in: in, wait: wait}
}

// Report prints SUCCESS with one bell or ERROR with two.
func (r *Reporter) Report(failed bool) error {
	message, signal := "SUCCESS", bell
	if failed {
		message, signal = "ERROR", bell+bell
	}

	if _, err := fmt.Fprintf(r.out, "%s%s\n", message, signal); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if !r.wait {
		return nil
	}

	if _, err := fmt.Fprintln(r.out, "Press Enter to exit."); err != nil {
		return fmt.Errorf("write prompt: %w", err)
	}
	if _, err := bufio.NewReader(r.in).ReadString('\n'); err != nil && err != io.EOF {
		return fmt.Errorf("wait for acknowledgement: %w", err)
	}
	return nil
}
