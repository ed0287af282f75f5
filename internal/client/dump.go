package client

import (
	"fmt"
	"io"
	"sync"

	"github.com/davecgh/go-spew/spew"

	"lingualink/internal/protocol"
)

// Dumper writes a readable trace of every frame, for --verbose.
type Dumper struct {
	mu  sync.Mutex
	w   io.Writer
	cfg *spew.ConfigState
}

func NewDumper(w io.Writer) *Dumper {
	return &Dumper{
		w: w,
		cfg: &spew.ConfigState{
			Indent:                  "  ",
			DisablePointerAddresses: true,
			DisableCapacities:       true,
			SortKeys:                true,
		},
	}
}

type dumpedFrame struct {
	Opcode  string
	Code    uint16
	Length  int
	Payload string
}

// Frame records f; dir is "->" for sent and "<-" for received frames.
// A nil Dumper discards.
func (d *Dumper) Frame(dir string, f protocol.Frame) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.w, "%s %s\n", dir, f.Opcode)
	d.cfg.Fdump(d.w, dumpedFrame{
		Opcode:  f.Opcode.String(),
		Code:    uint16(f.Opcode),
		Length:  len(f.Payload),
		Payload: string(f.Payload),
	})
}
