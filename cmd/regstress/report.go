package main

import (
	"fmt"
	"io"
	"time"
)

type printer struct {
	out io.Writer
}

func (p *printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// Print writes a human-readable summary of r to w.
func (r Report) Print(w io.Writer) {
	p := &printer{out: w}
	p.Printf("policy:      %s\n", r.Policy)
	p.Printf("buses:       %d\n", r.Buses)
	p.Printf("handlers:    %d before, %d after per bus\n", r.Handlers, r.Handlers)
	p.Printf("dispatched:  %d in %s (%.0f/s)\n", r.Dispatched, r.Elapsed.Round(time.Microsecond), r.Rate())
	if r.Churned > 0 {
		p.Printf("churned:     %d subscribe/dispose cycles\n", r.Churned)
	}
	if r.Mismatched > 0 {
		p.Printf("MISMATCHED:  %d\n", r.Mismatched)
	} else {
		p.Printf("verified:    all dispatches observed every handler\n")
	}
}
