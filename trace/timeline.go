package trace

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const (
	markRun  = '#'
	markIdle = '.'
)

// WriteTimeline prints one row per thread and one column per sample, with
// a tick ruler every ten columns.
func WriteTimeline(w io.Writer, names []string, samples []Sample) error {
	bw := bufio.NewWriter(w)

	width := len("tick")
	for _, n := range names {
		width = max(width, len(n))
	}

	if len(samples) > 0 {
		var ruler strings.Builder
		for i := 0; i < len(samples); {
			label := fmt.Sprintf("%d", samples[i].Tick)
			if i%10 != 0 || i+len(label) > len(samples) {
				ruler.WriteByte(' ')
				i++
				continue
			}
			ruler.WriteString(label)
			i += len(label)
		}
		fmt.Fprintf(bw, "%-*s  %s\n", width, "tick", strings.TrimRight(ruler.String(), " "))
	}

	row := make([]byte, len(samples))
	for id, name := range names {
		for i, s := range samples {
			row[i] = markIdle
			if int(s.Thread) == id {
				row[i] = markRun
			}
		}
		fmt.Fprintf(bw, "%-*s  %s\n", width, name, row)
	}
	return bw.Flush()
}

// WriteSummary prints per-thread run counts.
func WriteSummary(w io.Writer, names []string, s Summary) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "run %s: %d ticks, %d passes, %d switches\n", s.RunID, s.Ticks, s.Passes, s.Switches)
	for i, name := range names {
		var n uint64
		if i < len(s.Runs) {
			n = s.Runs[i]
		}
		fmt.Fprintf(bw, "  %-10s %6d\n", name, n)
	}
	return bw.Flush()
}
