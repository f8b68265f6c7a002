package bench

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// WriteTable renders the per-iteration table and summary lines.
func (r Report) WriteTable(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITER\tSYNTH\tAUDIO\tFRAGMENTS\tBYTES")
	for _, it := range r.Iterations {
		fmt.Fprintf(tw, "%d\t%s\t%.2fs\t%d\t%d\n",
			it.Seq, it.SynthTime.Round(time.Millisecond), it.AudioDuration, it.Fragments, it.Bytes)
	}
	tw.Flush()

	if len(r.Iterations) == 0 {
		return
	}
	fmt.Fprintf(w, "\nmin=%s max=%s avg=%s stdev=%s\n",
		r.Min.Round(time.Millisecond), r.Max.Round(time.Millisecond), r.Avg.Round(time.Millisecond), r.Stdev.Round(time.Millisecond))
	fmt.Fprintf(w, "rtf=%.3f chars/sec=%.1f\n", r.RTF, r.CharsPerSec)
	if r.ArtifactPath != "" {
		fmt.Fprintf(w, "artifact=%s\n", r.ArtifactPath)
	}
	if r.RoundTrip != nil {
		fmt.Fprintf(w, "round-trip similarity=%.3f distance=%d\n", r.RoundTrip.Similarity, r.RoundTrip.Distance)
		fmt.Fprintf(w, "round-trip text=%q\n", r.RoundTrip.Actual)
	}
}
