package main

// ---------------------------------------------------------------------------
// cmd_spikes.go — next strictly larger transfer for each transfer
// ---------------------------------------------------------------------------

import (
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/1sec-project/forensec/internal/service"
)

func cmdSpikes(args []string) {
	af := newAnalysisFlags("spikes")
	run := af.load(args)

	spikes := run.analyzer.FindTransferSpikes(run.records)
	run.report(func(w *os.File) error {
		return renderSpikes(w, run.format, spikes)
	}, service.SpikesFinding(spikes))
}

// renderSpikes lists spikes ordered by the earlier timestamp.
func renderSpikes(w io.Writer, f OutputFormat, spikes map[int64]int64) error {
	keys := make([]int64, 0, len(spikes))
	for k := range spikes {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	t := NewTable(w, "TIMESTAMP", "NEXT_LARGER")
	for _, k := range keys {
		t.AddRow(strconv.FormatInt(k, 10), strconv.FormatInt(spikes[k], 10))
	}
	return t.emit(f, spikes)
}
