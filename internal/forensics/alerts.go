package forensics

import (
	"container/heap"
	"slices"
)

// rankedAlert carries the input position so equal severities rank in
// insertion order.
type rankedAlert struct {
	view AlertView
	seq  int
}

// outranks reports whether a should be listed before b.
func (a rankedAlert) outranks(b rankedAlert) bool {
	if a.view.SeverityLevel != b.view.SeverityLevel {
		return a.view.SeverityLevel > b.view.SeverityLevel
	}
	return a.seq < b.seq
}

// alertHeap is a min-heap on rank: the root is the weakest alert kept so far.
type alertHeap []rankedAlert

func (h alertHeap) Len() int           { return len(h) }
func (h alertHeap) Less(i, j int) bool { return h[j].outranks(h[i]) }
func (h alertHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *alertHeap) Push(x any) { *h = append(*h, x.(rankedAlert)) }

func (h *alertHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// PrioritizeAlerts returns at most n alerts ordered by severity, highest
// first. Equal severities keep their input order. n <= 0 yields an empty
// slice.
func PrioritizeAlerts(records []Record, n int) []AlertView {
	if n <= 0 {
		return []AlertView{}
	}

	h := make(alertHeap, 0, min(n, len(records)))
	for i, r := range records {
		cand := rankedAlert{view: r.View(), seq: i}
		if h.Len() < n {
			heap.Push(&h, cand)
			continue
		}
		if cand.outranks(h[0]) {
			h[0] = cand
			heap.Fix(&h, 0)
		}
	}

	ranked := []rankedAlert(h)
	slices.SortFunc(ranked, func(a, b rankedAlert) int {
		switch {
		case a.seq == b.seq:
			return 0
		case a.outranks(b):
			return -1
		default:
			return 1
		}
	})

	out := make([]AlertView, len(ranked))
	for i, ra := range ranked {
		out[i] = ra.view
	}
	return out
}
