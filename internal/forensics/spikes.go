package forensics

// FindTransferSpikes maps the timestamp of each transfer to the timestamp of
// the nearest later transfer that moved strictly more bytes. Records without
// a transfer are ignored and a transfer with no larger successor has no
// entry.
//
// The result is keyed by timestamp, so distinct transfers sharing a
// timestamp collide. The scan runs from latest to earliest and the last
// write wins, which leaves the earliest colliding transfer that has a
// successor in the map. A transfer without a successor never removes an
// existing key.
func FindTransferSpikes(records []Record) map[int64]int64 {
	transfers := make([]Record, 0, len(records))
	for _, r := range Chronological(records) {
		if r.HasTransfer() {
			transfers = append(transfers, r)
		}
	}

	spikes := make(map[int64]int64)

	// Bytes strictly decrease from bottom to top.
	stack := make([]Record, 0, len(transfers))
	for i := len(transfers) - 1; i >= 0; i-- {
		cur := transfers[i]
		for len(stack) > 0 && stack[len(stack)-1].BytesTransferred <= cur.BytesTransferred {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			spikes[cur.Timestamp] = stack[len(stack)-1].Timestamp
		}
		stack = append(stack, cur)
	}
	return spikes
}
