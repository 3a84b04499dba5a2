package forensics

// ReconstructTimeline returns the action types recorded for sessionID in
// chronological order, duplicates included. An unknown session yields an
// empty slice.
func ReconstructTimeline(records []Record, sessionID string) []string {
	timeline := make([]string, 0)
	for _, r := range Chronological(records) {
		if r.SessionID == sessionID {
			timeline = append(timeline, r.ActionType)
		}
	}
	return timeline
}
