package domain

import "time"

// HistoryEntry records a finished task for the audit trail. It is not a
// recovery log; queue state stays memory-resident.
type HistoryEntry struct {
	TaskID      string        `json:"taskId"`
	URL         string        `json:"url"`
	Fallback    bool          `json:"fallback"`
	Succeeded   bool          `json:"succeeded"`
	Reason      string        `json:"reason,omitempty"`
	Metadata    ProbeMetadata `json:"metadata"`
	ReducedKbps int           `json:"reducedKbps,omitempty"`
	TookMs      int64         `json:"tookMs"`
	FinishedAt  time.Time     `json:"finishedAt"`
}
