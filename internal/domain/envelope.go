package domain

// PendingEntry mirrors a consumer-group tracked, not-yet-acknowledged
// message, as surfaced by XPENDING (spec.md §3 "PendingEntry").
type PendingEntry struct {
	EntryID       string
	Consumer      string
	DeliveryCount int64
	IdleMs        int64
}

// PendingSummary is the aggregate XPENDING view returned by
// substrate.Client.Pending (spec.md §4.1 "pending").
type PendingSummary struct {
	Count         int64
	MinIdleMs     int64
	OldestEntryID string
	Consumers     []string
}

// StreamEntry is one delivered entry from a consumer-group read. Data is
// the raw `data` field value (spec.md §6 envelope: "single field `data`
// whose value is JSON") — callers decode it into the domain type they
// expect.
type StreamEntry struct {
	ID   string
	Data string
}

// DLQEntry is the record written to a dead-letter stream (spec.md §4.1
// "moveToDlq", §4.3 step 3a/3b).
type DLQEntry struct {
	OriginalPayload string `json:"originalPayload"`
	Reason          string `json:"reason"`
	SourceStream    string `json:"sourceStream"`
	SourceEntryID   string `json:"sourceEntryId"`
	Timestamp       int64  `json:"timestamp"`
}
