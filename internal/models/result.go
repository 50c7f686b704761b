package models

// ReorderResult is the store's reply to one reorder apply request:
// the resolver outcome plus the snapshot the caller should now trust.
type ReorderResult struct {
	Status       Outcome       `json:"status"`
	Version      int64         `json:"version"`
	Participants []Participant `json:"participants"`
	Queue        []QueueEntry  `json:"queue"`

	// Reason carries the validation/engine message on reject.
	Reason string `json:"error,omitempty"`
}
