package models

// RotationResult itemizes one committed rotation batch. The slices
// hold usernames in the order the members were processed.
type RotationResult struct {
	Room         *Room         `json:"room"`
	Participants []Participant `json:"participants"`
	Queue        []QueueEntry  `json:"queue"`

	RemovedNextLastParty []string `json:"removed_next_last_party"`
	RemovedNextLastQueue []string `json:"removed_next_last_queue"`
	RotatedRegular       []string `json:"rotated_regular"`
	Promoted             []string `json:"promoted"`

	// PartyShortage is max(0, party_size - final party count), surfaced
	// so the caller can tell the audience how many slots stayed open.
	PartyShortage int `json:"party_shortage"`
}
