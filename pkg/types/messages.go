package types

// Message types on the watch socket. The feed is one-way: clients only
// read, so there is no client-to-server vocabulary.
const (
	MsgSnapshot = "snapshot"
	MsgError    = "error"
)

type ServerMessage struct {
	Type     string    `json:"type"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Error    string    `json:"error,omitempty"`
}
