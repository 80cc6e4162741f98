// Package types holds the wire shapes of the session watch feed. The
// snapshot is a full view of the session; watchers get a fresh one on
// every mutation rather than deltas.
package types

import "time"

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type QueuedPlayer struct {
	Player
	Note string `json:"note,omitempty"`
}

type Draft struct {
	CaptainA       *Player  `json:"captain_a,omitempty"`
	CaptainB       *Player  `json:"captain_b,omitempty"`
	TeamA          []Player `json:"team_a"`
	TeamB          []Player `json:"team_b"`
	Turn           *Player  `json:"turn,omitempty"`
	TeamBStartSide string   `json:"team_b_start_side,omitempty"`
}

type BallotLine struct {
	Symbol string `json:"symbol"`
	Map    string `json:"map"`
}

type Vote struct {
	Open    bool         `json:"open"`
	CloseAt time.Time    `json:"close_at"`
	Ballot  []BallotLine `json:"ballot"`
}

// Snapshot is one full session view. Version increases by one per
// mutation, so a watcher can spot gaps after a reconnect.
type Snapshot struct {
	Version int            `json:"version"`
	Phase   string         `json:"phase"`
	Map     string         `json:"map,omitempty"`
	Queue   []QueuedPlayer `json:"queue"`
	Ready   []Player       `json:"ready,omitempty"`
	Draft   *Draft         `json:"draft,omitempty"`
	Vote    *Vote          `json:"vote,omitempty"`
}
