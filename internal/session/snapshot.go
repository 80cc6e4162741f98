package session

import (
	"github.com/Martig3/dathost-discord-scrimbot/internal/engine"
	"github.com/Martig3/dathost-discord-scrimbot/pkg/types"
)

// BuildSnapshot renders engine state into the wire shape the watch feed
// and the HTTP session view share.
func BuildSnapshot(version int, s engine.State) types.Snapshot {
	snap := types.Snapshot{
		Version: version,
		Phase:   string(s.Phase),
		Map:     s.Map,
		Queue:   make([]types.QueuedPlayer, 0, len(s.Queue)),
		Ready:   wirePlayers(s.Ready),
	}
	for _, p := range s.Queue {
		snap.Queue = append(snap.Queue, types.QueuedPlayer{
			Player: wirePlayer(p),
			Note:   s.Notes[p.ID],
		})
	}
	if s.Draft.CaptainA != nil {
		snap.Draft = &types.Draft{
			CaptainA:       wireRef(s.Draft.CaptainA),
			CaptainB:       wireRef(s.Draft.CaptainB),
			TeamA:          wirePlayers(s.Draft.TeamA),
			TeamB:          wirePlayers(s.Draft.TeamB),
			Turn:           wireRef(s.Draft.Turn),
			TeamBStartSide: string(s.Draft.TeamBStartSide),
		}
	}
	if len(s.Vote.Options) > 0 {
		vote := &types.Vote{Open: s.Vote.Open, CloseAt: s.Vote.CloseAt}
		for _, opt := range s.Vote.Options {
			vote.Ballot = append(vote.Ballot, types.BallotLine{Symbol: opt.Symbol, Map: opt.Map})
		}
		snap.Vote = vote
	}
	return snap
}

func wirePlayer(p engine.Player) types.Player {
	return types.Player{ID: p.ID, Name: p.Name}
}

func wireRef(p *engine.Player) *types.Player {
	if p == nil {
		return nil
	}
	w := wirePlayer(*p)
	return &w
}

func wirePlayers(players []engine.Player) []types.Player {
	if len(players) == 0 {
		return nil
	}
	out := make([]types.Player, 0, len(players))
	for _, p := range players {
		out = append(out, wirePlayer(p))
	}
	return out
}
