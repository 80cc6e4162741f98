package session

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Martig3/dathost-discord-scrimbot/internal/engine"
)

// openBallot posts the roll call and the ballot, seeds one reaction per
// option and opens the vote window. Any failure on the way aborts the
// whole start sequence.
func (s *Session) openBallot() {
	if _, err := s.gateway.Send(s.ctx, s.cfg.Channel, s.rollCall()); err != nil {
		s.log.Error("setup notice failed", zap.Error(err))
		s.abortSetup("Could not post the setup notice.")
		return
	}

	ref, err := s.gateway.SendBallot(s.ctx, s.cfg.Channel, s.state.Vote.Options)
	if err != nil {
		s.log.Error("ballot post failed", zap.Error(err))
		s.abortSetup("Could not post the map ballot.")
		return
	}

	for _, opt := range s.state.Vote.Options {
		if err := s.gateway.React(s.ctx, ref, opt.Symbol); err != nil {
			s.log.Error("ballot reaction failed", zap.String("symbol", opt.Symbol), zap.Error(err))
			s.abortSetup("Could not seed the ballot reactions.")
			return
		}
	}

	closeAt := time.Now().Add(s.voteTotal())
	events, newState, err := engine.Apply(s.state, engine.Command{Kind: engine.CmdOpenVote, CloseAt: closeAt})
	if err != nil {
		s.log.Error("open vote", zap.Error(err))
		return
	}
	s.voteRef = ref
	s.commit(newState, events)

	s.voteStage = stageWarn
	s.armVoteTimer(s.cfg.VoteWindow, newState.Vote.Gen)
}

// handleVoteTick advances the vote window. Ticks from a cancelled or
// superseded window carry an old generation and fall through.
func (s *Session) handleVoteTick(gen int) {
	if !s.state.Vote.Open || gen != s.state.Vote.Gen {
		return
	}
	switch s.voteStage {
	case stageWarn:
		s.say(fmt.Sprintf("Voting ends in %d seconds.", int(s.cfg.VoteWarning.Seconds())))
		s.voteStage = stageClose
		s.armVoteTimer(s.cfg.VoteWarning, gen)
	case stageClose:
		s.closeBallot()
	}
}

// closeBallot tallies reactions, resolves the winner, stages the map on
// the game server and moves the session to captain pick.
func (s *Session) closeBallot() {
	counts, err := s.gateway.ReactionCounts(s.ctx, s.voteRef)
	if err != nil {
		s.log.Error("reaction read failed", zap.Error(err))
		s.abortSetup("Could not read the ballot reactions.")
		return
	}

	tallies := make([]engine.VoteCount, 0, len(s.state.Vote.Options))
	for _, opt := range s.state.Vote.Options {
		tallies = append(tallies, engine.VoteCount{Map: opt.Map, Count: counts[opt.Symbol]})
	}

	winner, tied, err := engine.ResolveBallot(tallies, s.rng)
	if err != nil {
		s.log.Error("ballot resolution failed", zap.Error(err))
		s.abortSetup("The ballot produced no result.")
		return
	}

	if err := s.control.SetStartingMap(s.ctx, s.cfg.ServerID, winner); err != nil {
		s.log.Error("set starting map failed", zap.String("map", winner), zap.Error(err))
		s.abortSetup(fmt.Sprintf("Could not stage %s on the server.", winner))
		return
	}

	events, newState, err := engine.Apply(s.state, engine.Command{Kind: engine.CmdCloseVote, Map: winner, Tied: tied})
	if err != nil {
		s.log.Error("close vote", zap.Error(err))
		return
	}
	s.commit(newState, events)
}

// abortSetup reverts a failed start sequence to the queue phase. Queue
// membership survives; the reason has already been logged.
func (s *Session) abortSetup(reason string) {
	s.stopVoteTimer()
	events, newState, err := engine.Apply(s.state, engine.Command{Kind: engine.CmdAbortSetup})
	if err != nil {
		s.log.Warn("abort setup", zap.Error(err))
		return
	}
	s.say(reason + " Setup aborted, back to the queue.")
	s.commit(newState, events)
}

func (s *Session) armVoteTimer(d time.Duration, gen int) {
	s.stopVoteTimer()
	s.voteTimer = time.AfterFunc(d, func() {
		select {
		case s.inbox <- voteTick{gen: gen}:
		case <-s.ctx.Done():
		}
	})
}

func (s *Session) stopVoteTimer() {
	if s.voteTimer != nil {
		s.voteTimer.Stop()
		s.voteTimer = nil
	}
}

// voteTotal is the full window from ballot post to close.
func (s *Session) voteTotal() time.Duration {
	return s.cfg.VoteWindow + s.cfg.VoteWarning
}
