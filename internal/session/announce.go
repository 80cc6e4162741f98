package session

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Martig3/dathost-discord-scrimbot/internal/engine"
)

// announce narrates state changes into the session channel. Error replies
// to individual users are the command router's job, not handled here.
func (s *Session) announce(events []engine.Event) {
	for _, e := range events {
		switch e.Type {
		case engine.EvtPlayerJoined:
			s.say(fmt.Sprintf("@%s has been added to the queue. Queue size: %d/%d.", e.Player.Name, e.Count, engine.QueueMax))

		case engine.EvtPlayerLeft:
			s.say(fmt.Sprintf("@%s has left the queue. Queue size: %d/%d.", e.Player.Name, e.Count, engine.QueueMax))

		case engine.EvtPlayerKicked:
			s.say(fmt.Sprintf("@%s has been kicked from the queue. Queue size: %d/%d.", e.Player.Name, e.Count, engine.QueueMax))

		case engine.EvtQueueCleared:
			s.say(fmt.Sprintf("@%s cleared the queue.", e.Player.Name))

		case engine.EvtMapChosen:
			if e.Tied {
				s.say(fmt.Sprintf("The vote tied. %s was drawn at random and will be played.", e.Map))
			} else {
				s.say(fmt.Sprintf("Map vote has concluded. %s will be played.", e.Map))
			}

		case engine.EvtCaptainPickStarted:
			s.say("Starting captain pick. The next two players to type .captain become the captains.")

		case engine.EvtCaptainSet:
			s.say(fmt.Sprintf("@%s is set as a captain.", e.Player.Name))

		case engine.EvtDraftStarted:
			s.say(s.draftOpening())

		case engine.EvtPlayerPicked:
			s.say(fmt.Sprintf("@%s joins %s.\n%s", e.Player.Name, s.teamHeader(e.Team), s.rosterBlock()))

		case engine.EvtReadyPhaseStarted:
			s.say(s.readyInstructions())

		case engine.EvtPlayerReady:
			s.say(fmt.Sprintf("@%s is ready. %d/%d ready.", e.Player.Name, e.Count, engine.QueueMax))

		case engine.EvtPlayerUnready:
			s.say(fmt.Sprintf("@%s is no longer ready.", e.Player.Name))

		case engine.EvtSetupCancelled:
			s.say(fmt.Sprintf("@%s cancelled the setup. Back to the queue, type .start to run it again.", e.Player.Name))
		}
	}
}

func (s *Session) say(text string) {
	if _, err := s.gateway.Send(s.ctx, s.cfg.Channel, text); err != nil {
		s.log.Warn("announce failed", zap.Error(err))
	}
}

// rollCall opens the start sequence: who is in, and how long the vote runs.
func (s *Session) rollCall() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scrim setup is starting. The map vote runs for %d seconds.\n", int(s.voteTotal().Seconds()))
	b.WriteString("Queued players:")
	for _, p := range s.state.Queue {
		b.WriteString("\n- @" + p.Name)
		if note := s.state.Notes[p.ID]; note != "" {
			b.WriteString(" (" + note + ")")
		}
	}
	return b.String()
}

func (s *Session) draftOpening() string {
	d := s.state.Draft
	var b strings.Builder
	fmt.Fprintf(&b, "@%s is the first pick captain (%s).\n", d.CaptainA.Name, s.teamHeader(engine.TeamA))
	fmt.Fprintf(&b, "@%s is the second pick captain (%s).\n", d.CaptainB.Name, s.teamHeader(engine.TeamB))
	fmt.Fprintf(&b, "Draft started. @%s picks first with .pick @player.\n", d.CaptainA.Name)
	b.WriteString(s.rosterBlock())
	return b.String()
}

func (s *Session) readyInstructions() string {
	d := s.state.Draft
	side := strings.ToUpper(string(d.TeamBStartSide))
	return fmt.Sprintf("%s starts on %s. Setup is complete: type .ready when you can play. Once all %d players are ready the match starts right away.",
		s.teamHeader(engine.TeamB), side, engine.QueueMax)
}

// rosterBlock lists both teams and whoever is still up for grabs.
func (s *Session) rosterBlock() string {
	d := s.state.Draft
	var b strings.Builder
	b.WriteString(s.teamHeader(engine.TeamA) + ": " + nameList(d.TeamA))
	b.WriteString("\n" + s.teamHeader(engine.TeamB) + ": " + nameList(d.TeamB))
	if unpicked := engine.Unpicked(s.state); len(unpicked) > 0 {
		b.WriteString("\nStill available: " + nameList(unpicked))
	}
	return b.String()
}

// teamHeader renders "Team <override-or-captain>".
func (s *Session) teamHeader(team engine.Team) string {
	d := s.state.Draft
	captain := d.CaptainA
	if team == engine.TeamB {
		captain = d.CaptainB
	}
	if captain == nil {
		return "Team ?"
	}
	if s.names != nil {
		if name, ok := s.names.Get(captain.ID); ok {
			return "Team " + name
		}
	}
	return "Team " + captain.Name
}

func nameList(players []engine.Player) string {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, "@"+p.Name)
	}
	return strings.Join(names, ", ")
}

func recoverSkipText(p engine.Player, err error) string {
	switch {
	case errors.Is(err, engine.ErrNoSteamID):
		return fmt.Sprintf("@%s was not re-added: no steam id on file.", p.Name)
	case errors.Is(err, engine.ErrQueueFull):
		return fmt.Sprintf("@%s was not re-added: the queue is full.", p.Name)
	case errors.Is(err, engine.ErrAlreadyQueued):
		return fmt.Sprintf("@%s is already in the queue.", p.Name)
	default:
		return fmt.Sprintf("@%s was not re-added.", p.Name)
	}
}
