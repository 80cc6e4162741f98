package engine

import (
	"errors"
	"maps"
	"slices"
	"time"
)

var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrWrongPhase = errors.New("wrong phase")
var ErrAdminRequired = errors.New("admin required")
var ErrNoSteamID = errors.New("no steam id on file")
var ErrQueueFull = errors.New("queue full")
var ErrAlreadyQueued = errors.New("already in queue")
var ErrNotQueued = errors.New("not in queue")
var ErrNoteTooLong = errors.New("note too long")
var ErrQueueNotFull = errors.New("queue not full")
var ErrEmptyBallot = errors.New("empty ballot")
var ErrBallotTooLarge = errors.New("too many ballot options")
var ErrVoteNotOpen = errors.New("vote not open")
var ErrAlreadyCaptain = errors.New("already a captain")
var ErrNotCaptain = errors.New("not a captain")
var ErrWrongTurn = errors.New("invalid turn")
var ErrAlreadyPicked = errors.New("already on a team")
var ErrNotSidePicker = errors.New("not the side pick captain")
var ErrUnknownSide = errors.New("unknown side")
var ErrAlreadyReady = errors.New("already ready")
var ErrNotReady = errors.New("not ready")

const QueueMax = 10
const TeamSize = 5
const MaxNoteLen = 50

type Phase string

const (
	PhaseQueue       Phase = "queue"
	PhaseMapPick     Phase = "mappick"
	PhaseCaptainPick Phase = "captainpick"
	PhaseDraft       Phase = "draft"
	PhaseSidePick    Phase = "sidepick"
	PhaseReady       Phase = "ready"
)

type Side string

const (
	SideCT Side = "ct"
	SideT  Side = "t"
)

type Team string

const (
	TeamA Team = "a"
	TeamB Team = "b"
)

// Player identifies a chat user for the lifetime of a session.
type Player struct {
	ID   string
	Name string
}

// Draft tracks captains and rosters from captain pick through side pick.
// CaptainA is always the first pick captain once the coin flip has resolved.
type Draft struct {
	CaptainA       *Player
	CaptainB       *Player
	TeamA          []Player
	TeamB          []Player
	Turn           *Player
	TeamBStartSide Side
}

// Vote is the map ballot bookkeeping. Gen increments every time a ballot
// opens and never resets, so stale timer fires can be told apart from the
// current window.
type Vote struct {
	Open    bool
	Options []BallotOption
	CloseAt time.Time
	Gen     int
}

type State struct {
	Phase Phase
	Queue []Player
	Notes map[string]string
	Ready []Player
	Draft Draft
	Vote  Vote
	Map   string
}

type CommandKind string

const (
	CmdJoin       CommandKind = "Join"
	CmdLeave      CommandKind = "Leave"
	CmdKick       CommandKind = "Kick"
	CmdClear      CommandKind = "Clear"
	CmdRecover    CommandKind = "Recover"
	CmdStart      CommandKind = "Start"
	CmdCancel     CommandKind = "Cancel"
	CmdCaptain    CommandKind = "Captain"
	CmdPick       CommandKind = "Pick"
	CmdChooseSide CommandKind = "ChooseSide"
	CmdReady      CommandKind = "Ready"
	CmdUnready    CommandKind = "Unready"
	CmdOpenVote   CommandKind = "OpenVote"
	CmdCloseVote  CommandKind = "CloseVote"
	CmdAbortSetup CommandKind = "AbortSetup"
)

type Command struct {
	Kind    CommandKind
	Actor   Player
	Target  Player
	Players []Player
	Note    string
	Side    Side
	// Admin and HasSteamID are environment facts resolved by the caller
	// before dispatch; the engine only rules on them.
	Admin      bool
	HasSteamID bool
	Options    []BallotOption
	CloseAt    time.Time
	Map        string
	Tied       bool
	// Flip is the captain ordering coin toss, supplied with every Captain
	// command and consumed when the second captain registers.
	Flip int
}

type EventType string

const (
	EvtPlayerJoined       EventType = "PlayerJoined"
	EvtPlayerLeft         EventType = "PlayerLeft"
	EvtPlayerKicked       EventType = "PlayerKicked"
	EvtQueueCleared       EventType = "QueueCleared"
	EvtSetupStarted       EventType = "SetupStarted"
	EvtVoteOpened         EventType = "VoteOpened"
	EvtMapChosen          EventType = "MapChosen"
	EvtCaptainPickStarted EventType = "CaptainPickStarted"
	EvtCaptainSet         EventType = "CaptainSet"
	EvtDraftStarted       EventType = "DraftStarted"
	EvtPlayerPicked       EventType = "PlayerPicked"
	EvtSidePickStarted    EventType = "SidePickStarted"
	EvtSideChosen         EventType = "SideChosen"
	EvtReadyPhaseStarted  EventType = "ReadyPhaseStarted"
	EvtPlayerReady        EventType = "PlayerReady"
	EvtPlayerUnready      EventType = "PlayerUnready"
	EvtAllReady           EventType = "AllReady"
	EvtSetupCancelled     EventType = "SetupCancelled"
	EvtSetupAborted       EventType = "SetupAborted"
)

type Event struct {
	Type   EventType
	Player *Player
	Team   Team
	Map    string
	Side   Side
	Count  int
	Tied   bool
}

// Apply runs one command against the state and returns the events it
// produced plus the successor state. On error the returned state is the
// input state, untouched.
func Apply(s State, cmd Command) ([]Event, State, error) {
	rule, ok := dispatch[cmd.Kind]
	if !ok {
		return nil, s, ErrUnsupportedCommand
	}
	if rule.admin && !cmd.Admin {
		return nil, s, ErrAdminRequired
	}
	if rule.phases != nil && !slices.Contains(rule.phases, s.Phase) {
		return nil, s, ErrWrongPhase
	}

	newState := s

	switch cmd.Kind {
	case CmdJoin:
		if !cmd.HasSteamID {
			return nil, s, ErrNoSteamID
		}
		if contains(s.Queue, cmd.Actor.ID) {
			return nil, s, ErrAlreadyQueued
		}
		if len(s.Queue) >= QueueMax {
			return nil, s, ErrQueueFull
		}
		if len(cmd.Note) > MaxNoteLen {
			return nil, s, ErrNoteTooLong
		}
		newState.Queue = append(slices.Clone(s.Queue), cmd.Actor)
		if cmd.Note != "" {
			newState.Notes = maps.Clone(s.Notes)
			newState.Notes[cmd.Actor.ID] = cmd.Note
		}
		return []Event{evt(EvtPlayerJoined, cmd.Actor, len(newState.Queue))}, newState, nil

	case CmdLeave:
		i := indexOf(s.Queue, cmd.Actor.ID)
		if i < 0 {
			return nil, s, ErrNotQueued
		}
		newState.Queue = removeAt(s.Queue, i)
		newState.Notes = dropNote(s.Notes, cmd.Actor.ID)
		return []Event{evt(EvtPlayerLeft, cmd.Actor, len(newState.Queue))}, newState, nil

	case CmdKick:
		i := indexOf(s.Queue, cmd.Target.ID)
		if i < 0 {
			return nil, s, ErrNotQueued
		}
		newState.Queue = removeAt(s.Queue, i)
		newState.Notes = dropNote(s.Notes, cmd.Target.ID)
		return []Event{evt(EvtPlayerKicked, cmd.Target, len(newState.Queue))}, newState, nil

	case CmdClear:
		newState.Queue = nil
		newState.Notes = map[string]string{}
		return []Event{evt(EvtQueueCleared, cmd.Actor, 0)}, newState, nil

	case CmdRecover:
		// Wipes silently; the caller replays Join for each recovered player.
		newState.Queue = nil
		newState.Notes = map[string]string{}
		return nil, newState, nil

	case CmdStart:
		if len(s.Queue) != QueueMax {
			return nil, s, ErrQueueNotFull
		}
		if len(cmd.Options) == 0 {
			return nil, s, ErrEmptyBallot
		}
		if len(cmd.Options) > MaxBallotOptions {
			return nil, s, ErrBallotTooLarge
		}
		newState.Phase = PhaseMapPick
		newState.Vote = Vote{Options: slices.Clone(cmd.Options), Gen: s.Vote.Gen}
		return []Event{{Type: EvtSetupStarted}}, newState, nil

	case CmdOpenVote:
		newState.Vote.Open = true
		newState.Vote.CloseAt = cmd.CloseAt
		newState.Vote.Gen = s.Vote.Gen + 1
		return []Event{{Type: EvtVoteOpened}}, newState, nil

	case CmdCloseVote:
		if !s.Vote.Open {
			return nil, s, ErrVoteNotOpen
		}
		newState.Vote.Open = false
		newState.Map = cmd.Map
		newState.Phase = PhaseCaptainPick
		return []Event{
			{Type: EvtMapChosen, Map: cmd.Map, Tied: cmd.Tied},
			{Type: EvtCaptainPickStarted},
		}, newState, nil

	case CmdAbortSetup:
		newState = resetToQueue(s)
		return []Event{{Type: EvtSetupAborted}}, newState, nil

	case CmdCancel:
		newState = resetToQueue(s)
		return []Event{evt(EvtSetupCancelled, cmd.Actor, len(s.Queue))}, newState, nil

	case CmdCaptain:
		if !contains(s.Queue, cmd.Actor.ID) {
			return nil, s, ErrNotQueued
		}
		if isCaptain(s.Draft, cmd.Actor.ID) {
			return nil, s, ErrAlreadyCaptain
		}
		actor := cmd.Actor
		if s.Draft.CaptainA == nil {
			newState.Draft.CaptainA = &actor
			return []Event{evt(EvtCaptainSet, actor, 0)}, newState, nil
		}
		// Second captain closes registration: flip for first pick, seed
		// both rosters and hand the turn to captain A.
		first, second := *s.Draft.CaptainA, actor
		if cmd.Flip != 0 {
			first, second = second, first
		}
		newState.Draft = Draft{
			CaptainA: &first,
			CaptainB: &second,
			TeamA:    []Player{first},
			TeamB:    []Player{second},
			Turn:     &first,
		}
		newState.Phase = PhaseDraft
		return []Event{
			evt(EvtCaptainSet, actor, 0),
			{Type: EvtDraftStarted},
		}, newState, nil

	case CmdPick:
		if !isCaptain(s.Draft, cmd.Actor.ID) {
			return nil, s, ErrNotCaptain
		}
		if s.Draft.Turn == nil || s.Draft.Turn.ID != cmd.Actor.ID {
			return nil, s, ErrWrongTurn
		}
		if !contains(s.Queue, cmd.Target.ID) {
			return nil, s, ErrNotQueued
		}
		if onTeam(s.Draft, cmd.Target.ID) {
			return nil, s, ErrAlreadyPicked
		}
		team := TeamA
		other := s.Draft.CaptainB
		if cmd.Actor.ID == s.Draft.CaptainB.ID {
			team = TeamB
			other = s.Draft.CaptainA
		}
		if team == TeamA {
			newState.Draft.TeamA = append(slices.Clone(s.Draft.TeamA), cmd.Target)
		} else {
			newState.Draft.TeamB = append(slices.Clone(s.Draft.TeamB), cmd.Target)
		}
		newState.Draft.Turn = other
		events := []Event{{Type: EvtPlayerPicked, Player: ref(cmd.Target), Team: team}}
		if len(newState.Draft.TeamA) == TeamSize && len(newState.Draft.TeamB) == TeamSize {
			newState.Phase = PhaseSidePick
			newState.Draft.Turn = nil
			events = append(events, Event{Type: EvtSidePickStarted, Player: s.Draft.CaptainB})
		}
		return events, newState, nil

	case CmdChooseSide:
		if s.Draft.CaptainB == nil || cmd.Actor.ID != s.Draft.CaptainB.ID {
			return nil, s, ErrNotSidePicker
		}
		if cmd.Side != SideCT && cmd.Side != SideT {
			return nil, s, ErrUnknownSide
		}
		newState.Draft.TeamBStartSide = cmd.Side
		newState.Phase = PhaseReady
		return []Event{
			{Type: EvtSideChosen, Side: cmd.Side},
			{Type: EvtReadyPhaseStarted},
		}, newState, nil

	case CmdReady:
		if !contains(s.Queue, cmd.Actor.ID) {
			return nil, s, ErrNotQueued
		}
		if contains(s.Ready, cmd.Actor.ID) {
			return nil, s, ErrAlreadyReady
		}
		newState.Ready = append(slices.Clone(s.Ready), cmd.Actor)
		events := []Event{evt(EvtPlayerReady, cmd.Actor, len(newState.Ready))}
		if len(newState.Ready) == QueueMax {
			events = append(events, Event{Type: EvtAllReady})
		}
		return events, newState, nil

	case CmdUnready:
		if !contains(s.Queue, cmd.Actor.ID) {
			return nil, s, ErrNotQueued
		}
		i := indexOf(s.Ready, cmd.Actor.ID)
		if i < 0 {
			return nil, s, ErrNotReady
		}
		newState.Ready = removeAt(s.Ready, i)
		return []Event{evt(EvtPlayerUnready, cmd.Actor, len(newState.Ready))}, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// resetToQueue returns to the queue phase keeping queue membership and
// notes. The vote generation survives so late timer fires stay stale.
func resetToQueue(s State) State {
	n := s
	n.Phase = PhaseQueue
	n.Ready = nil
	n.Draft = Draft{}
	n.Vote = Vote{Gen: s.Vote.Gen}
	n.Map = ""
	return n
}

// Reset drops the whole session back to an empty queue. Runs after every
// launch attempt, successful or not.
func Reset(s State) State {
	n := NewState()
	n.Vote.Gen = s.Vote.Gen
	return n
}
