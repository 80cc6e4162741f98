// Package session runs the single match setup session as an actor. All
// state lives inside one goroutine; commands, watch registrations and
// timer ticks arrive as messages on the inbox, so no locks are needed.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Martig3/dathost-discord-scrimbot/internal/chat"
	"github.com/Martig3/dathost-discord-scrimbot/internal/engine"
	"github.com/Martig3/dathost-discord-scrimbot/internal/launch"
	"github.com/Martig3/dathost-discord-scrimbot/pkg/types"
)

type Msg interface{ isSessionMsg() }

type fromUser struct {
	cmd   engine.Command
	reply chan result
}

func (fromUser) isSessionMsg() {}

type result struct {
	events []engine.Event
	err    error
}

type watchReq struct {
	clientID string
	outbox   chan types.Snapshot
}

func (watchReq) isSessionMsg() {}

type unwatchReq struct{ clientID string }

func (unwatchReq) isSessionMsg() {}

type getState struct{ reply chan View }

func (getState) isSessionMsg() {}

// voteTick fires twice per ballot: once for the closing warning, once for
// the close itself. The generation stamps out late fires from windows
// that were cancelled or already resolved.
type voteTick struct{ gen int }

func (voteTick) isSessionMsg() {}

// View reflects internal state without data races. The command router
// reads it for queries, the reaction handler for the side pick prompt.
type View struct {
	Version     int
	Watchers    int
	State       engine.State
	SidePickRef chat.MessageRef
}

// ServerControl is the slice of the game host API the session itself
// drives; the rest belongs to the launcher.
type ServerControl interface {
	SetStartingMap(ctx context.Context, serverID, mapName string) error
}

// Launcher starts the match once every player is ready.
type Launcher interface {
	Launch(ctx context.Context, plan launch.Plan) error
}

type IdentitySource interface {
	Has(userID string) bool
}

type PoolSource interface {
	List() []string
}

type NameSource interface {
	Get(captainID string) (string, bool)
}

type Deps struct {
	Gateway  chat.Gateway
	Control  ServerControl
	Launcher Launcher
	IDs      IdentitySource
	Pool     PoolSource
	Names    NameSource
	Rand     engine.Rand
	Log      *zap.Logger
}

type Config struct {
	// Channel receives every announcement the coordinator makes.
	Channel  string
	ServerID string

	// VoteWindow runs from ballot post to the closing warning,
	// VoteWarning from the warning to the close.
	VoteWindow  time.Duration
	VoteWarning time.Duration
}

type voteStage int

const (
	stageWarn voteStage = iota
	stageClose
)

type Session struct {
	inbox    chan Msg
	state    engine.State
	version  int
	watchers map[string]chan types.Snapshot

	gateway  chat.Gateway
	control  ServerControl
	launcher Launcher
	ids      IdentitySource
	pool     PoolSource
	names    NameSource
	rng      engine.Rand
	log      *zap.Logger
	cfg      Config

	voteTimer   *time.Timer
	voteStage   voteStage
	voteRef     chat.MessageRef
	sidePickRef chat.MessageRef

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, deps Deps, cfg Config) *Session {
	ctx, cancel := context.WithCancel(parent)

	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	rng := deps.Rand
	if rng == nil {
		rng = newCryptoRand()
	}

	s := &Session{
		inbox:    make(chan Msg, 64),
		state:    engine.NewState(),
		watchers: make(map[string]chan types.Snapshot),
		gateway:  deps.Gateway,
		control:  deps.Control,
		launcher: deps.Launcher,
		ids:      deps.IDs,
		pool:     deps.Pool,
		names:    deps.Names,
		rng:      rng,
		log:      log,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
	}

	go s.loop()
	return s
}

// Do runs one command through the session and returns the events it
// produced. Validation errors come back as engine sentinels.
func (s *Session) Do(ctx context.Context, cmd engine.Command) ([]engine.Event, error) {
	reply := make(chan result, 1)
	select {
	case s.inbox <- fromUser{cmd: cmd, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
	select {
	case res := <-reply:
		return res.events, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
}

func (s *Session) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case s.inbox <- getState{reply: reply}:
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-s.ctx.Done():
		return View{}, s.ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-s.ctx.Done():
		return View{}, s.ctx.Err()
	}
}

// Watch registers a snapshot feed. The current snapshot is delivered
// immediately; the channel is closed when the watcher is dropped or the
// session shuts down.
func (s *Session) Watch(clientID string, outbox chan types.Snapshot) {
	select {
	case s.inbox <- watchReq{clientID: clientID, outbox: outbox}:
	case <-s.ctx.Done():
		close(outbox)
	}
}

func (s *Session) Unwatch(clientID string) {
	select {
	case s.inbox <- unwatchReq{clientID: clientID}:
	case <-s.ctx.Done():
	}
}

func (s *Session) Shutdown() {
	s.cancel()
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case fromUser:
				msg.reply <- s.handleCommand(msg.cmd)

			case watchReq:
				s.watchers[msg.clientID] = msg.outbox
				msg.outbox <- BuildSnapshot(s.version, s.state)

			case unwatchReq:
				if ch, ok := s.watchers[msg.clientID]; ok {
					close(ch)
					delete(s.watchers, msg.clientID)
				}

			case getState:
				msg.reply <- View{
					Version:     s.version,
					Watchers:    len(s.watchers),
					State:       s.state,
					SidePickRef: s.sidePickRef,
				}

			case voteTick:
				s.handleVoteTick(msg.gen)
			}
		}
	}
}

func (s *Session) shutdown() {
	s.stopVoteTimer()
	for id, ch := range s.watchers {
		close(ch)
		delete(s.watchers, id)
	}
	s.cancel()
}

// handleCommand resolves environment facts the engine rules on, applies
// the command and runs whatever effects its events call for.
func (s *Session) handleCommand(cmd engine.Command) result {
	switch cmd.Kind {
	case engine.CmdJoin:
		cmd.HasSteamID = s.ids.Has(cmd.Actor.ID)
	case engine.CmdStart:
		cmd.Options = engine.BuildBallot(s.pool.List())
	case engine.CmdCaptain:
		cmd.Flip = s.rng.IntN(2)
	case engine.CmdRecover:
		return s.handleRecover(cmd)
	}

	events, newState, err := engine.Apply(s.state, cmd)
	if err != nil {
		return result{err: err}
	}
	s.commit(newState, events)

	for _, e := range events {
		switch e.Type {
		case engine.EvtSetupStarted:
			s.openBallot()
		case engine.EvtSidePickStarted:
			s.promptSidePick(*e.Player)
		case engine.EvtSetupCancelled:
			s.stopVoteTimer()
		case engine.EvtAllReady:
			s.launchMatch()
		}
	}
	return result{events: events}
}

// handleRecover wipes the queue and replays a join for every listed
// player. Players who fail their join are reported and skipped; the rest
// land as one state change.
func (s *Session) handleRecover(cmd engine.Command) result {
	_, newState, err := engine.Apply(s.state, cmd)
	if err != nil {
		return result{err: err}
	}
	s.state = newState

	var joined []engine.Event
	for _, p := range cmd.Players {
		join := engine.Command{Kind: engine.CmdJoin, Actor: p, HasSteamID: s.ids.Has(p.ID)}
		events, next, err := engine.Apply(s.state, join)
		if err != nil {
			s.say(recoverSkipText(p, err))
			continue
		}
		s.state = next
		joined = append(joined, events...)
	}
	s.commit(s.state, joined)
	return result{events: joined}
}

func (s *Session) commit(newState engine.State, events []engine.Event) {
	s.state = newState
	s.version++
	s.broadcast()
	s.announce(events)
}

func (s *Session) broadcast() {
	snap := BuildSnapshot(s.version, s.state)
	for id, ch := range s.watchers {
		select {
		case ch <- snap:
		default:
			// Watcher is slow or full, drop it.
			close(ch)
			delete(s.watchers, id)
		}
	}
}

// launchMatch hands the drafted rosters to the launcher and resets the
// session afterwards whether or not the launch worked.
func (s *Session) launchMatch() {
	s.say("All players are ready. Server is starting...")

	d := s.state.Draft
	plan := launch.Plan{
		CaptainA:       *d.CaptainA,
		CaptainB:       *d.CaptainB,
		TeamA:          d.TeamA,
		TeamB:          d.TeamB,
		TeamBStartSide: d.TeamBStartSide,
	}
	if err := s.launcher.Launch(s.ctx, plan); err != nil {
		s.log.Error("match launch failed", zap.Error(err))
	}

	s.state = engine.Reset(s.state)
	s.sidePickRef = chat.MessageRef{}
	s.version++
	s.broadcast()
}

// promptSidePick posts the side choice prompt and seeds it with the ct/t
// reactions. Failures are not fatal: the captain can still answer.
func (s *Session) promptSidePick(captainB engine.Player) {
	text := "@" + captainB.Name + ", pick your starting side: react with the CT or T emote on this message."
	ref, err := s.gateway.Send(s.ctx, s.cfg.Channel, text)
	if err != nil {
		s.log.Warn("side pick prompt failed", zap.Error(err))
		return
	}
	s.sidePickRef = ref
	for _, symbol := range []string{"ct", "t"} {
		if err := s.gateway.React(s.ctx, ref, symbol); err != nil {
			s.log.Warn("side pick reaction failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
}
