package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Martig3/dathost-discord-scrimbot/internal/chat"
	"github.com/Martig3/dathost-discord-scrimbot/internal/engine"
	"github.com/Martig3/dathost-discord-scrimbot/internal/launch"
	"github.com/Martig3/dathost-discord-scrimbot/pkg/types"
)

type fakeGateway struct {
	mu        sync.Mutex
	sends     []string
	reactions []string
	counts    map[string]int
	nextID    int
	sendErr   error
}

func (f *fakeGateway) Send(_ context.Context, channel, text string) (chat.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return chat.MessageRef{}, f.sendErr
	}
	f.sends = append(f.sends, text)
	f.nextID++
	return chat.MessageRef{Channel: channel, ID: fmt.Sprintf("m%d", f.nextID)}, nil
}

func (f *fakeGateway) SendBallot(ctx context.Context, channel string, options []engine.BallotOption) (chat.MessageRef, error) {
	lines := make([]string, 0, len(options))
	for _, opt := range options {
		lines = append(lines, opt.Symbol+" "+opt.Map)
	}
	return f.Send(ctx, channel, strings.Join(lines, "\n"))
}

func (f *fakeGateway) React(_ context.Context, _ chat.MessageRef, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, symbol)
	return nil
}

func (f *fakeGateway) ReactionCounts(_ context.Context, _ chat.MessageRef) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.counts))
	for k, v := range f.counts {
		out[k] = v
	}
	return out, nil
}

func (f *fakeGateway) MoveToVoice(_ context.Context, _, _ string) error { return nil }

func (f *fakeGateway) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sends...)
}

type fakeControl struct {
	mu   sync.Mutex
	maps []string
	err  error
}

func (f *fakeControl) SetStartingMap(_ context.Context, _, mapName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.maps = append(f.maps, mapName)
	return nil
}

func (f *fakeControl) staged() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.maps...)
}

type fakeLauncher struct {
	mu    sync.Mutex
	plans []launch.Plan
	err   error
}

func (f *fakeLauncher) Launch(_ context.Context, plan launch.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plans = append(f.plans, plan)
	return f.err
}

func (f *fakeLauncher) launches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.plans)
}

type allIDs struct{}

func (allIDs) Has(string) bool { return true }

type fixedPool []string

func (p fixedPool) List() []string { return p }

type noNames struct{}

func (noNames) Get(string) (string, bool) { return "", false }

type fixedRand struct {
	vals []int
	i    int
}

func (f *fixedRand) IntN(n int) int {
	if len(f.vals) == 0 {
		return 0
	}
	v := f.vals[f.i%len(f.vals)]
	f.i++
	return v % n
}

type fixture struct {
	sess     *Session
	gateway  *fakeGateway
	control  *fakeControl
	launcher *fakeLauncher
}

func newFixture(t *testing.T, rng engine.Rand) *fixture {
	t.Helper()
	f := &fixture{
		gateway:  &fakeGateway{counts: map[string]int{"a": 7, "b": 2}},
		control:  &fakeControl{},
		launcher: &fakeLauncher{},
	}
	f.sess = New(context.Background(), Deps{
		Gateway:  f.gateway,
		Control:  f.control,
		Launcher: f.launcher,
		IDs:      allIDs{},
		Pool:     fixedPool{"de_dust2", "de_mirage"},
		Names:    noNames{},
		Rand:     rng,
	}, Config{
		Channel:     "lobby",
		ServerID:    "srv1",
		VoteWindow:  20 * time.Millisecond,
		VoteWarning: 20 * time.Millisecond,
	})
	t.Cleanup(f.sess.Shutdown)
	return f
}

func pl(i int) engine.Player {
	return engine.Player{ID: fmt.Sprintf("u%d", i), Name: fmt.Sprintf("player%d", i)}
}

func do(t *testing.T, s *Session, cmd engine.Command) []engine.Event {
	t.Helper()
	events, err := s.Do(context.Background(), cmd)
	if err != nil {
		t.Fatalf("%s: %v", cmd.Kind, err)
	}
	return events
}

func view(t *testing.T, s *Session) View {
	t.Helper()
	v, err := s.State(context.Background())
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	return v
}

func fillQueue(t *testing.T, s *Session) {
	t.Helper()
	for i := 0; i < engine.QueueMax; i++ {
		do(t, s, engine.Command{Kind: engine.CmdJoin, Actor: pl(i)})
	}
}

func awaitPhase(t *testing.T, s *Session, phase engine.Phase) View {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		v := view(t, s)
		if v.State.Phase == phase {
			return v
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for phase %s", phase)
	return View{}
}

func recvSnapshot(t *testing.T, ch <-chan types.Snapshot, within time.Duration) types.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("watch outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return types.Snapshot{}
	}
}

func TestWatchReceivesSnapshotPerMutation(t *testing.T) {
	f := newFixture(t, &fixedRand{})

	out := make(chan types.Snapshot, 8)
	f.sess.Watch("w1", out)

	first := recvSnapshot(t, out, time.Second)
	if first.Version != 0 || first.Phase != string(engine.PhaseQueue) {
		t.Fatalf("initial snapshot: version=%d phase=%s", first.Version, first.Phase)
	}

	do(t, f.sess, engine.Command{Kind: engine.CmdJoin, Actor: pl(0), Note: "late"})

	next := recvSnapshot(t, out, time.Second)
	if next.Version != 1 {
		t.Fatalf("after join: want version=1, got %d", next.Version)
	}
	if len(next.Queue) != 1 || next.Queue[0].ID != "u0" || next.Queue[0].Note != "late" {
		t.Fatalf("after join: unexpected queue %+v", next.Queue)
	}
}

func TestSlowWatcherIsDropped(t *testing.T) {
	f := newFixture(t, &fixedRand{})

	out := make(chan types.Snapshot, 1)
	f.sess.Watch("w1", out)
	// The initial snapshot fills the buffer; the next broadcast cannot
	// be delivered and the watcher goes away.
	do(t, f.sess, engine.Command{Kind: engine.CmdJoin, Actor: pl(0)})

	if v := view(t, f.sess); v.Watchers != 0 {
		t.Fatalf("want 0 watchers after drop, got %d", v.Watchers)
	}
}

func TestUnwatchClosesOutbox(t *testing.T) {
	f := newFixture(t, &fixedRand{})

	out := make(chan types.Snapshot, 8)
	f.sess.Watch("w1", out)
	recvSnapshot(t, out, time.Second)

	f.sess.Unwatch("w1")
	// State round-trips through the actor, so the unwatch has been
	// processed by the time it returns.
	if v := view(t, f.sess); v.Watchers != 0 {
		t.Fatalf("want 0 watchers after unwatch, got %d", v.Watchers)
	}

	select {
	case _, ok := <-out:
		if ok {
			t.Fatal("unexpected snapshot after unwatch")
		}
	case <-time.After(time.Second):
		t.Fatal("outbox still open after unwatch")
	}
}

func TestDoFailsFastAfterShutdown(t *testing.T) {
	f := newFixture(t, &fixedRand{})
	f.sess.Shutdown()

	done := make(chan error, 1)
	go func() {
		_, err := f.sess.Do(context.Background(), engine.Command{Kind: engine.CmdJoin, Actor: pl(0)})
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("want an error after shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("Do blocked after shutdown")
	}
}

func TestStartRunsVoteAndStagesWinner(t *testing.T) {
	f := newFixture(t, &fixedRand{})
	fillQueue(t, f.sess)

	do(t, f.sess, engine.Command{Kind: engine.CmdStart, Admin: true})
	if v := view(t, f.sess); v.State.Phase != engine.PhaseMapPick {
		t.Fatalf("after start: want mappick, got %s", v.State.Phase)
	}

	awaitPhase(t, f.sess, engine.PhaseCaptainPick)

	if staged := f.control.staged(); len(staged) != 1 || staged[0] != "de_dust2" {
		t.Fatalf("staged maps = %v, want [de_dust2]", staged)
	}
	var warned bool
	for _, s := range f.gateway.sent() {
		if strings.Contains(s, "Voting ends") {
			warned = true
		}
	}
	if !warned {
		t.Fatal("no closing warning was posted")
	}
}

func TestVoteTieBreaksWithInjectedRand(t *testing.T) {
	f := newFixture(t, &fixedRand{vals: []int{1}})
	f.gateway.mu.Lock()
	f.gateway.counts = map[string]int{"a": 5, "b": 5}
	f.gateway.mu.Unlock()

	fillQueue(t, f.sess)
	do(t, f.sess, engine.Command{Kind: engine.CmdStart, Admin: true})
	awaitPhase(t, f.sess, engine.PhaseCaptainPick)

	if staged := f.control.staged(); len(staged) != 1 || staged[0] != "de_mirage" {
		t.Fatalf("staged maps = %v, want tie broken to de_mirage", staged)
	}
}

func TestCancelDuringVoteDropsLateFire(t *testing.T) {
	f := newFixture(t, &fixedRand{})
	fillQueue(t, f.sess)

	do(t, f.sess, engine.Command{Kind: engine.CmdStart, Admin: true})
	do(t, f.sess, engine.Command{Kind: engine.CmdCancel, Actor: pl(0), Admin: true})

	// Outlive the whole vote window, then make sure the stale close never
	// ran: no map staged, phase still queue, queue membership intact.
	time.Sleep(100 * time.Millisecond)

	v := view(t, f.sess)
	if v.State.Phase != engine.PhaseQueue {
		t.Fatalf("after cancel: want queue, got %s", v.State.Phase)
	}
	if len(v.State.Queue) != engine.QueueMax {
		t.Fatalf("after cancel: queue size %d, want %d", len(v.State.Queue), engine.QueueMax)
	}
	if staged := f.control.staged(); len(staged) != 0 {
		t.Fatalf("stale vote close staged a map: %v", staged)
	}
}

func TestMapStageFailureAbortsToQueue(t *testing.T) {
	f := newFixture(t, &fixedRand{})
	f.control.err = errors.New("host down")
	fillQueue(t, f.sess)

	do(t, f.sess, engine.Command{Kind: engine.CmdStart, Admin: true})
	v := awaitPhase(t, f.sess, engine.PhaseQueue)

	if len(v.State.Queue) != engine.QueueMax {
		t.Fatalf("queue should survive an aborted start, size %d", len(v.State.Queue))
	}
	var reported bool
	for _, s := range f.gateway.sent() {
		if strings.Contains(s, "aborted") {
			reported = true
		}
	}
	if !reported {
		t.Fatal("abort was not announced")
	}
}

// runDraft walks captains, picks and side choice so phase lands on ready.
func runDraft(t *testing.T, f *fixture) {
	t.Helper()
	do(t, f.sess, engine.Command{Kind: engine.CmdCaptain, Actor: pl(0)})
	do(t, f.sess, engine.Command{Kind: engine.CmdCaptain, Actor: pl(1)})

	for {
		v := view(t, f.sess)
		if v.State.Phase != engine.PhaseDraft {
			break
		}
		turn := *v.State.Draft.Turn
		target := engine.Unpicked(v.State)[0]
		do(t, f.sess, engine.Command{Kind: engine.CmdPick, Actor: turn, Target: target})
	}

	v := view(t, f.sess)
	if v.State.Phase != engine.PhaseSidePick {
		t.Fatalf("after picks: want sidepick, got %s", v.State.Phase)
	}
	do(t, f.sess, engine.Command{Kind: engine.CmdChooseSide, Actor: *v.State.Draft.CaptainB, Side: engine.SideCT})
}

func TestAllReadyLaunchesOnceAndResets(t *testing.T) {
	f := newFixture(t, &fixedRand{})
	fillQueue(t, f.sess)
	do(t, f.sess, engine.Command{Kind: engine.CmdStart, Admin: true})
	awaitPhase(t, f.sess, engine.PhaseCaptainPick)
	runDraft(t, f)

	for i := 0; i < engine.QueueMax; i++ {
		do(t, f.sess, engine.Command{Kind: engine.CmdReady, Actor: pl(i)})
	}

	if n := f.launcher.launches(); n != 1 {
		t.Fatalf("want exactly one launch, got %d", n)
	}
	v := view(t, f.sess)
	if v.State.Phase != engine.PhaseQueue || len(v.State.Queue) != 0 {
		t.Fatalf("want empty queue session after launch, got phase=%s queue=%d", v.State.Phase, len(v.State.Queue))
	}
}

func TestLaunchFailureStillResets(t *testing.T) {
	f := newFixture(t, &fixedRand{})
	f.launcher.err = errors.New("match POST 500")
	fillQueue(t, f.sess)
	do(t, f.sess, engine.Command{Kind: engine.CmdStart, Admin: true})
	awaitPhase(t, f.sess, engine.PhaseCaptainPick)
	runDraft(t, f)

	for i := 0; i < engine.QueueMax; i++ {
		do(t, f.sess, engine.Command{Kind: engine.CmdReady, Actor: pl(i)})
	}

	if n := f.launcher.launches(); n != 1 {
		t.Fatalf("want exactly one launch attempt, got %d", n)
	}
	v := view(t, f.sess)
	if v.State.Phase != engine.PhaseQueue || len(v.State.Queue) != 0 {
		t.Fatalf("session must reset even on launch failure, got phase=%s queue=%d", v.State.Phase, len(v.State.Queue))
	}
}

func TestCoinFlipSwapsRegistrationOrder(t *testing.T) {
	f := newFixture(t, &fixedRand{vals: []int{1}})
	fillQueue(t, f.sess)
	do(t, f.sess, engine.Command{Kind: engine.CmdStart, Admin: true})
	awaitPhase(t, f.sess, engine.PhaseCaptainPick)

	do(t, f.sess, engine.Command{Kind: engine.CmdCaptain, Actor: pl(0)})
	do(t, f.sess, engine.Command{Kind: engine.CmdCaptain, Actor: pl(1)})

	v := view(t, f.sess)
	if v.State.Draft.CaptainA.ID != "u1" || v.State.Draft.CaptainB.ID != "u0" {
		t.Fatalf("flip=1 should swap captains, got A=%s B=%s",
			v.State.Draft.CaptainA.ID, v.State.Draft.CaptainB.ID)
	}
}

func TestRecoverReplaysJoins(t *testing.T) {
	f := newFixture(t, &fixedRand{})
	fillQueue(t, f.sess)

	events := do(t, f.sess, engine.Command{
		Kind:    engine.CmdRecover,
		Admin:   true,
		Players: []engine.Player{pl(3), pl(7)},
	})
	if len(events) != 2 {
		t.Fatalf("want 2 rejoin events, got %d", len(events))
	}
	v := view(t, f.sess)
	if len(v.State.Queue) != 2 || v.State.Queue[0].ID != "u3" || v.State.Queue[1].ID != "u7" {
		t.Fatalf("recovered queue = %+v", v.State.Queue)
	}
}

func TestSidePickPromptSeedsReactions(t *testing.T) {
	f := newFixture(t, &fixedRand{})
	fillQueue(t, f.sess)
	do(t, f.sess, engine.Command{Kind: engine.CmdStart, Admin: true})
	awaitPhase(t, f.sess, engine.PhaseCaptainPick)

	do(t, f.sess, engine.Command{Kind: engine.CmdCaptain, Actor: pl(0)})
	do(t, f.sess, engine.Command{Kind: engine.CmdCaptain, Actor: pl(1)})
	for {
		v := view(t, f.sess)
		if v.State.Phase != engine.PhaseDraft {
			break
		}
		do(t, f.sess, engine.Command{Kind: engine.CmdPick, Actor: *v.State.Draft.Turn, Target: engine.Unpicked(v.State)[0]})
	}

	v := view(t, f.sess)
	if v.SidePickRef.ID == "" {
		t.Fatal("side pick prompt was not recorded")
	}
	f.gateway.mu.Lock()
	reactions := append([]string(nil), f.gateway.reactions...)
	f.gateway.mu.Unlock()
	var ct, tt bool
	for _, r := range reactions {
		if r == "ct" {
			ct = true
		}
		if r == "t" {
			tt = true
		}
	}
	if !ct || !tt {
		t.Fatalf("side pick reactions = %v, want both ct and t", reactions)
	}
}
