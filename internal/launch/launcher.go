// Package launch turns a completed draft into a running match: it resolves
// steam identities, creates the DatHost match and walks through the
// best-effort follow-ups (team names, voice moves, connect info).
package launch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Martig3/dathost-discord-scrimbot/internal/chat"
	"github.com/Martig3/dathost-discord-scrimbot/internal/dathost"
	"github.com/Martig3/dathost-discord-scrimbot/internal/engine"
)

var ErrMissingSteamID = errors.New("missing steam id")

// ServerControl is the slice of the DatHost client the launcher uses.
type ServerControl interface {
	StartMatch(ctx context.Context, req dathost.StartMatchRequest) error
	SendConsoleCommand(ctx context.Context, serverID, line string) error
}

// IdentitySource resolves chat user IDs to steam identities.
type IdentitySource interface {
	Get(userID string) (string, bool)
}

// NameSource resolves captains to team name overrides.
type NameSource interface {
	Get(captainID string) (string, bool)
}

// Plan is everything the launcher needs from a finished draft.
type Plan struct {
	CaptainA       engine.Player
	CaptainB       engine.Player
	TeamA          []engine.Player
	TeamB          []engine.Player
	TeamBStartSide engine.Side
}

type Config struct {
	ServerID   string
	ServerAddr string
	Channel    string

	TeamAVoiceID string
	TeamBVoiceID string

	MatchEndWebhookURL string
	WebhookAuthHeader  string
	PostSetupMessage   string
}

type Launcher struct {
	server  ServerControl
	gateway chat.Gateway
	ids     IdentitySource
	names   NameSource
	cfg     Config
	log     *zap.Logger
}

func New(server ServerControl, gateway chat.Gateway, ids IdentitySource, names NameSource, cfg Config, log *zap.Logger) *Launcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Launcher{server: server, gateway: gateway, ids: ids, names: names, cfg: cfg, log: log}
}

// Launch starts the match for the drafted rosters. Identity resolution
// failures abort before any network call. The match POST is the only fatal
// step after that; team names and voice moves are best effort.
func (l *Launcher) Launch(ctx context.Context, plan Plan) error {
	rosterA, err := l.resolve(plan.TeamA)
	if err != nil {
		l.say(ctx, fmt.Sprintf("Cannot start match: %v.", err))
		return err
	}
	rosterB, err := l.resolve(plan.TeamB)
	if err != nil {
		l.say(ctx, fmt.Sprintf("Cannot start match: %v.", err))
		return err
	}

	// Team B plays the side its captain chose; team1 on DatHost is the
	// T side, team2 the CT side.
	tIDs, ctIDs := rosterB, rosterA
	if plan.TeamBStartSide == engine.SideCT {
		tIDs, ctIDs = rosterA, rosterB
	}

	req := dathost.StartMatchRequest{
		GameServerID:       l.cfg.ServerID,
		Team1SteamIDs:      strings.Join(tIDs, ","),
		Team2SteamIDs:      strings.Join(ctIDs, ","),
		EnablePause:        true,
		MatchEndWebhookURL: l.cfg.MatchEndWebhookURL,
		WebhookAuthHeader:  l.cfg.WebhookAuthHeader,
	}
	if err := l.server.StartMatch(ctx, req); err != nil {
		var statusErr *dathost.StatusError
		if errors.As(err, &statusErr) {
			l.say(ctx, fmt.Sprintf("Server failed to start, match POST response code: %d", statusErr.Code))
		} else {
			l.say(ctx, "Server failed to start, could not reach the game host.")
		}
		return fmt.Errorf("start match: %w", err)
	}

	l.announceConnectInfo(ctx)
	l.setTeamNames(ctx, plan)
	l.moveTeamsToVoice(ctx, plan)

	if l.cfg.PostSetupMessage != "" {
		l.say(ctx, l.cfg.PostSetupMessage)
	}
	return nil
}

// resolve maps players to anonymized steam IDs, in roster order.
func (l *Launcher) resolve(team []engine.Player) ([]string, error) {
	out := make([]string, 0, len(team))
	for _, p := range team {
		id, ok := l.ids.Get(p.ID)
		if !ok {
			return nil, fmt.Errorf("%w for @%s", ErrMissingSteamID, p.Name)
		}
		out = append(out, anonymizeSteamID(id))
	}
	return out, nil
}

// anonymizeSteamID rewrites the universe digit so the ID matches what the
// game server reports for connected players.
func anonymizeSteamID(id string) string {
	if len(id) <= 6 {
		return id
	}
	b := []byte(id)
	b[6] = '1'
	return string(b)
}

// spectatorAddr derives the GOTV endpoint, one port above the game port.
func spectatorAddr(addr string) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("server addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("server addr %q: %w", addr, err)
	}
	return net.JoinHostPort(host, strconv.Itoa(port+1)), nil
}

func (l *Launcher) announceConnectInfo(ctx context.Context) {
	var b strings.Builder
	b.WriteString("Server has started.\n\n")
	b.WriteString("Connection info:\n")
	fmt.Fprintf(&b, "Link: steam://connect/%s\n", l.cfg.ServerAddr)
	fmt.Fprintf(&b, "Console: connect %s\n", l.cfg.ServerAddr)

	if gotv, err := spectatorAddr(l.cfg.ServerAddr); err == nil {
		b.WriteString("\nGOTV info:\n")
		fmt.Fprintf(&b, "Link: steam://connect/%s\n", gotv)
		fmt.Fprintf(&b, "Console: connect %s", gotv)
	} else {
		l.log.Warn("skipping GOTV info", zap.Error(err))
	}
	l.say(ctx, b.String())
}

// setTeamNames labels the in-game scoreboard. mp_teamname_1 is the CT side.
func (l *Launcher) setTeamNames(ctx context.Context, plan Plan) {
	nameA := l.consoleTeamName(plan.CaptainA)
	nameB := l.consoleTeamName(plan.CaptainB)

	ctName, tName := nameA, nameB
	if plan.TeamBStartSide == engine.SideCT {
		ctName, tName = nameB, nameA
	}

	for _, line := range []string{
		"mp_teamname_1 " + ctName,
		"mp_teamname_2 " + tName,
	} {
		if err := l.server.SendConsoleCommand(ctx, l.cfg.ServerID, line); err != nil {
			l.log.Warn("console command failed", zap.String("line", line), zap.Error(err))
		}
	}
}

func (l *Launcher) consoleTeamName(captain engine.Player) string {
	if name, ok := l.names.Get(captain.ID); ok {
		return name
	}
	return "Team " + captain.Name
}

func (l *Launcher) moveTeamsToVoice(ctx context.Context, plan Plan) {
	if l.cfg.TeamAVoiceID == "" || l.cfg.TeamBVoiceID == "" {
		return
	}
	for _, p := range plan.TeamA {
		if err := l.gateway.MoveToVoice(ctx, p.ID, l.cfg.TeamAVoiceID); err != nil {
			l.log.Warn("voice move failed", zap.String("player", p.Name), zap.Error(err))
		}
	}
	for _, p := range plan.TeamB {
		if err := l.gateway.MoveToVoice(ctx, p.ID, l.cfg.TeamBVoiceID); err != nil {
			l.log.Warn("voice move failed", zap.String("player", p.Name), zap.Error(err))
		}
	}
}

func (l *Launcher) say(ctx context.Context, text string) {
	if _, err := l.gateway.Send(ctx, l.cfg.Channel, text); err != nil {
		l.log.Warn("announce failed", zap.Error(err))
	}
}
