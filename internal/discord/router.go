package discord

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Martig3/dathost-discord-scrimbot/internal/engine"
	"github.com/Martig3/dathost-discord-scrimbot/internal/session"
	"github.com/Martig3/dathost-discord-scrimbot/internal/store"
)

// commandTimeout bounds one routed command, including the actor queueing
// behind an in-flight launch.
const commandTimeout = 2 * time.Minute

type RouterConfig struct {
	ChannelID    string
	AdminRoleID  string
	AssignRoleID string

	// Emote names for reading side pick reactions back.
	EmoteCTName string
	EmoteTName  string
}

// Router turns dot-commands typed in the scrim channel into session
// commands and replies with the outcome. Announcements driven by state
// changes come from the session itself; the router only answers the
// actor directly.
type Router struct {
	sess  *session.Session
	ids   *store.SteamIDs
	pool  *store.MapPool
	names *store.TeamNames
	cfg   RouterConfig
	log   *zap.Logger
}

func NewRouter(sess *session.Session, ids *store.SteamIDs, pool *store.MapPool, names *store.TeamNames, cfg RouterConfig, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{sess: sess, ids: ids, pool: pool, names: names, cfg: cfg, log: log}
}

func (r *Router) Attach(dg *discordgo.Session) {
	dg.AddHandler(r.onMessage)
	dg.AddHandler(r.onReactionAdd)
}

func (r *Router) onMessage(dg *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.ChannelID != r.cfg.ChannelID {
		return
	}
	word, rest := splitCommand(m.Content)
	if word == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	actor := engine.Player{ID: m.Author.ID, Name: displayName(m)}
	admin := r.isAdmin(m)

	switch word {
	case ".join":
		r.dispatch(ctx, dg, m, engine.Command{
			Kind:  engine.CmdJoin,
			Actor: actor,
			Note:  parseNote(m.Content),
		})
		r.maybeAssignRole(dg, m)

	case ".leave":
		r.dispatch(ctx, dg, m, engine.Command{Kind: engine.CmdLeave, Actor: actor})

	case ".list":
		r.replyList(ctx, dg, m)

	case ".steamid":
		r.handleSteamID(dg, m, rest)

	case ".maps":
		r.replyMaps(dg, m)

	case ".teamname":
		r.handleTeamName(dg, m, rest)

	case ".captain":
		r.dispatch(ctx, dg, m, engine.Command{Kind: engine.CmdCaptain, Actor: actor})

	case ".pick":
		target, ok := firstMention(m)
		if !ok {
			r.reply(dg, m, "mention the player you want to pick, `.pick @player`.")
			return
		}
		r.dispatch(ctx, dg, m, engine.Command{Kind: engine.CmdPick, Actor: actor, Target: target})

	case ".ct":
		r.dispatch(ctx, dg, m, engine.Command{Kind: engine.CmdChooseSide, Actor: actor, Side: engine.SideCT})

	case ".t":
		r.dispatch(ctx, dg, m, engine.Command{Kind: engine.CmdChooseSide, Actor: actor, Side: engine.SideT})

	case ".ready":
		r.dispatch(ctx, dg, m, engine.Command{Kind: engine.CmdReady, Actor: actor})

	case ".unready":
		r.dispatch(ctx, dg, m, engine.Command{Kind: engine.CmdUnready, Actor: actor})

	case ".readylist":
		r.replyReadyList(ctx, dg, m)

	case ".help":
		r.sendHelp(dg, m, admin)

	case ".start":
		r.dispatch(ctx, dg, m, engine.Command{Kind: engine.CmdStart, Actor: actor, Admin: admin})

	case ".kick":
		target, ok := firstMention(m)
		if !ok {
			r.reply(dg, m, "mention the player to kick, `.kick @player`.")
			return
		}
		r.dispatch(ctx, dg, m, engine.Command{Kind: engine.CmdKick, Actor: actor, Target: target, Admin: admin})

	case ".addmap":
		r.handleAddMap(dg, m, rest, admin)

	case ".removemap":
		r.handleRemoveMap(dg, m, rest, admin)

	case ".recoverqueue":
		r.dispatch(ctx, dg, m, engine.Command{
			Kind:    engine.CmdRecover,
			Actor:   actor,
			Admin:   admin,
			Players: allMentions(m),
		})

	case ".clear":
		r.dispatch(ctx, dg, m, engine.Command{Kind: engine.CmdClear, Actor: actor, Admin: admin})

	case ".cancel":
		r.dispatch(ctx, dg, m, engine.Command{Kind: engine.CmdCancel, Actor: actor, Admin: admin})

	default:
		r.reply(dg, m, "unknown command, type `.help` for the list of commands.")
	}
}

// onReactionAdd lets captain B answer the side pick prompt by reacting
// with a configured CT/T emote instead of typing.
func (r *Router) onReactionAdd(dg *discordgo.Session, e *discordgo.MessageReactionAdd) {
	if dg.State != nil && dg.State.User != nil && e.UserID == dg.State.User.ID {
		return
	}
	var side engine.Side
	switch e.Emoji.Name {
	case r.cfg.EmoteCTName:
		side = engine.SideCT
	case r.cfg.EmoteTName:
		side = engine.SideT
	default:
		return
	}
	if r.cfg.EmoteCTName == "" && r.cfg.EmoteTName == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	view, err := r.sess.State(ctx)
	if err != nil || view.State.Phase != engine.PhaseSidePick || e.MessageID != view.SidePickRef.ID {
		return
	}

	actor := engine.Player{ID: e.UserID, Name: reactorName(e)}
	if _, err := r.sess.Do(ctx, engine.Command{Kind: engine.CmdChooseSide, Actor: actor, Side: side}); err != nil {
		// Anyone can react on the prompt; only captain B's reaction counts.
		r.log.Debug("side pick reaction rejected", zap.String("user", e.UserID), zap.Error(err))
	}
}

// dispatch runs the command and replies only on failure; successful
// commands speak for themselves through session announcements.
func (r *Router) dispatch(ctx context.Context, dg *discordgo.Session, m *discordgo.MessageCreate, cmd engine.Command) {
	if _, err := r.sess.Do(ctx, cmd); err != nil {
		r.reply(dg, m, errorReply(err))
	}
}

func (r *Router) handleSteamID(dg *discordgo.Session, m *discordgo.MessageCreate, rest string) {
	steamID := strings.TrimSpace(rest)
	if steamID == "" {
		r.reply(dg, m, "usage: `.steamid STEAM_0:1:12345678`.")
		return
	}
	if err := r.ids.Set(m.Author.ID, steamID); err != nil {
		if errors.Is(err, store.ErrBadSteamID) {
			r.reply(dg, m, "that doesn't look like a steam id, expected the form `STEAM_0:1:12345678`.")
			return
		}
		r.log.Error("steam id save failed", zap.Error(err))
		r.reply(dg, m, "could not save your steam id, try again.")
		return
	}
	r.reply(dg, m, fmt.Sprintf("steam id `%s` saved.", steamID))
}

func (r *Router) handleTeamName(dg *discordgo.Session, m *discordgo.MessageCreate, rest string) {
	name := strings.TrimSpace(rest)
	if name == "" {
		r.reply(dg, m, "usage: `.teamname <name>`.")
		return
	}
	if err := r.names.Set(m.Author.ID, name); err != nil {
		if errors.Is(err, store.ErrNameTooLong) {
			r.reply(dg, m, fmt.Sprintf("team names are capped at %d characters.", store.MaxTeamNameLen))
			return
		}
		r.log.Error("team name save failed", zap.Error(err))
		r.reply(dg, m, "could not save your team name, try again.")
		return
	}
	r.reply(dg, m, fmt.Sprintf("your team will play as `%s`.", name))
}

func (r *Router) handleAddMap(dg *discordgo.Session, m *discordgo.MessageCreate, rest string, admin bool) {
	if !admin {
		r.reply(dg, m, errorReply(engine.ErrAdminRequired))
		return
	}
	name := strings.TrimSpace(rest)
	if name == "" {
		r.reply(dg, m, "usage: `.addmap <map>`.")
		return
	}
	switch err := r.pool.Add(name); {
	case errors.Is(err, store.ErrMapExists):
		r.reply(dg, m, fmt.Sprintf("`%s` is already in the pool.", name))
	case errors.Is(err, store.ErrPoolFull):
		r.reply(dg, m, "the map pool is full, remove a map first.")
	case err != nil:
		r.log.Error("map add failed", zap.Error(err))
		r.reply(dg, m, "could not save the map pool, try again.")
	default:
		r.reply(dg, m, fmt.Sprintf("`%s` added to the map pool.", name))
	}
}

func (r *Router) handleRemoveMap(dg *discordgo.Session, m *discordgo.MessageCreate, rest string, admin bool) {
	if !admin {
		r.reply(dg, m, errorReply(engine.ErrAdminRequired))
		return
	}
	name := strings.TrimSpace(rest)
	if name == "" {
		r.reply(dg, m, "usage: `.removemap <map>`.")
		return
	}
	switch err := r.pool.Remove(name); {
	case errors.Is(err, store.ErrUnknownMap):
		r.reply(dg, m, fmt.Sprintf("`%s` is not in the pool.", name))
	case err != nil:
		r.log.Error("map remove failed", zap.Error(err))
		r.reply(dg, m, "could not save the map pool, try again.")
	default:
		r.reply(dg, m, fmt.Sprintf("`%s` removed from the map pool.", name))
	}
}

func (r *Router) replyList(ctx context.Context, dg *discordgo.Session, m *discordgo.MessageCreate) {
	view, err := r.sess.State(ctx)
	if err != nil {
		return
	}
	if len(view.State.Queue) == 0 {
		r.reply(dg, m, "the queue is empty.")
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "queue %d/%d:", len(view.State.Queue), engine.QueueMax)
	for _, p := range view.State.Queue {
		b.WriteString("\n- " + p.Name)
		if note := view.State.Notes[p.ID]; note != "" {
			b.WriteString(" (" + note + ")")
		}
	}
	r.reply(dg, m, b.String())
}

func (r *Router) replyReadyList(ctx context.Context, dg *discordgo.Session, m *discordgo.MessageCreate) {
	view, err := r.sess.State(ctx)
	if err != nil {
		return
	}
	if view.State.Phase != engine.PhaseReady {
		r.reply(dg, m, errorReply(engine.ErrWrongPhase))
		return
	}
	ready := make(map[string]bool, len(view.State.Ready))
	for _, p := range view.State.Ready {
		ready[p.ID] = true
	}
	var waiting []string
	for _, p := range view.State.Queue {
		if !ready[p.ID] {
			waiting = append(waiting, p.Name)
		}
	}
	if len(waiting) == 0 {
		r.reply(dg, m, "everyone is ready.")
		return
	}
	r.reply(dg, m, "still waiting on: "+strings.Join(waiting, ", "))
}

func (r *Router) replyMaps(dg *discordgo.Session, m *discordgo.MessageCreate) {
	pool := r.pool.List()
	if len(pool) == 0 {
		r.reply(dg, m, "the map pool is empty, an admin can `.addmap` some.")
		return
	}
	r.reply(dg, m, "map pool: `"+strings.Join(pool, "`, `")+"`")
}

func (r *Router) maybeAssignRole(dg *discordgo.Session, m *discordgo.MessageCreate) {
	if r.cfg.AssignRoleID == "" || m.GuildID == "" {
		return
	}
	if err := dg.GuildMemberRoleAdd(m.GuildID, m.Author.ID, r.cfg.AssignRoleID); err != nil {
		r.log.Warn("queue role grant failed", zap.String("user", m.Author.ID), zap.Error(err))
	}
}

func (r *Router) reply(dg *discordgo.Session, m *discordgo.MessageCreate, text string) {
	if _, err := dg.ChannelMessageSend(m.ChannelID, m.Author.Mention()+" "+text); err != nil {
		r.log.Warn("reply failed", zap.Error(err))
	}
}

func (r *Router) isAdmin(m *discordgo.MessageCreate) bool {
	return m.Member != nil && slices.Contains(m.Member.Roles, r.cfg.AdminRoleID)
}

// splitCommand returns the leading dot-command lowercased plus the rest
// of the line. Non-commands come back empty.
func splitCommand(content string) (word, rest string) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, ".") {
		return "", ""
	}
	word, rest, _ = strings.Cut(trimmed, " ")
	return strings.ToLower(word), rest
}

var notePattern = regexp.MustCompile(`"([^"]*)"`)

// parseNote extracts the first double-quoted span as the queue note,
// truncated to the note ceiling.
func parseNote(content string) string {
	match := notePattern.FindStringSubmatch(content)
	if match == nil {
		return ""
	}
	note := match[1]
	if len(note) > engine.MaxNoteLen {
		cut := engine.MaxNoteLen
		for cut > 0 && !utf8.RuneStart(note[cut]) {
			cut--
		}
		note = note[:cut]
	}
	return note
}

func firstMention(m *discordgo.MessageCreate) (engine.Player, bool) {
	if len(m.Mentions) == 0 {
		return engine.Player{}, false
	}
	u := m.Mentions[0]
	return engine.Player{ID: u.ID, Name: u.Username}, true
}

func allMentions(m *discordgo.MessageCreate) []engine.Player {
	out := make([]engine.Player, 0, len(m.Mentions))
	for _, u := range m.Mentions {
		out = append(out, engine.Player{ID: u.ID, Name: u.Username})
	}
	return out
}

func displayName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	return m.Author.Username
}

func reactorName(e *discordgo.MessageReactionAdd) string {
	if e.Member != nil && e.Member.Nick != "" {
		return e.Member.Nick
	}
	if e.Member != nil && e.Member.User != nil {
		return e.Member.User.Username
	}
	return "captain"
}

// errorReply translates engine sentinels into the channel's voice.
func errorReply(err error) string {
	switch {
	case errors.Is(err, engine.ErrNoSteamID):
		return "set your steam id first: `.steamid STEAM_0:1:12345678`."
	case errors.Is(err, engine.ErrQueueFull):
		return "the queue is full."
	case errors.Is(err, engine.ErrAlreadyQueued):
		return "you are already in the queue."
	case errors.Is(err, engine.ErrNotQueued):
		return "that player is not in the queue."
	case errors.Is(err, engine.ErrQueueNotFull):
		return fmt.Sprintf("the queue needs exactly %d players to start.", engine.QueueMax)
	case errors.Is(err, engine.ErrEmptyBallot):
		return "the map pool is empty, `.addmap` some maps first."
	case errors.Is(err, engine.ErrAlreadyCaptain):
		return "you are already a captain."
	case errors.Is(err, engine.ErrNotCaptain):
		return "only captains can pick."
	case errors.Is(err, engine.ErrWrongTurn):
		return "it is not your turn to pick."
	case errors.Is(err, engine.ErrAlreadyPicked):
		return "that player is already on a team."
	case errors.Is(err, engine.ErrNotSidePicker):
		return "only the second captain chooses the starting side."
	case errors.Is(err, engine.ErrAlreadyReady):
		return "you are already ready."
	case errors.Is(err, engine.ErrNotReady):
		return "you were not ready to begin with."
	case errors.Is(err, engine.ErrAdminRequired):
		return "that command needs the admin role."
	case errors.Is(err, engine.ErrWrongPhase):
		return "you cannot do that right now."
	default:
		return "something went wrong, try again."
	}
}
