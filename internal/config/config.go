// Package config loads coordinator settings from the environment, with an
// optional .env file for development setups.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Discord Discord
	DatHost DatHost
	Server  GameServer
	Vote    Vote
	Webhook Webhook

	HTTPAddr         string `env:"SCRIMBOT_HTTP_ADDR" envDefault:":8080"`
	DataDir          string `env:"SCRIMBOT_DATA_DIR" envDefault:"."`
	PostSetupMessage string `env:"SCRIMBOT_POST_SETUP_MSG"`
	Debug            bool   `env:"SCRIMBOT_DEBUG"`
}

type Discord struct {
	Token       string `env:"SCRIMBOT_DISCORD_TOKEN,required"`
	GuildID     string `env:"SCRIMBOT_DISCORD_GUILD_ID,required"`
	ChannelID   string `env:"SCRIMBOT_DISCORD_CHANNEL_ID,required"`
	AdminRoleID string `env:"SCRIMBOT_DISCORD_ADMIN_ROLE_ID,required"`

	// AssignRoleID, when set, is granted to players as they join the queue.
	AssignRoleID string `env:"SCRIMBOT_DISCORD_ASSIGN_ROLE_ID"`

	TeamAVoiceID string `env:"SCRIMBOT_DISCORD_TEAM_A_VOICE_ID"`
	TeamBVoiceID string `env:"SCRIMBOT_DISCORD_TEAM_B_VOICE_ID"`

	// Custom emotes for the side pick prompt. Name and ID travel together.
	EmoteCTName string `env:"SCRIMBOT_DISCORD_EMOTE_CT_NAME"`
	EmoteCTID   string `env:"SCRIMBOT_DISCORD_EMOTE_CT_ID"`
	EmoteTName  string `env:"SCRIMBOT_DISCORD_EMOTE_T_NAME"`
	EmoteTID    string `env:"SCRIMBOT_DISCORD_EMOTE_T_ID"`
}

type DatHost struct {
	Username string `env:"SCRIMBOT_DATHOST_USERNAME,required"`
	Password string `env:"SCRIMBOT_DATHOST_PASSWORD,required"`
	BaseURL  string `env:"SCRIMBOT_DATHOST_BASE_URL" envDefault:"https://dathost.net"`
}

type GameServer struct {
	ID string `env:"SCRIMBOT_SERVER_ID,required"`
	// Addr is the host:port players connect to. GOTV is assumed to sit on
	// the next port up.
	Addr string `env:"SCRIMBOT_SERVER_ADDR,required"`
}

type Vote struct {
	Window  time.Duration `env:"SCRIMBOT_VOTE_WINDOW" envDefault:"50s"`
	Warning time.Duration `env:"SCRIMBOT_VOTE_WARNING" envDefault:"10s"`
}

type Webhook struct {
	MatchEndURL string `env:"SCRIMBOT_MATCH_END_WEBHOOK_URL"`
	User        string `env:"SCRIMBOT_WEBHOOK_USER"`
	Password    string `env:"SCRIMBOT_WEBHOOK_PASSWORD"`
}

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return fmt.Errorf("SCRIMBOT_SERVER_ADDR must be host:port: %w", err)
	}
	if c.Vote.Warning >= c.Vote.Window {
		return errors.New("SCRIMBOT_VOTE_WARNING must be shorter than SCRIMBOT_VOTE_WINDOW")
	}
	if (c.Discord.EmoteCTName == "") != (c.Discord.EmoteCTID == "") {
		return errors.New("SCRIMBOT_DISCORD_EMOTE_CT_NAME and _ID must be set together")
	}
	if (c.Discord.EmoteTName == "") != (c.Discord.EmoteTID == "") {
		return errors.New("SCRIMBOT_DISCORD_EMOTE_T_NAME and _ID must be set together")
	}
	return nil
}

// AuthHeader is the Authorization value the game host echoes back on the
// match end webhook. Empty when no webhook credentials are configured.
func (w Webhook) AuthHeader() string {
	if w.User == "" && w.Password == "" {
		return ""
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(w.User+":"+w.Password))
}

func (c Config) SteamIDsPath() string {
	return filepath.Join(c.DataDir, "steam-ids.json")
}

func (c Config) MapPoolPath() string {
	return filepath.Join(c.DataDir, "maps.json")
}

func (c Config) TeamNamesPath() string {
	return filepath.Join(c.DataDir, "teamnames.json")
}
