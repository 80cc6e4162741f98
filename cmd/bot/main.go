package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Martig3/dathost-discord-scrimbot/internal/config"
	"github.com/Martig3/dathost-discord-scrimbot/internal/dathost"
	"github.com/Martig3/dathost-discord-scrimbot/internal/discord"
	"github.com/Martig3/dathost-discord-scrimbot/internal/httpapi"
	"github.com/Martig3/dathost-discord-scrimbot/internal/launch"
	"github.com/Martig3/dathost-discord-scrimbot/internal/session"
	"github.com/Martig3/dathost-discord-scrimbot/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg.Debug)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("scrimbot exited", zap.Error(err))
	}
}

func buildLogger(debug bool) *zap.Logger {
	if debug {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	steamIDs, err := store.OpenSteamIDs(cfg.SteamIDsPath())
	if err != nil {
		return err
	}
	mapPool, err := store.OpenMapPool(cfg.MapPoolPath())
	if err != nil {
		return err
	}
	teamNames, err := store.OpenTeamNames(cfg.TeamNamesPath())
	if err != nil {
		return err
	}

	host, err := dathost.NewClient(dathost.Config{
		Username: cfg.DatHost.Username,
		Password: cfg.DatHost.Password,
		BaseURL:  cfg.DatHost.BaseURL,
		Logger:   logger.Named("dathost"),
	})
	if err != nil {
		return err
	}

	dg, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentMessageContent

	gateway := discord.NewGateway(dg, discord.GatewayConfig{
		GuildID:     cfg.Discord.GuildID,
		EmoteCTName: cfg.Discord.EmoteCTName,
		EmoteCTID:   cfg.Discord.EmoteCTID,
		EmoteTName:  cfg.Discord.EmoteTName,
		EmoteTID:    cfg.Discord.EmoteTID,
	}, logger.Named("gateway"))

	launcher := launch.New(host, gateway, steamIDs, teamNames, launch.Config{
		ServerID:           cfg.Server.ID,
		ServerAddr:         cfg.Server.Addr,
		Channel:            cfg.Discord.ChannelID,
		TeamAVoiceID:       cfg.Discord.TeamAVoiceID,
		TeamBVoiceID:       cfg.Discord.TeamBVoiceID,
		MatchEndWebhookURL: cfg.Webhook.MatchEndURL,
		WebhookAuthHeader:  cfg.Webhook.AuthHeader(),
		PostSetupMessage:   cfg.PostSetupMessage,
	}, logger.Named("launch"))

	sess := session.New(ctx, session.Deps{
		Gateway:  gateway,
		Control:  host,
		Launcher: launcher,
		IDs:      steamIDs,
		Pool:     mapPool,
		Names:    teamNames,
		Log:      logger.Named("session"),
	}, session.Config{
		Channel:     cfg.Discord.ChannelID,
		ServerID:    cfg.Server.ID,
		VoteWindow:  cfg.Vote.Window,
		VoteWarning: cfg.Vote.Warning,
	})
	defer sess.Shutdown()

	router := discord.NewRouter(sess, steamIDs, mapPool, teamNames, discord.RouterConfig{
		ChannelID:    cfg.Discord.ChannelID,
		AdminRoleID:  cfg.Discord.AdminRoleID,
		AssignRoleID: cfg.Discord.AssignRoleID,
		EmoteCTName:  cfg.Discord.EmoteCTName,
		EmoteTName:   cfg.Discord.EmoteTName,
	}, logger.Named("router"))
	router.Attach(dg)

	if err := dg.Open(); err != nil {
		return err
	}
	defer dg.Close()

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.Routes(httpapi.Deps{
			Session:     sess,
			Gateway:     gateway,
			Channel:     cfg.Discord.ChannelID,
			WebhookAuth: cfg.Webhook.AuthHeader(),
			Log:         logger.Named("http"),
		}),
	}
	httpErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	logger.Info("scrimbot up",
		zap.String("channel", cfg.Discord.ChannelID),
		zap.String("http", cfg.HTTPAddr))

	select {
	case <-ctx.Done():
	case err := <-httpErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
