// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sandia-minimega/modushub/internal/bot"
	"github.com/sandia-minimega/modushub/internal/config"
	"github.com/sandia-minimega/modushub/internal/hub"
	"github.com/sandia-minimega/modushub/internal/store"
	log "github.com/sandia-minimega/modushub/pkg/minilog"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "start the hub and accept client connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func serve() error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrapf(err, "parsing loglevel %q", cfg.LogLevel)
	}
	if err := log.Init(level, true, cfg.LogFile); err != nil {
		return errors.Wrap(err, "initializing logging")
	}

	st, err := openStore(cfg)
	if err != nil {
		return errors.Wrap(err, "opening store")
	}
	defer st.Close()

	h := hub.NewHub(cfg, st)
	h.SetBotFactory(botFactory(cfg))

	if err := h.Setup(); err != nil {
		return errors.Wrap(err, "setting up hub")
	}

	h.Lock()
	err = h.ReloadBots(cfg.ReloadModules, botFactory(cfg))
	h.Unlock()
	if err != nil {
		return errors.Wrap(err, "installing bots")
	}

	if err := h.Listen(); err != nil {
		return errors.Wrap(err, "listening")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	sig := <-sigs

	log.Info("received %v, shutting down", sig)
	h.Shutdown(10 * time.Second)

	return nil
}

// openStore selects a backend per cfg.DBType (§6): preferred and fallback
// both name the embedded bbolt store, opened read-write or read-only
// respectively, while alternate is the non-durable in-memory store.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.DBType {
	case config.DBTypeAlternate:
		return store.NewMemoryStore(), nil
	case config.DBTypeFallback:
		return store.OpenBolt(cfg.DBFile, true)
	default:
		return store.OpenBolt(cfg.DBFile, false)
	}
}

// botFactory builds the constructor ReloadBots and the initial load use to
// turn a name in cfg.ReloadModules into a live bot (§4.5/§4.8). The
// built-in names are fixed; a hub that names anything else in
// reloadmodules will fail to (re)load, by design — there's no plugin
// loader here.
func botFactory(cfg *config.Config) func(name string) (hub.Bot, error) {
	return func(name string) (hub.Bot, error) {
		switch name {
		case "AdminBot", cfg.AdvancedBotName:
			return bot.NewAdminBot(cfg.AdvancedBotName, cfg.DNSServer), nil
		case "OpChatBot":
			return bot.NewOpChatBot("OpChat"), nil
		case "LogBot":
			return bot.NewLogBot("LogBot"), nil
		default:
			return nil, errors.Errorf("unknown bot %q", name)
		}
	}
}
