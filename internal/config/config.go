// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package config decodes the hub's configuration mapping (flags, env, and
// an optional file, via viper) into a typed Config.
package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DB type choices for the "dbtype" option. There is no SQL schema here:
// "preferred" and "fallback" both name the embedded bbolt store, opened
// read-write or read-only respectively; "alternate" is the non-durable
// in-memory store used by tests and throwaway hubs.
const (
	DBTypePreferred = "preferred"
	DBTypeAlternate = "alternate"
	DBTypeFallback  = "fallback"
)

type Config struct {
	Port                     int      `mapstructure:"port"`
	HubName                  string   `mapstructure:"hubname"`
	DBFile                   string   `mapstructure:"dbfile"`
	DBType                   string   `mapstructure:"dbtype"`
	NumTaskRunners           int      `mapstructure:"numtaskrunners"`
	AdvancedBotName          string   `mapstructure:"advancedbotname"`
	DescriptionStart         string   `mapstructure:"descriptionstart"`
	RestrictUnverifiedUsers  bool     `mapstructure:"restrictunverifiedusers"`
	MaxHistoryRows           int      `mapstructure:"maxhistoryrows"`
	StupidFactor             int      `mapstructure:"stupidfactor"`
	ConnectCheckTime         int      `mapstructure:"connectchecktime"`
	HistoryFTime             string   `mapstructure:"historyftime"`
	ReloadModules            []string `mapstructure:"reloadmodules"`
	LogLevel                 string   `mapstructure:"loglevel"`
	LogFile                  string   `mapstructure:"logfile"`
	DNSServer                string   `mapstructure:"dnsserver"`
}

// Defaults mirror the original hub's setupdefaults.
func Defaults() Config {
	return Config{
		Port:                    7314,
		HubName:                 "modushub",
		DBFile:                  "modushub.bolt",
		DBType:                  DBTypePreferred,
		NumTaskRunners:          5,
		AdvancedBotName:         "AdminBot",
		DescriptionStart:        "",
		RestrictUnverifiedUsers: true,
		MaxHistoryRows:          100,
		StupidFactor:            8,
		ConnectCheckTime:        180,
		HistoryFTime:            "2006-01-02 15:04:05",
		ReloadModules:           []string{"AdminBot", "OpChatBot", "LogBot"},
		LogLevel:                "warn",
		DNSServer:               "8.8.8.8:53",
	}
}

// Load decodes v's settings on top of Defaults.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Defaults()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "building config decoder")
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, errors.Wrap(err, "decoding configuration")
	}

	if cfg.DBType != DBTypePreferred && cfg.DBType != DBTypeAlternate && cfg.DBType != DBTypeFallback {
		return nil, errors.Errorf("invalid dbtype %q", cfg.DBType)
	}

	return &cfg, nil
}
