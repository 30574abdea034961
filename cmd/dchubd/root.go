// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dchubd",
	Short: "A Neo-Modus Direct Connect hub server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./modushub.yml)")
	rootCmd.PersistentFlags().Int("port", 7314, "port to listen for client connections on")
	rootCmd.PersistentFlags().String("hubname", "modushub", "hub name advertised in $HubName")
	rootCmd.PersistentFlags().String("dbfile", "modushub.bolt", "path to the embedded database file")
	rootCmd.PersistentFlags().String("dbtype", "preferred", "storage backend: preferred, alternate, or fallback")
	rootCmd.PersistentFlags().Int("numtaskrunners", 5, "number of worker pool goroutines")
	rootCmd.PersistentFlags().String("loglevel", "warn", "log level: datasent, debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("logfile", "", "log file path (stderr only if unset)")
	rootCmd.PersistentFlags().String("dnsserver", "8.8.8.8:53", "upstream DNS server for reverse lookups")

	viper.BindPFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("modushub")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/modushub")
	}

	viper.SetEnvPrefix("MODUSHUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.ReadInConfig()
}
