package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"readaloud/internal/cli/scheme/colours"
	"readaloud/internal/config"
	"readaloud/internal/reader"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	var (
		cfgFile string
		debug   bool
	)

	// Flags are parsed before the config file is read; the reader builds
	// its engine and store lazily, after Configure.
	app := reader.New(config.Config{})

	rootCmd := &cobra.Command{
		Use:   "readaloud",
		Short: "🎧 Read passages aloud",
		Long: `
┌─────────────────────────────────────┐
│  🎧 Welcome to readaloud! 📖        │
│  Listen to your reading passages    │
└─────────────────────────────────────┘

readaloud speaks reading-practice passages, follows along word by word,
and remembers your bookmarks, recent passages and favourite voice.
		`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(cfgFile); err != nil {
				return err
			}
			cfg := config.Load()

			logrus.SetLevel(cfg.LogLevel())
			if debug {
				logrus.SetLevel(logrus.DebugLevel)
			}

			app.Configure(cfg)
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.readaloud/readaloud.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(app.Commands()...)

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		app.Cancel()
		app.Close()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! Happy reading! 📚"))
		os.Exit(0)
	}()

	err := rootCmd.Execute()
	app.Close()
	if err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}
