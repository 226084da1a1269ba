package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/config"
	"github.com/mnemo-ai/mnemo/internal"
	"github.com/mnemo-ai/mnemo/pkg/store/postgres"
)

var (
	log *logrus.Logger

	cfgFile     string
	dumpConfig  bool
	showVersion bool
	generateKey bool
)

var cmd = &cobra.Command{
	Use:   "mnemo",
	Short: "mnemo ranks and retrieves conversational memory for assistant applications",
	Run:   func(cmd *cobra.Command, args []string) { run() },
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test utilities",
}

var createFixturesCmd = &cobra.Command{
	Use:   "create-fixtures",
	Short: "Populate the store with fake sessions, messages and memories",
	Run: func(cmd *cobra.Command, args []string) {
		sessionCount, _ := cmd.Flags().GetInt("sessions")
		messagesPerSession, _ := cmd.Flags().GetInt("messages")

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatalf("Error configuring mnemo: %s", err)
		}
		db, err := postgres.NewPostgresConn(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		ctx := context.Background()
		if err := postgres.CreateSchema(ctx, db, cfg); err != nil {
			log.Fatalf("Failed to create schema: %v", err)
		}
		if err := postgres.GenerateFixtureData(ctx, db, cfg, sessionCount, messagesPerSession); err != nil {
			log.Fatalf("Failed to create fixtures: %v", err)
		}
		fmt.Println("Fixtures created successfully.")
	},
}

func init() {
	testCmd.AddCommand(createFixturesCmd)
	cmd.AddCommand(testCmd)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default config.yaml)")
	cmd.PersistentFlags().BoolVarP(&dumpConfig, "dump-config", "d", false, "dump the resolved config and exit")
	cmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "print version number")
	cmd.PersistentFlags().
		BoolVarP(&generateKey, "generate-token", "g", false, "generate a new JWT token")

	createFixturesCmd.Flags().Int("sessions", 50, "Number of sessions to generate")
	createFixturesCmd.Flags().Int("messages", 20, "Number of messages per session")
}

// Execute executes the root cobra command.
func Execute() {
	log = internal.GetLogger()
	log.SetLevel(logrus.InfoLevel)

	err := cmd.Execute()

	if err != nil {
		os.Exit(1)
	}
}
