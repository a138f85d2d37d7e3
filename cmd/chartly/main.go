package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chartlyhq/chartly/internal/profile"
	"github.com/chartlyhq/chartly/server"
	"github.com/chartlyhq/chartly/store"
	"github.com/chartlyhq/chartly/store/db"
)

const (
	greetingBanner = `Chartly - ask your accounting data anything.`
)

var (
	version = "0.1.0"

	rootCmd = &cobra.Command{
		Use:   "chartly",
		Short: "A chat service that answers questions about accounting data with text or charts",
		Run: func(_ *cobra.Command, _ []string) {
			instanceProfile := &profile.Profile{
				Mode:          viper.GetString("mode"),
				Addr:          viper.GetString("addr"),
				Port:          viper.GetInt("port"),
				Data:          viper.GetString("data"),
				Driver:        viper.GetString("driver"),
				DSN:           viper.GetString("dsn"),
				Version:       version,
				OpenAIAPIKey:  viper.GetString("openai-api-key"),
				OpenAIBaseURL: viper.GetString("openai-base-url"),
				OpenAIModel:   viper.GetString("openai-model"),
				QueryStrategy: viper.GetString("query-strategy"),
				RowLimit:      viper.GetInt("row-limit"),
			}
			instanceProfile.FromEnv()
			if err := instanceProfile.Validate(); err != nil {
				slog.Error("invalid configuration", "error", err)
				return
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			dbDriver, err := db.NewDBDriver(instanceProfile)
			if err != nil {
				slog.Error("failed to create db driver", "error", err)
				return
			}

			storeInstance := store.New(dbDriver, instanceProfile)
			if err := storeInstance.Migrate(ctx); err != nil {
				slog.Error("failed to migrate database", "error", err)
				return
			}

			s, err := server.NewServer(ctx, instanceProfile, storeInstance)
			if err != nil {
				slog.Error("failed to create server", "error", err)
				return
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				sig := <-sigChan
				slog.Info("received signal, shutting down", "signal", sig.String())
				s.Shutdown(ctx)
				cancel()
			}()

			printGreetings(instanceProfile)

			if err := s.Start(ctx); err != nil {
				slog.Error("failed to start server", "error", err)
				cancel()
			}

			// Wait for CTRL-C.
			<-ctx.Done()
		},
	}
)

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8082)
	viper.SetDefault("query-strategy", "domain")
	viper.SetDefault("row-limit", 10)

	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8082, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka dsn)")
	rootCmd.PersistentFlags().String("openai-api-key", "", "OpenAI API key")
	rootCmd.PersistentFlags().String("openai-base-url", "", "OpenAI API base URL")
	rootCmd.PersistentFlags().String("openai-model", "", "orchestrator model identifier")
	rootCmd.PersistentFlags().String("query-strategy", "domain", `query translation strategy, "domain" or "sql"`)
	rootCmd.PersistentFlags().Int("row-limit", 10, "maximum records a single query may return")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("chartly")
	viper.AutomaticEnv()
}

func printGreetings(p *profile.Profile) {
	fmt.Println(greetingBanner)
	fmt.Printf("Version %s has been started on port %d\n", p.Version, p.Port)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to run command", "error", err)
		os.Exit(-1)
	}
}
