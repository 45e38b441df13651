package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"wisgen/internal/app"
	"wisgen/internal/config"
	"wisgen/internal/ingest"
	"wisgen/internal/logging"
	"wisgen/internal/model"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	force     bool
	modelName string
	strict    bool
)

var rootCmd = &cobra.Command{
	Use:   "transformer [newsletter.html ...]",
	Short: "Digest pulled newsletters into processed_ files",
	Long: `Runs the digest step over newsletters already in data/newsletters without
pulling new ones. With no arguments every newsletter is considered; existing
digests are kept unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		if strict {
			cfg.Transform.Policy = config.PolicyStrict
		}

		logCloser, err := logging.Setup(cfg.Log)
		if err != nil {
			return fmt.Errorf("error setting up logging: %w", err)
		}
		defer logCloser.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("error starting services: %w", err)
		}
		defer a.Close()

		results, err := a.Ingest.ProcessAll(ctx, ingest.ProcessOptions{
			Force: force,
			Model: modelName,
			Files: args,
		})
		for _, r := range results {
			switch r.Status {
			case model.StatusFailed:
				fmt.Printf("%-8s %s: %s\n", r.Status, r.Filename, r.Error)
			default:
				fmt.Printf("%-8s %s -> %s\n", r.Status, r.Filename, r.ProcessedFilename)
			}
		}
		if err != nil {
			return err
		}

		slog.Info("transform finished", "files", len(results))
		return nil
	},
}

func init() {
	rootCmd.Flags().BoolVar(&force, "force", false, "Re-process newsletters that already have a digest")
	rootCmd.Flags().StringVar(&modelName, "model", "", "Model to use instead of the configured ingest model")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "Fail instead of writing the fallback digest")
}

func main() {
	godotenv.Load()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
