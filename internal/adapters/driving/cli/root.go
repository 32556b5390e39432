// Package cli provides the sercha-kb command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/app"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// Services used by the commands. Set by SetServices or opened lazily from
// the data directory before a command runs.
var (
	corpusService     driving.CorpusService
	resolutionService driving.ResolutionService
	retrievalService  driving.RetrievalService
	indexService      driving.IndexService
	settingsService   driving.SettingsService
)

// Global flags.
var (
	verbose   bool
	dataDir   string
	ephemeral bool
)

// opened is the app bootstrapped by a command, closed by Execute.
var opened *app.App

// noServices marks commands that must not open the knowledge base.
const noServices = "no-services"

var rootCmd = &cobra.Command{
	Use:   "sercha-kb",
	Short: "Local Markdown knowledge base for AI assistants",
	Long: `sercha-kb imports Markdown and text files, splits them into heading-scoped
topics and serves them to AI assistants through a two-step protocol:
resolve a question to topics, then fetch the content under those topics.

Data lives in ~/.sercha-kb unless --data-dir is given.`,
	SilenceUsage:      true,
	PersistentPreRunE: bootstrap,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default ~/.sercha-kb)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep everything in memory for this run")
}

// SetServices injects the services used by the commands. Commands run after
// SetServices never open the data directory.
func SetServices(
	corpus driving.CorpusService,
	resolution driving.ResolutionService,
	retrieval driving.RetrievalService,
	index driving.IndexService,
	settings driving.SettingsService,
) {
	corpusService = corpus
	resolutionService = resolution
	retrievalService = retrieval
	indexService = index
	settingsService = settings
}

// Execute runs the root command and releases anything it opened.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if opened != nil {
		if cerr := opened.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		opened = nil
	}
	return err
}

func bootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[noServices] == "true" || corpusService != nil {
		return nil
	}

	a, err := app.New(cmd.Context(), app.Options{DataDir: dataDir, Ephemeral: ephemeral})
	if err != nil {
		return fmt.Errorf("opening knowledge base: %w", err)
	}
	opened = a
	SetServices(a.Corpus, a.Resolution, a.Retrieval, a.Index, a.Settings)
	logger.Debug("Opened knowledge base at %s", a.DataDir)
	return nil
}

func requireCorpus() error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}
	return nil
}
