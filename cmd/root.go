// Package cmd implements the goya command line.
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"goya/analyzer"
	"goya/config"
	"goya/dictionary"
	"goya/featuredb"
	"goya/kagomedict"
	"goya/logger"
	"goya/tokenize"
)

type globalFlags struct {
	configPath string
	dictDir    string
	source     string
	logLevel   string
}

// app carries what every subcommand needs once the root has run.
type app struct {
	flags globalFlags
	cfg   *config.Config
	log   *slog.Logger
}

// Execute runs the command line with os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "goya",
		Short: "Japanese morphological analyzer",
		Long: `goya segments Japanese text into words with a dictionary-driven lattice
and a minimum-cost path search, and looks up linguistic features of the
words it finds.

Dictionaries come from compiled artifacts (goya build) or from the IPADIC
and UniDic tables bundled with kagome.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "config file (YAML)")
	pf.StringVar(&a.flags.dictDir, "dict", "", "directory of compiled artifacts (implies --source artifacts)")
	pf.StringVar(&a.flags.source, "source", "", "dictionary source: artifacts, ipa or uni")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newParseCmd(a), newBuildCmd(a), newFeaturesCmd(a), newInfoCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	if a.flags.dictDir != "" {
		cfg.Dictionary.Dir = a.flags.dictDir
		cfg.Dictionary.Source = config.SourceArtifacts
	}
	if a.flags.source != "" {
		cfg.Dictionary.Source = a.flags.source
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logger.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

// analyzer builds an analyzer over the configured dictionary and feature
// source.
func (a *app) analyzer(ctx context.Context) (*analyzer.Analyzer, error) {
	cfg := a.cfg
	an, err := analyzer.New(
		analyzer.WithLogger(a.log),
		analyzer.WithCacheSize(cfg.Cache.Size),
		analyzer.WithLayout(tokenize.LayoutFor(cfg.Dictionary.Source)),
	)
	if err != nil {
		return nil, err
	}
	switch cfg.Dictionary.Source {
	case config.SourceArtifacts:
		if err := an.Load(ctx, dictionary.Dir(cfg.Dictionary.Dir)); err != nil {
			return nil, err
		}
	default:
		src, err := kagomedict.Open(cfg.Dictionary.Source)
		if err != nil {
			return nil, err
		}
		an.Use(src.Dictionary, src.Features)
		a.log.Debug("using bundled dictionary", "name", src.Name, "words", len(src.Dictionary.Vocabulary))
	}
	switch {
	case cfg.Features.SQLite != "":
		path := cfg.Features.SQLite
		an.SetFeatureLoader(func(ctx context.Context) (analyzer.FeatureLookup, error) {
			return featuredb.Open(ctx, featuredb.Config{Path: path})
		})
	case cfg.Features.Path != "":
		an.LoadFeaturesFrom(os.DirFS(cfg.Features.Path))
	}
	return an, nil
}
