package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"goya/artifact"
	"goya/dictionary"
	"goya/featuredb"
	"goya/features"
	"goya/ipadic"
	"goya/kagomedict"
)

type buildOptions struct {
	ipadic   string
	bundled  string
	out      string
	compress bool
	sqlite   string
	encoding string
}

func newBuildCmd(a *app) *cobra.Command {
	o := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile dictionary artifacts",
		Long: `Compile dictionary artifacts.

--ipadic reads an IPADIC source tree (*.csv, matrix.def, char.def, unk.def)
and writes da.bin, dict.bin and features.bin into --out.

--bundled exports the feature table of a bundled dictionary (ipa or uni);
its segmentation tables are served from the kagome package and need no
artifacts.

--sqlite additionally writes the feature table as a SQLite database for
per-word lookups.`,
		Example: `  goya build --ipadic ./mecab-ipadic-2.7.0 --out ./dict --compress
  goya build --bundled ipa --out ./dict --sqlite ./dict/features.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("compress") {
				o.compress = a.cfg.Dictionary.Compress
			}
			if o.out == "" {
				o.out = a.cfg.Dictionary.Dir
			}
			return a.runBuild(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.ipadic, "ipadic", "", "IPADIC source directory")
	f.StringVar(&o.bundled, "bundled", "", "bundled dictionary to export: ipa or uni")
	f.StringVarP(&o.out, "out", "o", "", "output directory (default: dictionary.dir)")
	f.BoolVar(&o.compress, "compress", false, "zstd-compress the artifacts")
	f.StringVar(&o.sqlite, "sqlite", "", "also export features to this SQLite file")
	f.StringVar(&o.encoding, "encoding", ipadic.DefaultEncoding, "encoding of the IPADIC source files")
	cmd.MarkFlagsMutuallyExclusive("ipadic", "bundled")
	cmd.MarkFlagsOneRequired("ipadic", "bundled")
	return cmd
}

func (a *app) runBuild(cmd *cobra.Command, o *buildOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if o.out == "" {
		return errors.New("no output directory")
	}
	if err := os.MkdirAll(o.out, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	start := time.Now()
	var feats *features.Store

	switch {
	case o.ipadic != "":
		c, err := ipadic.Compile(os.DirFS(o.ipadic), ipadic.Options{Encoding: o.encoding})
		if err != nil {
			return err
		}
		if err := dictionary.Save(o.out, c.Trie, c.Dictionary, o.compress); err != nil {
			return err
		}
		rights, lefts := c.Dictionary.Matrix.Size()
		a.log.Info("compiled dictionary",
			"words", len(c.Dictionary.Vocabulary),
			"keys", c.Trie.NumKeys(),
			"cells", c.Trie.NumCells(),
			"matrix", fmt.Sprintf("%dx%d", rights, lefts),
			"unknown_entries", c.Dictionary.Unknown.Len())
		feats = c.Features
	default:
		src, err := kagomedict.Open(o.bundled)
		if err != nil {
			return err
		}
		feats = src.Features
	}

	if err := artifact.Write(o.out, artifact.FeaturesFile, o.compress, feats); err != nil {
		return fmt.Errorf("write features: %w", err)
	}
	if o.sqlite != "" {
		if err := featuredb.Export(ctx, o.sqlite, feats); err != nil {
			return err
		}
		a.log.Info("exported features", "path", o.sqlite, "records", feats.Len())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d words, %d fields per record) in %s\n",
		o.out, feats.Len(), feats.Width(), time.Since(start).Round(time.Millisecond))
	return nil
}
