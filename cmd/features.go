package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"goya/model"
)

func newFeaturesCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "features ID...",
		Short: "Print the feature records of word ids",
		Long: `Print the feature records of word ids, one per line.

Known words have ids >= 0. Unknown-word entries are written unk:K, the form
parse prints: unk:0 is the first entry of unk.def, unk:1 the second, and so
on. Raw negative ids (-1 for unk:0) are accepted after --.`,
		Example: `  goya features 0 13 unk:1
  goya features -- -2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFeatures(cmd, args, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON array")
	return cmd
}

func (a *app) runFeatures(cmd *cobra.Command, args []string, asJSON bool) error {
	ids := make([]model.WordID, len(args))
	for i, arg := range args {
		id, err := model.ParseWordID(arg)
		if err != nil {
			return err
		}
		ids[i] = id
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	an, err := a.analyzer(ctx)
	if err != nil {
		return err
	}
	defer an.Close()

	recs, err := an.Features(ctx, ids)
	if err != nil {
		return err
	}
	missing := 0
	for i, id := range ids {
		if id.Known() {
			if recs[i] == nil {
				missing++
			}
			continue
		}
		rec, err := an.UnknownFeatures(ctx, id)
		if errors.Is(err, model.ErrUnknownWordID) {
			missing++
			continue
		}
		if err != nil {
			return err
		}
		recs[i] = &rec
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(recs); err != nil {
			return err
		}
	} else {
		for i, rec := range recs {
			if rec == nil {
				fmt.Fprintf(out, "%v\t(no record)\n", ids[i])
				continue
			}
			fmt.Fprintf(out, "%v\t%s\n", ids[i], strings.Join(trimEmpty(rec.Fields), ","))
		}
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d ids: %w", missing, len(ids), model.ErrUnknownWordID)
	}
	return nil
}
