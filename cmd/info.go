package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"goya/trie"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the configured dictionary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			an, err := a.analyzer(ctx)
			if err != nil {
				return err
			}
			defer an.Close()
			d := an.Dictionary()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			rights, lefts := d.Matrix.Size()
			fmt.Fprintf(w, "source\t%s\n", a.cfg.Dictionary.Source)
			fmt.Fprintf(w, "words\t%d\n", len(d.Vocabulary))
			if t, ok := d.Index.(*trie.Trie); ok {
				fmt.Fprintf(w, "trie keys\t%d\n", t.NumKeys())
				fmt.Fprintf(w, "trie cells\t%d\n", t.NumCells())
			}
			fmt.Fprintf(w, "matrix\t%d x %d\n", rights, lefts)
			fmt.Fprintf(w, "unknown entries\t%d\n", d.Unknown.Len())
			fmt.Fprintln(w)
			fmt.Fprintln(w, "class\tinvoke\tgroup\tlength")
			for _, c := range d.Classes().Classes() {
				fmt.Fprintf(w, "%s\t%t\t%t\t%d\n", c.Name, c.Invoke, c.Group, c.Length)
			}
			return w.Flush()
		},
	}
}
