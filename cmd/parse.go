package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"goya/analyze"
	"goya/analyzer"
	"goya/ingest"
	"goya/logger"
	"goya/model"
	"goya/tokenize"
	"goya/worker"
)

// Output formats of parse.
const (
	formatWakachi = "wakachi"
	formatBest    = "best"
	formatJSON    = "json"
	formatDot     = "dot"
	formatMeCab   = "mecab"
)

type parseOptions struct {
	format  string
	merge   bool
	analyze bool
	dump    string
}

// parseRecord is what json output and --dump write per sentence.
type parseRecord struct {
	Sentence ingest.Sentence   `json:"sentence"`
	Tokens   []model.Token     `json:"tokens"`
	Merged   []model.Token     `json:"merged_tokens,omitempty"`
	Analysis *analyze.Analysis `json:"analysis,omitempty"`
}

// segmentOnly reports whether the output needs nothing beyond the best path,
// in which case the feature table is never opened.
func (o *parseOptions) segmentOnly() bool {
	return (o.format == formatWakachi || o.format == formatBest) && !o.merge && !o.analyze && o.dump == ""
}

func newParseCmd(a *app) *cobra.Command {
	o := &parseOptions{}
	cmd := &cobra.Command{
		Use:   "parse [text...]",
		Short: "Segment text",
		Long: `Segment text into words.

With arguments, the text is split into sentences at 。！？ and line breaks and
the sentences are analyzed by the worker pool. Without arguments, every line
of standard input is analyzed as it arrives.

Formats:
  wakachi  surfaces separated by spaces (default)
  best     one line per word: surface, word id, start, end, left id, right id, cost
  mecab    surface<TAB>features per word, then EOS
  json     one JSON object per sentence
  dot      the Graphviz lattice of each sentence, best path in bold`,
		Example: `  goya parse すもももももももものうち
  echo 東京都に住む | goya parse --format mecab
  goya parse --format dot 東京都 | dot -Tsvg > lattice.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runParse(cmd, o, args)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.format, "format", "f", formatWakachi, "output format: wakachi, best, mecab, json or dot")
	f.BoolVar(&o.merge, "merge", false, "merge verbs with their auxiliaries")
	f.BoolVar(&o.analyze, "analyze", false, "add clause analysis to json output")
	f.StringVar(&o.dump, "dump", "", "also write every sentence as JSON into this directory")
	return cmd
}

type printer struct {
	log  *slog.Logger
	an   *analyzer.Analyzer
	pool *worker.Pool
	o    *parseOptions
	w    *bufio.Writer
}

func (a *app) runParse(cmd *cobra.Command, o *parseOptions, args []string) error {
	switch o.format {
	case formatWakachi, formatBest, formatJSON, formatDot, formatMeCab:
	default:
		return fmt.Errorf("unknown format %q", o.format)
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
	if o.dump != "" {
		if err := logger.InitLogs(o.dump); err != nil {
			return err
		}
	}

	pool := worker.New(an, worker.Config{
		Workers: a.cfg.Workers.Count,
		Queue:   a.cfg.Workers.Queue,
		Segment: o.segmentOnly(),
	}, a.log)
	defer pool.Close()
	w := bufio.NewWriter(cmd.OutOrStdout())
	defer w.Flush()
	p := &printer{log: a.log, an: an, pool: pool, o: o, w: w}

	if len(args) > 0 {
		return p.batch(ctx, ingest.Split(strings.Join(args, " ")))
	}

	sc := bufio.NewScanner(cmd.InOrStdin())
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		s, err := ingest.New(sc.Text())
		if errors.Is(err, ingest.ErrEmpty) {
			if o.format == formatMeCab {
				w.WriteString("EOS\n")
			}
			continue
		}
		if err := p.one(ctx, s); err != nil {
			p.log.Error("parse failed", "id", s.ID, "error", err, "code", model.Classify(err))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return sc.Err()
}

func (p *printer) batch(ctx context.Context, sentences []ingest.Sentence) error {
	if p.o.format == formatDot {
		for _, s := range sentences {
			if err := p.one(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}
	for _, res := range p.pool.All(ctx, sentences) {
		if err := p.emit(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

func (p *printer) one(ctx context.Context, s ingest.Sentence) error {
	if p.o.format == formatDot {
		l, err := p.an.Parse(s.Text)
		if err != nil {
			return err
		}
		_, err = p.w.WriteString(l.Dot())
		return err
	}
	return p.emit(ctx, p.pool.Do(ctx, s))
}

func (p *printer) emit(ctx context.Context, res worker.Result) error {
	if res.Err != nil {
		return fmt.Errorf("sentence %q: %w", res.Sentence.Text, res.Err)
	}
	rec := parseRecord{Sentence: res.Sentence, Tokens: res.Tokens}
	toks := res.Tokens
	if p.o.merge {
		rec.Merged = tokenize.MergeVerbAuxiliaries(res.Tokens)
		toks = rec.Merged
	}
	if p.o.analyze || p.o.dump != "" {
		analysis, err := analyze.Analyze(ctx, res.Sentence, res.Tokens)
		if err != nil {
			return err
		}
		rec.Analysis = &analysis
	}
	if p.o.dump != "" {
		if err := logger.LogJSON(p.o.dump, res.Sentence.ID, rec); err != nil {
			return err
		}
	}

	w := p.w
	switch p.o.format {
	case formatWakachi:
		for i, t := range toks {
			if i > 0 {
				w.WriteByte(' ')
			}
			w.WriteString(t.Text)
		}
		w.WriteByte('\n')
	case formatBest:
		for _, t := range toks {
			fmt.Fprintf(w, "%s\t%v\t%d\t%d\t%d\t%d\t%d\n", t.Text, t.WordID, t.Start, t.End, t.LeftID, t.RightID, t.Cost)
		}
		w.WriteString("EOS\n")
	case formatMeCab:
		for _, t := range toks {
			fmt.Fprintf(w, "%s\t%s\n", t.Text, strings.Join(trimEmpty(t.Features), ","))
		}
		w.WriteString("EOS\n")
	case formatJSON:
		if !p.o.analyze {
			rec.Analysis = nil
		}
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(rec)
	}
	return nil
}

// trimEmpty drops the empty padding fields at the end of a record.
func trimEmpty(fields []string) []string {
	n := len(fields)
	for n > 0 && fields[n-1] == "" {
		n--
	}
	return fields[:n]
}
