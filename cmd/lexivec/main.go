// Command lexivec builds an approximate nearest neighbor index over a
// fastText word embedding corpus and serves an interactive prompt that
// compares graph search against exact ground truth.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"

	"github.com/lexivec/lexivec"
	"github.com/lexivec/lexivec/corpus"
	"github.com/lexivec/lexivec/index/flat"
	"github.com/lexivec/lexivec/index/hnsw"
	"github.com/lexivec/lexivec/vectorstore"
)

const defaultCorpusURL = "https://dl.fbaipublicfiles.com/fasttext/vectors-crawl/cc.en.300.vec.gz"

type config struct {
	corpusURL      string
	corpusFile     string
	maxRecords     int
	m              int
	ef             int
	efConstruction int
	k              int
	workers        int
	seed           int64
	jsonLogs       bool
	verbose        bool
}

func main() {
	var cfg config

	flag.StringVar(&cfg.corpusURL, "corpus", defaultCorpusURL, "corpus URL (http(s)://, s3://, minio://, minios://)")
	flag.StringVar(&cfg.corpusFile, "file", "", "local corpus file; defaults to the URL basename in the working directory")
	flag.IntVar(&cfg.maxRecords, "max-records", 0, "load at most this many words (0 = all)")
	flag.IntVar(&cfg.m, "m", hnsw.DefaultM, "graph connectivity per layer")
	flag.IntVar(&cfg.ef, "ef", hnsw.DefaultEF, "candidate list size during search")
	flag.IntVar(&cfg.efConstruction, "ef-construction", hnsw.DefaultEFConstruction, "candidate list size during build")
	flag.IntVar(&cfg.k, "k", 10, "neighbors per query")
	flag.IntVar(&cfg.workers, "workers", 0, "bulk insert workers (0 = GOMAXPROCS)")
	flag.Int64Var(&cfg.seed, "seed", 42, "level generator seed")
	flag.BoolVar(&cfg.jsonLogs, "json-logs", false, "write JSON logs")
	flag.BoolVar(&cfg.verbose, "verbose", false, "debug logging")
	flag.Parse()

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config) *lexivec.Logger {
	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	if cfg.jsonLogs {
		return lexivec.NewJSONLogger(level)
	}
	return lexivec.NewTextLogger(level)
}

func run(ctx context.Context, cfg config, logger *lexivec.Logger) error {
	file := cfg.corpusFile
	if file == "" {
		u, err := url.Parse(cfg.corpusURL)
		if err != nil {
			return fmt.Errorf("parse corpus url: %w", err)
		}
		file = path.Base(u.Path)
	}

	downloaded, err := corpus.Ensure(ctx, cfg.corpusURL, file)
	if err != nil {
		return err
	}
	if downloaded {
		logger.Info("corpus downloaded", "url", cfg.corpusURL, "file", file)
	} else {
		logger.Info("corpus found", "file", file)
	}

	reader, err := corpus.Open(file, func(o *corpus.Options) {
		o.MaxRecords = cfg.maxRecords
	})
	if err != nil {
		return err
	}
	defer reader.Close()

	total := reader.Count()
	if cfg.maxRecords > 0 && (total == 0 || cfg.maxRecords < total) {
		total = cfg.maxRecords
	}

	logger.Info("building index",
		"dimension", reader.Dimension(),
		"words", total,
		"m", cfg.m,
		"ef_construction", cfg.efConstruction,
	)

	store := vectorstore.New()

	graph, err := hnsw.New(store, func(o *hnsw.Options) {
		o.M = cfg.m
		o.EF = cfg.ef
		o.EFConstruction = cfg.efConstruction
		o.RandomSeed = &cfg.seed
	})
	if err != nil {
		return err
	}

	progress := corpus.ThrottleProgress(func(done, total int) {
		if total > 0 {
			logger.Info("loading", "done", done, "total", total, "pct", fmt.Sprintf("%.1f", 100*float64(done)/float64(total)))
		} else {
			logger.Info("loading", "done", done)
		}
	}, 2*time.Second)

	start := time.Now()
	inserted, err := graph.BulkInsert(ctx, reader.Records(), func(o *hnsw.BulkOptions) {
		o.NumWorkers = cfg.workers
		o.Total = total
		o.Progress = progress
		o.SkipErrors = true
	})
	logger.LogBuild(ctx, inserted, time.Since(start), err)
	if err != nil {
		return err
	}

	stats := graph.Stats()
	logger.Info("graph ready",
		"nodes", stats.Count,
		"max_level", stats.MaxLevel,
		"entry_word", stats.EntryWord,
	)

	exact, err := flat.New(store)
	if err != nil {
		return err
	}

	evaluator := lexivec.NewEvaluator(store, graph, exact, func(o *lexivec.EvaluatorOptions) {
		o.Logger = logger
	})

	repl(ctx, evaluator, graph, cfg.k)

	return nil
}

func repl(ctx context.Context, evaluator *lexivec.Evaluator, graph *hnsw.Graph, k int) {
	fmt.Println("Type a word to find its nearest neighbors. Use `Ctrl-D` to exit.")
	defer fmt.Println("Bye!")

	p := prompt.New(
		func(in string) {
			word := strings.TrimSpace(in)
			if word == "" {
				return
			}

			if word == ".stats" {
				printStats(graph)
				return
			}

			ev, err := evaluator.Evaluate(ctx, word, k)
			if err != nil {
				fmt.Println("Error:", err)
				return
			}

			printEvaluation(ev)
		},
		completer,
		prompt.OptionPrefix(">>> "),
		prompt.OptionPrefixTextColor(prompt.Yellow),
	)
	p.Run()
}

func completer(d prompt.Document) []prompt.Suggest {
	s := []prompt.Suggest{
		{Text: ".stats", Description: "Show graph topology"},
	}
	return prompt.FilterHasPrefix(s, d.GetWordBeforeCursor(), true)
}

func printEvaluation(ev *lexivec.Evaluation) {
	fmt.Printf("Approximate (%v):\n", ev.ApproxLatency)
	for _, r := range ev.Approximate {
		fmt.Printf("  %-24s %.4f\n", r.Word, r.Distance)
	}

	fmt.Printf("Exact (%v):\n", ev.ExactLatency)
	for _, r := range ev.Exact {
		fmt.Printf("  %-24s %.4f\n", r.Word, r.Distance)
	}

	fmt.Printf("Recall@%d: %.2f\n", ev.K, ev.Recall)
}

func printStats(graph *hnsw.Graph) {
	stats := graph.Stats()
	fmt.Printf("Nodes: %d  Max level: %d  Entry: %s\n", stats.Count, stats.MaxLevel, stats.EntryWord)
	for i := len(stats.Levels) - 1; i >= 0; i-- {
		l := stats.Levels[i]
		avg := 0.0
		if l.Nodes > 0 {
			avg = float64(l.Connections) / float64(l.Nodes)
		}
		fmt.Printf("  level %d: %d nodes, avg degree %.1f\n", l.Level, l.Nodes, avg)
	}
}
