// Package corpus builds the training dataset and player form table from a
// directory of historical match files.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/okian/chase/internal/adapters/matchfile"
	"github.com/okian/chase/internal/adapters/mq/queue"
	"github.com/okian/chase/internal/adapters/mq/worker"
	"github.com/okian/chase/internal/adapters/repository"
	"github.com/okian/chase/internal/domain/dedupe"
	"github.com/okian/chase/internal/domain/features"
	"github.com/okian/chase/internal/domain/form"
	"github.com/okian/chase/internal/domain/model"
	"github.com/okian/chase/internal/domain/normalize"
	"github.com/okian/chase/pkg/logger"
	"github.com/okian/chase/pkg/metrics"
)

// Report summarises one build.
type Report struct {
	Files        int    `json:"files"`
	Matches      int    `json:"matches"`
	Failed       int    `json:"failed"`
	Duplicates   int    `json:"duplicates"`
	Rows         int    `json:"rows"`
	TrainingRows int    `json:"training_rows"`
	FormPlayers  int    `json:"form_players"`
	Output       string `json:"output,omitempty"`
}

// Example is one labelled training row.
type Example struct {
	Row      model.Row
	Features features.Vector
	Label    int
}

// Builder runs the dataset build.
type Builder struct {
	dataDir    string
	outCSV     string
	workers    int
	queueSize  int
	dedupeSize int
	store      repository.Store
	logger     logger.Logger

	mu      sync.Mutex
	loaded  []loadedMatch
	failed  int
	results Result
}

// Result holds the in-memory output of the last Run.
type Result struct {
	Rows     []model.Row
	Examples []Example
	Forms    *form.Table
}

type loadedMatch struct {
	seq   int
	match model.Match
	rows  []model.Row
}

// NewBuilder creates a builder reading match files from dataDir.
func NewBuilder(dataDir string, opts ...Option) *Builder {
	b := &Builder{
		dataDir:   dataDir,
		workers:   runtime.NumCPU(),
		queueSize: 1024,
		logger:    logger.Get().Named("corpus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Result returns the output of the last successful Run.
func (b *Builder) Result() Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.results
}

// Run loads every match file, builds the form table and labelled examples,
// then writes the CSV and persists to the store when configured.
func (b *Builder) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	var rep Report

	paths, err := matchfile.Discover(b.dataDir)
	if err != nil {
		return rep, err
	}
	if len(paths) == 0 {
		return rep, fmt.Errorf("%w: %s", ErrNoMatchFiles, b.dataDir)
	}
	rep.Files = len(paths)

	b.mu.Lock()
	b.loaded, b.failed = nil, 0
	b.mu.Unlock()

	if err := b.ingest(ctx, paths); err != nil {
		return rep, err
	}

	rows, dups := b.collect(ctx)
	rep.Matches = len(b.loaded) - dups
	rep.Failed = b.failed
	rep.Duplicates = dups
	rep.Rows = len(rows)

	training := TrainingRows(rows)
	forms := form.Build(training)
	examples := Label(training, forms)
	rep.TrainingRows = len(examples)
	for _, role := range form.Roles {
		n := forms.Players(role)
		rep.FormPlayers += n
		metrics.UpdateFormPlayers(string(role), n)
	}

	if b.outCSV != "" {
		if err := WriteCSV(b.outCSV, examples); err != nil {
			return rep, err
		}
		rep.Output = b.outCSV
	}
	if b.store != nil {
		if err := b.store.ReplaceRows(ctx, rows); err != nil {
			return rep, err
		}
		if err := b.store.SaveForms(ctx, forms); err != nil {
			return rep, err
		}
	}

	b.mu.Lock()
	b.results = Result{Rows: rows, Examples: examples, Forms: forms}
	b.mu.Unlock()

	metrics.RecordCorpusRows(len(examples))
	metrics.RecordCorpusBuild(time.Since(start))
	b.logger.Info(ctx, "corpus built",
		logger.Int("files", rep.Files),
		logger.Int("matches", rep.Matches),
		logger.Int("failed", rep.Failed),
		logger.Int("duplicates", rep.Duplicates),
		logger.Int("rows", rep.Rows),
		logger.Int("training_rows", rep.TrainingRows),
		logger.Duration("took", time.Since(start)),
	)
	return rep, nil
}

func (b *Builder) ingest(ctx context.Context, paths []string) error {
	q := queue.NewInMemoryQueue(queue.WithCapacity(b.queueSize))
	pool := worker.NewPool(b.workers, q, worker.HandlerFunc(b.handle))
	pool.Start(ctx)

	var enqueueErr error
	for i, p := range paths {
		if err := q.Enqueue(ctx, queue.Job{Seq: i, Path: p}); err != nil {
			enqueueErr = err
			break
		}
	}
	_ = q.Close()
	if err := pool.Wait(ctx); err != nil {
		return err
	}
	return enqueueErr
}

func (b *Builder) handle(ctx context.Context, j queue.Job) error {
	m, err := matchfile.Load(j.Path)
	if err == nil {
		var rows []model.Row
		rows, err = normalize.Match(m)
		if err == nil {
			b.mu.Lock()
			b.loaded = append(b.loaded, loadedMatch{seq: j.Seq, match: m, rows: rows})
			b.mu.Unlock()
			metrics.RecordCorpusMatch("ok")
			return nil
		}
	}
	b.mu.Lock()
	b.failed++
	b.mu.Unlock()
	metrics.RecordCorpusMatch("failed")
	metrics.RecordErrorByComponent("corpus", kind(err))
	return err
}

func kind(err error) string {
	switch {
	case errors.Is(err, normalize.ErrMalformedMatch):
		return "malformed_match"
	case errors.Is(err, matchfile.ErrUnsupportedFormat):
		return "unsupported_format"
	default:
		return "load"
	}
}

// collect drops duplicate match ids, keeping the first file in discovery
// order, and returns the rows sorted by (date, match, innings, ball).
func (b *Builder) collect(ctx context.Context) ([]model.Row, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sort.Slice(b.loaded, func(i, j int) bool { return b.loaded[i].seq < b.loaded[j].seq })
	seen := dedupe.NewInMemoryDeduper(dedupe.WithSizeHint(max(b.dedupeSize, len(b.loaded))))

	var rows []model.Row
	dups := 0
	for _, lm := range b.loaded {
		if seen.SeenAndRecord(ctx, lm.match.ID) {
			dups++
			metrics.RecordCorpusMatch("duplicate")
			b.logger.Debug(ctx, "duplicate match skipped", logger.String("match_id", lm.match.ID))
			continue
		}
		rows = append(rows, lm.rows...)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].SortKey().Less(rows[j].SortKey()) })
	return rows, dups
}

// TrainingRows keeps chase rows of decided matches, preserving order. Both the
// form table and the labelled examples are built from this subset.
func TrainingRows(rows []model.Row) []model.Row {
	out := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		if r.HasTarget() && r.Winner != "" {
			out = append(out, r)
		}
	}
	return out
}

// Label keeps chase rows of decided matches and attaches features and the
// outcome label. Form is looked up for (player, match).
func Label(rows []model.Row, forms *form.Table) []Example {
	var out []Example
	for _, r := range TrainingRows(rows) {
		v := features.Build(r, forms.Batsman(r.Batsman, r.MatchID), forms.Bowler(r.Bowler, r.MatchID))
		out = append(out, Example{Row: r, Features: v, Label: r.Label()})
	}
	return out
}
