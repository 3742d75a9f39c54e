package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"diagcheck/internal/cache"
	"diagcheck/internal/corpus"
	"diagcheck/internal/diag"
	"diagcheck/internal/expect"
	"diagcheck/internal/match"
	"diagcheck/internal/observ"
	"diagcheck/internal/source"
	"diagcheck/internal/toolchain"
	"diagcheck/internal/trace"
)

// errFailFast cancels the group after the first red fixture.
var errFailFast = errors.New("fail-fast")

// runState держит всё, что нужно воркерам: неизменяемые после старта
// структуры, поэтому мьютекс не нужен.
type runState struct {
	opts      Options
	manifest  *corpus.Manifest
	registry  *toolchain.Registry
	cache     *cache.DiskCache
	matchOpts match.Options
	timeout   time.Duration
	maxFind   int

	fileSet  *source.FileSet
	fileIDs  map[string]source.FileID
	loadErrs map[string]error

	// fingerprints per adapter name; an adapter without an entry is not
	// cached this run.
	fingerprints map[string]string

	tracer trace.Tracer
}

// Run executes the whole corpus and aggregates the verdicts.
func Run(ctx context.Context, opts Options) (*Report, error) {
	m := opts.Manifest
	if m == nil {
		return nil, errors.New("runner: manifest is required")
	}

	reg := opts.Registry
	if reg == nil {
		var err error
		reg, err = BuildRegistry(m, opts.Tools)
		if err != nil {
			return nil, err
		}
	}
	if reg.Len() == 0 {
		return nil, errors.New("runner: no tools enabled")
	}

	tracer := trace.FromContext(ctx)
	runSpan := trace.Begin(tracer, trace.ScopeDriver, "run", 0)
	defer runSpan.End("")

	var timer *observ.Timer
	if opts.EnableTimings {
		timer = observ.NewTimer()
	}
	begin := func(name string) int {
		if timer == nil {
			return -1
		}
		return timer.Begin(name)
	}
	end := func(idx int, note string) {
		if timer == nil || idx < 0 {
			return
		}
		timer.End(idx, note)
	}

	matchOpts, err := m.MatchOptions()
	if err != nil {
		return nil, err
	}
	if opts.Match != nil {
		matchOpts = *opts.Match
	}

	st := &runState{
		opts:         opts,
		manifest:     m,
		registry:     reg,
		cache:        opts.Cache,
		matchOpts:    matchOpts,
		timeout:      time.Duration(m.Config.Run.TimeoutS) * time.Second,
		maxFind:      m.Config.Run.MaxFindings,
		fingerprints: make(map[string]string),
		tracer:       tracer,
	}

	// Обход корпуса: только расширения, на которые заявлен адаптер.
	discIdx := begin("discover")
	discSpan := trace.Begin(tracer, trace.ScopePhase, "discover", runSpan.ID())
	exts := make(map[string]struct{})
	for _, a := range reg.All() {
		for _, ext := range a.Extensions() {
			exts[ext] = struct{}{}
		}
	}
	files, derr := corpus.Discover(m, exts)
	discSpan.End(fmt.Sprintf("files=%d", len(files)))
	end(discIdx, fmt.Sprintf("files=%d", len(files)))
	if derr != nil {
		return nil, derr
	}

	report := &Report{
		FileSet: source.NewFileSetWithBase(m.Root),
		Bag:     diag.NewBag(st.maxFind),
	}
	st.fileSet = report.FileSet

	if len(files) == 0 {
		if timer != nil {
			report.Timing = reportTimer(timer)
		}
		return report, nil
	}

	// Предзагрузка файлов; ошибки чтения откладываем в per-file результат.
	loadIdx := begin("load")
	st.fileIDs = make(map[string]source.FileID, len(files))
	st.loadErrs = make(map[string]error, len(files))
	for _, rel := range files {
		id, lerr := st.fileSet.Load(filepath.Join(m.Root, filepath.FromSlash(rel)))
		if lerr != nil {
			st.loadErrs[rel] = lerr
			continue
		}
		st.fileIDs[rel] = id
	}
	end(loadIdx, "")

	// Отпечатки тулчейнов нужны только для ключей кеша: адаптер без
	// отпечатка в этом прогоне просто не кешируется.
	if st.cache != nil {
		fpIdx := begin("fingerprint")
		for _, a := range reg.All() {
			fp, ferr := a.Fingerprint(ctx)
			if ferr != nil {
				trace.Point(tracer, trace.ScopeTool, "fingerprint:"+a.Name(), ferr.Error(), runSpan.ID())
				continue
			}
			st.fingerprints[a.Name()] = fp
		}
		end(fpIdx, "")
	}

	// Настраиваем параллелизм
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = m.Config.Run.Jobs
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	checkIdx := begin("check")
	checkSpan := trace.Begin(tracer, trace.ScopePhase, "check", runSpan.ID())
	st.emit(Event{Stage: StageCheck, Status: StatusWorking})

	// Результаты (индексы уникальны для каждой горутины, мьютекс не нужен)
	results := make([]match.FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, rel := range files {
		g.Go(func(i int, rel string) func() error {
			return func() error {
				// Проверка отмены
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				res := st.checkOne(gctx, rel, checkSpan.ID())
				results[i] = res

				if opts.FailFast && (res.Outcome == match.OutcomeFail || res.Outcome == match.OutcomeError) {
					return errFailFast
				}
				return nil
			}
		}(i, rel))
	}

	werr := g.Wait()
	checkSpan.End("")
	end(checkIdx, fmt.Sprintf("files=%d", len(files)))

	// Файлы, до которых прогон не дошёл (fail-fast, отмена), остаются
	// в отчёте как skip.
	for i, rel := range files {
		if results[i].Path == "" {
			results[i] = match.FileResult{Path: rel, Outcome: match.OutcomeSkip}
		}
	}

	sumIdx := begin("summarize")
	report.Results = results
	for i := range results {
		report.Summary.Add(&results[i])
	}
	end(sumIdx, "")

	if timer != nil {
		report.Timing = reportTimer(timer)
		appendTimingEntry(report.Bag, timingPayload{
			Kind:    "run",
			TotalMS: report.Timing.TotalMS,
			Phases:  report.Timing.Phases,
		})
	}

	if werr != nil && !errors.Is(werr, errFailFast) {
		return report, werr
	}
	return report, nil
}

func reportTimer(t *observ.Timer) *observ.Report {
	r := t.Report()
	return &r
}

func (st *runState) emit(ev Event) {
	if st.opts.Sink == nil {
		return
	}
	st.opts.Sink.OnEvent(ev)
}

// checkOne обрабатывает один файл: скан ожиданий, запуск тула (или кеш),
// сверка. Всегда возвращает результат с заполненным Path.
func (st *runState) checkOne(ctx context.Context, rel string, parent uint64) match.FileResult {
	started := time.Now()
	span := trace.Begin(st.tracer, trace.ScopeFile, "file:"+rel, parent)

	st.emit(Event{File: rel, Stage: StageLoad, Status: StatusWorking})

	if lerr, bad := st.loadErrs[rel]; bad {
		span.End("load error")
		res := match.FileResult{
			Path:    rel,
			Outcome: match.OutcomeError,
			Findings: []diag.Diagnostic{
				diag.NewError(diag.CodeLoadFailed, source.Span{}, "failed to load fixture: "+lerr.Error()),
			},
		}
		st.emit(Event{File: rel, Stage: StageLoad, Status: StatusError, Err: lerr, Elapsed: time.Since(started)})
		return res
	}
	f := st.fileSet.Get(st.fileIDs[rel])

	adapter, ok := st.registry.ForFile(rel)
	if !ok {
		span.End("no adapter")
		st.emit(Event{File: rel, Stage: StageLoad, Status: StatusSkip, Elapsed: time.Since(started)})
		return match.FileResult{File: f.ID, Path: rel, Outcome: match.OutcomeSkip}
	}
	tool := adapter.Name()

	scanBag := diag.NewBag(st.maxFind)
	exps := expect.ScanFile(f, expect.CommentLeader(adapter.Language()), diag.BagReporter{Bag: scanBag})

	diags, exit, dur, cached := st.fromCache(tool, f)
	if !cached {
		st.emit(Event{File: rel, Stage: StageCheck, Status: StatusWorking})
		toolSpan := trace.Begin(st.tracer, trace.ScopeTool, tool, span.ID())

		cres, cerr := adapter.Check(ctx, toolchain.CheckRequest{
			File:          f,
			Timeout:       st.timeout,
			PrintCommands: st.opts.PrintCommands,
		})
		if cerr != nil {
			toolSpan.End(cerr.Error())
			if errors.Is(cerr, context.Canceled) {
				// прогон сворачивается, файл не судим
				span.End("canceled")
				return match.FileResult{File: f.ID, Path: rel, Tool: tool, Outcome: match.OutcomeSkip}
			}
			span.End("tool error")
			res := match.FileResult{
				File:     f.ID,
				Path:     rel,
				Tool:     tool,
				Outcome:  match.OutcomeError,
				Expected: len(exps),
				Findings: append(scanBag.Items(), toolFinding(f, tool, st.timeout, cerr)),
				Duration: time.Since(started),
			}
			st.emit(Event{File: rel, Stage: StageCheck, Status: StatusError, Err: cerr, Elapsed: time.Since(started)})
			return res
		}
		toolSpan.End(fmt.Sprintf("exit=%d diags=%d", cres.ExitCode, len(cres.Diagnostics)))

		diags, exit, dur = cres.Diagnostics, cres.ExitCode, cres.Duration
		st.toCache(tool, f, exit, dur, diags)
	} else {
		trace.Point(st.tracer, trace.ScopeTool, "cache-hit:"+tool, rel, span.ID())
	}

	st.emit(Event{File: rel, Stage: StageMatch, Status: StatusWorking, Cached: cached})
	res := match.Diff(f, tool, exps, diags, st.matchOpts)
	res.Path = rel
	res.ToolExit = exit
	res.Cached = cached
	res.Duration = dur
	if scanned := scanBag.Items(); len(scanned) > 0 {
		res.Findings = append(scanned, res.Findings...)
	}

	span.End(res.Outcome.String())
	st.emit(Event{
		File:    rel,
		Stage:   StageMatch,
		Status:  statusForOutcome(res.Outcome),
		Elapsed: time.Since(started),
		Cached:  cached,
	})
	return res
}

// fromCache restores a previous tool run for the same content and tool
// fingerprint. A miss of any kind returns cached=false.
func (st *runState) fromCache(tool string, f *source.File) (diags []diag.Diagnostic, exit int, dur time.Duration, cached bool) {
	key, ok := st.key(tool, f)
	if !ok {
		return nil, 0, 0, false
	}
	var payload cache.Payload
	hit, err := st.cache.Get(key, &payload)
	if err != nil || !hit {
		return nil, 0, 0, false
	}
	diags, exit, dur, cached = payload.Restore(f)
	return diags, exit, dur, cached
}

func (st *runState) toCache(tool string, f *source.File, exit int, dur time.Duration, diags []diag.Diagnostic) {
	key, ok := st.key(tool, f)
	if !ok {
		return
	}
	if err := st.cache.Put(key, cache.Snapshot(f, tool, exit, dur, diags)); err != nil {
		trace.Point(st.tracer, trace.ScopeTool, "cache-put:"+tool, err.Error(), 0)
	}
}

func (st *runState) key(tool string, f *source.File) (cache.Key, bool) {
	if st.cache == nil {
		return cache.Key{}, false
	}
	fp, ok := st.fingerprints[tool]
	if !ok {
		return cache.Key{}, false
	}
	return cache.KeyFor(tool, fp, keyArgs(st.manifest.Tool(tool)), f.Hash), true
}

// toolFinding maps an adapter error onto the TOOL namespace.
func toolFinding(f *source.File, tool string, timeout time.Duration, err error) diag.Diagnostic {
	span := source.Span{File: f.ID}
	code := diag.CodeToolFailed
	msg := err.Error()
	switch {
	case errors.Is(err, toolchain.ErrToolNotFound):
		code = diag.CodeToolMissing
	case errors.Is(err, context.DeadlineExceeded):
		code = diag.CodeToolTimeout
		msg = fmt.Sprintf("%s timed out after %s", tool, timeout)
	case errors.Is(err, toolchain.ErrBadOutput):
		code = diag.CodeToolOutput
	default:
		msg = fmt.Sprintf("%s failed: %v", tool, err)
	}
	return diag.NewError(code, span, msg).WithTool(tool)
}

func statusForOutcome(o match.Outcome) Status {
	switch o {
	case match.OutcomePass:
		return StatusPass
	case match.OutcomeFail:
		return StatusFail
	case match.OutcomeError:
		return StatusError
	default:
		return StatusSkip
	}
}
