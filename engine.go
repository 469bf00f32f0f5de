package mergeguard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Engine sequences the analysis pipeline over the full set of open
// proposals: enrichment, pre-filtered pairwise comparison, per-proposal
// detectors, and risk scoring. One analysis run is a bounded computation
// with a single completion point.
type Engine struct {
	host      HostClient
	extractor SymbolExtractor
	decisions DecisionStore
	config    Config

	similarity  SimilarityFunc
	adjudicator Adjudicator
	churn       ChurnProvider
	attribution AttributionFunc
	glob        GlobFunc
	ignored     PathMatcher
	cache       Cache
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithSimilarity injects the optional duplication similarity measure.
func WithSimilarity(fn SimilarityFunc) Option {
	return func(e *Engine) { e.similarity = fn }
}

// WithAdjudicator injects the optional semantic adjudicator for behavioral
// conflict severity refinement.
func WithAdjudicator(a Adjudicator) Option {
	return func(e *Engine) { e.adjudicator = a }
}

// WithChurn injects the optional historical churn provider.
func WithChurn(c ChurnProvider) Option {
	return func(e *Engine) { e.churn = c }
}

// WithAttribution replaces the default authorship heuristic.
func WithAttribution(fn AttributionFunc) Option {
	return func(e *Engine) { e.attribution = fn }
}

// WithGlob injects the glob matcher used by guardrail scopes and
// forbidden-import patterns.
func WithGlob(fn GlobFunc) Option {
	return func(e *Engine) { e.glob = fn }
}

// WithIgnoreMatcher injects the compiled ignored-path matcher.
func WithIgnoreMatcher(m PathMatcher) Option {
	return func(e *Engine) { e.ignored = m }
}

// WithCache injects the content/symbol cache. The cache is a side channel:
// a miss never changes the analysis result, only its latency.
func WithCache(c Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine validates the configuration and assembles an engine.
// Configuration errors are fatal here, before any proposal is analyzed.
func NewEngine(host HostClient, extractor SymbolExtractor, decisions DecisionStore, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	e := &Engine{
		host:        host,
		extractor:   extractor,
		decisions:   decisions,
		config:      cfg,
		attribution: HeuristicAttribution,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// AnalyzeAll analyzes every open proposal and returns one report per
// proposal, ordered by proposal number.
func (e *Engine) AnalyzeAll(ctx context.Context) ([]*Report, error) {
	proposals, err := e.host.OpenProposals(ctx, e.config.MaxOpenProposals)
	if err != nil {
		return nil, fmt.Errorf("listing open proposals: %w", err)
	}
	return e.run(ctx, proposals, 0)
}

// AnalyzeProposal analyzes a single proposal against all other open
// proposals and returns its report.
func (e *Engine) AnalyzeProposal(ctx context.Context, number int) (*Report, error) {
	target, err := e.host.Proposal(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("fetching proposal #%d: %w", number, err)
	}
	others, err := e.host.OpenProposals(ctx, e.config.MaxOpenProposals)
	if err != nil {
		return nil, fmt.Errorf("listing open proposals: %w", err)
	}

	proposals := []*Proposal{target}
	for _, p := range others {
		if p.Number != number {
			proposals = append(proposals, p)
		}
	}

	reports, err := e.run(ctx, proposals, number)
	if err != nil {
		return nil, err
	}
	for _, r := range reports {
		if r.Proposal.Number == number {
			return r, nil
		}
	}
	return nil, fmt.Errorf("no report produced for proposal #%d", number)
}

// pairResult is the output of one pairwise comparison task.
type pairResult struct {
	a, b      int
	conflicts []Conflict
	skipped   bool // deadline hit before this pair ran
}

func (e *Engine) run(ctx context.Context, proposals []*Proposal, target int) ([]*Report, error) {
	start := e.now()
	runID := uuid.NewString()

	if e.config.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Deadline)
		defer cancel()
	}

	sort.Slice(proposals, func(i, j int) bool { return proposals[i].Number < proposals[j].Number })

	failures := make(map[int]string)
	degraded := make(map[int][]string)

	// Enrichment: fetch diffs, attribute changed symbols, collect import
	// edges. Each task owns its slot; no shared state is written.
	enrichments := make([]*enrichment, len(proposals))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for i, p := range proposals {
		g.Go(func() error {
			enr, err := e.enrich(gctx, p)
			if err != nil {
				enr = &enrichment{err: err}
			}
			enrichments[i] = enr
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	graph := NewDependencyGraph()
	fileSymbols := make(map[string]*FileSymbols)
	stats := make(map[string]*ShapeStats)
	known := make(map[string]struct{})

	for i, p := range proposals {
		enr := enrichments[i]
		if enr == nil || enr.err != nil {
			msg := "analysis unavailable"
			if enr != nil && enr.err != nil {
				msg = enr.err.Error()
			}
			failures[p.Number] = msg
			continue
		}
		p.Symbols = enr.symbols
		p.SymbolCoverage = enr.coverage
		degraded[p.Number] = enr.degraded
		for path, fs := range enr.fileSymbols {
			fileSymbols[path] = fs
			known[path] = struct{}{}
		}
	}
	for path, fs := range fileSymbols {
		for _, sym := range fs.Symbols {
			if stats[sym.Module] == nil {
				stats[sym.Module] = &ShapeStats{}
			}
			stats[sym.Module].Observe(sym)
		}
		for _, imp := range fs.Imports {
			if to, ok := ResolveImport(imp, path, known); ok {
				graph.AddEdge(path, to)
			}
		}
	}

	decisions := e.recentDecisions(ctx, degraded, proposals)

	// Pairwise phase: pre-filter pairs with disjoint touched-file sets,
	// then classify the rest on a bounded worker pool. Conflicts from
	// completed pairs survive a deadline; skipped pairs are annotated.
	pairs := e.candidatePairs(proposals, failures, target, graph)
	results := make([]pairResult, len(pairs))
	pg, pctx := errgroup.WithContext(ctx)
	pg.SetLimit(e.config.Workers)
	for i, pair := range pairs {
		pg.Go(func() error {
			if pctx.Err() != nil {
				results[i] = pairResult{a: pair[0].Number, b: pair[1].Number, skipped: true}
				return nil
			}
			conflicts := e.analyzePair(pctx, pair[0], pair[1], graph)
			results[i] = pairResult{a: pair[0].Number, b: pair[1].Number, conflicts: conflicts}
			return nil
		})
	}
	partial := false
	if err := pg.Wait(); err != nil {
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, err
		}
		partial = true
	}

	// uncompared tracks candidate pairs the deadline prevented from running.
	// Their members must not be declared conflict-free.
	var pairConflicts []Conflict
	uncompared := make(map[[2]int]bool)
	for _, res := range results {
		if res.skipped {
			partial = true
			uncompared[pairKey(res.a, res.b)] = true
			continue
		}
		pairConflicts = append(pairConflicts, res.conflicts...)
	}

	// Per-proposal phase: guardrails and regression detection run once per
	// proposal and are independent of the pairwise results.
	reports := make([]*Report, 0, len(proposals))
	for _, p := range proposals {
		report := &Report{
			Proposal:   p,
			RunID:      runID,
			AnalyzedAt: start,
			Degraded:   degraded[p.Number],
		}
		if msg, failed := failures[p.Number]; failed {
			// One proposal's failure degrades to an empty conflict set
			// with an explicit annotation; the run continues.
			report.Err = msg
			report.Risk = ScoreRisk(RiskInput{}, e.config.Weights, e.config.BlastRadiusSaturation)
			report.Duration = e.now().Sub(start)
			reports = append(reports, report)
			continue
		}
		if partial {
			report.Degraded = append(report.Degraded, "deadline exceeded; report covers completed comparisons only")
		}

		var conflicts []Conflict
		for _, c := range pairConflicts {
			if c.Mentions(p.Number) {
				conflicts = append(conflicts, c)
			}
		}
		if e.config.CheckRegressions {
			conflicts = append(conflicts, DetectRegressions(p, decisions, e.config.RegressionRecencyWindow, e.now())...)
		}
		conflicts = append(conflicts, EvaluateGuardrails(GuardrailInput{
			Proposal:    p,
			Rules:       e.config.Rules,
			Glob:        e.glob,
			FileSymbols: fileSymbols,
		})...)
		SortConflicts(conflicts)
		report.Conflicts = conflicts

		for _, other := range proposals {
			if other.Number == p.Number {
				continue
			}
			if target != 0 && p.Number != target && other.Number != target {
				continue
			}
			if _, failed := failures[other.Number]; failed {
				continue
			}
			if uncompared[pairKey(p.Number, other.Number)] {
				continue
			}
			if !mentionsPair(conflicts, p.Number, other.Number) {
				report.NoConflictWith = append(report.NoConflictWith, other.Number)
			}
		}

		report.Risk = e.scoreProposal(ctx, p, conflicts, graph, stats, report)
		report.Duration = e.now().Sub(start)
		reports = append(reports, report)
	}

	return reports, nil
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func mentionsPair(conflicts []Conflict, a, b int) bool {
	for _, c := range conflicts {
		if c.Mentions(a) && c.Mentions(b) && a != b {
			return true
		}
	}
	return false
}

// candidatePairs returns the proposal pairs worth comparing: both enriched
// successfully, involving the target when one is set, and either sharing a
// file or connected through the import graph. Pairs whose touched files are
// disjoint and unconnected cannot conflict and are skipped entirely.
func (e *Engine) candidatePairs(proposals []*Proposal, failures map[int]string, target int, graph *DependencyGraph) [][2]*Proposal {
	var pairs [][2]*Proposal
	for i := 0; i < len(proposals); i++ {
		for j := i + 1; j < len(proposals); j++ {
			a, b := proposals[i], proposals[j]
			if target != 0 && a.Number != target && b.Number != target {
				continue
			}
			if _, bad := failures[a.Number]; bad {
				continue
			}
			if _, bad := failures[b.Number]; bad {
				continue
			}
			if !sharesFiles(a, b) && !e.graphConnected(a, b, graph) {
				continue
			}
			pairs = append(pairs, [2]*Proposal{a, b})
		}
	}
	return pairs
}

func sharesFiles(a, b *Proposal) bool {
	paths := a.FilePaths()
	for _, f := range b.Files {
		if _, ok := paths[f.Path]; ok {
			return true
		}
	}
	return false
}

// graphConnected reports whether one proposal touches a file that imports, or
// is imported by, a file touched by the other. Interface conflicts reach
// across files through imports, so such pairs must not be pre-filtered away.
func (e *Engine) graphConnected(a, b *Proposal, graph *DependencyGraph) bool {
	if graph == nil {
		return false
	}
	bPaths := b.FilePaths()
	for path := range a.FilePaths() {
		for dep := range graph.Dependents(path, e.config.BlastRadiusDepth) {
			if _, ok := bPaths[dep]; ok {
				return true
			}
		}
		for dep := range graph.Dependencies(path, e.config.BlastRadiusDepth) {
			if _, ok := bPaths[dep]; ok {
				return true
			}
		}
	}
	return false
}

// analyzePair is a pure function of its inputs: overlap computation,
// classification, and optional adjudication of behavioral findings.
func (e *Engine) analyzePair(ctx context.Context, a, b *Proposal, graph *DependencyGraph) []Conflict {
	overlaps := ComputeOverlaps(a, b)
	conflicts := Classify(ClassifyInput{
		A:                    a,
		B:                    b,
		Overlaps:             overlaps,
		Graph:                graph,
		Similarity:           e.similarity,
		DuplicationThreshold: e.config.DuplicationThreshold,
		DependentsDepth:      e.config.BlastRadiusDepth,
	})

	if e.adjudicator != nil {
		for i, c := range conflicts {
			if c.Kind != ConflictBehavioral {
				continue
			}
			severity, ok, err := e.adjudicator.Adjudicate(ctx, c, diffTextFor(a, c.File), diffTextFor(b, c.File))
			if err != nil {
				// Advisory signal only; absence or failure leaves the
				// deterministic default.
				e.logger.Debug("adjudicator unavailable", "error", err)
				continue
			}
			if ok {
				conflicts[i].Severity = severity
			}
		}
	}
	return conflicts
}

func diffTextFor(p *Proposal, path string) string {
	f, ok := p.File(path)
	if !ok {
		return ""
	}
	var sb strings.Builder
	for _, hunk := range f.Hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@ %s\n", hunk.OldStart, hunk.OldCount, hunk.NewStart, hunk.NewCount, hunk.Section)
		for _, line := range hunk.Lines {
			switch line.Type {
			case LineAdded:
				sb.WriteString("+")
			case LineDeleted:
				sb.WriteString("-")
			default:
				sb.WriteString(" ")
			}
			sb.WriteString(line.Content)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (e *Engine) recentDecisions(ctx context.Context, degraded map[int][]string, proposals []*Proposal) []Decision {
	if !e.config.CheckRegressions || e.decisions == nil {
		return nil
	}
	decisions, err := e.decisions.Recent(ctx, e.config.DecisionsDepth)
	if err != nil {
		e.logger.Warn("decisions store unavailable; skipping regression checks", "error", err)
		for _, p := range proposals {
			degraded[p.Number] = append(degraded[p.Number], "decisions store unavailable; regression checks skipped")
		}
		return nil
	}
	return decisions
}

// scoreProposal gathers the auxiliary signals and computes the risk
// breakdown for one proposal.
func (e *Engine) scoreProposal(ctx context.Context, p *Proposal, conflicts []Conflict, graph *DependencyGraph, stats map[string]*ShapeStats, report *Report) RiskBreakdown {
	in := RiskInput{Conflicts: conflicts}

	touched := p.FilePaths()
	reachable := make(map[string]struct{})
	for path := range touched {
		for dep := range graph.Dependents(path, e.config.BlastRadiusDepth) {
			if _, own := touched[dep]; !own {
				reachable[dep] = struct{}{}
			}
		}
	}
	in.BlastRadius = len(reachable)

	in.PatternDeviation, in.PatternDeviationAvailable = PatternDeviation(p.Symbols, stats)

	if e.churn != nil {
		total, n := 0.0, 0
		for path := range touched {
			rate, err := e.churn.Churn(ctx, path)
			if err != nil {
				continue
			}
			total += rate
			n++
		}
		if n > 0 {
			in.Churn = total / float64(n)
			in.ChurnAvailable = true
		}
	}
	if !in.ChurnAvailable && e.churn != nil {
		report.Degraded = append(report.Degraded, "churn signal unavailable")
	}

	if e.attribution != nil {
		in.Attribution = e.attribution(p)
		in.AttributionAvailable = true
	}

	return ScoreRisk(in, e.config.Weights, e.config.BlastRadiusSaturation)
}

// enrichment is the per-proposal output of the enrichment phase. Tasks fill
// one enrichment each; nothing is shared until the phase completes.
type enrichment struct {
	symbols     []ChangedSymbol
	coverage    map[string]bool
	fileSymbols map[string]*FileSymbols
	degraded    []string
	err         error
}

func (e *Engine) enrich(ctx context.Context, p *Proposal) (*enrichment, error) {
	if len(p.Files) == 0 {
		files, err := e.host.ProposalFiles(ctx, p.Number)
		if err != nil {
			return nil, fmt.Errorf("fetching files for proposal #%d: %w", p.Number, err)
		}
		p.Files = files
	}
	p.Files = e.filterIgnored(p.Files)

	for _, f := range p.Files {
		if verrs := ValidateFileDiff(f); len(verrs) > 0 {
			return nil, fmt.Errorf("proposal #%d: %w", p.Number, verrs[0])
		}
	}

	if att, _ := DetectAttribution(p); p.Attribution == "" || p.Attribution == AttributionUnknown {
		p.Attribution = att
	}

	enr := &enrichment{
		coverage:    make(map[string]bool),
		fileSymbols: make(map[string]*FileSymbols),
	}

	for _, f := range p.Files {
		if f.IsBinary {
			continue
		}
		if err := e.enrichFile(ctx, p, f, enr); err != nil {
			switch {
			case errors.Is(err, ErrUnsupportedLanguage):
				enr.degraded = append(enr.degraded, fmt.Sprintf("%s: unsupported language; coarse file-level analysis", f.Path))
			case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
				return nil, err
			default:
				enr.degraded = append(enr.degraded, fmt.Sprintf("%s: symbol extraction failed: %v", f.Path, err))
			}
		}
	}
	return enr, nil
}

func (e *Engine) filterIgnored(files []FileDiff) []FileDiff {
	if e.ignored == nil {
		return files
	}
	kept := files[:0]
	for _, f := range files {
		if !e.ignored.Matches(f.Path) {
			kept = append(kept, f)
		}
	}
	return kept
}

// enrichFile attributes a single file's diff to symbols by comparing the
// base-ref and head-ref symbol tables.
func (e *Engine) enrichFile(ctx context.Context, p *Proposal, f FileDiff, enr *enrichment) error {
	switch f.Op {
	case FileAdded:
		head, content, err := e.fetchSymbols(ctx, f.Path, p.HeadSHA)
		if err != nil {
			return err
		}
		for _, sym := range head.Symbols {
			enr.symbols = append(enr.symbols, ChangedSymbol{
				Symbol:  sym,
				Change:  ChangeAdded,
				Touched: []LineRange{sym.Range()},
				Body:    bodyOf(content, sym),
			})
		}
		enr.coverage[f.Path] = true
		enr.fileSymbols[f.Path] = head
		return nil

	case FileRemoved:
		base, _, err := e.fetchSymbols(ctx, f.Path, p.BaseBranch)
		if err != nil {
			return err
		}
		for _, sym := range base.Symbols {
			enr.symbols = append(enr.symbols, ChangedSymbol{
				Symbol:  sym,
				Change:  ChangeRemoved,
				Touched: []LineRange{sym.Range()},
			})
		}
		enr.coverage[f.Path] = true
		return nil
	}

	basePath := f.Path
	if f.Op == FileRenamed && f.OldPath != "" {
		basePath = f.OldPath
	}
	base, _, err := e.fetchSymbols(ctx, basePath, p.BaseBranch)
	if err != nil {
		return err
	}
	head, headContent, err := e.fetchSymbols(ctx, f.Path, p.HeadSHA)
	if err != nil {
		return err
	}

	enr.symbols = append(enr.symbols, diffSymbols(f, base, head, headContent)...)
	enr.coverage[f.Path] = true
	enr.fileSymbols[f.Path] = head
	return nil
}

// diffSymbols classifies each symbol's change by comparing base and head
// symbol tables against the touched line ranges.
func diffSymbols(f FileDiff, base, head *FileSymbols, headContent []byte) []ChangedSymbol {
	modified := f.ModifiedRanges()
	removed := f.RemovedRanges()

	baseByName := make(map[string]Symbol, len(base.Symbols))
	for _, sym := range base.Symbols {
		baseByName[sym.Name] = sym
	}
	headNames := make(map[string]struct{}, len(head.Symbols))

	var out []ChangedSymbol
	for _, sym := range head.Symbols {
		headNames[sym.Name] = struct{}{}
		touched := clipRanges(modified, sym.Range())

		old, existed := baseByName[sym.Name]
		switch {
		case !existed:
			if len(touched) == 0 {
				continue
			}
			out = append(out, ChangedSymbol{
				Symbol:  sym,
				Change:  ChangeAdded,
				Touched: touched,
				Body:    bodyOf(headContent, sym),
			})
		case old.Signature != sym.Signature:
			if len(touched) == 0 {
				touched = []LineRange{{Start: sym.StartLine, End: sym.StartLine}}
			}
			out = append(out, ChangedSymbol{Symbol: sym, Change: ChangeSignatureModified, Touched: touched})
		case len(touched) > 0:
			out = append(out, ChangedSymbol{Symbol: sym, Change: ChangeBodyModified, Touched: touched})
		}
	}

	for _, sym := range base.Symbols {
		if _, still := headNames[sym.Name]; still {
			continue
		}
		gone := clipRanges(removed, sym.Range())
		if len(gone) == 0 {
			continue
		}
		out = append(out, ChangedSymbol{Symbol: sym, Change: ChangeRemoved, Touched: gone})
	}
	return out
}

// clipRanges intersects each range with bounds, dropping empty results.
func clipRanges(ranges []LineRange, bounds LineRange) []LineRange {
	var out []LineRange
	for _, r := range ranges {
		if !r.Intersects(bounds) {
			continue
		}
		clipped := LineRange{Start: max(r.Start, bounds.Start), End: min(r.End, bounds.End)}
		out = append(out, clipped)
	}
	return out
}

func bodyOf(content []byte, sym Symbol) string {
	if len(content) == 0 {
		return ""
	}
	lines := strings.Split(string(content), "\n")
	if sym.StartLine < 1 || sym.StartLine > len(lines) {
		return ""
	}
	end := min(sym.EndLine, len(lines))
	return strings.Join(lines[sym.StartLine-1:end], "\n")
}

// fetchSymbols returns the symbol table and raw content for a file at a ref,
// consulting the cache first. The cache is keyed by (path, content ref).
func (e *Engine) fetchSymbols(ctx context.Context, path, ref string) (*FileSymbols, []byte, error) {
	symKey := cacheKey("symbols", path, ref)
	contentKey := cacheKey("content", path, ref)

	var content []byte
	if e.cache != nil {
		if cached, ok := e.cache.Get(contentKey); ok {
			content = cached
		}
		if cached, ok := e.cache.Get(symKey); ok && content != nil {
			var fs FileSymbols
			if err := json.Unmarshal(cached, &fs); err == nil {
				return &fs, content, nil
			}
		}
	}

	if content == nil {
		fetched, err := e.host.FileContent(ctx, path, ref)
		if err != nil {
			return nil, nil, fmt.Errorf("fetching %s@%s: %w", path, ref, err)
		}
		content = fetched
		if e.cache != nil {
			if err := e.cache.Set(contentKey, content); err != nil {
				e.logger.Debug("cache write failed", "key", contentKey, "error", err)
			}
		}
	}

	fs, err := e.extractor.Extract(ctx, path, content)
	if err != nil {
		return nil, nil, err
	}
	if verrs := ValidateSymbols(fs); len(verrs) > 0 {
		return nil, nil, verrs[0]
	}
	for i := range fs.Symbols {
		if fs.Symbols[i].Module == "" {
			fs.Symbols[i].Module = ModuleOf(path)
		}
	}
	if e.cache != nil {
		if data, err := json.Marshal(fs); err == nil {
			if err := e.cache.Set(symKey, data); err != nil {
				e.logger.Debug("cache write failed", "key", symKey, "error", err)
			}
		}
	}
	return fs, content, nil
}

func cacheKey(kind, path, ref string) string {
	sum := sha256.Sum256([]byte(kind + ":" + path + "@" + ref))
	return kind + ":" + hex.EncodeToString(sum[:8])
}
