// Package optimizer implements the engine orchestrator described in
// spec.md §4.7: load job and stock, pick an algorithm, pack on the worker
// pool, and convert the result into plan data. The orchestrator never
// persists anything itself — internal/repository and the async consumer
// (internal/bus) own turning an Output into a CuttingPlan.
//
// Grounded on piwi3910-cnc-calculator/internal/engine/optimizer.go's
// single Optimize entrypoint (load → group → pack → summarize), split here
// into the eight numbered steps spec.md §4.7 names and wired to the
// teacher's own pluggable-dependency style (runtime/agent/runtime's
// construct-with-interfaces, call-through-ports pattern) instead of a
// monolith that imports its own I/O.
package optimizer

import (
	"context"

	"github.com/cutstock/optima/internal/convert"
	"github.com/cutstock/optima/internal/domain"
	"github.com/cutstock/optima/internal/geometry"
	"github.com/cutstock/optima/internal/strategy"
	"github.com/cutstock/optima/internal/strategy1d"
	"github.com/cutstock/optima/internal/strategy2d"
	"github.com/cutstock/optima/internal/telemetry"
	"github.com/cutstock/optima/internal/workerpool"
)

// JobClient is the port to the Cutting-Job service client (§4.10).
type JobClient interface {
	GetJobWithItems(ctx context.Context, jobID, tenantID string) (domain.CuttingJob, error)
}

// StockQuery is the filter the Stock query client accepts.
type StockQuery struct {
	MaterialTypeID   string
	Thickness        float64
	StockType        domain.StockType
	SelectedStockIDs []string
	TenantID         string
}

// StockClient is the port to the Stock query client (§4.10).
type StockClient interface {
	GetAvailableStock(ctx context.Context, query StockQuery) ([]domain.StockItem, error)
}

// Features is the feature vector the ML advisory client computes from the
// loaded job and stock (§4.12). The orchestrator builds it; the advisor
// and its breaker decorator never see the raw job/stock.
type Features struct {
	PieceCount      int
	StockCount      int
	AreaVarianceMM2 float64
	AspectRatioMean float64
}

// Suggestion is what the ML advisory's selectAlgorithm returns.
type Suggestion struct {
	Name         domain.Algorithm
	Confidence   float64
	ModelVersion string
}

// Advisor is the port to the ML advisory client (§4.12), already wrapped
// in whatever circuit breaker the caller wants — the orchestrator never
// retries or inspects breaker state itself, it just treats any error as
// "use the dimensionality default".
type Advisor interface {
	SelectAlgorithm(ctx context.Context, features Features) (Suggestion, error)
}

// MaterialLookup resolves a MaterialTypeID to its rotation default, so the
// 2D converter can honor a material that forbids rotation regardless of
// what an individual order item or scenario parameter requests.
// Optional: a nil lookup (or one returning found=false) treats every
// material as rotatable.
type MaterialLookup interface {
	MaterialType(ctx context.Context, materialTypeID string) (mt domain.MaterialType, found bool)
}

// Layout is one stock assignment in a plan, ready for persistence.
type Layout = convert.StockLayout

// PlanData is the packed-plan summary spec.md §4.7 step 8 returns.
type PlanData struct {
	TotalWaste      float64
	WastePercentage float64
	StockUsedCount  int
	Efficiency      float64
	Layouts         []Layout
	UnplacedCount   int
	// ScrapArea (2D) and ScrapLength (1D) split TotalWaste into the
	// portion below MinUsableWaste — too small to ever be reused as
	// offcut stock — from the remainder, which stays in TotalWaste but
	// is implicitly reusable. Only one of the two is ever nonzero for a
	// given run, matching the job's dimensionality.
	ScrapArea   float64
	ScrapLength float64
}

// Input is one run request. Algorithm empty means "ask the ML advisor".
type Input struct {
	TenantID     string
	CuttingJobID string
	Parameters   domain.ScenarioParameters
}

// Output is the run result. Success is false iff Err is non-nil; no panic
// or exception ever crosses Run's boundary, matching spec.md §7.
type Output struct {
	Success  bool
	PlanData PlanData
	Err      *domain.Error
}

// Engine is the §4.7 orchestrator. Jobs and Stock are required. Pool and
// Advisor default to synchronous execution and the dimensionality default
// algorithm respectively; Registry defaults to strategy.Default(), Logger
// to a no-op logger, and a nil Materials skips the material lookup.
type Engine struct {
	Jobs      JobClient
	Stock     StockClient
	Advisor   Advisor
	Materials MaterialLookup
	Registry  *strategy.Registry
	Pool      *workerpool.Pool
	Logger    telemetry.Logger
}

func (e *Engine) registry() *strategy.Registry {
	if e.Registry != nil {
		return e.Registry
	}
	return strategy.Default()
}

func (e *Engine) logger() telemetry.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return telemetry.NewNoopLogger()
}

func fail(code domain.Code, message string) Output {
	return Output{Success: false, Err: domain.New(code, message)}
}

// Run executes the eight steps of spec.md §4.7. It never returns a Go
// error: all failure modes are reported through Output.Err, so the async
// consumer and any synchronous caller share one propagation path.
func (e *Engine) Run(ctx context.Context, in Input) Output {
	job, err := e.Jobs.GetJobWithItems(ctx, in.CuttingJobID, in.TenantID)
	if err != nil {
		return fail(domain.CodeJobNotFound, "cutting job not found: "+err.Error())
	}

	is1D := job.Is1D()
	stockType := domain.StockTypeSheet2D
	if is1D {
		stockType = domain.StockTypeBar1D
	}

	stock, err := e.Stock.GetAvailableStock(ctx, StockQuery{
		MaterialTypeID:   job.MaterialTypeID,
		Thickness:        job.Thickness,
		StockType:        stockType,
		SelectedStockIDs: in.Parameters.SelectedStockIDs,
		TenantID:         in.TenantID,
	})
	if err != nil {
		return fail(domain.CodeUpstreamUnavailable, "stock query failed: "+err.Error())
	}
	if in.Parameters.UseStandardSizes {
		stock = withStandardSizes(stock, job.MaterialTypeID, job.Thickness, stockType)
	}
	if len(stock) == 0 {
		return fail(domain.CodeNoStock, "no stock available for material/thickness/type")
	}

	algorithm, err := e.resolveAlgorithm(ctx, in.Parameters.Algorithm, is1D, job, stock)
	if err != nil {
		return fail(domain.CodeOf(err), err.Error())
	}
	if mismatchErr := validateAlgorithmDimensionality(algorithm, is1D); mismatchErr != nil {
		return fail(domain.CodeOf(mismatchErr), mismatchErr.Error())
	}

	kerf := in.Parameters.Kerf
	// minUsableWaste defaults per dimensionality (spec.md §4.1): 0 means
	// "use the dimensionality default", resolved once here so the
	// plan-level scrap split below and the packing strategies agree on
	// the same threshold instead of each defaulting independently.
	minUsableWaste := defaultedMinUsableWaste(in.Parameters.MinUsableWaste, is1D)

	var layouts []Layout
	var totalWaste, totalArea float64
	var stockUsedCount, unplacedCount int
	var scrapArea, scrapLength float64

	if is1D {
		result, runErr := e.run1D(ctx, algorithm, job.Items, stock, kerf, minUsableWaste)
		if runErr != nil {
			return fail(domain.CodeOf(runErr), runErr.Error())
		}
		layouts = convert.LiftBars(result.Bars)
		totalWaste = result.TotalWaste
		stockUsedCount = len(result.Bars)
		unplacedCount = len(convert.UnplacedOrderItemIDs1D(result.UnplacedPieces))
		for _, b := range result.Bars {
			totalArea += b.StockLength
		}
		scrapLength = scrapBelowThreshold(layouts, minUsableWaste)
	} else {
		result, runErr := e.run2D(ctx, algorithm, job.Items, stock, job.MaterialTypeID, kerf, in.Parameters.AllowRotation, minUsableWaste)
		if runErr != nil {
			return fail(domain.CodeOf(runErr), runErr.Error())
		}
		layouts = convert.LiftSheets(result.Sheets)
		totalWaste = result.TotalWaste
		stockUsedCount = len(result.Sheets)
		unplacedCount = len(convert.UnplacedOrderItemIDs2D(result.UnplacedPieces))
		for _, sh := range result.Sheets {
			totalArea += sh.StockWidth * sh.StockHeight
		}
		scrapArea = scrapBelowThreshold(layouts, minUsableWaste)
	}

	wastePercentage := 0.0
	if totalArea > 0 {
		wastePercentage = (totalWaste / totalArea) * 100
		if wastePercentage > 100 {
			wastePercentage = 100
		}
		if wastePercentage < 0 {
			wastePercentage = 0
		}
	}

	return Output{
		Success: true,
		PlanData: PlanData{
			TotalWaste:      totalWaste,
			WastePercentage: wastePercentage,
			StockUsedCount:  stockUsedCount,
			Efficiency:      100 - wastePercentage,
			Layouts:         layouts,
			UnplacedCount:   unplacedCount,
			ScrapArea:       scrapArea,
			ScrapLength:     scrapLength,
		},
	}
}

// defaultedMinUsableWaste resolves the scenario's minUsableWaste against
// the dimensionality default (spec.md §4.1), mirroring
// geometry.UsableWaste1D/UsableWaste2D's own "<= 0 means default" rule so
// Run, run1D, and run2D all compare layout waste against the same
// threshold.
func defaultedMinUsableWaste(raw float64, is1D bool) float64 {
	if raw > 0 {
		return raw
	}
	if is1D {
		return geometry.DefaultMinUsableWaste1D
	}
	return geometry.DefaultMinUsableWaste2D
}

// scrapBelowThreshold sums the Waste of every layout whose offcut is too
// small to ever be reused as stock, splitting it out of TotalWaste per
// spec.md §6's minUsableWaste parameter.
func scrapBelowThreshold(layouts []Layout, minUsableWaste float64) float64 {
	var scrap float64
	for _, l := range layouts {
		if l.Waste < minUsableWaste {
			scrap += l.Waste
		}
	}
	return scrap
}

// resolveAlgorithm implements step 5: an explicit parameter wins; an empty
// one asks the advisor, and any advisor failure (including none
// configured) falls back to the dimensionality default.
func (e *Engine) resolveAlgorithm(ctx context.Context, requested domain.Algorithm, is1D bool, job domain.CuttingJob, stock []domain.StockItem) (domain.Algorithm, error) {
	if requested != "" {
		return requested, nil
	}
	fallback := domain.Algorithm2DGuillotine
	if is1D {
		fallback = domain.Algorithm1DFFD
	}
	if e.Advisor == nil {
		return fallback, nil
	}
	suggestion, err := e.Advisor.SelectAlgorithm(ctx, buildFeatures(job, stock))
	if err != nil {
		e.logger().Warn(ctx, "ml advisory unavailable, using fallback algorithm", "error", err.Error(), "fallback", string(fallback))
		return fallback, nil
	}
	if suggestion.Name == "" || suggestion.ModelVersion == domain.AlgorithmFallbackModel {
		return fallback, nil
	}
	return suggestion.Name, nil
}

func buildFeatures(job domain.CuttingJob, stock []domain.StockItem) Features {
	pieceCount := 0
	for _, item := range job.Items {
		pieceCount += item.Quantity
	}
	var areaSum, areaSumSq, aspectSum float64
	n := 0
	for _, item := range job.Items {
		w, h := item.OrderItem.Width, item.OrderItem.Height
		if item.OrderItem.GeometryType == domain.GeometryBar1D {
			w, h = item.OrderItem.Length, 1
		}
		area := w * h
		areaSum += area
		areaSumSq += area * area
		if h != 0 {
			aspectSum += w / h
		}
		n++
	}
	variance := 0.0
	if n > 0 {
		mean := areaSum / float64(n)
		variance = areaSumSq/float64(n) - mean*mean
	}
	aspectMean := 0.0
	if n > 0 {
		aspectMean = aspectSum / float64(n)
	}
	return Features{
		PieceCount:      pieceCount,
		StockCount:      len(stock),
		AreaVarianceMM2: variance,
		AspectRatioMean: aspectMean,
	}
}

func validateAlgorithmDimensionality(algorithm domain.Algorithm, is1D bool) error {
	switch algorithm {
	case domain.Algorithm1DFFD, domain.Algorithm1DBFD:
		if !is1D {
			return domain.New(domain.CodeAlgorithmMismatch, "1D algorithm "+string(algorithm)+" requested for a 2D job")
		}
	case domain.Algorithm2DBottomLeft, domain.Algorithm2DGuillotine:
		if is1D {
			return domain.New(domain.CodeAlgorithmMismatch, "2D algorithm "+string(algorithm)+" requested for a 1D job")
		}
	default:
		return domain.New(domain.CodeAlgorithmNotFound, "unrecognized algorithm "+string(algorithm))
	}
	return nil
}

// run1D implements steps 6-7 for a 1D job: convert, submit to the worker
// pool, fall back to synchronous execution when the pool is unready.
func (e *Engine) run1D(ctx context.Context, algorithm domain.Algorithm, items []domain.CuttingJobItem, stock []domain.StockItem, kerf, minUsableWaste float64) (strategy1d.Result, error) {
	fn, err := e.registry().Lookup1D(algorithm)
	if err != nil {
		return strategy1d.Result{}, err
	}
	if minUsableWaste <= 0 {
		minUsableWaste = geometry.DefaultMinUsableWaste1D
	}
	pieces := convert.To1DPieces(items)
	stockRecords := convert.To1DStock(stock)
	opts := strategy1d.Options{Kerf: kerf, MinUsableWaste: minUsableWaste}

	task := func(taskCtx context.Context) (strategy1d.Result, error) {
		return fn(pieces, stockRecords, opts), nil
	}
	if e.Pool != nil && e.Pool.Ready() {
		future, submitErr := workerpool.Submit(ctx, e.Pool, task, 0)
		if submitErr == nil {
			return future.Get(ctx)
		}
		e.logger().Warn(ctx, "worker pool submit failed, running inline", "error", submitErr.Error())
	} else if e.Pool != nil {
		e.logger().Warn(ctx, "worker pool not ready, running inline")
	}
	return task(ctx)
}

// run2D is the 2D counterpart of run1D.
func (e *Engine) run2D(ctx context.Context, algorithm domain.Algorithm, items []domain.CuttingJobItem, stock []domain.StockItem, materialTypeID string, kerf float64, allowRotation bool, minUsableWaste float64) (strategy2d.Result, error) {
	fn, err := e.registry().Lookup2D(algorithm)
	if err != nil {
		return strategy2d.Result{}, err
	}
	materials := map[string]domain.MaterialType{}
	if e.Materials != nil {
		if mt, found := e.Materials.MaterialType(ctx, materialTypeID); found {
			materials[materialTypeID] = mt
		}
	}
	pieces := convert.To2DPieces(items, materials, materialTypeID)
	stockRecords := convert.To2DStock(stock)
	opts := strategy2d.Options{
		Kerf:           kerf,
		AllowRotation:  allowRotation,
		GuillotineOnly: algorithm == domain.Algorithm2DGuillotine,
		MinUsableWaste: minUsableWaste,
	}

	task := func(taskCtx context.Context) (strategy2d.Result, error) {
		return fn(pieces, stockRecords, opts), nil
	}
	if e.Pool != nil && e.Pool.Ready() {
		future, submitErr := workerpool.Submit(ctx, e.Pool, task, 0)
		if submitErr == nil {
			return future.Get(ctx)
		}
		e.logger().Warn(ctx, "worker pool submit failed, running inline", "error", submitErr.Error())
	} else if e.Pool != nil {
		e.logger().Warn(ctx, "worker pool not ready, running inline")
	}
	return task(ctx)
}
