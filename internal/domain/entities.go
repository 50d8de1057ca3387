package domain

import "time"

// StockType distinguishes 1D bar stock from 2D sheet stock.
type StockType string

const (
	StockTypeBar1D   StockType = "BAR_1D"
	StockTypeSheet2D StockType = "SHEET_2D"
)

// GeometryType classifies an order item's shape. Only BAR_1D is handled by
// the 1D strategies; everything else is treated as 2D via its bounding box.
type GeometryType string

const (
	GeometryBar1D     GeometryType = "BAR_1D"
	GeometryRectangle GeometryType = "RECTANGLE"
	GeometrySquare    GeometryType = "SQUARE"
	GeometryCircle    GeometryType = "CIRCLE"
	GeometryPolygon   GeometryType = "POLYGON"
	GeometryFreeform  GeometryType = "FREEFORM"
)

// CuttingJobStatus is the lifecycle state of a production order.
type CuttingJobStatus string

const (
	JobPending      CuttingJobStatus = "PENDING"
	JobOptimizing   CuttingJobStatus = "OPTIMIZING"
	JobOptimized    CuttingJobStatus = "OPTIMIZED"
	JobInProduction CuttingJobStatus = "IN_PRODUCTION"
	JobCompleted    CuttingJobStatus = "COMPLETED"
)

// ScenarioStatus is the lifecycle state of an OptimizationScenario.
type ScenarioStatus string

const (
	ScenarioPending   ScenarioStatus = "PENDING"
	ScenarioRunning   ScenarioStatus = "RUNNING"
	ScenarioCompleted ScenarioStatus = "COMPLETED"
	ScenarioFailed    ScenarioStatus = "FAILED"
)

// PlanStatus is the lifecycle state of a CuttingPlan.
type PlanStatus string

const (
	PlanDraft        PlanStatus = "DRAFT"
	PlanApproved     PlanStatus = "APPROVED"
	PlanInProduction PlanStatus = "IN_PRODUCTION"
	PlanCompleted    PlanStatus = "COMPLETED"
	PlanCancelled    PlanStatus = "CANCELLED"
)

// Algorithm names the exact set of strategies the registry recognizes.
type Algorithm string

const (
	Algorithm1DFFD         Algorithm = "1D_FFD"
	Algorithm1DBFD         Algorithm = "1D_BFD"
	Algorithm2DBottomLeft  Algorithm = "2D_BOTTOM_LEFT"
	Algorithm2DGuillotine  Algorithm = "2D_GUILLOTINE"
	AlgorithmFallbackModel           = "fallback"
)

// MaterialType identifies a material. Immutable once referenced by stock.
type MaterialType struct {
	ID        string
	Name      string
	Rotatable bool
	Density   float64
}

// StockItem is a purchasable unit of bar or sheet stock.
type StockItem struct {
	ID             string
	TenantID       string
	MaterialTypeID string
	StockType      StockType
	Length         float64 // 1D only, mm
	Width          float64 // 2D only, mm
	Height         float64 // 2D only, mm
	Thickness      float64
	Quantity       int
	ReservedQty    int
	UnitPrice      float64
	IsFromWaste    bool
	Version        int // optimistic-lock column
}

// Available reports the unreserved quantity.
func (s StockItem) Available() int {
	if s.ReservedQty >= s.Quantity {
		return 0
	}
	return s.Quantity - s.ReservedQty
}

// OrderItem is the catalog geometry referenced by a CuttingJobItem.
type OrderItem struct {
	ID           string
	GeometryType GeometryType
	Width        float64
	Height       float64
	Length       float64 // 1D only
	CanRotate    bool
}

// CuttingJobItem is one demanded piece within a job, referencing an
// OrderItem and the quantity requested.
type CuttingJobItem struct {
	ID          string
	OrderItemID string
	OrderItem   OrderItem
	Quantity    int
}

// CuttingJob is a production order's packing request.
type CuttingJob struct {
	ID             string
	TenantID       string
	MaterialTypeID string
	Thickness      float64
	Status         CuttingJobStatus
	Items          []CuttingJobItem
}

// Is1D classifies the job's dimensionality from its first item's geometry,
// per spec.md §3 invariant.
func (j CuttingJob) Is1D() bool {
	if len(j.Items) == 0 {
		return false
	}
	return j.Items[0].OrderItem.GeometryType == GeometryBar1D
}

// ScenarioParameters is the immutable-once-running parameter set bound to a
// scenario.
type ScenarioParameters struct {
	Algorithm         Algorithm // empty means "ask the ML advisor"
	Kerf              float64
	MinUsableWaste    float64 // 0 means "use the dimensionality default"
	AllowRotation     bool
	UseWarehouseStock bool
	UseStandardSizes  bool
	SelectedStockIDs  []string
}

// OptimizationScenario is a named parameter set bound to one cutting job.
type OptimizationScenario struct {
	ID          string
	TenantID    string
	Name        string
	CuttingJobID string
	CreatedByID string
	Parameters  ScenarioParameters
	Status      ScenarioStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CuttingPlan is the computed output of one optimization run.
type CuttingPlan struct {
	ID              string
	TenantID        string
	PlanNumber      string
	ScenarioID      string
	TotalWaste      float64
	WastePercentage float64
	StockUsedCount  int
	EstimatedTime   *float64
	EstimatedCost   *float64
	Status          PlanStatus
	ApprovedByID    *string
	ApprovedAt      *time.Time
	MachineID       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CuttingPlanStock is a per-stock placement record belonging to a plan.
type CuttingPlanStock struct {
	ID              string
	CuttingPlanID   string
	StockItemID     string
	Sequence        int
	Waste           float64
	WastePercentage float64
	Layout          LayoutData
}

// LayoutKind discriminates the two LayoutData shapes.
type LayoutKind string

const (
	Layout1D LayoutKind = "1D"
	Layout2D LayoutKind = "2D"
)

// Cut1D is one kerf-separated cut along a 1D bar.
type Cut1D struct {
	PieceID string
	Offset  float64
	Length  float64
}

// Placement2D is one rectangle placed on a 2D sheet.
type Placement2D struct {
	PieceID string
	X, Y    float64
	W, H    float64
	Rotated bool
}

// LayoutData is the discriminated placement record persisted per
// CuttingPlanStock, matching spec.md §3.
type LayoutData struct {
	Kind LayoutKind

	// 1D
	StockLength float64
	Cuts        []Cut1D
	UsableWaste float64

	// 2D
	StockWidth  float64
	StockHeight float64
	Placements  []Placement2D
}
