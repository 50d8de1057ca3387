package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/cutstock/optima/internal/domain"
	"github.com/cutstock/optima/internal/statemachine"
)

// PlanFilter narrows Plan FindAll/GetApproved.
type PlanFilter struct {
	ScenarioID string
	Status     domain.PlanStatus
	FromDate   time.Time
	ToDate     time.Time
}

type planDoc struct {
	ID              string           `bson:"_id"`
	TenantID        string           `bson:"tenant_id,omitempty"`
	PlanNumber      string           `bson:"plan_number"`
	ScenarioID      string           `bson:"scenario_id"`
	TotalWaste      float64          `bson:"total_waste"`
	WastePercentage float64          `bson:"waste_percentage"`
	StockUsedCount  int              `bson:"stock_used_count"`
	EstimatedTime   *float64         `bson:"estimated_time,omitempty"`
	EstimatedCost   *float64         `bson:"estimated_cost,omitempty"`
	Status          domain.PlanStatus `bson:"status"`
	ApprovedByID    *string          `bson:"approved_by_id,omitempty"`
	ApprovedAt      *time.Time       `bson:"approved_at,omitempty"`
	MachineID       *string          `bson:"machine_id,omitempty"`
	CreatedAt       time.Time        `bson:"created_at"`
	UpdatedAt       time.Time        `bson:"updated_at"`
}

func fromPlan(p domain.CuttingPlan) planDoc {
	return planDoc{
		ID:              p.ID,
		TenantID:        p.TenantID,
		PlanNumber:      p.PlanNumber,
		ScenarioID:      p.ScenarioID,
		TotalWaste:      p.TotalWaste,
		WastePercentage: p.WastePercentage,
		StockUsedCount:  p.StockUsedCount,
		EstimatedTime:   p.EstimatedTime,
		EstimatedCost:   p.EstimatedCost,
		Status:          p.Status,
		ApprovedByID:    p.ApprovedByID,
		ApprovedAt:      p.ApprovedAt,
		MachineID:       p.MachineID,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (d planDoc) toPlan() domain.CuttingPlan {
	return domain.CuttingPlan{
		ID:              d.ID,
		TenantID:        d.TenantID,
		PlanNumber:      d.PlanNumber,
		ScenarioID:      d.ScenarioID,
		TotalWaste:      d.TotalWaste,
		WastePercentage: d.WastePercentage,
		StockUsedCount:  d.StockUsedCount,
		EstimatedTime:   d.EstimatedTime,
		EstimatedCost:   d.EstimatedCost,
		Status:          d.Status,
		ApprovedByID:    d.ApprovedByID,
		ApprovedAt:      d.ApprovedAt,
		MachineID:       d.MachineID,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type planStockDoc struct {
	ID              string              `bson:"_id"`
	CuttingPlanID   string              `bson:"cutting_plan_id"`
	StockItemID     string              `bson:"stock_item_id"`
	Sequence        int                 `bson:"sequence"`
	Waste           float64             `bson:"waste"`
	WastePercentage float64             `bson:"waste_percentage"`
	Layout          layoutDoc           `bson:"layout_data"`
}

type layoutDoc struct {
	Kind        domain.LayoutKind    `bson:"type"`
	StockLength float64              `bson:"stock_length,omitempty"`
	Cuts        []domain.Cut1D       `bson:"cuts,omitempty"`
	UsableWaste float64              `bson:"usable_waste,omitempty"`
	StockWidth  float64              `bson:"stock_width,omitempty"`
	StockHeight float64              `bson:"stock_height,omitempty"`
	Placements  []domain.Placement2D `bson:"placements,omitempty"`
}

func fromPlanStock(s domain.CuttingPlanStock) planStockDoc {
	return planStockDoc{
		ID:              s.ID,
		CuttingPlanID:   s.CuttingPlanID,
		StockItemID:     s.StockItemID,
		Sequence:        s.Sequence,
		Waste:           s.Waste,
		WastePercentage: s.WastePercentage,
		Layout: layoutDoc{
			Kind:        s.Layout.Kind,
			StockLength: s.Layout.StockLength,
			Cuts:        s.Layout.Cuts,
			UsableWaste: s.Layout.UsableWaste,
			StockWidth:  s.Layout.StockWidth,
			StockHeight: s.Layout.StockHeight,
			Placements:  s.Layout.Placements,
		},
	}
}

func (d planStockDoc) toPlanStock() domain.CuttingPlanStock {
	return domain.CuttingPlanStock{
		ID:            d.ID,
		CuttingPlanID: d.CuttingPlanID,
		StockItemID:   d.StockItemID,
		Sequence:      d.Sequence,
		Waste:         d.Waste,
		WastePercentage: d.WastePercentage,
		Layout: domain.LayoutData{
			Kind:        d.Layout.Kind,
			StockLength: d.Layout.StockLength,
			Cuts:        d.Layout.Cuts,
			UsableWaste: d.Layout.UsableWaste,
			StockWidth:  d.Layout.StockWidth,
			StockHeight: d.Layout.StockHeight,
			Placements:  d.Layout.Placements,
		},
	}
}

// CreatePlan inserts a new plan and then its per-stock layout rows as
// separate writes (no transaction), assigning a fresh plan number and dense sequences
// starting at 1. p.ID must already be set by the caller; PlanNumber is
// always generated here and any value the caller set is overwritten.
func (r *Repository) CreatePlan(ctx context.Context, p domain.CuttingPlan, stocks []domain.CuttingPlanStock) (domain.CuttingPlan, error) {
	if p.ID == "" {
		return domain.CuttingPlan{}, domain.New(domain.CodeValidationError, "plan id is required")
	}
	now := time.Now().UTC()
	p.Status = domain.PlanDraft
	p.CreatedAt, p.UpdatedAt = now, now

	planNumber, err := r.nextPlanNumber(ctx)
	if err != nil {
		return domain.CuttingPlan{}, err
	}
	p.PlanNumber = planNumber

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if _, err := r.plans.InsertOne(ctx, fromPlan(p)); err != nil {
		return domain.CuttingPlan{}, domain.Wrap(domain.CodeInternalError, "insert plan", err)
	}
	for i := range stocks {
		stocks[i].CuttingPlanID = p.ID
		stocks[i].Sequence = i + 1
		if _, err := r.planStock.InsertOne(ctx, fromPlanStock(stocks[i])); err != nil {
			return domain.CuttingPlan{}, domain.Wrap(domain.CodeInternalError, "insert plan stock", err)
		}
	}
	return p, nil
}

// nextPlanNumber generates "PLN-<ms-epoch>-<counter>" (spec.md §4.8),
// retrying with the next counter value on a unique-index conflict so a
// colliding ms-epoch (two runs in the same millisecond) never blocks plan
// creation.
func (r *Repository) nextPlanNumber(ctx context.Context) (string, error) {
	const maxAttempts = 5
	epoch := time.Now().UTC().UnixMilli()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		counter, err := r.incrementCounter(ctx, "plan_number")
		if err != nil {
			return "", domain.Wrap(domain.CodeInternalError, "increment plan number counter", err)
		}
		candidate := fmt.Sprintf("PLN-%d-%d", epoch, counter)
		exists, err := r.planNumberExists(ctx, candidate)
		if err != nil {
			return "", domain.Wrap(domain.CodeInternalError, "check plan number uniqueness", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", domain.New(domain.CodeConflict, "could not allocate a unique plan number after retries")
}

func (r *Repository) planNumberExists(ctx context.Context, planNumber string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	n, err := r.plans.CountDocuments(ctx, bson.M{"plan_number": planNumber})
	return n > 0, err
}

type counterDoc struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// incrementCounter atomically returns the next value of a named,
// process-wide monotonic counter, backing the plan-number sequence.
func (r *Repository) incrementCounter(ctx context.Context, name string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"_id": name}
	update := bson.M{"$inc": bson.M{"value": int64(1)}}
	after := options.After
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(after)
	var doc counterDoc
	if err := r.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Value, nil
}

// FindPlanByID returns a plan, tenant-scoped when ctx carries one.
func (r *Repository) FindPlanByID(ctx context.Context, id string) (domain.CuttingPlan, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	filter := tenantFilter(ctx, bson.M{"_id": id})
	var doc planDoc
	if err := r.plans.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.CuttingPlan{}, domain.New(domain.CodePlanNotFound, "plan not found: "+id)
		}
		return domain.CuttingPlan{}, domain.Wrap(domain.CodeInternalError, "find plan", err)
	}
	return doc.toPlan(), nil
}

// FindAllPlans returns plans matching filter, tenant-scoped.
func (r *Repository) FindAllPlans(ctx context.Context, filter PlanFilter) ([]domain.CuttingPlan, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	query := bson.M{}
	if filter.ScenarioID != "" {
		query["scenario_id"] = filter.ScenarioID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if !filter.FromDate.IsZero() || !filter.ToDate.IsZero() {
		created := bson.M{}
		if !filter.FromDate.IsZero() {
			created["$gte"] = filter.FromDate
		}
		if !filter.ToDate.IsZero() {
			created["$lte"] = filter.ToDate
		}
		query["created_at"] = created
	}
	query = tenantFilter(ctx, query)
	cur, err := r.plans.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, domain.Wrap(domain.CodeInternalError, "find plans", err)
	}
	defer cur.Close(ctx)
	var docs []planDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.Wrap(domain.CodeInternalError, "decode plans", err)
	}
	out := make([]domain.CuttingPlan, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toPlan())
	}
	return out, nil
}

// GetApprovedPlans is FindAllPlans restricted to APPROVED status, the
// shape the Plan service façade's getApproved exposes (§4.10).
func (r *Repository) GetApprovedPlans(ctx context.Context, filter PlanFilter) ([]domain.CuttingPlan, error) {
	filter.Status = domain.PlanApproved
	return r.FindAllPlans(ctx, filter)
}

// GetPlanStockItems returns a plan's CuttingPlanStock rows ordered by
// sequence.
func (r *Repository) GetPlanStockItems(ctx context.Context, planID string) ([]domain.CuttingPlanStock, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	cur, err := r.planStock.Find(ctx, bson.M{"cutting_plan_id": planID}, options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}}))
	if err != nil {
		return nil, domain.Wrap(domain.CodeInternalError, "find plan stock items", err)
	}
	defer cur.Close(ctx)
	var docs []planStockDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.Wrap(domain.CodeInternalError, "decode plan stock items", err)
	}
	out := make([]domain.CuttingPlanStock, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toPlanStock())
	}
	return out, nil
}

// UpdatePlanStatusOptions carries the optional fields a status update may
// set, matching spec.md §4.8's updateStatus(id, status, approvedById?, machineId?).
type UpdatePlanStatusOptions struct {
	ApprovedByID *string
	MachineID    *string
}

// UpdatePlanStatus performs the conditional write enforcing the plan
// state machine (spec.md §4.9); ApprovedAt is set iff the new status is
// APPROVED or later, matching the CuttingPlan invariant in spec.md §3.
func (r *Repository) UpdatePlanStatus(ctx context.Context, id string, from, to domain.PlanStatus, opts UpdatePlanStatusOptions) error {
	if err := statemachine.ValidatePlanTransition(from, to); err != nil {
		return err
	}

	now := time.Now().UTC()
	set := bson.M{"status": to, "updated_at": now}
	if to == domain.PlanApproved {
		set["approved_at"] = now
		if opts.ApprovedByID != nil {
			set["approved_by_id"] = *opts.ApprovedByID
		}
	}
	if opts.MachineID != nil {
		set["machine_id"] = *opts.MachineID
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	filter := tenantFilter(ctx, bson.M{"_id": id, "status": from})
	res, err := r.plans.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return domain.Wrap(domain.CodeInternalError, "update plan status", err)
	}
	if res.MatchedCount == 0 {
		return domain.New(domain.CodePlanNotFound, "plan not found or status changed concurrently: "+id)
	}
	return nil
}
