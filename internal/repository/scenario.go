package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/cutstock/optima/internal/domain"
	"github.com/cutstock/optima/internal/statemachine"
	"github.com/cutstock/optima/internal/tenant"
)

// ScenarioFilter narrows FindAll. Zero-valued fields are not applied.
type ScenarioFilter struct {
	CuttingJobID string
	Status       domain.ScenarioStatus
}

type scenarioDoc struct {
	ID           string                    `bson:"_id"`
	TenantID     string                    `bson:"tenant_id,omitempty"`
	Name         string                    `bson:"name"`
	CuttingJobID string                    `bson:"cutting_job_id"`
	CreatedByID  string                    `bson:"created_by_id"`
	Parameters   scenarioParametersDoc     `bson:"parameters"`
	Status       domain.ScenarioStatus     `bson:"status"`
	CreatedAt    time.Time                 `bson:"created_at"`
	UpdatedAt    time.Time                 `bson:"updated_at"`
}

type scenarioParametersDoc struct {
	Algorithm         domain.Algorithm `bson:"algorithm,omitempty"`
	Kerf              float64          `bson:"kerf"`
	MinUsableWaste    float64          `bson:"min_usable_waste"`
	AllowRotation     bool             `bson:"allow_rotation"`
	UseWarehouseStock bool             `bson:"use_warehouse_stock"`
	UseStandardSizes  bool             `bson:"use_standard_sizes"`
	SelectedStockIDs  []string         `bson:"selected_stock_ids,omitempty"`
}

func fromScenario(s domain.OptimizationScenario) scenarioDoc {
	return scenarioDoc{
		ID:           s.ID,
		TenantID:     s.TenantID,
		Name:         s.Name,
		CuttingJobID: s.CuttingJobID,
		CreatedByID:  s.CreatedByID,
		Parameters: scenarioParametersDoc{
			Algorithm:         s.Parameters.Algorithm,
			Kerf:              s.Parameters.Kerf,
			MinUsableWaste:    s.Parameters.MinUsableWaste,
			AllowRotation:     s.Parameters.AllowRotation,
			UseWarehouseStock: s.Parameters.UseWarehouseStock,
			UseStandardSizes:  s.Parameters.UseStandardSizes,
			SelectedStockIDs:  s.Parameters.SelectedStockIDs,
		},
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (d scenarioDoc) toScenario() domain.OptimizationScenario {
	return domain.OptimizationScenario{
		ID:           d.ID,
		TenantID:     d.TenantID,
		Name:         d.Name,
		CuttingJobID: d.CuttingJobID,
		CreatedByID:  d.CreatedByID,
		Parameters: domain.ScenarioParameters{
			Algorithm:         d.Parameters.Algorithm,
			Kerf:              d.Parameters.Kerf,
			MinUsableWaste:    d.Parameters.MinUsableWaste,
			AllowRotation:     d.Parameters.AllowRotation,
			UseWarehouseStock: d.Parameters.UseWarehouseStock,
			UseStandardSizes:  d.Parameters.UseStandardSizes,
			SelectedStockIDs:  d.Parameters.SelectedStockIDs,
		},
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// CreateScenario inserts a new scenario. ID is assigned by the caller (the
// service layer owns id generation so scenario ids can be referenced
// before the write completes); CreatedAt is set to now when zero and
// UpdatedAt is always set to now.
func (r *Repository) CreateScenario(ctx context.Context, s domain.OptimizationScenario) (domain.OptimizationScenario, error) {
	if s.ID == "" {
		return domain.OptimizationScenario{}, domain.New(domain.CodeValidationError, "scenario id is required")
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	if tid, ok := tenantFromOrContext(ctx, s.TenantID); ok {
		s.TenantID = tid
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if _, err := r.scenarios.InsertOne(ctx, fromScenario(s)); err != nil {
		if isDuplicateKey(err) {
			return domain.OptimizationScenario{}, domain.Wrap(domain.CodeConflict, "scenario id already exists", err)
		}
		return domain.OptimizationScenario{}, domain.Wrap(domain.CodeInternalError, "create scenario", err)
	}
	return s, nil
}

// FindScenarioByID returns a scenario, tenant-scoped when ctx carries one.
func (r *Repository) FindScenarioByID(ctx context.Context, id string) (domain.OptimizationScenario, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	filter := tenantFilter(ctx, bson.M{"_id": id})
	var doc scenarioDoc
	if err := r.scenarios.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.OptimizationScenario{}, domain.New(domain.CodeScenarioNotFound, "scenario not found: "+id)
		}
		return domain.OptimizationScenario{}, domain.Wrap(domain.CodeInternalError, "find scenario", err)
	}
	return doc.toScenario(), nil
}

// FindAllScenarios returns scenarios matching filter, tenant-scoped.
func (r *Repository) FindAllScenarios(ctx context.Context, filter ScenarioFilter) ([]domain.OptimizationScenario, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	query := bson.M{}
	if filter.CuttingJobID != "" {
		query["cutting_job_id"] = filter.CuttingJobID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	query = tenantFilter(ctx, query)
	cur, err := r.scenarios.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, domain.Wrap(domain.CodeInternalError, "find scenarios", err)
	}
	defer cur.Close(ctx)
	var docs []scenarioDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.Wrap(domain.CodeInternalError, "decode scenarios", err)
	}
	out := make([]domain.OptimizationScenario, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toScenario())
	}
	return out, nil
}

// UpdateScenarioStatus performs a conditional write (current status must
// match the state machine's allowed predecessor set) so concurrent
// callers cannot race past an illegal transition, per spec.md §5
// "conditional writes (WHERE status = expected)".
func (r *Repository) UpdateScenarioStatus(ctx context.Context, id string, from, to domain.ScenarioStatus) error {
	if err := statemachine.ValidateScenarioTransition(from, to); err != nil {
		return err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	filter := tenantFilter(ctx, bson.M{"_id": id, "status": from})
	update := bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}}
	res, err := r.scenarios.UpdateOne(ctx, filter, update)
	if err != nil {
		return domain.Wrap(domain.CodeInternalError, "update scenario status", err)
	}
	if res.MatchedCount == 0 {
		return domain.New(domain.CodeScenarioNotFound, "scenario not found or status changed concurrently: "+id)
	}
	return nil
}

func tenantFromOrContext(ctx context.Context, explicit string) (string, bool) {
	if explicit != "" {
		return explicit, true
	}
	if id, ok := tenant.FromContext(ctx); ok && id != "" {
		return id, true
	}
	return "", false
}
