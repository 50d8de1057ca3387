package serviceclient

import (
	"context"

	"github.com/cutstock/optima/internal/domain"
)

// ModulePlan is the registry key the Plan service registers its Handler
// under.
const ModulePlan = "plan"

// ApprovedFilter narrows GetApproved. Zero-valued fields are not applied.
type ApprovedFilter struct {
	ScenarioID string
	FromDate   string // RFC3339, caller-formatted
	ToDate     string
}

// PlanClient is the typed façade spec.md §4.10 names for the Plan
// service: "getById(id), getStockItems(id), updateStatus(id, status),
// getApproved({scenarioId?, fromDate?, toDate?})".
type PlanClient struct {
	Registry *Registry
}

// GetByID dispatches GET /plans/{id}.
func (c PlanClient) GetByID(ctx context.Context, id string) (domain.CuttingPlan, error) {
	resp, err := c.Registry.Dispatch(ctx, ModulePlan, "GET", "/plans/{id}", map[string]any{"id": id})
	if err != nil {
		return domain.CuttingPlan{}, err
	}
	if !resp.Success {
		if resp.Err != nil {
			return domain.CuttingPlan{}, resp.Err
		}
		return domain.CuttingPlan{}, domain.New(domain.CodePlanNotFound, "plan not found: "+id)
	}
	return decodePlan(resp.Data), nil
}

// GetStockItems dispatches GET /plans/{id}/stock-items.
func (c PlanClient) GetStockItems(ctx context.Context, id string) ([]domain.CuttingPlanStock, error) {
	resp, err := c.Registry.Dispatch(ctx, ModulePlan, "GET", "/plans/{id}/stock-items", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		if resp.Err != nil {
			return nil, resp.Err
		}
		return nil, domain.New(domain.CodePlanNotFound, "plan not found: "+id)
	}
	items, ok := resp.Data["items"].([]any)
	if !ok {
		return nil, nil
	}
	out := make([]domain.CuttingPlanStock, 0, len(items))
	for _, raw := range items {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, decodePlanStock(m))
	}
	return out, nil
}

// UpdateStatus dispatches PUT /plans/{id}/status.
func (c PlanClient) UpdateStatus(ctx context.Context, id string, status domain.PlanStatus, approvedByID, machineID string) error {
	data := map[string]any{"id": id, "status": string(status)}
	if approvedByID != "" {
		data["approvedById"] = approvedByID
	}
	if machineID != "" {
		data["machineId"] = machineID
	}
	resp, err := c.Registry.Dispatch(ctx, ModulePlan, "PUT", "/plans/{id}/status", data)
	if err != nil {
		return err
	}
	if !resp.Success {
		if resp.Err != nil {
			return resp.Err
		}
		return domain.New(domain.CodeInvalidStatusTransition, "plan status update rejected")
	}
	return nil
}

// GetApproved dispatches POST /plans/approved.
func (c PlanClient) GetApproved(ctx context.Context, filter ApprovedFilter) ([]domain.CuttingPlan, error) {
	data := map[string]any{}
	if filter.ScenarioID != "" {
		data["scenarioId"] = filter.ScenarioID
	}
	if filter.FromDate != "" {
		data["fromDate"] = filter.FromDate
	}
	if filter.ToDate != "" {
		data["toDate"] = filter.ToDate
	}
	resp, err := c.Registry.Dispatch(ctx, ModulePlan, "POST", "/plans/approved", data)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		if resp.Err != nil {
			return nil, resp.Err
		}
		return nil, nil
	}
	plans, ok := resp.Data["plans"].([]any)
	if !ok {
		return nil, nil
	}
	out := make([]domain.CuttingPlan, 0, len(plans))
	for _, raw := range plans {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, decodePlan(m))
	}
	return out, nil
}

func decodePlan(m map[string]any) domain.CuttingPlan {
	return domain.CuttingPlan{
		ID:              str(m["id"]),
		TenantID:        str(m["tenantId"]),
		PlanNumber:      str(m["planNumber"]),
		ScenarioID:      str(m["scenarioId"]),
		TotalWaste:      num(m["totalWaste"]),
		WastePercentage: num(m["wastePercentage"]),
		StockUsedCount:  int(num(m["stockUsedCount"])),
		Status:          domain.PlanStatus(str(m["status"])),
	}
}

func decodePlanStock(m map[string]any) domain.CuttingPlanStock {
	ps := domain.CuttingPlanStock{
		ID:              str(m["id"]),
		CuttingPlanID:   str(m["cuttingPlanId"]),
		StockItemID:     str(m["stockItemId"]),
		Sequence:        int(num(m["sequence"])),
		Waste:           num(m["waste"]),
		WastePercentage: num(m["wastePercentage"]),
	}
	if l, ok := m["layout"].(map[string]any); ok {
		ps.Layout = decodeLayout(l)
	}
	return ps
}

func decodeLayout(m map[string]any) domain.LayoutData {
	layout := domain.LayoutData{
		Kind:        domain.LayoutKind(str(m["kind"])),
		StockLength: num(m["stockLength"]),
		UsableWaste: num(m["usableWaste"]),
		StockWidth:  num(m["stockWidth"]),
		StockHeight: num(m["stockHeight"]),
	}
	if cuts, ok := m["cuts"].([]any); ok {
		layout.Cuts = make([]domain.Cut1D, 0, len(cuts))
		for _, raw := range cuts {
			if c, ok := raw.(map[string]any); ok {
				layout.Cuts = append(layout.Cuts, domain.Cut1D{
					PieceID: str(c["pieceId"]),
					Offset:  num(c["offset"]),
					Length:  num(c["length"]),
				})
			}
		}
	}
	if placements, ok := m["placements"].([]any); ok {
		layout.Placements = make([]domain.Placement2D, 0, len(placements))
		for _, raw := range placements {
			if p, ok := raw.(map[string]any); ok {
				layout.Placements = append(layout.Placements, domain.Placement2D{
					PieceID: str(p["pieceId"]),
					X:       num(p["x"]),
					Y:       num(p["y"]),
					W:       num(p["w"]),
					H:       num(p["h"]),
					Rotated: boolOf(p["rotated"]),
				})
			}
		}
	}
	return layout
}
