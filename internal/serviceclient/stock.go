package serviceclient

import (
	"context"
	"fmt"

	"github.com/cutstock/optima/internal/domain"
	"github.com/cutstock/optima/internal/optimizer"
)

// ModuleStock is the registry key the Stock service registers its Handler
// under.
const ModuleStock = "stock"

// StockClient is the typed façade spec.md §4.10 names for the Stock
// service: "getAvailableStock({materialTypeId, thickness, stockType,
// selectedStockIds?})". It satisfies internal/optimizer.StockClient.
type StockClient struct {
	Registry *Registry
}

// GetAvailableStock dispatches POST /stock/available.
func (c StockClient) GetAvailableStock(ctx context.Context, query optimizer.StockQuery) ([]domain.StockItem, error) {
	data := map[string]any{
		"materialTypeId": query.MaterialTypeID,
		"thickness":      query.Thickness,
		"stockType":      string(query.StockType),
		"tenantId":       query.TenantID,
	}
	if len(query.SelectedStockIDs) > 0 {
		ids := make([]any, len(query.SelectedStockIDs))
		for i, id := range query.SelectedStockIDs {
			ids[i] = id
		}
		data["selectedStockIds"] = ids
	}
	resp, err := c.Registry.Dispatch(ctx, ModuleStock, "POST", "/stock/available", data)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		if resp.Err != nil {
			return nil, resp.Err
		}
		return nil, domain.New(domain.CodeNoStock, "stock query failed")
	}
	items, ok := resp.Data["items"].([]any)
	if !ok {
		return nil, nil
	}
	out := make([]domain.StockItem, 0, len(items))
	for _, raw := range items {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("stock item: unexpected shape %T", raw)
		}
		out = append(out, decodeStockItem(m))
	}
	return out, nil
}

func decodeStockItem(m map[string]any) domain.StockItem {
	return domain.StockItem{
		ID:             str(m["id"]),
		TenantID:       str(m["tenantId"]),
		MaterialTypeID: str(m["materialTypeId"]),
		StockType:      domain.StockType(str(m["stockType"])),
		Length:         num(m["length"]),
		Width:          num(m["width"]),
		Height:         num(m["height"]),
		Thickness:      num(m["thickness"]),
		Quantity:       int(num(m["quantity"])),
		ReservedQty:    int(num(m["reservedQty"])),
		UnitPrice:      num(m["unitPrice"]),
		IsFromWaste:    boolOf(m["isFromWaste"]),
		Version:        int(num(m["version"])),
	}
}
