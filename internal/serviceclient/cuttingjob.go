package serviceclient

import (
	"context"
	"fmt"

	"github.com/cutstock/optima/internal/domain"
)

// ModuleCuttingJob is the registry key the Cutting-Job service registers
// its Handler under.
const ModuleCuttingJob = "cutting-job"

// CuttingJobClient is the typed façade spec.md §4.10 names for the
// Cutting-Job service: "getJobWithItems(jobId)". It satisfies
// internal/optimizer.JobClient.
type CuttingJobClient struct {
	Registry *Registry
}

// GetJobWithItems dispatches GET /cutting-jobs/{id} and decodes the
// response into a domain.CuttingJob.
func (c CuttingJobClient) GetJobWithItems(ctx context.Context, jobID, tenantID string) (domain.CuttingJob, error) {
	resp, err := c.Registry.Dispatch(ctx, ModuleCuttingJob, "GET", "/cutting-jobs/{id}", map[string]any{
		"id":       jobID,
		"tenantId": tenantID,
	})
	if err != nil {
		return domain.CuttingJob{}, err
	}
	if !resp.Success {
		if resp.Err != nil {
			return domain.CuttingJob{}, resp.Err
		}
		return domain.CuttingJob{}, domain.New(domain.CodeJobNotFound, "cutting job not found: "+jobID)
	}
	return decodeCuttingJob(resp.Data)
}

func decodeCuttingJob(data map[string]any) (domain.CuttingJob, error) {
	job := domain.CuttingJob{
		ID:             str(data["id"]),
		TenantID:       str(data["tenantId"]),
		MaterialTypeID: str(data["materialTypeId"]),
		Thickness:      num(data["thickness"]),
		Status:         domain.CuttingJobStatus(str(data["status"])),
	}
	items, ok := data["items"].([]any)
	if !ok {
		return job, nil
	}
	job.Items = make([]domain.CuttingJobItem, 0, len(items))
	for _, raw := range items {
		m, ok := raw.(map[string]any)
		if !ok {
			return domain.CuttingJob{}, fmt.Errorf("cutting job item: unexpected shape %T", raw)
		}
		item := domain.CuttingJobItem{
			ID:          str(m["id"]),
			OrderItemID: str(m["orderItemId"]),
			Quantity:    int(num(m["quantity"])),
		}
		if oi, ok := m["orderItem"].(map[string]any); ok {
			item.OrderItem = domain.OrderItem{
				ID:           str(oi["id"]),
				GeometryType: domain.GeometryType(str(oi["geometryType"])),
				Width:        num(oi["width"]),
				Height:       num(oi["height"]),
				Length:       num(oi["length"]),
				CanRotate:    boolOf(oi["canRotate"]),
			}
		}
		job.Items = append(job.Items, item)
	}
	return job, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func boolOf(v any) bool {
	b, _ := v.(bool)
	return b
}
