package config

import (
	"testing"

	"github.com/cutstock/optima/internal/domain"
)

func TestValidateScenarioParameters_AcceptsWellFormedParameters(t *testing.T) {
	raw := []byte(`{"algorithm":"1D_FFD","kerf":3,"allowRotation":true,"selectedStockIds":["a","b"]}`)
	if err := ValidateScenarioParameters(raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateScenarioParameters_AcceptsEmptyObject(t *testing.T) {
	if err := ValidateScenarioParameters([]byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateScenarioParameters_RejectsUnknownAlgorithm(t *testing.T) {
	err := ValidateScenarioParameters([]byte(`{"algorithm":"3D_MAGIC"}`))
	if domain.CodeOf(err) != domain.CodeInvalidAlgorithm {
		t.Fatalf("expected INVALID_ALGORITHM, got %v", err)
	}
}

func TestValidateScenarioParameters_RejectsKerfOutOfRange(t *testing.T) {
	err := ValidateScenarioParameters([]byte(`{"kerf":25}`))
	if domain.CodeOf(err) != domain.CodeInvalidRange {
		t.Fatalf("expected INVALID_RANGE, got %v", err)
	}
}

func TestValidateScenarioParameters_RejectsNegativeMinUsableWaste(t *testing.T) {
	err := ValidateScenarioParameters([]byte(`{"minUsableWaste":-1}`))
	if domain.CodeOf(err) != domain.CodeInvalidRange {
		t.Fatalf("expected INVALID_RANGE, got %v", err)
	}
}

func TestValidateScenarioParameters_RejectsMalformedJSON(t *testing.T) {
	err := ValidateScenarioParameters([]byte(`not json`))
	if domain.CodeOf(err) != domain.CodeValidationError {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestValidateScenarioParameters_RejectsUnknownField(t *testing.T) {
	err := ValidateScenarioParameters([]byte(`{"notAField":true}`))
	if domain.CodeOf(err) != domain.CodeValidationError {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}
