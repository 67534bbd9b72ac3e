package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/easeaico/project-keeper/internal/types"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c := Default()
	if len(c.Skills) == 0 || len(c.Attributes) == 0 {
		t.Fatalf("expected built-in skills and attributes, got %+v", c)
	}
	if c.Trained() != 50 || c.Untrained() != 20 {
		t.Fatalf("unexpected skill constants %d/%d", c.Trained(), c.Untrained())
	}
}

func TestResolveTargetOrder(t *testing.T) {
	c := &Catalog{
		Skills: []Skill{
			{ID: "spot_hidden", Label: "侦查", Base: 25},
			{ID: "侦查", Label: "other"},
		},
		Attributes: []AttributeRange{{Key: "POW", Label: "意志"}},
	}

	ref := c.ResolveTarget(types.KindSkill, "侦查")
	if ref.ID != "侦查" || !ref.Found {
		t.Fatalf("expected exact id match first, got %+v", ref)
	}
	ref = c.ResolveTarget(types.KindSkill, "SPOT_HIDDEN")
	if ref.ID != "spot_hidden" || ref.Base != 25 {
		t.Fatalf("expected case-insensitive id match, got %+v", ref)
	}
	ref = c.ResolveTarget(types.KindAttribute, "意志")
	if ref.ID != "POW" || ref.Kind != types.KindAttribute {
		t.Fatalf("expected label match, got %+v", ref)
	}
	ref = c.ResolveTarget(types.KindSkill, "驾驶飞艇")
	if ref.Found || ref.ID != "驾驶飞艇" || ref.Label != "驾驶飞艇" {
		t.Fatalf("expected literal fallback, got %+v", ref)
	}
}

func TestValidateRejectsBadAllocation(t *testing.T) {
	c := &Catalog{Allocation: Allocation{Mode: AllocationQuickstart}}
	if err := c.Validate(); !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("expected ErrInvalidCatalog, got %v", err)
	}
	c = &Catalog{Allocation: Allocation{Mode: "lottery"}}
	if err := c.Validate(); !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("expected ErrInvalidCatalog for unknown mode, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	data := []byte(`
id: manor
name: Manor
trained_value: 60
skills:
  - {id: listen, label: 聆听, base: 20}
dc:
  overrides: {listen: 40}
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.Trained() != 60 || c.Untrained() != DefaultUntrainedValue {
		t.Fatalf("unexpected constants %d/%d", c.Trained(), c.Untrained())
	}
	if c.DCRules().Overrides["listen"] != 40 {
		t.Fatalf("expected dc override, got %+v", c.DC)
	}
}

func TestLoadRulebookDefaultsWhenEmpty(t *testing.T) {
	rb, err := LoadRulebook("")
	if err != nil {
		t.Fatalf("LoadRulebook returned error: %v", err)
	}
	if rb.Overrides == nil {
		t.Fatalf("expected non-nil overrides")
	}
}
