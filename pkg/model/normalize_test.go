package model

import (
	"testing"
)

func TestNormalizeNilGraph(t *testing.T) {
	_, err := Normalize(nil)
	if err != ErrNilGraph {
		t.Errorf("Expected ErrNilGraph, got %v", err)
	}
}

func TestNormalizeSynthesizesMissingIDs(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{Name: "Home"},
			{Name: "About"},
		},
	}

	normalized, err := Normalize(&g)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if normalized.Nodes[0].ID == "" || normalized.Nodes[1].ID == "" {
		t.Error("Expected ids to be synthesized for nodes without one")
	}
	if normalized.Nodes[0].ID == normalized.Nodes[1].ID {
		t.Error("Expected synthesized ids to be unique")
	}
	// The input graph must not be mutated
	if g.Nodes[0].ID != "" {
		t.Error("Normalize mutated its input")
	}
}

func TestNormalizeResolvesDuplicateIDs(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{ID: "a", Name: "First"},
			{ID: "a", Name: "Second"},
		},
	}

	normalized, err := Normalize(&g)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if normalized.Nodes[0].ID != "a" {
		t.Errorf("Expected first occurrence to keep its id, got %q", normalized.Nodes[0].ID)
	}
	if normalized.Nodes[1].ID == "a" {
		t.Error("Expected duplicate id to be replaced")
	}
}

func TestNormalizeDefaultsName(t *testing.T) {
	g := Graph{Nodes: []Node{{ID: "a"}}}

	normalized, err := Normalize(&g)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if normalized.Nodes[0].Name != PlaceholderName {
		t.Errorf("Expected placeholder name %q, got %q", PlaceholderName, normalized.Nodes[0].Name)
	}
}

func TestNormalizeClearsNegativeLevels(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{ID: "a", Name: "Home", Level: IntPtr(-1)},
			{ID: "b", Name: "About", Level: IntPtr(2)},
		},
	}

	normalized, err := Normalize(&g)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if normalized.Nodes[0].Level != nil {
		t.Error("Expected negative level to be cleared")
	}
	if normalized.Nodes[1].Level == nil || *normalized.Nodes[1].Level != 2 {
		t.Error("Expected valid level to be preserved")
	}
}

func TestNormalizeDropsInvalidConnections(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{ID: "a", Name: "Home"},
			{ID: "b", Name: "About"},
		},
		Connections: []Connection{
			{From: "a", To: "b"},
			{From: "a", To: "ghost"},
			{From: "ghost", To: "b"},
		},
	}

	normalized, err := Normalize(&g)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(normalized.Connections) != 1 {
		t.Fatalf("Expected 1 connection after normalization, got %d", len(normalized.Connections))
	}
	if normalized.Connections[0] != (Connection{From: "a", To: "b"}) {
		t.Errorf("Unexpected surviving connection: %+v", normalized.Connections[0])
	}
}

func TestNormalizeRecomputesIsParent(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{ID: "a", Name: "Home", IsParent: false},
			{ID: "b", Name: "About", IsParent: true}, // stale flag
		},
		Connections: []Connection{
			{From: "a", To: "b"},
		},
	}

	normalized, err := Normalize(&g)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !normalized.Nodes[0].IsParent {
		t.Error("Expected node with outgoing connection to be a parent")
	}
	if normalized.Nodes[1].IsParent {
		t.Error("Expected stale IsParent flag to be cleared")
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{Name: "Home", Level: IntPtr(-3)},
			{ID: "b"},
		},
		Connections: []Connection{
			{From: "b", To: "missing"},
		},
	}

	once, err := Normalize(&g)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	twice, err := Normalize(&once)
	if err != nil {
		t.Fatalf("Second Normalize failed: %v", err)
	}
	if !once.Equal(twice) {
		t.Error("Expected Normalize(Normalize(g)) to equal Normalize(g)")
	}
}
