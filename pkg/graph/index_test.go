package graph

import (
	"testing"

	"github.com/ritzau/siteflow/pkg/model"
)

func TestFromGraphPreservesOrder(t *testing.T) {
	g := model.Graph{
		Nodes: []model.Node{
			{ID: "c", Name: "C"},
			{ID: "a", Name: "A"},
			{ID: "b", Name: "B"},
		},
	}
	ix := FromGraph(g)

	order := ix.Order()
	if len(order) != 3 || order[0] != "c" || order[1] != "a" || order[2] != "b" {
		t.Errorf("Expected insertion order preserved, got %v", order)
	}
}

func TestInDegree(t *testing.T) {
	ix := NewIndex()
	ix.AddConnection("a", "c")
	ix.AddConnection("b", "c")

	if got := ix.InDegree("c"); got != 2 {
		t.Errorf("Expected in-degree 2, got %d", got)
	}
	if got := ix.InDegree("a"); got != 0 {
		t.Errorf("Expected in-degree 0 for a root, got %d", got)
	}
	if got := ix.InDegree("unknown"); got != 0 {
		t.Errorf("Expected in-degree 0 for an unknown node, got %d", got)
	}
}

func TestAddConnectionIgnoresSelfLoopsAndDuplicates(t *testing.T) {
	ix := NewIndex()
	ix.AddConnection("a", "a")
	if got := ix.InDegree("a"); got != 0 {
		t.Errorf("Expected self loop to be ignored, in-degree %d", got)
	}

	ix.AddConnection("a", "b")
	ix.AddConnection("a", "b")
	if got := ix.InDegree("b"); got != 1 {
		t.Errorf("Expected duplicate edge to be ignored, in-degree %d", got)
	}
}

func TestLevelsFromSingleRoot(t *testing.T) {
	ix := NewIndex()
	ix.AddConnection("a", "b")
	ix.AddConnection("b", "c")

	depths := ix.LevelsFrom([]string{"a"})
	if depths["a"] != 0 || depths["b"] != 1 || depths["c"] != 2 {
		t.Errorf("Unexpected depths: %v", depths)
	}
}

func TestLevelsFromMultipleRoots(t *testing.T) {
	// Two roots share a descendant; the shorter path wins.
	ix := NewIndex()
	ix.AddConnection("a", "mid")
	ix.AddConnection("mid", "deep")
	ix.AddConnection("b", "deep")

	depths := ix.LevelsFrom([]string{"a", "b"})
	if depths["a"] != 0 || depths["b"] != 0 {
		t.Errorf("Expected both roots at depth 0, got %v", depths)
	}
	if depths["deep"] != 1 {
		t.Errorf("Expected minimum depth 1 for shared descendant, got %d", depths["deep"])
	}
}

func TestLevelsFromOmitsUnreachable(t *testing.T) {
	ix := NewIndex()
	ix.AddNode("a")
	ix.AddNode("island")

	depths := ix.LevelsFrom([]string{"a"})
	if _, ok := depths["island"]; ok {
		t.Error("Expected unreachable node to be absent from the result")
	}

	// The virtual super-root must not leak into later queries.
	again := ix.LevelsFrom([]string{"island"})
	if again["island"] != 0 || len(again) != 1 {
		t.Errorf("Expected clean second traversal, got %v", again)
	}
}

func TestLevelsFromNoRoots(t *testing.T) {
	ix := NewIndex()
	ix.AddNode("a")
	if depths := ix.LevelsFrom(nil); len(depths) != 0 {
		t.Errorf("Expected empty result without roots, got %v", depths)
	}
}
