package editor

import (
	"testing"

	"github.com/ritzau/siteflow/pkg/model"
)

func newTestSession(t *testing.T, g model.Graph) *Session {
	t.Helper()
	s, err := NewSession(g, NewMemoryClipboard())
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s
}

func twoNodeGraph() model.Graph {
	return model.Graph{
		Nodes: []model.Node{
			{ID: "a", Name: "Home", X: 100, Y: 100},
			{ID: "b", Name: "About", X: 400, Y: 100},
		},
	}
}

func TestSessionClickSelection(t *testing.T) {
	s := newTestSession(t, twoNodeGraph())

	s.Click("a", false)
	if got := s.Selection(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Expected selection [a], got %v", got)
	}

	// Plain click replaces the selection.
	s.Click("b", false)
	if got := s.Selection(); len(got) != 1 || got[0] != "b" {
		t.Errorf("Expected selection [b], got %v", got)
	}

	// Modified click toggles membership.
	s.Click("a", true)
	if got := s.Selection(); len(got) != 2 {
		t.Errorf("Expected both nodes selected, got %v", got)
	}
	s.Click("a", true)
	if got := s.Selection(); len(got) != 1 || got[0] != "b" {
		t.Errorf("Expected toggle to deselect a, got %v", got)
	}

	s.ClickBackground()
	if got := s.Selection(); len(got) != 0 {
		t.Errorf("Expected empty selection after background click, got %v", got)
	}
}

func TestSessionSelectAll(t *testing.T) {
	s := newTestSession(t, twoNodeGraph())
	s.SelectAll()
	if got := s.Selection(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Expected [a b] in node order, got %v", got)
	}
}

func TestSessionConnectRejectsDuplicates(t *testing.T) {
	s := newTestSession(t, twoNodeGraph())

	if !s.Connect("a", "b") {
		t.Fatal("Expected first connection to be created")
	}
	if s.Connect("a", "b") {
		t.Error("Expected duplicate connection to be rejected")
	}
	// Reverse direction counts as a duplicate too.
	if s.Connect("b", "a") {
		t.Error("Expected reverse duplicate to be rejected")
	}

	g := s.Graph()
	if len(g.Connections) != 1 {
		t.Errorf("Expected exactly 1 connection, got %d", len(g.Connections))
	}
	if !g.NodeByID("a").IsParent {
		t.Error("Expected source node to become a parent")
	}
}

func TestSessionConnectRejectsSelfAndUnknown(t *testing.T) {
	s := newTestSession(t, twoNodeGraph())

	if s.Connect("a", "a") {
		t.Error("Expected self-connection to be rejected")
	}
	if s.Connect("a", "ghost") {
		t.Error("Expected connection to unknown node to be rejected")
	}
}

func TestSessionConnectMode(t *testing.T) {
	s := newTestSession(t, twoNodeGraph())

	s.ArmConnect()
	if s.ConnectClick("a") {
		t.Error("First click only picks the source")
	}
	if s.ConnectClick("a") {
		t.Error("Clicking the source again must not connect")
	}
	if !s.ConnectClick("b") {
		t.Error("Expected second click on a different node to connect")
	}

	// Mode is disarmed after a completed connection.
	if s.ConnectClick("a") {
		t.Error("Expected connect mode to be disarmed")
	}
}

func TestSessionDisconnect(t *testing.T) {
	s := newTestSession(t, twoNodeGraph())
	s.Connect("a", "b")

	if !s.Disconnect("a", "b") {
		t.Fatal("Expected disconnect to succeed")
	}
	if s.Disconnect("a", "b") {
		t.Error("Expected second disconnect to report false")
	}

	g := s.Graph()
	if g.NodeByID("a").IsParent {
		t.Error("Expected IsParent to clear after the last outgoing connection is removed")
	}
}

func TestSessionDragRecordsOneHistoryEntry(t *testing.T) {
	s := newTestSession(t, twoNodeGraph())
	before := s.HistoryLen()

	if !s.BeginDrag("a", 110, 120) {
		t.Fatal("Expected drag to start on an existing node")
	}
	s.MoveDrag(200, 220)
	s.MoveDrag(300, 320)
	s.EndDrag()

	if s.HistoryLen() != before+1 {
		t.Errorf("Expected one history entry per drag, got %d new", s.HistoryLen()-before)
	}

	// Pointer offset is preserved: the grab point stays under the pointer.
	g := s.Graph()
	node := g.NodeByID("a")
	if node.X != 290 || node.Y != 300 {
		t.Errorf("Expected node at (290, 300), got (%v, %v)", node.X, node.Y)
	}
}

func TestSessionDragWithoutMovementRecordsNothing(t *testing.T) {
	s := newTestSession(t, twoNodeGraph())
	before := s.HistoryLen()

	s.BeginDrag("a", 110, 120)
	s.EndDrag()

	if s.HistoryLen() != before {
		t.Errorf("Expected no history entry for a motionless drag, got %d new", s.HistoryLen()-before)
	}
}

func TestSessionEditConfirmAndCancel(t *testing.T) {
	s := newTestSession(t, twoNodeGraph())

	if !s.BeginEdit("a", FieldName) {
		t.Fatal("Expected edit to begin")
	}
	if !s.ConfirmEdit("Start") {
		t.Fatal("Expected edit to confirm")
	}
	renamed := s.Graph()
	if got := renamed.NodeByID("a").Name; got != "Start" {
		t.Errorf("Expected renamed node, got %q", got)
	}

	before := s.HistoryLen()
	s.BeginEdit("a", FieldDescription)
	s.CancelEdit()
	if s.ConfirmEdit("ignored") {
		t.Error("Expected confirm after cancel to be a no-op")
	}
	if s.HistoryLen() != before {
		t.Error("Expected cancelled edit to record no history")
	}
	after := s.Graph()
	if got := after.NodeByID("a").Description; got != "" {
		t.Errorf("Expected description unchanged, got %q", got)
	}
}

func TestSessionDeleteNodeCascades(t *testing.T) {
	g := model.Graph{
		Nodes: []model.Node{
			{ID: "a", Name: "Home"},
			{ID: "b", Name: "About"},
			{ID: "c", Name: "Team"},
		},
		Connections: []model.Connection{
			{From: "a", To: "b"},
			{From: "b", To: "c"},
		},
	}
	s := newTestSession(t, g)
	s.Click("b", false)

	if !s.DeleteNode("b") {
		t.Fatal("Expected delete to succeed")
	}

	got := s.Graph()
	if got.HasNode("b") {
		t.Error("Expected node to be gone")
	}
	if len(got.Connections) != 0 {
		t.Errorf("Expected connections touching the node to be removed, got %v", got.Connections)
	}
	if got.NodeByID("a").IsParent {
		t.Error("Expected former parent to lose its flag")
	}
	if len(s.Selection()) != 0 {
		t.Error("Expected deleted node to leave the selection")
	}
	if s.DeleteNode("b") {
		t.Error("Expected deleting a missing node to report false")
	}
}

func TestSessionAddNodeAndChild(t *testing.T) {
	s := newTestSession(t, model.NewGraph())

	node := s.AddNode(50, 60)
	if node.ID == "" || node.Name != model.PlaceholderName {
		t.Errorf("Expected a placeholder node with an id, got %+v", node)
	}
	if node.X != 50 || node.Y != 60 {
		t.Errorf("Expected node at (50, 60), got (%v, %v)", node.X, node.Y)
	}

	child, err := s.AddChild(node.ID)
	if err != nil {
		t.Fatalf("AddChild failed: %v", err)
	}
	if child.X <= node.X {
		t.Error("Expected child to be offset into the next column")
	}

	g := s.Graph()
	if len(g.Connections) != 1 || g.Connections[0].From != node.ID || g.Connections[0].To != child.ID {
		t.Errorf("Expected parent→child connection, got %v", g.Connections)
	}
	if !g.NodeByID(node.ID).IsParent {
		t.Error("Expected parent flag on the parent node")
	}

	if _, err := s.AddChild("ghost"); err == nil {
		t.Error("Expected AddChild with unknown parent to fail")
	}
}

func TestSessionUndoRedo(t *testing.T) {
	s := newTestSession(t, model.NewGraph())
	node := s.AddNode(10, 10)

	if !s.Undo() {
		t.Fatal("Expected undo to succeed")
	}
	undone := s.Graph()
	if undone.HasNode(node.ID) {
		t.Error("Expected node gone after undo")
	}
	if !s.Redo() {
		t.Fatal("Expected redo to succeed")
	}
	redone := s.Graph()
	if !redone.HasNode(node.ID) {
		t.Error("Expected node back after redo")
	}
	if s.Redo() {
		t.Error("Expected redo past the newest state to report false")
	}
}

func TestSessionUndoIsBounded(t *testing.T) {
	s := newTestSession(t, model.NewGraph())
	for i := 0; i < MaxHistoryEntries+10; i++ {
		s.AddNode(float64(i), 0)
	}

	if s.HistoryLen() != MaxHistoryEntries {
		t.Fatalf("Expected history capped at %d, got %d", MaxHistoryEntries, s.HistoryLen())
	}

	undos := 0
	for s.Undo() {
		undos++
	}
	if undos != MaxHistoryEntries-1 {
		t.Errorf("Expected %d possible undos, got %d", MaxHistoryEntries-1, undos)
	}
	// The earliest retained snapshot is not the empty graph anymore.
	if len(s.Graph().Nodes) == 0 {
		t.Error("Expected the oldest snapshots to have been evicted")
	}
}

func TestSessionCopyPastePreservesInternalConnections(t *testing.T) {
	g := model.Graph{
		Nodes: []model.Node{
			{ID: "a", Name: "Home", X: 100, Y: 100},
			{ID: "b", Name: "About", X: 360, Y: 200},
			{ID: "c", Name: "Outside", X: 700, Y: 100},
		},
		Connections: []model.Connection{
			{From: "a", To: "b"},
			{From: "b", To: "c"},
		},
	}
	s := newTestSession(t, g)

	s.Click("a", false)
	s.Click("b", true)
	if copied := s.Copy(); copied != 2 {
		t.Fatalf("Expected 2 nodes copied, got %d", copied)
	}

	pasted := s.Paste(500, 500)
	if len(pasted) != 2 {
		t.Fatalf("Expected 2 pasted nodes, got %d", len(pasted))
	}

	// Fresh ids, anchored at the paste point with relative offsets kept.
	if pasted[0].ID == "a" || pasted[1].ID == "b" {
		t.Error("Expected pasted nodes to get fresh ids")
	}
	if pasted[0].X != 500 || pasted[0].Y != 500 {
		t.Errorf("Expected anchor node at (500, 500), got (%v, %v)", pasted[0].X, pasted[0].Y)
	}
	if pasted[1].X != 760 || pasted[1].Y != 600 {
		t.Errorf("Expected offset preserved, got (%v, %v)", pasted[1].X, pasted[1].Y)
	}

	// The internal a→b connection is remapped; the b→c edge leaving the
	// selection is not duplicated.
	got := s.Graph()
	if !got.Connected(pasted[0].ID, pasted[1].ID) {
		t.Error("Expected internal connection between pasted clones")
	}
	if got.Connected(pasted[1].ID, "c") {
		t.Error("Expected connection leaving the copied set to be dropped")
	}

	// Pasted nodes become the new selection.
	sel := s.Selection()
	if len(sel) != 2 {
		t.Errorf("Expected pasted nodes selected, got %v", sel)
	}
}

func TestSessionPasteWithEmptyClipboardIsNoOp(t *testing.T) {
	s := newTestSession(t, twoNodeGraph())
	before := s.HistoryLen()

	if pasted := s.Paste(0, 0); pasted != nil {
		t.Errorf("Expected nil for empty clipboard, got %v", pasted)
	}
	if s.HistoryLen() != before {
		t.Error("Expected empty paste to record no history")
	}
}

func TestSessionCopyWithEmptySelectionIsNoOp(t *testing.T) {
	s := newTestSession(t, twoNodeGraph())
	if copied := s.Copy(); copied != 0 {
		t.Errorf("Expected nothing copied without a selection, got %d", copied)
	}
}

func TestSessionRelayoutPersistsLevels(t *testing.T) {
	g := model.Graph{
		Nodes: []model.Node{
			{ID: "a", Name: "Home"},
			{ID: "b", Name: "About"},
		},
		Connections: []model.Connection{{From: "a", To: "b"}},
	}
	s := newTestSession(t, g)

	result := s.Relayout()
	if len(result.Graph.Nodes) != 2 {
		t.Fatalf("Expected layout result to carry the graph, got %d nodes", len(result.Graph.Nodes))
	}

	got := s.Graph()
	if got.NodeByID("a").Level == nil || *got.NodeByID("a").Level != 0 {
		t.Error("Expected resolved level 0 persisted on the root")
	}
	if got.NodeByID("b").Level == nil || *got.NodeByID("b").Level != 1 {
		t.Error("Expected resolved level 1 persisted on the child")
	}

	// Workspace is monotonic across repeated layouts.
	first := s.Workspace()
	s.Relayout()
	second := s.Workspace()
	if second.Width < first.Width || second.Height < first.Height {
		t.Errorf("Workspace shrank from %+v to %+v", first, second)
	}

	// Relayout is undoable as a single step.
	if !s.Undo() {
		t.Error("Expected relayout to be undoable")
	}
}

func TestSessionGenerationTickets(t *testing.T) {
	s := newTestSession(t, model.NewGraph())

	stale := s.BeginGeneration()
	fresh := s.BeginGeneration()

	applied, err := s.ApplyGenerated(stale, twoNodeGraph())
	if err != nil {
		t.Fatalf("ApplyGenerated failed: %v", err)
	}
	if applied {
		t.Error("Expected stale ticket to be discarded")
	}
	if len(s.Graph().Nodes) != 0 {
		t.Error("Expected graph untouched by a stale completion")
	}

	applied, err = s.ApplyGenerated(fresh, twoNodeGraph())
	if err != nil {
		t.Fatalf("ApplyGenerated failed: %v", err)
	}
	if !applied {
		t.Error("Expected current ticket to apply")
	}
	if len(s.Graph().Nodes) != 2 {
		t.Errorf("Expected generated graph installed, got %d nodes", len(s.Graph().Nodes))
	}
}

func TestSessionReplaceNormalizesAndResetsState(t *testing.T) {
	s := newTestSession(t, twoNodeGraph())
	s.Click("a", false)

	err := s.Replace(model.Graph{
		Nodes: []model.Node{{Name: "Generated"}},
		Connections: []model.Connection{
			{From: "x", To: "y"}, // dangling, must be dropped
		},
	})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	g := s.Graph()
	if len(g.Nodes) != 1 || g.Nodes[0].ID == "" {
		t.Errorf("Expected normalized replacement graph, got %+v", g)
	}
	if len(g.Connections) != 0 {
		t.Error("Expected dangling connections dropped on replace")
	}
	if len(s.Selection()) != 0 {
		t.Error("Expected selection cleared on replace")
	}

	// Replace is undoable back to the previous graph.
	if !s.Undo() {
		t.Fatal("Expected undo after replace")
	}
	restored := s.Graph()
	if !restored.HasNode("a") {
		t.Error("Expected the previous graph back after undo")
	}
}
