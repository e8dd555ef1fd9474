package editor

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ritzau/siteflow/pkg/infer"
	"github.com/ritzau/siteflow/pkg/layout"
	"github.com/ritzau/siteflow/pkg/levels"
	"github.com/ritzau/siteflow/pkg/model"
)

// clipboardKey is where copied nodes live inside the injected store.
const clipboardKey = "siteflow/nodes"

// EditField names the node field an in-progress edit targets.
type EditField string

const (
	FieldName        EditField = "name"
	FieldDescription EditField = "description"
)

type dragState struct {
	nodeID  string
	offsetX float64
	offsetY float64
	moved   bool
}

type connectState struct {
	armed    bool
	sourceID string
}

type editState struct {
	nodeID string
	field  EditField
}

type clipboardPayload struct {
	Nodes       []model.Node       `json:"nodes"`
	Connections []model.Connection `json:"connections"`
}

// Session owns the live graph while the user interacts with it: selection,
// in-progress drag/connect/edit operations, and a bounded undo history of
// full snapshots. All mutations are synchronous and serialized by the
// session lock; host handlers can call in from any goroutine.
type Session struct {
	mu        sync.Mutex
	graph     model.Graph
	history   *History
	selection map[string]bool
	drag      *dragState
	connect   connectState
	edit      *editState
	clipboard ClipboardStore
	workspace layout.Workspace
	genTicket uint64
}

// NewSession normalizes the graph and seeds the undo history with it.
func NewSession(g model.Graph, clipboard ClipboardStore) (*Session, error) {
	normalized, err := model.Normalize(&g)
	if err != nil {
		return nil, err
	}
	return &Session{
		graph:     normalized,
		history:   NewHistory(normalized),
		selection: make(map[string]bool),
		clipboard: clipboard,
	}, nil
}

// Graph returns a copy of the live graph so a host can persist it at any
// time without coordinating with the session.
func (s *Session) Graph() model.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Clone()
}

// Workspace returns the current recommended canvas size.
func (s *Session) Workspace() layout.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspace
}

// Rendered derives the drawn connection set for the live graph.
func (s *Session) Rendered() []model.RenderedConnection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return infer.Render(s.graph, levels.Resolve(s.graph))
}

// HistoryLen returns the number of retained undo snapshots.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len()
}

// Click updates the selection: a plain click replaces it with the node, a
// modified click toggles membership. Unknown ids are ignored.
func (s *Session) Click(id string, toggle bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.graph.HasNode(id) {
		return
	}
	if toggle {
		if s.selection[id] {
			delete(s.selection, id)
		} else {
			s.selection[id] = true
		}
		return
	}
	s.selection = map[string]bool{id: true}
}

// ClickBackground clears the selection.
func (s *Session) ClickBackground() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = make(map[string]bool)
}

// SelectAll selects every node.
func (s *Session) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = make(map[string]bool, len(s.graph.Nodes))
	for _, node := range s.graph.Nodes {
		s.selection[node.ID] = true
	}
}

// Selection returns the selected node ids in node order.
func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.selection))
	for _, node := range s.graph.Nodes {
		if s.selection[node.ID] {
			ids = append(ids, node.ID)
		}
	}
	return ids
}

// ArmConnect enters connect mode without a source node.
func (s *Session) ArmConnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connect = connectState{armed: true}
}

// ConnectClick handles a node click while connect mode is armed. The first
// click remembers the source; a click on a second, different node creates
// the connection (unless the pair is already connected in either direction)
// and disarms. Reports whether a connection was created.
func (s *Session) ConnectClick(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connect.armed || !s.graph.HasNode(id) {
		return false
	}
	if s.connect.sourceID == "" {
		s.connect.sourceID = id
		return false
	}
	if s.connect.sourceID == id {
		return false
	}
	created := s.addConnection(s.connect.sourceID, id)
	s.connect = connectState{}
	return created
}

// Connect creates a connection directly, with the same duplicate rejection
// as interactive connect. Reports whether a connection was created.
func (s *Session) Connect(from, to string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addConnection(from, to)
}

// addConnection creates from→to and pushes history. Callers hold the lock.
func (s *Session) addConnection(from, to string) bool {
	if from == to || !s.graph.HasNode(from) || !s.graph.HasNode(to) {
		return false
	}
	if s.graph.Connected(from, to) {
		return false
	}
	s.graph.Connections = append(s.graph.Connections, model.Connection{From: from, To: to})
	s.graph.NodeByID(from).IsParent = true
	s.history.Push(s.graph)
	return true
}

// Disconnect removes the connection from→to if present and pushes history.
func (s *Session) Disconnect(from, to string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.graph.Connections {
		if c.From == from && c.To == to {
			s.graph.Connections = append(s.graph.Connections[:i], s.graph.Connections[i+1:]...)
			s.refreshParents()
			s.history.Push(s.graph)
			return true
		}
	}
	return false
}

// BeginDrag captures the pointer offset relative to the node.
func (s *Session) BeginDrag(id string, pointerX, pointerY float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	node := s.graph.NodeByID(id)
	if node == nil {
		return false
	}
	s.drag = &dragState{
		nodeID:  id,
		offsetX: pointerX - node.X,
		offsetY: pointerY - node.Y,
	}
	return true
}

// MoveDrag updates the dragged node's position continuously. No history is
// recorded per frame.
func (s *Session) MoveDrag(pointerX, pointerY float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag == nil {
		return
	}
	node := s.graph.NodeByID(s.drag.nodeID)
	if node == nil {
		s.drag = nil
		return
	}
	node.X = pointerX - s.drag.offsetX
	node.Y = pointerY - s.drag.offsetY
	s.drag.moved = true
}

// EndDrag completes the gesture. One history entry is recorded per drag that
// actually moved the node, keeping undo granularity at user-perceived
// actions.
func (s *Session) EndDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag == nil {
		return
	}
	if s.drag.moved {
		s.history.Push(s.graph)
	}
	s.drag = nil
}

// BeginEdit opens an edit of the node's name or description.
func (s *Session) BeginEdit(id string, field EditField) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.graph.HasNode(id) {
		return false
	}
	if field != FieldName && field != FieldDescription {
		return false
	}
	s.edit = &editState{nodeID: id, field: field}
	return true
}

// ConfirmEdit applies the pending value and pushes history.
func (s *Session) ConfirmEdit(value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit == nil {
		return false
	}
	node := s.graph.NodeByID(s.edit.nodeID)
	if node == nil {
		s.edit = nil
		return false
	}
	switch s.edit.field {
	case FieldName:
		node.Name = value
	case FieldDescription:
		node.Description = value
	}
	s.edit = nil
	s.history.Push(s.graph)
	return true
}

// CancelEdit discards the pending edit without mutating the graph.
func (s *Session) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edit = nil
}

// DeleteNode removes the node, every connection touching it, and its
// selection entry. Former children are not reconnected; they become their
// own subtree until the user reconnects them.
func (s *Session) DeleteNode(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := -1
	for i := range s.graph.Nodes {
		if s.graph.Nodes[i].ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return false
	}
	s.graph.Nodes = append(s.graph.Nodes[:index], s.graph.Nodes[index+1:]...)

	kept := s.graph.Connections[:0]
	for _, c := range s.graph.Connections {
		if c.From != id && c.To != id {
			kept = append(kept, c)
		}
	}
	s.graph.Connections = kept
	delete(s.selection, id)
	s.refreshParents()
	s.history.Push(s.graph)
	return true
}

// AddNode creates a node with defaults at the given canvas position.
func (s *Session) AddNode(x, y float64) model.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	node := model.Node{
		ID:   uuid.NewString(),
		Name: model.PlaceholderName,
		X:    x,
		Y:    y,
	}
	s.graph.Nodes = append(s.graph.Nodes, node)
	s.history.Push(s.graph)
	return node
}

// AddChild creates a node offset from the parent and connects parent→child.
func (s *Session) AddChild(parentID string) (model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parent := s.graph.NodeByID(parentID)
	if parent == nil {
		return model.Node{}, fmt.Errorf("editor: unknown parent node %q", parentID)
	}
	child := model.Node{
		ID:   uuid.NewString(),
		Name: model.PlaceholderName,
		X:    parent.X + layout.ColumnSpacing,
		Y:    parent.Y,
	}
	s.graph.Nodes = append(s.graph.Nodes, child)
	s.graph.Connections = append(s.graph.Connections, model.Connection{From: parentID, To: child.ID})
	s.graph.NodeByID(parentID).IsParent = true
	s.history.Push(s.graph)
	return child, nil
}

// Undo replaces the live graph with the previous snapshot. Clamped at the
// earliest retained entry.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.history.Undo()
	if !ok {
		return false
	}
	s.restore(snapshot)
	return true
}

// Redo replaces the live graph with the next snapshot. Clamped at the
// newest entry.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.history.Redo()
	if !ok {
		return false
	}
	s.restore(snapshot)
	return true
}

// Copy serializes the selected nodes and the connections among them to the
// clipboard store. Returns the number of nodes copied.
func (s *Session) Copy() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.selection) == 0 {
		return 0
	}
	payload := clipboardPayload{}
	for _, node := range s.graph.Nodes {
		if s.selection[node.ID] {
			payload.Nodes = append(payload.Nodes, node)
		}
	}
	// Connections internal to the copied set travel with it so paste can
	// rebuild the subgraph, not just the nodes.
	for _, c := range s.graph.Connections {
		if s.selection[c.From] && s.selection[c.To] {
			payload.Connections = append(payload.Connections, c)
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return 0
	}
	s.clipboard.Put(clipboardKey, data)
	return len(payload.Nodes)
}

// Paste clones the clipboard contents with fresh ids, anchored at the paste
// point, remapping the copied connections onto the clones. Pasting with an
// empty clipboard is a no-op.
func (s *Session) Paste(x, y float64) []model.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.clipboard.Get(clipboardKey)
	if !ok {
		return nil
	}
	var payload clipboardPayload
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Nodes) == 0 {
		return nil
	}

	minX := payload.Nodes[0].X
	minY := payload.Nodes[0].Y
	for _, node := range payload.Nodes[1:] {
		if node.X < minX {
			minX = node.X
		}
		if node.Y < minY {
			minY = node.Y
		}
	}

	remap := make(map[string]string, len(payload.Nodes))
	pasted := make([]model.Node, 0, len(payload.Nodes))
	for _, node := range payload.Nodes {
		clone := node
		clone.ID = uuid.NewString()
		clone.X = x + (node.X - minX)
		clone.Y = y + (node.Y - minY)
		remap[node.ID] = clone.ID
		pasted = append(pasted, clone)
	}
	s.graph.Nodes = append(s.graph.Nodes, pasted...)
	for _, c := range payload.Connections {
		s.graph.Connections = append(s.graph.Connections, model.Connection{
			From: remap[c.From],
			To:   remap[c.To],
		})
	}

	s.selection = make(map[string]bool, len(pasted))
	for _, node := range pasted {
		s.selection[node.ID] = true
	}
	s.refreshParents()
	s.history.Push(s.graph)
	return pasted
}

// Relayout runs the full level/inference/layout pipeline, writes the
// resolved levels and fresh positions back into the live graph, and pushes
// one history entry for the whole operation.
func (s *Session) Relayout() layout.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	resolved := levels.Resolve(s.graph)
	rendered := infer.Render(s.graph, resolved)
	result := layout.Apply(s.graph, resolved, rendered, s.workspace)

	s.graph = result.Graph
	// An explicit re-layout is the one place stored levels are updated.
	for i := range s.graph.Nodes {
		level := resolved[s.graph.Nodes[i].ID]
		s.graph.Nodes[i].Level = &level
	}
	result.Graph = s.graph.Clone()
	s.workspace = result.Workspace
	s.history.Push(s.graph)
	return result
}

// Replace swaps in a whole new graph (project load, import, generation).
func (s *Session) Replace(g model.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(g)
}

// BeginGeneration hands out a ticket for an in-flight generation request.
// Starting a new request invalidates every earlier ticket, so superseded
// completions are discarded instead of racing to set state.
func (s *Session) BeginGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.genTicket++
	return s.genTicket
}

// ApplyGenerated installs a generated graph if the ticket is still current.
func (s *Session) ApplyGenerated(ticket uint64, g model.Graph) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.genTicket {
		return false, nil
	}
	if err := s.replaceLocked(g); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) replaceLocked(g model.Graph) error {
	normalized, err := model.Normalize(&g)
	if err != nil {
		return err
	}
	s.graph = normalized
	s.selection = make(map[string]bool)
	s.drag = nil
	s.connect = connectState{}
	s.edit = nil
	s.history.Push(s.graph)
	return nil
}

// restore swaps in a history snapshot and drops state that no longer
// applies. Callers hold the lock.
func (s *Session) restore(snapshot model.Graph) {
	s.graph = snapshot
	for id := range s.selection {
		if !s.graph.HasNode(id) {
			delete(s.selection, id)
		}
	}
	s.drag = nil
	s.connect = connectState{}
	s.edit = nil
}

// refreshParents recomputes the derived IsParent flags. Callers hold the
// lock.
func (s *Session) refreshParents() {
	hasChildren := make(map[string]bool, len(s.graph.Nodes))
	for _, c := range s.graph.Connections {
		hasChildren[c.From] = true
	}
	for i := range s.graph.Nodes {
		s.graph.Nodes[i].IsParent = hasChildren[s.graph.Nodes[i].ID]
	}
}
