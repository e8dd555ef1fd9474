package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ritzau/siteflow/pkg/cycles"
	"github.com/ritzau/siteflow/pkg/editor"
	"github.com/ritzau/siteflow/pkg/export"
	"github.com/ritzau/siteflow/pkg/generate"
	"github.com/ritzau/siteflow/pkg/infer"
	"github.com/ritzau/siteflow/pkg/layout"
	"github.com/ritzau/siteflow/pkg/levels"
	"github.com/ritzau/siteflow/pkg/logging"
	"github.com/ritzau/siteflow/pkg/model"
	"github.com/ritzau/siteflow/pkg/pubsub"
	"github.com/ritzau/siteflow/pkg/store"
)

//go:embed static/*
var staticFiles embed.FS

// RenderedView is the drawn state of the live graph: authoritative nodes,
// the rendered (real + synthetic) connection set, and the recommended
// canvas size.
type RenderedView struct {
	Nodes       []model.Node               `json:"nodes"`
	Connections []model.RenderedConnection `json:"connections"`
	Workspace   layout.Workspace           `json:"workspace"`
}

// Server exposes the live editing session over HTTP: the current graph, the
// mutation operations, project persistence, export, and SSE subscriptions
// for live updates.
type Server struct {
	router    *mux.Router
	session   *editor.Session
	projects  store.Store
	generator *generate.Adapter
	publisher pubsub.Publisher
}

// NewServer creates a new web server around an editing session. The project
// store may be nil when persistence is not configured.
func NewServer(session *editor.Session, projects store.Store, generator *generate.Adapter) *Server {
	ssePublisher := pubsub.NewSSEPublisher()

	// graph: buffer the last few updates, replay only the current state
	ssePublisher.ConfigureTopic("graph", pubsub.TopicConfig{
		BufferSize: 5,
		ReplayAll:  false,
	})

	// session_status: replay only the current state to new subscribers
	ssePublisher.ConfigureTopic("session_status", pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})

	s := &Server{
		router:    mux.NewRouter(),
		session:   session,
		projects:  projects,
		generator: generator,
		publisher: ssePublisher,
	}
	s.setupRoutes()
	return s
}

// PublishStatus publishes a session status event
func (s *Server) PublishStatus(state, message string) error {
	return s.publisher.Publish("session_status", state, pubsub.SessionStatus{
		State:   state,
		Message: message,
	})
}

// PublishGraph pushes a graph summary to live subscribers after a mutation.
func (s *Server) PublishGraph(eventType string) {
	g := s.session.Graph()
	err := s.publisher.Publish("graph", eventType, pubsub.GraphUpdate{
		NodeCount:       len(g.Nodes),
		ConnectionCount: len(g.Connections),
		HistoryEntries:  s.session.HistoryLen(),
	})
	if err != nil {
		logging.Warn("failed to publish graph update", "error", err)
	}
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	// SSE subscription endpoints
	s.router.HandleFunc("/api/subscribe/graph", s.subscribeHandler("graph")).Methods("GET")
	s.router.HandleFunc("/api/subscribe/session_status", s.subscribeHandler("session_status")).Methods("GET")

	// Graph state
	s.router.HandleFunc("/api/graph", s.handleGetGraph).Methods("GET")
	s.router.HandleFunc("/api/graph", s.handleReplaceGraph).Methods("POST")
	s.router.HandleFunc("/api/graph/rendered", s.handleRendered).Methods("GET")
	s.router.HandleFunc("/api/graph/cycles", s.handleCycles).Methods("GET")
	s.router.HandleFunc("/api/graph/layout", s.handleLayout).Methods("POST")

	// Node and connection mutations
	s.router.HandleFunc("/api/nodes", s.handleAddNode).Methods("POST")
	s.router.HandleFunc("/api/nodes/{id}/child", s.handleAddChild).Methods("POST")
	s.router.HandleFunc("/api/nodes/{id}/position", s.handleMoveNode).Methods("POST")
	s.router.HandleFunc("/api/nodes/{id}", s.handleUpdateNode).Methods("PATCH")
	s.router.HandleFunc("/api/nodes/{id}", s.handleDeleteNode).Methods("DELETE")
	s.router.HandleFunc("/api/connections", s.handleConnect).Methods("POST")
	s.router.HandleFunc("/api/connections", s.handleDisconnect).Methods("DELETE")

	// Selection and clipboard
	s.router.HandleFunc("/api/selection", s.handleGetSelection).Methods("GET")
	s.router.HandleFunc("/api/selection", s.handleSelect).Methods("POST")
	s.router.HandleFunc("/api/selection", s.handleClearSelection).Methods("DELETE")
	s.router.HandleFunc("/api/selection/all", s.handleSelectAll).Methods("POST")
	s.router.HandleFunc("/api/clipboard/copy", s.handleCopy).Methods("POST")
	s.router.HandleFunc("/api/clipboard/paste", s.handlePaste).Methods("POST")

	// History
	s.router.HandleFunc("/api/undo", s.handleUndo).Methods("POST")
	s.router.HandleFunc("/api/redo", s.handleRedo).Methods("POST")

	// Generation
	s.router.HandleFunc("/api/generate", s.handleGenerate).Methods("POST")

	// Projects
	s.router.HandleFunc("/api/projects", s.handleListProjects).Methods("GET")
	s.router.HandleFunc("/api/projects", s.handleSaveProject).Methods("POST")
	s.router.HandleFunc("/api/projects/{id}/load", s.handleLoadProject).Methods("POST")
	s.router.HandleFunc("/api/projects/{id}", s.handleGetProject).Methods("GET")
	s.router.HandleFunc("/api/projects/{id}", s.handleUpdateProject).Methods("PATCH")
	s.router.HandleFunc("/api/projects/{id}", s.handleDeleteProject).Methods("DELETE")

	// Export and import
	s.router.HandleFunc("/api/export/flow", s.handleExportFlow).Methods("GET")
	s.router.HandleFunc("/api/export/svg", s.handleExportSVG).Methods("GET")
	s.router.HandleFunc("/api/import", s.handleImport).Methods("POST")

	// Serve static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logging.Fatal("failed to load embedded static files", "error", err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

// subscribeHandler streams a topic over Server-Sent Events.
func (s *Server) subscribeHandler(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		// Send initial comment to establish connection (Safari compatibility)
		fmt.Fprintf(w, ": connected\n\n")
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}

		sub, err := s.publisher.Subscribe(r.Context(), topic)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer sub.Close()

		for event := range sub.Events() {
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.Warn("error writing SSE event", "topic", topic, "error", err)
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.session.Graph())
}

func (s *Server) handleReplaceGraph(w http.ResponseWriter, r *http.Request) {
	var g model.Graph
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		http.Error(w, "invalid graph payload", http.StatusBadRequest)
		return
	}
	if err := s.session.Replace(g); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.PublishGraph("replaced")
	writeJSON(w, s.session.Graph())
}

func (s *Server) handleRendered(w http.ResponseWriter, r *http.Request) {
	g := s.session.Graph()
	writeJSON(w, RenderedView{
		Nodes:       g.Nodes,
		Connections: s.session.Rendered(),
		Workspace:   s.session.Workspace(),
	})
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, cycles.FindFlowCycles(s.session.Graph()))
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	result := s.session.Relayout()
	s.PublishGraph("relayout")
	writeJSON(w, result)
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid position payload", http.StatusBadRequest)
		return
	}
	node := s.session.AddNode(req.X, req.Y)
	s.PublishGraph("node_added")
	writeJSON(w, node)
}

func (s *Server) handleAddChild(w http.ResponseWriter, r *http.Request) {
	parentID := mux.Vars(r)["id"]
	child, err := s.session.AddChild(parentID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.PublishGraph("node_added")
	writeJSON(w, child)
}

func (s *Server) handleMoveNode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid position payload", http.StatusBadRequest)
		return
	}
	// A position update over HTTP is one complete drag gesture, grabbed at
	// the node's current origin so the target coordinates land exactly.
	g := s.session.Graph()
	node := g.NodeByID(id)
	if node == nil {
		http.Error(w, fmt.Sprintf("node not found: %s", id), http.StatusNotFound)
		return
	}
	s.session.BeginDrag(id, node.X, node.Y)
	s.session.MoveDrag(req.X, req.Y)
	s.session.EndDrag()
	s.PublishGraph("node_moved")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid node payload", http.StatusBadRequest)
		return
	}
	if req.Name != nil {
		if !s.session.BeginEdit(id, editor.FieldName) {
			http.Error(w, fmt.Sprintf("node not found: %s", id), http.StatusNotFound)
			return
		}
		s.session.ConfirmEdit(*req.Name)
	}
	if req.Description != nil {
		if !s.session.BeginEdit(id, editor.FieldDescription) {
			http.Error(w, fmt.Sprintf("node not found: %s", id), http.StatusNotFound)
			return
		}
		s.session.ConfirmEdit(*req.Description)
	}
	s.PublishGraph("node_updated")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.session.DeleteNode(id) {
		http.Error(w, fmt.Sprintf("node not found: %s", id), http.StatusNotFound)
		return
	}
	s.PublishGraph("node_deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid connection payload", http.StatusBadRequest)
		return
	}
	created := s.session.Connect(req.From, req.To)
	if created {
		s.PublishGraph("connected")
	}
	writeJSON(w, map[string]bool{"created": created})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid connection payload", http.StatusBadRequest)
		return
	}
	removed := s.session.Disconnect(req.From, req.To)
	if removed {
		s.PublishGraph("disconnected")
	}
	writeJSON(w, map[string]bool{"removed": removed})
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.session.Selection())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     string `json:"id"`
		Toggle bool   `json:"toggle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid selection payload", http.StatusBadRequest)
		return
	}
	s.session.Click(req.ID, req.Toggle)
	writeJSON(w, s.session.Selection())
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.session.ClickBackground()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	s.session.SelectAll()
	writeJSON(w, s.session.Selection())
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	count := s.session.Copy()
	writeJSON(w, map[string]int{"copied": count})
}

func (s *Server) handlePaste(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid position payload", http.StatusBadRequest)
		return
	}
	pasted := s.session.Paste(req.X, req.Y)
	if len(pasted) > 0 {
		s.PublishGraph("pasted")
	}
	writeJSON(w, pasted)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if s.session.Undo() {
		s.PublishGraph("undo")
	}
	writeJSON(w, s.session.Graph())
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	if s.session.Redo() {
		s.PublishGraph("redo")
	}
	writeJSON(w, s.session.Graph())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
		Document    string `json:"document"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid generation payload", http.StatusBadRequest)
		return
	}

	// A fresh ticket invalidates any still-running generation, so a
	// superseded completion cannot clobber the newer result.
	ticket := s.session.BeginGeneration()
	if err := s.PublishStatus("generating", "generating site flow"); err != nil {
		logging.Warn("failed to publish status", "error", err)
	}

	g := s.generator.Generate(r.Context(), req.Description, req.Document)
	applied, err := s.session.ApplyGenerated(ticket, g)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !applied {
		writeJSON(w, map[string]bool{"superseded": true})
		return
	}

	s.PublishGraph("generated")
	if err := s.PublishStatus("ready", "site flow ready"); err != nil {
		logging.Warn("failed to publish status", "error", err)
	}
	writeJSON(w, s.session.Graph())
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	if s.projects == nil {
		http.Error(w, "persistence not configured", http.StatusServiceUnavailable)
		return
	}
	projects, err := s.projects.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if projects == nil {
		projects = []*store.Project{}
	}
	writeJSON(w, projects)
}

func (s *Server) handleSaveProject(w http.ResponseWriter, r *http.Request) {
	if s.projects == nil {
		http.Error(w, "persistence not configured", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid project payload", http.StatusBadRequest)
		return
	}
	project, err := s.projects.Save(r.Context(), req.Title, req.Description, s.session.Graph())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, project)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	if s.projects == nil {
		http.Error(w, "persistence not configured", http.StatusServiceUnavailable)
		return
	}
	project, err := s.projects.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if project == nil {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	writeJSON(w, project)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	if s.projects == nil {
		http.Error(w, "persistence not configured", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		Title       *string      `json:"title"`
		Description *string      `json:"description"`
		Graph       *model.Graph `json:"graph"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid project payload", http.StatusBadRequest)
		return
	}
	project, err := s.projects.Update(r.Context(), mux.Vars(r)["id"], store.ProjectUpdate{
		Title:       req.Title,
		Description: req.Description,
		Graph:       req.Graph,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if project == nil {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	writeJSON(w, project)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if s.projects == nil {
		http.Error(w, "persistence not configured", http.StatusServiceUnavailable)
		return
	}
	deleted, err := s.projects.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoadProject(w http.ResponseWriter, r *http.Request) {
	if s.projects == nil {
		http.Error(w, "persistence not configured", http.StatusServiceUnavailable)
		return
	}
	project, err := s.projects.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if project == nil {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	if err := s.session.Replace(project.Graph); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.PublishGraph("loaded")
	writeJSON(w, s.session.Graph())
}

func (s *Server) handleExportFlow(w http.ResponseWriter, r *http.Request) {
	data, err := export.Serialize(s.session.Graph())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="sitemap.flow.json"`)
	w.Write(data)
}

func (s *Server) handleExportSVG(w http.ResponseWriter, r *http.Request) {
	g := s.session.Graph()
	rendered := infer.Render(g, levels.Resolve(g))
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := export.WriteSVG(w, g, rendered, s.session.Workspace()); err != nil {
		logging.Warn("failed to write SVG export", "error", err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	g, err := export.Parse(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.session.Replace(g); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.PublishGraph("imported")
	writeJSON(w, s.session.Graph())
}

// Router exposes the handler for tests and embedding hosts.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the web server on the specified port
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logging.Info("starting web server", "addr", fmt.Sprintf("http://localhost%s", addr))
	return http.ListenAndServe(addr, s.router)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}
