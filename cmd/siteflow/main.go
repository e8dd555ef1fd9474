package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/pflag"

	"github.com/ritzau/siteflow/pkg/config"
	"github.com/ritzau/siteflow/pkg/cycles"
	"github.com/ritzau/siteflow/pkg/editor"
	"github.com/ritzau/siteflow/pkg/export"
	"github.com/ritzau/siteflow/pkg/generate"
	"github.com/ritzau/siteflow/pkg/infer"
	"github.com/ritzau/siteflow/pkg/layout"
	"github.com/ritzau/siteflow/pkg/levels"
	"github.com/ritzau/siteflow/pkg/logging"
	"github.com/ritzau/siteflow/pkg/model"
	"github.com/ritzau/siteflow/pkg/output"
	"github.com/ritzau/siteflow/pkg/store"
	"github.com/ritzau/siteflow/pkg/watcher"
	"github.com/ritzau/siteflow/pkg/web"
)

func main() {
	flags := pflag.NewFlagSet("siteflow", pflag.ExitOnError)
	flags.String("workspace", ".", "Directory watched for exported .flow.json files")
	flags.Bool("web", false, "Start the web editor instead of printing to console")
	flags.Int("port", 8080, "Port for the web editor (only used with --web)")
	flags.Bool("watch", false, "Reload flows edited outside the session (only used with --web)")
	flags.Bool("open", true, "Open the browser when the web editor starts")
	flags.String("database", "siteflow.db", "SQLite database for saved projects")
	flags.String("model", "gemini-2.0-flash", "Model used to generate site flows")
	flags.String("api-key", "", "Generation API key (falls back to GEMINI_API_KEY)")
	flags.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	flags.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")

	input := flags.String("input", "", "Exported .flow.json document to load")
	describe := flags.String("describe", "", "Generate a site flow from this description")
	outFlow := flags.String("out", "", "Write the resulting flow document to this path")
	outSVG := flags.String("svg", "", "Write an SVG rendering to this path")

	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logging.Configure(cfg.Verbosity, cfg.VerboseCnt)

	if cfg.WebMode {
		runWeb(cfg, *input)
		return
	}
	runCLI(cfg, *input, *describe, *outFlow, *outSVG)
}

// runCLI loads or generates one flow, prints the colored summary, and
// optionally exports it.
func runCLI(cfg *config.Config, input, describe, outFlow, outSVG string) {
	ctx := context.Background()

	var g model.Graph
	var title string
	switch {
	case input != "":
		data, err := os.ReadFile(input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		g, err = export.Parse(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		title = input

	case describe != "":
		adapter := generate.NewAdapter(newGeminiClient(ctx, cfg))
		g = adapter.Generate(ctx, describe, "")
		title = describe

	default:
		fmt.Fprintln(os.Stderr, "Error: provide --input FILE or --describe TEXT (or --web)")
		os.Exit(1)
	}

	nodeLevels := levels.Resolve(g)
	output.PrintFlowSummary(title, g, nodeLevels, cycles.FindFlowCycles(g))

	if outFlow != "" {
		data, err := export.Serialize(g)
		if err == nil {
			err = os.WriteFile(outFlow, data, 0o644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", outFlow)
	}

	if outSVG != "" {
		f, err := os.Create(outSVG)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		rendered := infer.Render(g, nodeLevels)
		err = export.WriteSVG(f, g, rendered, workspaceFor(g))
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", outSVG)
	}
}

// workspaceFor sizes a canvas around the stored node positions.
func workspaceFor(g model.Graph) layout.Workspace {
	ws := layout.Workspace{
		Width:  2 * layout.CanvasPadding,
		Height: 2 * layout.CanvasPadding,
	}
	for _, n := range g.Nodes {
		ws.Width = max(ws.Width, n.X+layout.NodeWidth+layout.CanvasPadding)
		ws.Height = max(ws.Height, n.Y+layout.NodeHeight+layout.CanvasPadding)
	}
	return ws
}

// runWeb starts the editing session, project store, and web server, plus the
// optional workspace watcher.
func runWeb(cfg *config.Config, input string) {
	ctx := context.Background()

	initial := model.NewGraph()
	if input != "" {
		data, err := os.ReadFile(input)
		if err != nil {
			logging.Fatal("failed to read flow document", "path", input, "error", err)
		}
		initial, err = export.Parse(data)
		if err != nil {
			logging.Fatal("failed to parse flow document", "path", input, "error", err)
		}
	}

	session, err := editor.NewSession(initial, editor.NewMemoryClipboard())
	if err != nil {
		logging.Fatal("failed to create editing session", "error", err)
	}

	var projects store.Store
	if cfg.Database != "" {
		sqlStore, err := store.NewSQLiteStore(cfg.Database)
		if err != nil {
			logging.Fatal("failed to open project database", "path", cfg.Database, "error", err)
		}
		defer sqlStore.Close()
		projects = sqlStore
	}

	server := web.NewServer(session, projects, generate.NewAdapter(newGeminiClient(ctx, cfg)))

	if cfg.Watch {
		startWatcher(ctx, cfg.Workspace, session, server)
	}

	url := fmt.Sprintf("http://localhost:%d", cfg.Port)
	if cfg.OpenBrowser {
		go func() {
			// Give the listener a moment before pointing a browser at it.
			time.Sleep(500 * time.Millisecond)
			openBrowser(url)
		}()
	}

	if err := server.Start(cfg.Port); err != nil {
		logging.Fatal("web server failed", "error", err)
	}
}

// newGeminiClient returns nil when no API key is configured, which makes the
// adapter use the deterministic fallback.
func newGeminiClient(ctx context.Context, cfg *config.Config) generate.Client {
	if cfg.APIKey == "" {
		logging.Info("no generation API key configured, using fallback flows")
		return nil
	}
	client, err := generate.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		logging.Warn("failed to create generation client, using fallback flows", "error", err)
		return nil
	}
	return client
}

// startWatcher reloads the session whenever an exported flow document in the
// workspace changes outside the editor.
func startWatcher(ctx context.Context, workspace string, session *editor.Session, server *web.Server) {
	fw, err := watcher.NewFileWatcher(workspace)
	if err != nil {
		logging.Warn("watch mode unavailable", "error", err)
		return
	}
	if err := fw.Start(ctx); err != nil {
		logging.Warn("watch mode unavailable", "error", err)
		return
	}

	deb := watcher.NewDebouncer(fw.Events(), 200*time.Millisecond, 2*time.Second)
	deb.Start(ctx)

	go func() {
		for event := range deb.Output() {
			analysis := watcher.AnalyzeChanges(event)
			if analysis.ReloadConfig {
				logging.Info("configuration changed, restart to apply", "files", analysis.ChangedFiles)
			}
			if !analysis.ReloadGraph || len(analysis.ChangedFiles) == 0 {
				continue
			}

			// The newest write wins when several exports changed at once.
			path := analysis.ChangedFiles[len(analysis.ChangedFiles)-1]
			data, err := os.ReadFile(path)
			if err != nil {
				logging.Warn("failed to read changed flow document", "path", path, "error", err)
				continue
			}
			g, err := export.Parse(data)
			if err != nil {
				logging.Warn("failed to parse changed flow document", "path", path, "error", err)
				continue
			}
			if err := session.Replace(g); err != nil {
				logging.Warn("failed to load changed flow document", "path", path, "error", err)
				continue
			}
			server.PublishGraph("reloaded")
			if err := server.PublishStatus("reloaded", fmt.Sprintf("reloaded %s", path)); err != nil {
				logging.Warn("failed to publish status", "error", err)
			}
			logging.Info("reloaded flow document", "path", path)
		}
	}()
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Debug("cannot open browser on platform", "platform", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}
