package watcher

// ChangeAnalysis describes what changed and what needs to be refreshed
type ChangeAnalysis struct {
	ReloadGraph  bool
	ReloadConfig bool
	ChangedFiles []string
}

// AnalyzeChanges determines what needs to be refreshed based on what changed
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
	}

	switch event.Type {
	case ChangeTypeConfigFile:
		// Configuration changes affect how flows are served and generated,
		// and any flow loaded under the old settings should be re-read.
		analysis.ReloadConfig = true
		analysis.ReloadGraph = true

	case ChangeTypeFlowFile:
		// An exported flow was edited outside the session; re-parse it.
		analysis.ReloadGraph = true
	}

	return analysis
}
