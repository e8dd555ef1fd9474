package generate

import "github.com/ritzau/siteflow/pkg/model"

// Fallback returns a small deterministic site map: a home page plus a few
// generic sections. It is instant, never fails, and is used whenever no
// collaborator is configured or its output cannot be repaired.
func Fallback(description string) model.Graph {
	home := description
	if home == "" {
		home = "Home"
	} else {
		home = "Home - " + truncate(description, 40)
	}

	g := model.Graph{
		Nodes: []model.Node{
			{ID: "home", Name: home, Description: "Landing page", Level: model.IntPtr(0)},
			{ID: "about", Name: "About", Description: "What this is and who it is for", Level: model.IntPtr(1)},
			{ID: "features", Name: "Features", Description: "Core capabilities overview", Level: model.IntPtr(1)},
			{ID: "contact", Name: "Contact", Description: "Ways to get in touch", Level: model.IntPtr(1)},
			{ID: "signup", Name: "Sign Up", Description: "Account creation", Level: model.IntPtr(1)},
		},
		Connections: []model.Connection{
			{From: "home", To: "about"},
			{From: "home", To: "features"},
			{From: "home", To: "contact"},
			{From: "home", To: "signup"},
		},
	}

	normalized, _ := model.Normalize(&g)
	return normalized
}

// truncate shortens s to at most max runes, cutting on a rune boundary so
// multi-byte characters are never split.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
