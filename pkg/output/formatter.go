package output

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/ritzau/siteflow/pkg/cycles"
	"github.com/ritzau/siteflow/pkg/model"
)

// PrintFlowSummary prints a nicely formatted site-flow summary with colors
func PrintFlowSummary(title string, g model.Graph, nodeLevels map[string]int, flowCycles []cycles.FlowCycle) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Println("Siteflow - Site Map Summary")
	bold.Println("===========================")
	fmt.Printf("Flow: %s\n", title)
	fmt.Printf("Screens: %d, navigations: %d\n", len(g.Nodes), len(g.Connections))
	fmt.Println()

	maxLevel := 0
	for _, level := range nodeLevels {
		if level > maxLevel {
			maxLevel = level
		}
	}

	// One line per level, screens in node order
	for level := 0; level <= maxLevel; level++ {
		cyan.Printf("Level %d:\n", level)
		for _, node := range g.Nodes {
			if nodeLevels[node.ID] != level {
				continue
			}
			fmt.Printf("  %s", node.Name)
			if node.Description != "" {
				fmt.Printf(" - %s", node.Description)
			}
			fmt.Println()
		}
	}
	fmt.Println()

	// Cycle diagnostics
	if len(flowCycles) == 0 {
		green.Println("✓ Navigation is cycle-free")
		return
	}

	red.Printf("CYCLES: %d navigation cycle(s) detected\n", len(flowCycles))
	for _, cycle := range flowCycles {
		names := make([]string, 0, len(cycle.NodeIDs))
		for _, id := range cycle.NodeIDs {
			if node := g.NodeByID(id); node != nil {
				names = append(names, node.Name)
			}
		}
		yellow.Printf("  %v\n", names)
	}
}
