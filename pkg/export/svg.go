package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"

	"github.com/ritzau/siteflow/pkg/layout"
	"github.com/ritzau/siteflow/pkg/model"
)

// WriteSVG renders the graph as a standalone SVG image. Real connections are
// drawn solid, synthesized ones dashed so the two are visually distinct.
func WriteSVG(w io.Writer, g model.Graph, rendered []model.RenderedConnection, workspace layout.Workspace) error {
	width := math.Max(workspace.Width, layout.NodeWidth+2*layout.CanvasPadding)
	height := math.Max(workspace.Height, layout.NodeHeight+2*layout.CanvasPadding)

	if _, err := fmt.Fprintf(w,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">`+"\n",
		width, height, width, height); err != nil {
		return err
	}

	centers := make(map[string][2]float64, len(g.Nodes))
	for _, node := range g.Nodes {
		centers[node.ID] = [2]float64{
			node.X + layout.NodeWidth/2,
			node.Y + layout.NodeHeight/2,
		}
	}

	for _, edge := range rendered {
		from, okFrom := centers[edge.From]
		to, okTo := centers[edge.To]
		if !okFrom || !okTo {
			continue
		}
		dash := ""
		if edge.Synthetic {
			dash = ` stroke-dasharray="6,4"`
		}
		if _, err := fmt.Fprintf(w,
			`  <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#8892a0" stroke-width="1.5"%s/>`+"\n",
			from[0], from[1], to[0], to[1], dash); err != nil {
			return err
		}
	}

	for _, node := range g.Nodes {
		if _, err := fmt.Fprintf(w,
			`  <rect x="%.1f" y="%.1f" width="%.0f" height="%.0f" rx="8" fill="#ffffff" stroke="#3b4252" stroke-width="1.5"/>`+"\n",
			node.X, node.Y, layout.NodeWidth, layout.NodeHeight); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w,
			`  <text x="%.1f" y="%.1f" font-family="sans-serif" font-size="13" text-anchor="middle">%s</text>`+"\n",
			node.X+layout.NodeWidth/2, node.Y+layout.NodeHeight/2+4, escapeText(node.Name)); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "</svg>\n")
	return err
}

func escapeText(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return ""
	}
	return buf.String()
}
