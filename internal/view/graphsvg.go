package view

import (
	"fmt"
	"math"
	"strings"

	"github.com/runnerr0/historian/internal/graph"
	"github.com/runnerr0/historian/internal/layout"
)

// GraphStyle holds the graph colours.
type GraphStyle struct {
	Background       string
	PersonFill       string
	LocationFill     string
	ParticipatedLine string
	LocatedAtLine    string
	Label            string
	FontFamily       string
}

// DefaultGraphStyle is the stone/amber palette.
func DefaultGraphStyle() GraphStyle {
	return GraphStyle{
		Background:       "#fafaf9",
		PersonFill:       "#f59e0b",
		LocationFill:     "#78716c",
		ParticipatedLine: "#f59e0b",
		LocatedAtLine:    "#a8a29e",
		Label:            "#44403c",
		FontFamily:       "sans-serif",
	}
}

// GraphRenderer draws a graph at the positions of a layout snapshot.
type GraphRenderer struct {
	Width  float64
	Height float64
	Style  GraphStyle
}

// NewGraphRenderer returns a renderer for a width x height viewport.
func NewGraphRenderer(width, height float64) *GraphRenderer {
	return &GraphRenderer{Width: width, Height: height, Style: DefaultGraphStyle()}
}

// SVG renders links below nodes and nodes below labels. Nodes missing from
// the snapshot are skipped.
func (r *GraphRenderer) SVG(g graph.Graph, snap layout.Snapshot) string {
	pos := snap.Positions()
	st := r.Style

	var svg strings.Builder
	svg.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg width="%g" height="%g" xmlns="http://www.w3.org/2000/svg">
<rect width="100%%" height="100%%" fill="%s"/>
`, r.Width, r.Height, st.Background))

	svg.WriteString(`<g stroke-opacity="0.3">` + "\n")
	for _, l := range g.Links {
		a, aok := pos[l.Source]
		b, bok := pos[l.Target]
		if !aok || !bok {
			continue
		}
		stroke := st.LocatedAtLine
		if l.Kind == graph.Participated {
			stroke = st.ParticipatedLine
		}
		svg.WriteString(fmt.Sprintf(`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="%.3f"/>`+"\n",
			a.X, a.Y, b.X, b.Y, stroke, math.Sqrt(float64(l.Value))))
	}
	svg.WriteString("</g>\n")

	svg.WriteString(`<g stroke="#fff" stroke-width="1.5">` + "\n")
	for _, n := range g.Nodes {
		p, ok := pos[n.ID]
		if !ok {
			continue
		}
		fill := st.LocationFill
		if n.Kind == graph.KindPerson {
			fill = st.PersonFill
		}
		svg.WriteString(fmt.Sprintf(`<circle id="%s" cx="%.2f" cy="%.2f" r="%g" fill="%s"><title>%s</title></circle>`+"\n",
			escapeXML(n.ID), p.X, p.Y, n.Radius, fill, escapeXML(n.Label)))
	}
	svg.WriteString("</g>\n")

	svg.WriteString(fmt.Sprintf(`<g fill="%s" font-family="%s" opacity="0.8">`+"\n", st.Label, st.FontFamily))
	for _, n := range g.Nodes {
		p, ok := pos[n.ID]
		if !ok {
			continue
		}
		size := 8
		if n.Kind == graph.KindPerson {
			size = 10
		}
		svg.WriteString(fmt.Sprintf(`<text x="%.2f" y="%.2f" dx="10" dy="3" font-size="%d">%s</text>`+"\n",
			p.X, p.Y, size, escapeXML(n.Label)))
	}
	svg.WriteString("</g>\n</svg>\n")

	return svg.String()
}

// DOT returns the graph in Graphviz format. Links are undirected.
func DOT(g graph.Graph) string {
	var b strings.Builder
	b.WriteString("graph historian {\n")
	b.WriteString("  node [style=filled, fontname=\"sans-serif\"];\n\n")

	for _, n := range g.Nodes {
		shape, fill := "ellipse", "#f59e0b"
		if n.Kind == graph.KindLocation {
			shape, fill = "box", "#78716c"
		}
		b.WriteString(fmt.Sprintf("  %q [label=%q, shape=%s, fillcolor=%q];\n", n.ID, n.Label, shape, fill))
	}

	b.WriteString("\n")
	for _, l := range g.Links {
		b.WriteString(fmt.Sprintf("  %q -- %q [label=%q, penwidth=%d];\n", l.Source, l.Target, l.Kind, l.Value))
	}

	b.WriteString("}\n")
	return b.String()
}

// escapeXML escapes the XML special characters so labels embed safely in SVG.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
