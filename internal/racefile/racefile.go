// Package racefile renders a harmful race to the two per-race files spec §6
// requires: a raw text dump of the trace and race record, and a DOT graph
// rendering of the same information for visual inspection.
package racefile

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/emicklei/dot"

	"raceloom/internal/model"
	"raceloom/internal/race"
	"raceloom/internal/vclock"
)

// WriteRaw writes the raw race record: the trace's node list, the race
// kind, then one line per racing node naming its trace position, element
// position, and reconstructed network policy.
func WriteRaw(w io.Writer, r race.Race) error {
	if _, err := fmt.Fprintln(w, strings.Join(r.Trace, "\x1f")); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, r.Kind); err != nil {
		return err
	}
	for _, rn := range r.RacingNodes {
		if _, err := fmt.Fprintf(w, "(trans: %d, el: %d, networkPolicy: %q)\n", rn.NodePos, rn.ElementPos, rn.ReconstructedPolicy); err != nil {
			return err
		}
	}
	return nil
}

const (
	colorErrPrimary   = "#FF2400"
	colorErrSecondary = "#FF9280"
	colorNodeBG       = "#F2F4FB"
	colorEdge         = "#000000"
)

// WriteDOT renders r as a directed acyclic graph: one node per trace
// position, one edge per transition. Nodes/edges touching a racing position
// are drawn in the distinguished error color at double edge thickness.
func WriteDOT(w io.Writer, r race.Race, meta model.Metadata) error {
	racingPos := map[int]race.RacingNode{}
	for _, rn := range r.RacingNodes {
		racingPos[rn.NodePos] = rn
	}

	g := dot.NewGraph(dot.Directed)

	var prevID string
	for pos, label := range r.Trace {
		nodeColor := colorNodeBG
		rn, isRacing := racingPos[pos]
		if isRacing {
			nodeColor = colorErrPrimary
		}

		var vc vclock.Matrix
		if pos < len(r.VCs) {
			vc = r.VCs[pos]
		}
		id := fmt.Sprintf("n%d", pos)
		g.Node(id).
			Attr("label", nodeLabel(pos, meta, vc, rn.ElementPos, isRacing)).
			Attr("shape", "rectangle").
			Attr("style", "filled").
			Attr("fillcolor", nodeColor)

		if pos > 0 {
			edgeColor := colorEdge
			penwidth := "1.0"
			edgeLabel := label
			if isRacing {
				edgeColor = colorErrPrimary
				penwidth = "2.0"
				edgeLabel = fmt.Sprintf("%s\\n%s", label, rn.ReconstructedPolicy)
			}
			g.Edge(g.Node(prevID), g.Node(id)).
				Attr("label", edgeLabel).
				Attr("color", edgeColor).
				Attr("penwidth", penwidth)
		}
		prevID = id
	}

	_, err := io.WriteString(w, g.String())
	return err
}

// nodeLabel renders a DOT node label naming the element metadata and, when
// vc is available, the VC row at this trace position — one row per element,
// with the racing element's row marked by a trailing asterisk.
func nodeLabel(pos int, meta model.Metadata, vc vclock.Matrix, racingElement int, isRacing bool) string {
	names := make([]string, len(meta))
	for i, e := range meta {
		names[i] = string(e.Kind) + ":" + e.Name
	}

	label := fmt.Sprintf("pos %d\\n[%s]", pos, strings.Join(names, ", "))
	if len(vc) == 0 {
		return label
	}

	rows := make([]string, len(vc))
	for i, row := range vc {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = strconv.Itoa(v)
		}
		marker := ""
		if isRacing && i == racingElement {
			marker = "*"
		}
		rows[i] = fmt.Sprintf("%d:[%s]%s", i, strings.Join(cells, ","), marker)
	}
	return fmt.Sprintf("%s\\nVC %s", label, strings.Join(rows, " "))
}
