package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/threadview/pkg/content"
	"github.com/vanderheijden86/threadview/pkg/render"
)

// DiagramOptions controls branch diagram export.
type DiagramOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg" or "png" (case-insensitive)
	Title  string // Header title; defaults to the conversation title
	Preset string // "compact" (default) or "roomy"
}

// maxPNGPixels bounds the raster canvas; larger trees need SVG.
const maxPNGPixels = 48 << 20

// ErrDiagramTooLarge is returned when a PNG would exceed maxPNGPixels.
var ErrDiagramTooLarge = errors.New("diagram too large for PNG, use svg")

// SaveBranchDiagram draws every node of the conversation tree, top to
// bottom, with the active path highlighted.
func SaveBranchDiagram(snap *Snapshot, opts DiagramOptions) error {
	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".png":
			format = "png"
		default:
			format = "svg"
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path += ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildLayout(snap, opts)
	if format == "png" {
		return renderPNG(opts.Path, layout)
	}

	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	if err := renderSVGToWriter(file, layout); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// RenderDiagramSVG writes the SVG diagram to w.
func RenderDiagramSVG(w io.Writer, snap *Snapshot, opts DiagramOptions) error {
	return renderSVGToWriter(w, buildLayout(snap, opts))
}

// --- layout computation ----------------------------------------------------

type layoutNode struct {
	ID      string
	Label   string
	Preview string
	Class   string
	Active  bool
	Leaf    bool
	X, Y    float64
	NodeW   float64
	NodeH   float64
}

type layoutEdge struct {
	From, To string
	Active   bool
}

type layoutResult struct {
	Nodes   []layoutNode
	Edges   []layoutEdge
	Width   int
	Height  int
	Header  float64
	Summary summaryInfo
}

type summaryInfo struct {
	Title      string
	NodeCount  int
	LeafCount  int
	ActiveLeaf string
	PathLen    int
	Detached   int
}

type layoutParams struct {
	nodeW, nodeH, colGap, rowGap float64
}

const (
	padding      = 36.0
	headerHeight = 110.0
)

func params(preset string) layoutParams {
	if strings.EqualFold(preset, "roomy") {
		return layoutParams{nodeW: 190, nodeH: 64, colGap: 36, rowGap: 48}
	}
	return layoutParams{nodeW: 160, nodeH: 54, colGap: 20, rowGap: 34}
}

// buildLayout places leaves in consecutive columns and centres each parent
// over its children. Edges follow parent links, so a node reached twice is
// drawn once. Nodes on a parent cycle go into a detached row at the bottom.
func buildLayout(snap *Snapshot, opts DiagramOptions) layoutResult {
	p := params(opts.Preset)
	t := snap.Doc.Tree
	ids := t.IDs()

	onPath := make(map[string]bool, len(snap.View.Path))
	for _, id := range snap.View.Path {
		onPath[id] = true
	}

	kids := make(map[string][]string, len(ids))
	var starts []string
	for _, id := range ids {
		parent, ok := t.Parent(id)
		if ok {
			if _, exists := t.Node(parent); exists && parent != id {
				kids[parent] = append(kids[parent], id)
				continue
			}
		}
		starts = append(starts, id)
	}

	type slot struct {
		x     float64
		depth int
	}
	placed := make(map[string]slot, len(ids))
	col := 0
	maxDepth := 0

	var place func(id string, depth int) float64
	place = func(id string, depth int) float64 {
		placed[id] = slot{depth: depth}
		if depth > maxDepth {
			maxDepth = depth
		}
		var xs []float64
		for _, c := range kids[id] {
			if _, seen := placed[c]; seen {
				continue
			}
			xs = append(xs, place(c, depth+1))
		}
		var x float64
		if len(xs) == 0 {
			x = float64(col)
			col++
		} else {
			x = (xs[0] + xs[len(xs)-1]) / 2
		}
		placed[id] = slot{x: x, depth: depth}
		return x
	}
	for _, id := range starts {
		place(id, 0)
	}

	var detached []string
	for _, id := range ids {
		if _, ok := placed[id]; !ok {
			detached = append(detached, id)
		}
	}
	rows := maxDepth + 1
	if len(detached) > 0 && len(placed) == 0 {
		rows = 0
	}
	for i, id := range detached {
		placed[id] = slot{x: float64(i), depth: rows}
	}
	if len(detached) > col {
		col = len(detached)
	}
	if len(detached) > 0 {
		rows++
	}

	nodes := make([]layoutNode, 0, len(ids))
	for _, id := range ids {
		s := placed[id]
		n, _ := t.Node(id)
		ln := layoutNode{
			ID:     id,
			Label:  render.RoleLabel(n.Role()),
			Class:  "empty",
			Active: onPath[id],
			Leaf:   t.IsLeaf(id),
			X:      padding + s.x*(p.nodeW+p.colGap),
			Y:      padding + headerHeight + float64(s.depth)*(p.nodeH+p.rowGap),
			NodeW:  p.nodeW,
			NodeH:  p.nodeH,
		}
		if n.Message != nil {
			ln.Class = render.RoleClass(n.Role())
			ln.Preview = render.Preview(strings.TrimSpace(content.Extract(n.Message)), 22)
		} else {
			ln.Label = "(no message)"
		}
		nodes = append(nodes, ln)
	}

	var edges []layoutEdge
	for _, id := range ids {
		for _, c := range kids[id] {
			edges = append(edges, layoutEdge{From: id, To: c, Active: onPath[id] && onPath[c]})
		}
	}

	width := int(padding*2 + float64(col)*(p.nodeW+p.colGap))
	if width < 640 {
		width = 640
	}
	height := int(padding*2 + headerHeight + float64(rows)*(p.nodeH+p.rowGap))
	if height < 360 {
		height = 360
	}

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = snap.Meta.Title
	}
	return layoutResult{
		Nodes:  nodes,
		Edges:  edges,
		Width:  width,
		Height: height,
		Header: headerHeight,
		Summary: summaryInfo{
			Title:      title,
			NodeCount:  t.Len(),
			LeafCount:  len(t.Leaves()),
			ActiveLeaf: snap.View.LeafID,
			PathLen:    len(snap.View.Path),
			Detached:   len(detached),
		},
	}
}

// --- rendering -------------------------------------------------------------

var (
	colorUser      = color.RGBA{0xe0, 0xe7, 0xff, 0xff}
	colorAssistant = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorSystem    = color.RGBA{0xfe, 0xf3, 0xc7, 0xff}
	colorEmpty     = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorStroke    = color.RGBA{0x6b, 0x72, 0x80, 0xff}
	colorActive    = color.RGBA{0x25, 0x63, 0xeb, 0xff}
	colorEdge      = color.RGBA{0xb0, 0xb7, 0xc3, 0xff}
	colorText      = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle    = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop  = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG  = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG  = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

func classColor(class string) color.RGBA {
	switch class {
	case "user":
		return colorUser
	case "system":
		return colorSystem
	case "assistant":
		return colorAssistant
	}
	return colorEmpty
}

func renderPNG(path string, layout layoutResult) error {
	if layout.Width*layout.Height > maxPNGPixels {
		return fmt.Errorf("%w (%dx%d)", ErrDiagramTooLarge, layout.Width, layout.Height)
	}
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()
	dc.SetFontFace(basicfont.Face7x13)

	drawSummaryBlock(dc, layout)
	drawLegend(dc, layout)

	nodePos := make(map[string]layoutNode, len(layout.Nodes))
	for _, n := range layout.Nodes {
		nodePos[n.ID] = n
	}
	// Active edges last so they sit on top.
	for _, pass := range []bool{false, true} {
		for _, e := range layout.Edges {
			if e.Active != pass {
				continue
			}
			from, to := nodePos[e.From], nodePos[e.To]
			if e.Active {
				dc.SetColor(colorActive)
				dc.SetLineWidth(3)
			} else {
				dc.SetColor(colorEdge)
				dc.SetLineWidth(1.5)
			}
			dc.DrawLine(from.X+from.NodeW/2, from.Y+from.NodeH, to.X+to.NodeW/2, to.Y)
			dc.Stroke()
		}
	}

	for _, n := range layout.Nodes {
		drawNode(dc, n)
	}
	return dc.SavePNG(path)
}

func drawNode(dc *gg.Context, n layoutNode) {
	dc.SetColor(classColor(n.Class))
	dc.DrawRoundedRectangle(n.X, n.Y, n.NodeW, n.NodeH, 8)
	dc.Fill()
	if n.Active {
		dc.SetColor(colorActive)
		dc.SetLineWidth(3)
	} else {
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1)
	}
	dc.DrawRoundedRectangle(n.X, n.Y, n.NodeW, n.NodeH, 8)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored(truncate(n.Label+" "+n.ID, 21), n.X+8, n.Y+16, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(n.Preview, n.X+8, n.Y+34, 0, 0.5)
}

func drawSummaryBlock(dc *gg.Context, layout layoutResult) {
	s := layout.Summary
	dc.SetColor(colorText)
	dc.DrawStringAnchored(s.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("nodes: %d  leaves: %d  detached: %d", s.NodeCount, s.LeafCount, s.Detached), 32, 64, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("active leaf: %s (%d path nodes)", s.ActiveLeaf, s.PathLen), 32, 84, 0, 0.5)
}

func drawLegend(dc *gg.Context, layout layoutResult) {
	boxW, boxH := 170.0, 86.0
	x := float64(layout.Width) - boxW - 24
	y := 22.0
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()

	dc.SetColor(colorText)
	dc.DrawStringAnchored("Legend", x+12, y+14, 0, 0.5)
	drawLegendRow(dc, x+12, y+32, colorUser, colorStroke, "User")
	drawLegendRow(dc, x+12, y+48, colorAssistant, colorStroke, "Assistant")
	drawLegendRow(dc, x+12, y+64, colorSystem, colorStroke, "System")
	drawLegendRow(dc, x+92, y+32, colorEmpty, colorActive, "Active")
}

func drawLegendRow(dc *gg.Context, x, y float64, fill, stroke color.RGBA, label string) {
	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x, y-7, 12, 12, 3)
	dc.Fill()
	dc.SetColor(stroke)
	dc.SetLineWidth(1.5)
	dc.DrawRoundedRectangle(x, y-7, 12, 12, 3)
	dc.Stroke()
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(label, x+18, y, 0, 0.5)
}

func renderSVGToWriter(w io.Writer, layout layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, "fill:"+css(colorBackdrop))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, "fill:"+css(colorHeaderBG))

	s := layout.Summary
	canvas.Text(32, 44, s.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	subtle := fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle))
	canvas.Text(32, 64, fmt.Sprintf("nodes: %d  leaves: %d  detached: %d", s.NodeCount, s.LeafCount, s.Detached), subtle)
	canvas.Text(32, 84, fmt.Sprintf("active leaf: %s (%d path nodes)", s.ActiveLeaf, s.PathLen), subtle)
	drawLegendSVG(canvas, layout)

	nodePos := make(map[string]layoutNode, len(layout.Nodes))
	for _, n := range layout.Nodes {
		nodePos[n.ID] = n
	}
	for _, pass := range []bool{false, true} {
		for _, e := range layout.Edges {
			if e.Active != pass {
				continue
			}
			from, to := nodePos[e.From], nodePos[e.To]
			style := fmt.Sprintf("stroke:%s;stroke-width:1.5", css(colorEdge))
			if e.Active {
				style = fmt.Sprintf("stroke:%s;stroke-width:3", css(colorActive))
			}
			canvas.Line(int(from.X+from.NodeW/2), int(from.Y+from.NodeH), int(to.X+to.NodeW/2), int(to.Y), style)
		}
	}

	for _, n := range layout.Nodes {
		x, y := int(n.X), int(n.Y)
		stroke := fmt.Sprintf("stroke:%s;stroke-width:1", css(colorStroke))
		if n.Active {
			stroke = fmt.Sprintf("stroke:%s;stroke-width:3", css(colorActive))
		}
		canvas.Group(fmt.Sprintf(`id="node-%s"`, svgAttr(n.ID)))
		canvas.Title(n.ID)
		canvas.Roundrect(x, y, int(n.NodeW), int(n.NodeH), 8, 8, fmt.Sprintf("fill:%s;%s", css(classColor(n.Class)), stroke))
		canvas.Text(x+8, y+20, truncate(n.Label+" "+n.ID, 21), fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;font-weight:bold", css(colorText)))
		canvas.Text(x+8, y+38, n.Preview, fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))
		canvas.Gend()
	}

	canvas.End()
	return nil
}

func drawLegendSVG(canvas *svg.SVG, layout layoutResult) {
	boxW, boxH := 170, 86
	x := layout.Width - boxW - 24
	y := 22
	canvas.Roundrect(x, y, boxW, boxH, 10, 10, "fill:"+css(colorLegendBG))
	canvas.Text(x+12, y+16, "Legend", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
	drawLegendRowSVG(canvas, x+12, y+34, colorUser, colorStroke, "User")
	drawLegendRowSVG(canvas, x+12, y+50, colorAssistant, colorStroke, "Assistant")
	drawLegendRowSVG(canvas, x+12, y+66, colorSystem, colorStroke, "System")
	drawLegendRowSVG(canvas, x+92, y+34, colorEmpty, colorActive, "Active")
}

func drawLegendRowSVG(canvas *svg.SVG, x, y int, fill, stroke color.RGBA, label string) {
	canvas.Roundrect(x, y-8, 12, 12, 3, 3, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.5", css(fill), css(stroke)))
	canvas.Text(x+18, y+2, label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var svgAttrReplacer = strings.NewReplacer(`"`, "", "<", "", ">", "", "&", "")

func svgAttr(s string) string {
	return svgAttrReplacer.Replace(s)
}
