package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/arbor/pkg/metrics"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

// SnapshotOptions controls outline image export.
type SnapshotOptions struct {
	Path        string // Output path; format inferred from extension when Format empty
	Format      string // "svg" or "png" (case-insensitive)
	Title       string
	VisibleOnly bool
}

// SaveSnapshot renders the tree outline as SVG or PNG.
func SaveSnapshot(t *tree.Tree, opts SnapshotOptions) error {
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		format = strings.ToLower(strings.TrimPrefix(filepath.Ext(opts.Path), "."))
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	defer metrics.Timer(metrics.ExportRender)()
	layout := buildLayout(Rows(t, opts.VisibleOnly), opts.Title)
	if format == "png" {
		return renderPNG(opts.Path, layout)
	}
	f, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	if err := renderSVG(f, layout); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteSVG renders the outline as SVG to w.
func WriteSVG(w io.Writer, t *tree.Tree, opts SnapshotOptions) error {
	return renderSVG(w, buildLayout(Rows(t, opts.VisibleOnly), opts.Title))
}

// --- layout ----------------------------------------------------------------

const (
	marginX   = 24
	headerH   = 56
	rowH      = 24
	indentW   = 22
	boxSize   = 12
	charW     = 7 // basicfont.Face7x13
	maxLabel  = 60
	minCanvas = 240
)

type layoutRow struct {
	Row
	X, Y int
}

type layoutResult struct {
	Rows          []layoutRow
	Title         string
	Width, Height int
	Checked       int
	Partial       int
}

func buildLayout(rows []Row, title string) layoutResult {
	if title == "" {
		title = "tree"
	}
	l := layoutResult{Title: title, Width: minCanvas}
	for i, r := range rows {
		lr := layoutRow{Row: r, X: marginX + r.Level*indentW, Y: headerH + i*rowH}
		l.Rows = append(l.Rows, lr)
		if w := lr.X + boxSize + 8 + len([]rune(truncate(r.Label, maxLabel)))*charW + marginX; w > l.Width {
			l.Width = w
		}
		switch r.State {
		case Checked:
			l.Checked++
		case Partial:
			l.Partial++
		}
	}
	l.Height = headerH + len(rows)*rowH + marginX
	return l
}

func (l layoutResult) summary() string {
	return fmt.Sprintf("%d nodes, %d selected, %d partial", len(l.Rows), l.Checked, l.Partial)
}

var (
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorGuide    = color.RGBA{0xcf, 0xd8, 0xdc, 0xff}
	colorChecked  = color.RGBA{0x4c, 0xaf, 0x50, 0xff}
	colorPartial  = color.RGBA{0xff, 0xb3, 0x00, 0xff}
	colorActive   = color.RGBA{0xe3, 0xf2, 0xfd, 0xff}
)

func stateColor(s CheckState) color.RGBA {
	switch s {
	case Checked:
		return colorChecked
	case Partial:
		return colorPartial
	default:
		return colorBackdrop
	}
}

// guide returns the elbow from a row's parent checkbox down and across to
// the row's own checkbox.
func (l layoutResult) guide(r layoutRow) (x1, y1, x2, y2 int, ok bool) {
	if r.Parent < 0 {
		return 0, 0, 0, 0, false
	}
	p := l.Rows[r.Parent]
	return p.X + boxSize/2, p.Y + boxSize, r.X, r.Y + boxSize/2, true
}

// --- rendering -------------------------------------------------------------

func renderSVG(w io.Writer, l layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(l.Width, l.Height)
	canvas.Rect(0, 0, l.Width, l.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Text(marginX, 24, l.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(marginX, 42, l.summary(), fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))

	guideStyle := fmt.Sprintf("stroke:%s;stroke-width:1;fill:none", css(colorGuide))
	for _, r := range l.Rows {
		if x1, y1, x2, y2, ok := l.guide(r); ok {
			canvas.Polyline([]int{x1, x1, x2}, []int{y1, y2, y2}, guideStyle)
		}
	}

	for _, r := range l.Rows {
		if r.Active {
			canvas.Rect(r.X-4, r.Y-4, l.Width-r.X-marginX/2, rowH-4, fmt.Sprintf("fill:%s", css(colorActive)))
		}
		canvas.Rect(r.X, r.Y, boxSize, boxSize,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(stateColor(r.State)), css(colorStroke)))
		if r.State == Partial {
			canvas.Line(r.X+3, r.Y+boxSize/2, r.X+boxSize-3, r.Y+boxSize/2, fmt.Sprintf("stroke:%s;stroke-width:2", css(colorStroke)))
		}
		textColor := colorText
		if r.Disabled {
			textColor = colorSubtle
		}
		canvas.Text(r.X+boxSize+8, r.Y+boxSize-1, truncate(r.Label, maxLabel),
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(textColor)))
	}
	canvas.End()
	return nil
}

func renderPNG(path string, l layoutResult) error {
	dc := gg.NewContext(l.Width, l.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(colorText)
	dc.DrawStringAnchored(l.Title, marginX, 20, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(l.summary(), marginX, 38, 0, 0.5)

	dc.SetColor(colorGuide)
	dc.SetLineWidth(1)
	for _, r := range l.Rows {
		if x1, y1, x2, y2, ok := l.guide(r); ok {
			dc.MoveTo(float64(x1), float64(y1))
			dc.LineTo(float64(x1), float64(y2))
			dc.LineTo(float64(x2), float64(y2))
			dc.Stroke()
		}
	}

	for _, r := range l.Rows {
		x, y := float64(r.X), float64(r.Y)
		if r.Active {
			dc.SetColor(colorActive)
			dc.DrawRectangle(x-4, y-4, float64(l.Width-r.X-marginX/2), rowH-4)
			dc.Fill()
		}
		dc.SetColor(stateColor(r.State))
		dc.DrawRectangle(x, y, boxSize, boxSize)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.DrawRectangle(x, y, boxSize, boxSize)
		dc.Stroke()
		if r.State == Partial {
			dc.SetLineWidth(2)
			dc.DrawLine(x+3, y+boxSize/2, x+boxSize-3, y+boxSize/2)
			dc.Stroke()
			dc.SetLineWidth(1)
		}
		if r.Disabled {
			dc.SetColor(colorSubtle)
		} else {
			dc.SetColor(colorText)
		}
		dc.DrawStringAnchored(truncate(r.Label, maxLabel), x+boxSize+8, y+boxSize/2, 0, 0.5)
	}
	return dc.SavePNG(path)
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
