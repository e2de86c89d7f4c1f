package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"medellin-listings/models"
)

// ErrNothingToDraw is returned for a report without any region geometry.
var ErrNothingToDraw = errors.New("render: no region geometry")

// Choropleth draws median sale prices per region as a PNG map in Web
// Mercator.
type Choropleth struct {
	dir     string
	style   Style
	printer *message.Printer
}

func NewChoropleth(dir string, style Style) *Choropleth {
	return &Choropleth{dir: dir, style: style, printer: message.NewPrinter(language.English)}
}

// FileName is the map's file name within the output directory.
func FileName(report *models.RegionReport) string {
	return report.FileStem("median_price") + "_map.png"
}

// Export renders report to {dir}/{year}_Q{q}_median_price_{type}_{slug}_map.png.
func (c *Choropleth) Export(report *models.RegionReport) (string, error) {
	dc, err := c.Draw(report)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("render: create output dir: %w", err)
	}
	path := filepath.Join(c.dir, FileName(report))
	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("render: save %q: %w", path, err)
	}
	return path, nil
}

// projected is a region in canvas pixels.
type projected struct {
	region *models.BoundaryRegion
	shape  orb.MultiPolygon
}

// Draw renders the map into a new drawing context.
func (c *Choropleth) Draw(report *models.RegionReport) (*gg.Context, error) {
	st := c.style
	if st.Size <= 0 {
		return nil, fmt.Errorf("render: invalid map size %d", st.Size)
	}

	var merc []projected
	var bound orb.Bound
	first := true
	for _, r := range report.Regions {
		if len(r.Geometry) == 0 {
			continue
		}
		mp := project.MultiPolygon(r.Geometry.Clone(), project.WGS84.ToMercator)
		if first {
			bound, first = mp.Bound(), false
		} else {
			bound = bound.Union(mp.Bound())
		}
		merc = append(merc, projected{region: r, shape: mp})
	}
	if len(merc) == 0 {
		return nil, ErrNothingToDraw
	}

	size := float64(st.Size)
	toCanvas := squareTransform(bound, size, st.Padding)
	for i := range merc {
		merc[i].shape = transform(merc[i].shape, toCanvas)
	}

	vmin, vmax, hasData := medianRange(report.Regions)
	scale := func(v float64) float64 {
		if vmax == vmin {
			return 0.5
		}
		return (v - vmin) / (vmax - vmin)
	}

	barWidth := math.Round(size * 0.14)
	dc := gg.NewContext(st.Size+int(barWidth), st.Size)
	dc.SetColor(st.Background)
	dc.Clear()
	if st.FontPath != "" {
		if err := dc.LoadFontFace(st.FontPath, st.LabelFontSize); err != nil {
			return nil, fmt.Errorf("render: load font %q: %w", st.FontPath, err)
		}
	}

	dc.SetFillRuleEvenOdd()
	for _, p := range merc {
		if !p.region.Stats.HasMedian() {
			continue
		}
		tracePath(dc, p.shape)
		dc.SetColor(st.withAlpha(st.ColorAt(scale(*p.region.Stats.MedianPrice))))
		dc.FillPreserve()
		dc.SetColor(st.EdgeColor)
		dc.SetLineWidth(st.FillEdgeWidth)
		dc.Stroke()
	}

	dc.SetColor(st.EdgeColor)
	dc.SetLineWidth(st.EdgeWidth)
	for _, p := range merc {
		tracePath(dc, p.shape)
		dc.Stroke()
	}

	for _, p := range merc {
		c.drawLabel(dc, p)
	}

	c.drawTitle(dc, report)
	if hasData {
		c.drawColorBar(dc, size, barWidth, vmin, vmax)
	}
	return dc, nil
}

// squareTransform fits bound, centred, into a size×size canvas with y
// pointing down.
func squareTransform(bound orb.Bound, size, padding float64) func(orb.Point) orb.Point {
	extent := math.Max(bound.Right()-bound.Left(), bound.Top()-bound.Bottom())
	if extent == 0 {
		extent = 1
	}
	extent *= 1 + 2*padding
	center := bound.Center()
	minX, minY := center[0]-extent/2, center[1]-extent/2

	return func(p orb.Point) orb.Point {
		return orb.Point{
			(p[0] - minX) / extent * size,
			size - (p[1]-minY)/extent*size,
		}
	}
}

func transform(mp orb.MultiPolygon, f func(orb.Point) orb.Point) orb.MultiPolygon {
	for _, poly := range mp {
		for _, ring := range poly {
			for i := range ring {
				ring[i] = f(ring[i])
			}
		}
	}
	return mp
}

func tracePath(dc *gg.Context, mp orb.MultiPolygon) {
	for _, poly := range mp {
		for _, ring := range poly {
			dc.NewSubPath()
			for i, pt := range ring {
				if i == 0 {
					dc.MoveTo(pt[0], pt[1])
				} else {
					dc.LineTo(pt[0], pt[1])
				}
			}
			dc.ClosePath()
		}
	}
}

func medianRange(regions []*models.BoundaryRegion) (vmin, vmax float64, ok bool) {
	for _, r := range regions {
		if !r.Stats.HasMedian() {
			continue
		}
		v := *r.Stats.MedianPrice
		if !ok {
			vmin, vmax, ok = v, v, true
			continue
		}
		vmin = math.Min(vmin, v)
		vmax = math.Max(vmax, v)
	}
	return vmin, vmax, ok
}

// mcop formats pesos as millions of COP with thousands grouping.
func (c *Choropleth) mcop(v float64) string {
	return c.printer.Sprintf("%.0f", v/1e6)
}

func (c *Choropleth) drawLabel(dc *gg.Context, p projected) {
	st := c.style
	label := p.region.Name
	if p.region.Stats.HasMedian() {
		label += "\n" + c.mcop(*p.region.Stats.MedianPrice) + " MCOP"
	}

	centroid, _ := planar.CentroidArea(p.shape)
	w, h := dc.MeasureMultilineString(label, 1.2)
	pad := 3.0
	dc.SetColor(color.NRGBA{255, 255, 255, uint8(math.Round(st.Alpha * 255))})
	dc.DrawRoundedRectangle(centroid[0]-w/2-pad, centroid[1]-h/2-pad, w+2*pad, h+2*pad, pad)
	dc.Fill()

	dc.SetColor(st.TextColor)
	dc.DrawStringWrapped(label, centroid[0], centroid[1], 0.5, 0.5, w+1, 1.2, gg.AlignCenter)
}

func (c *Choropleth) drawTitle(dc *gg.Context, report *models.RegionReport) {
	st := c.style
	if st.FontPath != "" {
		_ = dc.LoadFontFace(st.FontPath, st.TitleFontSize)
		defer dc.LoadFontFace(st.FontPath, st.LabelFontSize)
	}

	title := fmt.Sprintf("%s - Medellín\nPrecio de Venta %s\nQ%d - %d",
		report.Title, report.PropertyType.Label(), report.Quarter, report.Year)
	w, h := dc.MeasureMultilineString(title, 1.3)
	x, y := 12.0, 12.0

	dc.SetColor(color.NRGBA{255, 255, 255, 220})
	dc.DrawRectangle(x-6, y-6, w+12, h+12)
	dc.Fill()
	dc.SetColor(st.TextColor)
	dc.DrawStringWrapped(title, x, y, 0, 0, w+1, 1.3, gg.AlignLeft)
}

// drawColorBar draws the vertical palette legend to the right of the map,
// labelled in millions of COP.
func (c *Choropleth) drawColorBar(dc *gg.Context, size, barWidth, vmin, vmax float64) {
	st := c.style
	x := size + barWidth*0.15
	w := barWidth * 0.25
	top, bottom := size*0.05, size*0.95
	height := bottom - top

	for y := top; y < bottom; y++ {
		t := (bottom - y) / height
		dc.SetColor(st.withAlpha(st.ColorAt(t)))
		dc.DrawRectangle(x, y, w, 1)
		dc.Fill()
	}
	dc.SetColor(st.EdgeColor)
	dc.SetLineWidth(1)
	dc.DrawRectangle(x, top, w, height)
	dc.Stroke()

	const ticks = 5
	for i := 0; i <= ticks; i++ {
		f := float64(i) / ticks
		y := bottom - f*height
		v := vmin + f*(vmax-vmin)
		dc.DrawLine(x+w, y, x+w+4, y)
		dc.Stroke()
		dc.DrawStringAnchored(c.mcop(v), x+w+7, y, 0, 0.35)
	}
	dc.DrawStringAnchored("MCOP", x+w/2, top-8, 0.5, 0)
}
