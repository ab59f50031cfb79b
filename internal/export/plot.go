package export

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/ufosim/internal/sim"
)

var (
	thetaColor = color.RGBA{40, 140, 255, 255}
	uColor     = color.RGBA{240, 70, 70, 255}
)

// TracePlot builds a theta and control-versus-time plot of a recorded
// rollout.
func TracePlot(tr *sim.Trace) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("UFO attitude  %s", tr.Gains)
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "t [s]"
	p.Y.Label.Text = "theta [rad], u"
	p.Add(plotter.NewGrid())

	for _, series := range []struct {
		name  string
		col   string
		color color.Color
	}{
		{"theta", "theta", thetaColor},
		{"u", "u", uColor},
	} {
		pts := make(plotter.XYs, len(tr.Samples))
		ts := tr.Column("t")
		ys := tr.Column(series.col)
		for i := range pts {
			pts[i].X = ts[i]
			pts[i].Y = ys[i]
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s line: %w", series.name, err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = series.color
		p.Add(line)
		p.Legend.Add(series.name, line)
	}
	p.Legend.Top = true

	return p, nil
}

// WritePNG renders the trace plot as a PNG of the given size in inches.
func WritePNG(w io.Writer, tr *sim.Trace, widthIn, heightIn float64) error {
	p, err := TracePlot(tr)
	if err != nil {
		return err
	}

	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(150),
	)
	p.Draw(draw.New(c))

	bw := bufio.NewWriter(w)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

func SavePNG(path string, tr *sim.Trace) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	return WritePNG(f, tr, 8.0, 5.0)
}
