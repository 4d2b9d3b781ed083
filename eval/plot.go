package eval

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// SaveComparison writes a line plot of one channel of truth and
// prediction to path (format chosen by the extension, e.g. .png).
func SaveComparison(path, title string, truth, pred mat.Matrix, channel int) error {
	_, nt := truth.Dims()
	_, np := pred.Dims()
	if channel < 0 || channel >= nt || channel >= np {
		return fmt.Errorf("eval: channel %d out of range", channel)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "step"
	p.Y.Label.Text = fmt.Sprintf("channel %d", channel)

	if err := plotutil.AddLines(p,
		"truth", channelXYs(truth, channel),
		"prediction", channelXYs(pred, channel),
	); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

func channelXYs(data mat.Matrix, channel int) plotter.XYs {
	t, _ := data.Dims()
	pts := make(plotter.XYs, t)
	for i := range pts {
		pts[i].X = float64(i)
		pts[i].Y = data.At(i, channel)
	}
	return pts
}
