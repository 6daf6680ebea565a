package analytics

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	chartWidth  = 480
	chartRow    = 22
	chartMargin = 10
	chartLabel  = 130
	chartMaxBar = 8
)

var (
	chartBackground = color.RGBA{R: 0x2b, G: 0x2d, B: 0x31, A: 0xff}
	chartBar        = color.RGBA{R: 0x58, G: 0x65, B: 0xf2, A: 0xff}
	chartText       = color.RGBA{R: 0xf2, G: 0xf3, B: 0xf5, A: 0xff}
)

// Chart renders the busiest events as a horizontal bar chart PNG.
// An empty report yields no image.
func (r Report) Chart() ([]byte, error) {
	counts := r.Sorted()
	if len(counts) == 0 {
		return nil, nil
	}
	if len(counts) > chartMaxBar {
		counts = counts[:chartMaxBar]
	}

	height := chartMargin*2 + len(counts)*chartRow
	img := image.NewRGBA(image.Rect(0, 0, chartWidth, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: chartBackground}, image.Point{}, draw.Src)

	peak := counts[0].Count
	barSpace := chartWidth - chartLabel - chartMargin*2 - 40
	drawer := &font.Drawer{Dst: img, Src: image.NewUniform(chartText), Face: basicfont.Face7x13}

	for i, entry := range counts {
		top := chartMargin + i*chartRow
		label := entry.Event
		if len(label) > 18 {
			label = label[:17] + "."
		}
		drawer.Dot = fixed.P(chartMargin, top+15)
		drawer.DrawString(label)

		width := barSpace * entry.Count / peak
		if width < 2 {
			width = 2
		}
		bar := image.Rect(chartMargin+chartLabel, top+4, chartMargin+chartLabel+width, top+chartRow-4)
		draw.Draw(img, bar, &image.Uniform{C: chartBar}, image.Point{}, draw.Src)

		drawer.Dot = fixed.P(bar.Max.X+6, top+15)
		drawer.DrawString(fmt.Sprintf("%d", entry.Count))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}
