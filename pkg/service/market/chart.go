package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const (
	chartWidth   = 640
	chartHeight  = 240
	chartPadding = 40
)

// RenderChartSVG renders the closing prices of bars as a standalone SVG
// line chart. The output is deterministic for a given input.
func RenderChartSVG(symbol string, bars []Bar) (string, error) {
	if len(bars) == 0 {
		return "", goerr.New("no price data to chart", goerr.V("symbol", symbol))
	}

	minP, maxP := bars[0].Close, bars[0].Close
	for _, b := range bars {
		if b.Close < minP {
			minP = b.Close
		}
		if b.Close > maxP {
			maxP = b.Close
		}
	}
	if maxP == minP {
		// Flat series still gets a visible line in the middle
		maxP = minP + 1
	}

	plotW := float64(chartWidth - 2*chartPadding)
	plotH := float64(chartHeight - 2*chartPadding)

	points := make([]string, len(bars))
	for i, b := range bars {
		x := float64(chartPadding)
		if len(bars) > 1 {
			x += plotW * float64(i) / float64(len(bars)-1)
		}
		y := float64(chartPadding) + plotH*(1-(b.Close-minP)/(maxP-minP))
		points[i] = fmt.Sprintf("%.1f,%.1f", x, y)
	}

	first := time.Unix(bars[0].Time, 0).UTC().Format("2006-01-02")
	last := time.Unix(bars[len(bars)-1].Time, 0).UTC().Format("2006-01-02")

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		chartWidth, chartHeight, chartWidth, chartHeight)
	fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="white"/>`, chartWidth, chartHeight)
	fmt.Fprintf(&sb, `<text x="%d" y="24" font-family="sans-serif" font-size="14">%s close, %s to %s</text>`,
		chartPadding, symbol, first, last)
	fmt.Fprintf(&sb, `<polyline fill="none" stroke="#2563eb" stroke-width="1.5" points="%s"/>`,
		strings.Join(points, " "))
	fmt.Fprintf(&sb, `<text x="%d" y="%d" font-family="sans-serif" font-size="11" text-anchor="end">%.2f</text>`,
		chartPadding-4, chartPadding+4, maxP)
	fmt.Fprintf(&sb, `<text x="%d" y="%d" font-family="sans-serif" font-size="11" text-anchor="end">%.2f</text>`,
		chartPadding-4, chartHeight-chartPadding, minP)
	sb.WriteString(`</svg>`)
	return sb.String(), nil
}
