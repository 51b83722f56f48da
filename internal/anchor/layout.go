package anchor

import (
	"sort"
	"strings"

	"github.com/claimform/claimform/internal/digits"
	"github.com/claimform/claimform/internal/providers"
)

// rowTolerance is the maximum vertical-center difference (in page units)
// for a word to count as sitting on the same visual row as a line.
const rowTolerance = 0.12

// IDFromLayout searches structured OCR geometry for a checksum-valid ID.
// For each line containing an ID label it collects the words on the same
// visual row, merges adjacent numeric tokens left-to-right, and returns
// the valid 9-digit candidate closest horizontally to the label. This
// recovers column alignment that flat text loses.
func IDFromLayout(layout *providers.DocumentLayout) string {
	if layout == nil {
		return ""
	}
	for _, page := range layout.Pages {
		for _, line := range page.Lines {
			if !containsAnyLabel(line.Content, idLabels) {
				continue
			}
			lx, ly, ok := polygonCenter(line.Polygon)
			if !ok {
				continue
			}

			row := sameRowWords(page.Words, ly)
			if id := bestRowCandidate(row, lx); id != "" {
				return id
			}
		}
	}
	return ""
}

func containsAnyLabel(content string, labels []string) bool {
	for _, label := range labels {
		if strings.Contains(content, label) {
			return true
		}
	}
	return false
}

// polygonCenter averages the polygon's x and y coordinates.
func polygonCenter(polygon []float64) (x, y float64, ok bool) {
	if len(polygon) < 2 || len(polygon)%2 != 0 {
		return 0, 0, false
	}
	for i := 0; i < len(polygon); i += 2 {
		x += polygon[i]
		y += polygon[i+1]
	}
	n := float64(len(polygon) / 2)
	return x / n, y / n, true
}

type rowToken struct {
	x       float64
	content string
}

// sameRowWords returns the words whose vertical center lies within
// rowTolerance of y, sorted left-to-right.
func sameRowWords(words []providers.LayoutWord, y float64) []rowToken {
	var row []rowToken
	for _, w := range words {
		wx, wy, ok := polygonCenter(w.Polygon)
		if !ok {
			continue
		}
		if diff := wy - y; diff < rowTolerance && diff > -rowTolerance {
			row = append(row, rowToken{x: wx, content: w.Content})
		}
	}
	sort.Slice(row, func(i, j int) bool { return row[i].x < row[j].x })
	return row
}

// bestRowCandidate merges adjacent numeric/separator tokens into
// candidate strings and picks the checksum-valid 9-digit candidate with
// the smallest horizontal distance from the label center.
func bestRowCandidate(row []rowToken, labelX float64) string {
	type candidate struct {
		avgX float64
		text string
	}
	var candidates []candidate
	var group []rowToken

	flush := func() {
		if len(group) == 0 {
			return
		}
		var sum float64
		var sb strings.Builder
		for _, t := range group {
			sum += t.x
			sb.WriteString(t.content)
		}
		candidates = append(candidates, candidate{
			avgX: sum / float64(len(group)),
			text: sb.String(),
		})
		group = group[:0]
	}

	for _, tok := range row {
		if isNumericToken(tok.content) {
			group = append(group, tok)
		} else {
			flush()
		}
	}
	flush()

	best := ""
	bestDist := 0.0
	for _, c := range candidates {
		ds := digits.Only(c.text)
		if len(ds) != 9 || !digits.ValidIsraeliID(ds) {
			continue
		}
		dist := c.avgX - labelX
		if dist < 0 {
			dist = -dist
		}
		if best == "" || dist < bestDist {
			best, bestDist = ds, dist
		}
	}
	return best
}

// isNumericToken reports whether a word token belongs to a digit group:
// it contains a digit or is a bare separator.
func isNumericToken(tok string) bool {
	if tok == "-" || tok == "–" {
		return true
	}
	return strings.ContainsAny(tok, "0123456789")
}
