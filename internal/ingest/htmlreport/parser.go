package htmlreport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/shifts"
)

// Report cell classes. The attribute values are matched verbatim.
const (
	classPlayerHeading = "playerHeading + border"
	classShiftCell     = "lborder + bborder"
	classTeamHeading   = "teamHeading + border"
)

// cellsPerShift is shift number, period, start, end and duration.
const cellsPerShift = 5

// Report is one side's parsed shift report.
type Report struct {
	TeamHeading string
	Rows        []shifts.RawShift
}

// ParseHTML converts raw HTML to a goquery Document for parsing
func ParseHTML(htmlContent string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// Parse extracts shift rows from a report page. isHome is stamped on every
// row; the caller may override it from the team heading. A page with no
// player or shift cells yields hockey.ErrNoData.
func Parse(htmlContent string, isHome bool) (*Report, error) {
	doc, err := ParseHTML(htmlContent)
	if err != nil {
		return nil, err
	}
	return ParseDocument(doc, isHome)
}

// ParseDocument is Parse for an already parsed page.
func ParseDocument(doc *goquery.Document, isHome bool) (*Report, error) {
	report := &Report{}
	doc.Find("td").EachWithBreak(func(i int, s *goquery.Selection) bool {
		align, _ := s.Attr("align")
		class, _ := s.Attr("class")
		if align == "center" && class == classTeamHeading {
			report.TeamHeading = strings.TrimSpace(s.Text())
			return false
		}
		return true
	})

	type player struct {
		name   string
		number int
		cells  []string
	}
	var players []*player
	var current *player
	var parseErr error

	doc.Find("td").EachWithBreak(func(i int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if class != classPlayerHeading && class != classShiftCell {
			return true
		}
		text := s.Text()
		if strings.Contains(text, ", ") {
			name, number, err := parsePlayerHeading(text)
			if err != nil {
				parseErr = err
				return false
			}
			current = &player{name: name, number: number}
			players = append(players, current)
			return true
		}
		if current == nil {
			parseErr = &hockey.FormatError{Field: "shift_cell", Value: text, Err: fmt.Errorf("shift cell before any player heading")}
			return false
		}
		current.cells = append(current.cells, text)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if len(players) == 0 {
		return nil, hockey.ErrNoData
	}

	for _, p := range players {
		if len(p.cells)%cellsPerShift != 0 {
			return nil, &hockey.FormatError{
				Field: "shift_cells",
				Value: p.name,
				Err:   fmt.Errorf("%d cells is not a multiple of %d", len(p.cells), cellsPerShift),
			}
		}
		for j := 0; j < len(p.cells); j += cellsPerShift {
			report.Rows = append(report.Rows, shifts.RawShift{
				Name:          p.name,
				SweaterNumber: p.number,
				IsHome:        isHome,
				ShiftNumber:   strings.TrimSpace(p.cells[j]),
				Period:        strings.TrimSpace(p.cells[j+1]),
				Start:         p.cells[j+2],
				End:           p.cells[j+3],
				Duration:      p.cells[j+4],
			})
		}
	}
	return report, nil
}

// parsePlayerHeading splits "14 SUZUKI, NICK" into "NICK SUZUKI" and 14.
func parsePlayerHeading(text string) (string, int, error) {
	last, first, _ := strings.Cut(text, ",")
	fields := strings.Fields(last)
	if len(fields) < 2 {
		return "", 0, &hockey.FormatError{Field: "player_heading", Value: text, Err: fmt.Errorf("expected number and last name")}
	}
	number, err := strconv.Atoi(fields[0])
	if err != nil {
		return "", 0, &hockey.FormatError{Field: "player_heading", Value: text, Err: err}
	}
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.Join(fields[1:], " "))
	return name, number, nil
}
