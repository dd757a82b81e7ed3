package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"mashup-go/internal/types"
)

// Entry is one request row of a batch workbook. Row is the 1-based sheet row.
type Entry struct {
	Row     int
	Request types.Request
}

// LoadRequests reads mashup requests from the first sheet of an xlsx file.
// Columns are found from the header row; unparseable numbers are kept as
// zero so the row fails validation instead of disappearing.
func LoadRequests(path string) ([]Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	cols := detectColumns(rows[0])
	if cols.query == -1 || cols.email == -1 {
		return nil, fmt.Errorf("header %v: need a singer and an email column", rows[0])
	}

	var out []Entry
	for i, r := range rows {
		if i == 0 || blank(r) {
			continue
		}
		req := types.Request{
			Query:       cell(r, cols.query),
			Count:       atoi(cell(r, cols.count)),
			TrimSeconds: atoi(cell(r, cols.duration)),
			Destination: cell(r, cols.email),
		}
		out = append(out, Entry{Row: i + 1, Request: req})
	}
	return out, nil
}

type columns struct {
	query, count, duration, email int
}

func detectColumns(header []string) columns {
	c := columns{query: -1, count: -1, duration: -1, email: -1}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "mail"):
			if c.email == -1 {
				c.email = i
			}
		case strings.Contains(l, "duration") || strings.Contains(l, "second") || strings.Contains(l, "trim"):
			if c.duration == -1 {
				c.duration = i
			}
		case strings.Contains(l, "video") || strings.Contains(l, "count") || strings.Contains(l, "num"):
			if c.count == -1 {
				c.count = i
			}
		case strings.Contains(l, "singer") || strings.Contains(l, "artist") || strings.Contains(l, "name"):
			if c.query == -1 {
				c.query = i
			}
		}
	}
	// fall back to the form's field order
	if c.query == -1 && len(header) > 0 {
		c.query = 0
	}
	if c.count == -1 && len(header) > 1 {
		c.count = 1
	}
	if c.duration == -1 && len(header) > 2 {
		c.duration = 2
	}
	if c.email == -1 && len(header) > 3 {
		c.email = 3
	}
	return c
}

func cell(r []string, idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[idx])
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func blank(r []string) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
