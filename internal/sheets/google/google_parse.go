package google

import (
	"strconv"
	"strings"
)

// findRowByID scans the ID column values (as returned by the Sheets API) and
// returns the zero-based row index whose first cell matches the given
// expense ID, or -1. A header row with a non-numeric first cell is skipped
// naturally because it never parses.
func findRowByID(values [][]interface{}, id int64) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		got, ok := cellToID(row[0])
		if ok && got == id {
			return i
		}
	}
	return -1
}

// cellToID coerces a sheet cell into an expense ID. The API hands back
// strings for USER_ENTERED appends and float64 for numeric-formatted cells.
func cellToID(cell interface{}) (int64, bool) {
	switch v := cell.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}
