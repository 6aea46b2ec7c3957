package citation

import (
	"strconv"
	"strings"
)

// marker is one "[n]" or "[n][ts]" occurrence in an answer body.
// start and end are byte offsets of the full matched span.
type marker struct {
	start, end int
	index      int    // -1 when the digits do not fit an int
	timestamp  string // raw text of the second bracket group, "" when absent
}

func (m marker) text(body string) string {
	return body[m.start:m.end]
}

// scanMarkers finds every non-overlapping marker left to right.
// Grammar: '[' digit+ ']' ( '[' (digit|':')+ ']' )?
// When the optional group is malformed, the marker is just "[n]".
func scanMarkers(body string) []marker {
	var markers []marker
	i := 0
	for i < len(body) {
		if body[i] != '[' {
			i++
			continue
		}
		m, ok := parseMarker(body, i)
		if !ok {
			i++
			continue
		}
		markers = append(markers, m)
		i = m.end
	}
	return markers
}

func parseMarker(body string, start int) (marker, bool) {
	j := start + 1
	digitsEnd := skip(body, j, isDigit)
	if digitsEnd == j || digitsEnd >= len(body) || body[digitsEnd] != ']' {
		return marker{}, false
	}

	index, err := strconv.Atoi(body[j:digitsEnd])
	if err != nil {
		index = -1
	}
	m := marker{start: start, end: digitsEnd + 1, index: index}

	// Optional "[ts]" immediately after
	k := m.end
	if k < len(body) && body[k] == '[' {
		tsEnd := skip(body, k+1, isTimestampChar)
		if tsEnd > k+1 && tsEnd < len(body) && body[tsEnd] == ']' {
			m.timestamp = body[k+1 : tsEnd]
			m.end = tsEnd + 1
		}
	}
	return m, true
}

func skip(s string, i int, pred func(byte) bool) int {
	for i < len(s) && pred(s[i]) {
		i++
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isTimestampChar(c byte) bool {
	return isDigit(c) || c == ':'
}

// maxTimestampField caps each MM:SS field so minutes*60 cannot overflow
const maxTimestampField = 1 << 20

// ParseTimestamp converts strict "MM:SS" to whole seconds.
// Anything other than exactly two numeric fields (e.g. "1:2:3", ":30") is rejected,
// as is a field above maxTimestampField.
func ParseTimestamp(ts string) (int, bool) {
	parts := strings.Split(ts, ":")
	if len(parts) != 2 {
		return 0, false
	}
	minutes, ok := parseField(parts[0])
	if !ok {
		return 0, false
	}
	seconds, ok := parseField(parts[1])
	if !ok {
		return 0, false
	}
	return minutes*60 + seconds, true
}

func parseField(s string) (int, bool) {
	if s == "" || skip(s, 0, isDigit) != len(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > maxTimestampField {
		return 0, false
	}
	return n, true
}
