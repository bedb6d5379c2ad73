package model

import (
	"strconv"
	"strings"
)

// RowLabel converts a zero-based row index to an alphabetical label like
// A, B, ..., Z, AA, AB.
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		rem := i % 26
		res = append(res, rune('A'+rem))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// RowIndex converts a row label like A or AA into its zero-based index.
func RowIndex(label string) (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if s == "" {
		return -1, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < 'A' || ch > 'Z' {
			return -1, false
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1, true
}

// SeatLabel builds the label for a zero-based row and one-based number.
func SeatLabel(row, number int) string {
	return RowLabel(row) + strconv.Itoa(number)
}

// NormalizeSeatLabel upper-cases and trims a label.
func NormalizeSeatLabel(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}

// ParseSeatLabel splits a label such as "B12" into its zero-based row and
// one-based seat number.
func ParseSeatLabel(label string) (row, number int, ok bool) {
	s := NormalizeSeatLabel(label)
	split := 0
	for split < len(s) && s[split] >= 'A' && s[split] <= 'Z' {
		split++
	}
	if split == 0 || split == len(s) {
		return 0, 0, false
	}
	row, ok = RowIndex(s[:split])
	if !ok {
		return 0, 0, false
	}
	number, err := strconv.Atoi(s[split:])
	if err != nil || number <= 0 || s[split] == '0' {
		return 0, 0, false
	}
	return row, number, true
}

// Contains reports whether label names a seat inside the screening layout.
func (s Screening) Contains(label string) bool {
	row, number, ok := ParseSeatLabel(label)
	if !ok {
		return false
	}
	return row < s.SeatRows && number <= s.SeatCols
}

// Labels enumerates every seat of the layout, row by row.
func (s Screening) Labels() []string {
	if s.SeatRows <= 0 || s.SeatCols <= 0 {
		return nil
	}
	out := make([]string, 0, s.SeatRows*s.SeatCols)
	for r := 0; r < s.SeatRows; r++ {
		for n := 1; n <= s.SeatCols; n++ {
			out = append(out, SeatLabel(r, n))
		}
	}
	return out
}
