package simulator

import "strconv"

// levelLabel formats a 0-indexed level id as the string label used for
// Prometheus metric label values.
func levelLabel(i int) string {
	return strconv.Itoa(i)
}
