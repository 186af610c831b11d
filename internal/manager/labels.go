package manager

import "strconv"

func levelLabel(i int) string {
	return strconv.Itoa(i)
}
