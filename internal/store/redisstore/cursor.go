package redisstore

import "strconv"

func parseCursor(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func formatCursor(c uint64) string {
	return strconv.FormatUint(c, 10)
}
