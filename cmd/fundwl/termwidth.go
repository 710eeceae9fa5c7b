package main

import (
	"os"
	"strconv"
)

// widthFromEnv reads $COLUMNS, which shells export for non-tty children.
func widthFromEnv() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return 0
}
