package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, openServices).Execute(); err != nil {
		os.Exit(1)
	}
}
