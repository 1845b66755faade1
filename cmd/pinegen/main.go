package main

import (
	"os"
)

func main() {
	if err := newRootCmd(defaultPipeline).Execute(); err != nil {
		os.Exit(1)
	}
}
