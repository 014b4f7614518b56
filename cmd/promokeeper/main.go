package main

import (
	"os"

	"github.com/solatis/promokeeper/cmd/promokeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
