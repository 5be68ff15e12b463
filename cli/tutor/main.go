package main

import (
	"os"

	tutorcmder "github.com/papercomputeco/tutor/cmd/tutor"
)

func main() {
	cmd := tutorcmder.NewTutorCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
