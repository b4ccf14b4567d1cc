package main

import (
	"fmt"
	"os"

	"github.com/phillipod/sister-sto/cmd/sister/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
