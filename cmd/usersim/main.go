package main

import (
	"os"

	"github.com/moolen/usersim/cmd/usersim/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
