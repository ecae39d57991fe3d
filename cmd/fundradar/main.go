package main

import (
	"os"

	"FundRadar/cmd/fundradar/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
