package main

import (
	"os"

	"github.com/grovetools/livesync/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
