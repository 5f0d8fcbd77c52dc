package main

import (
	"os"

	"datalint/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
