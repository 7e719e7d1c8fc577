package main

import (
	"os"

	"maskd/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
