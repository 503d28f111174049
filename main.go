package main

import (
	"os"

	"github.com/bnema/wayskk/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
