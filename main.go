package main

import (
	"os"

	"github.com/jensroland/leakmap/cmd"
)

var version = "dev"

func main() {
	os.Exit(cmd.Execute(version))
}
