package main

import (
	"os"

	"borgsched/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
