package main

import (
	"os"

	"github.com/TheodorNEngoy/mcp-safety-scanner/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:]))
}
