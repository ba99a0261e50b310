package main

import (
	"github.com/sidkik/devmirror/cmd"
	"github.com/sidkik/devmirror/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
