package main

import (
	"edcompanion/cmd/edapi/commands"
	"edcompanion/internal/components/cliutil"
)

func main() {
	commands.ExecuteContext(cliutil.SignalContext())
}
