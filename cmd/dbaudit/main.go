package main

import "github.com/dwinston/dbaudit/cmd/dbaudit/commands"

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, buildTime)
	commands.Execute()
}
