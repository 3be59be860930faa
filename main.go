package main

import (
	"runtime/debug"

	"github.com/jmilloy/notewall/cmd"
)

// Version is injected at build time via -ldflags "-X main.Version=...".
var Version = "dev"

// resolveVersion prefers the injected version, then the module version
// recorded by `go install module@version`.
func resolveVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

func main() {
	cmd.SetVersion(resolveVersion())
	cmd.Execute()
}
