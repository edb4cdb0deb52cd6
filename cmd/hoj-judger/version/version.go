package version

import (
	"embed"
	"io"
	"runtime/debug"
	"strings"
)

//go:embed version.*
var versions embed.FS

// Version is the judger version
var Version string = "v0.2.0"

func init() {
	f, err := versions.Open("version.txt")
	if err != nil {
		// go generate was not run, assuming installed by go install
		// get version information from debug
		inf, ok := debug.ReadBuildInfo()
		if !ok || inf.Main.Version == "" || inf.Main.Version == "(devel)" {
			return
		}
		Version = inf.Main.Version
		return
	}
	s, err := io.ReadAll(f)
	if err != nil {
		return
	}
	Version = strings.TrimSpace(string(s))
}
