// Package version provides application version information.
// The version and commit can be set at build time using ldflags:
//
//	go build -ldflags "-X github.com/ramonehamilton/PTCG-Companion/internal/version.Version=v1.2.3 -X github.com/ramonehamilton/PTCG-Companion/internal/version.Commit=abc123"
package version

// Version is the application version. It defaults to "dev".
var Version = "dev"

// Commit is the source revision, empty for local builds.
var Commit = ""

// GetVersion returns the current application version, with the commit
// appended when one was stamped.
func GetVersion() string {
	if Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
