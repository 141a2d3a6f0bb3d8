package version

import (
	"fmt"
	"runtime"
)

// Version is set at build time via ldflags:
//
//	-ldflags "-X github.com/TheodorNEngoy/mcp-safety-scanner/internal/version.Version=v0.3.0"
//
// When built without ldflags it defaults to "dev".
var Version = "dev"

// String is the one-line banner printed by the version command.
func String() string {
	return fmt.Sprintf("mcp-safety-scanner %s (%s, %s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
