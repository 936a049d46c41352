// typograf - console client for the Art. Lebedev Studio typograf web service
package main

import "github.com/cheyinl/typograf/internal/cli"

// Build-time variables set via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	cli.Main(cli.BuildInfo{Version: Version, Commit: Commit})
}
