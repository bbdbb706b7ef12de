package main

import (
	// Embedded zone database for hosts without /usr/share/zoneinfo.
	_ "time/tzdata"

	"github.com/Darkosxl/immobiliare-agent/cmd"
)

// version will be set by goreleaser during build
var version = "dev"

func main() {
	// Set the version from build-time variable
	cmd.SetVersion(version)

	// Execute the root command
	cmd.Execute()
}
