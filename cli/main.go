package main

import (
	"github.com/BioHazard786/Synctube/cli/cmd"
	"github.com/BioHazard786/Synctube/cli/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init("")
	cmd.Execute()
}
