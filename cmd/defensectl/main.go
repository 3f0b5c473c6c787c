// Command defensectl runs the batch jobs and admin tasks of the defense
// workflow against the configured store.
package main

import (
	"os"

	"github.com/yigit/thesisflow/internal/pkg/logger"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Error().Err(err).Msg("defensectl failed")
		os.Exit(1)
	}
}
