package helpers

import (
	"time"

	"github.com/rs/zerolog/log"
)

// ParseDuration parses a duration string and falls back to def when it is
// malformed or not positive.
func ParseDuration(value string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Warn().Err(err).Str("value", value).Dur("default", def).Msg("Invalid duration, using default")
		return def
	}
	return d
}
