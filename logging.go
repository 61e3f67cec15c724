package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// initLogging configures logrus the way the teacher's tooling does
// (o2lab-go2/main.go): text formatter with a short timestamp, level
// gated by -verbose, always writing to standard error so standard
// output stays reserved for the report (§6 of SPEC_FULL.md).
func initLogging(debug bool) {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// debugf emits a "[debug]" prefixed trace line, matching the literal
// prefix spec.md §6 requires standard error to carry during
// collection and resolution.
func debugf(format string, args ...any) {
	log.Debugf("[debug] "+format, args...)
}
