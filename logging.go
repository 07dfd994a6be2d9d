package main

import "log"

// logf is the module's sole logging entry point: stdlib log, matching
// the teacher's own convention (log.Printf/log.Fatalf throughout
// server.go) rather than reaching for a structured logger the teacher
// never uses.
func logf(format string, args ...any) {
	log.Printf(format, args...)
}
