package services

import (
	"log"
	"os"
	"strings"
	"sync/atomic"
)

var translationDebugEnabled atomic.Bool

func init() {
	// TRANSLATION_DEBUG=1|true|yes turns on verbose pipeline logging
	if v := os.Getenv("TRANSLATION_DEBUG"); v != "" {
		v = strings.ToLower(v)
		SetDebugLogging(v == "1" || v == "true" || v == "yes")
	}
}

// SetDebugLogging toggles verbose translation logging at runtime
func SetDebugLogging(enabled bool) {
	if enabled && !translationDebugEnabled.Load() {
		log.Println("[TRANSLATION] Debug logging: ENABLED")
	}
	translationDebugEnabled.Store(enabled)
}

// debugLog logs only when debug logging is enabled.
// Use this for per-request details: prompts, cache hits/misses, step timings.
func debugLog(format string, args ...interface{}) {
	if translationDebugEnabled.Load() {
		log.Printf("[TRANSLATION DEBUG] "+format, args...)
	}
}

// infoLog always logs important pipeline events: job start/finish, API errors.
func infoLog(format string, args ...interface{}) {
	log.Printf("[TRANSLATION] "+format, args...)
}
