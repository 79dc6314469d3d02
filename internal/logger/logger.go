// Package logger provides the verbose diagnostic channel for mdskc.
// When verbose mode is enabled via the --verbose flag or config,
// messages go to stderr so operators can follow the classification and
// archive/place decisions the revision controller makes. With verbose
// off the package is silent.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	prefixDebug = "[DEBUG] "
	prefixInfo  = "[INFO] "
	prefixWarn  = "[WARN] "
)

var (
	mu      sync.RWMutex
	verbose bool
	out     io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects log output, normally for tests.
// Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// logf writes one gated, prefixed line.
func logf(prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !verbose {
		return
	}
	fmt.Fprintf(out, prefix+format+"\n", args...)
}

// Debug logs fine-grained workflow steps.
func Debug(format string, args ...any) {
	logf(prefixDebug, format, args...)
}

// Info logs notable outcomes.
func Info(format string, args ...any) {
	logf(prefixInfo, format, args...)
}

// Warn logs recoverable problems the workflow continued past.
func Warn(format string, args ...any) {
	logf(prefixWarn, format, args...)
}

// Section prints a banner separating workflow phases.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if !verbose {
		return
	}
	fmt.Fprintf(out, "\n--- %s ---\n", name)
}
