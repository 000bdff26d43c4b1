// -----------------------------------------------------------------------
// Crash reports for the faultlens CLI and test hook
// -----------------------------------------------------------------------

package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"
)

// CrashLogDir is where crash reports are written; set by InstallCrashHandler
var CrashLogDir = "./logs"

// InstallCrashHandler records the crash report directory and makes sure it exists
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		CrashLogDir = logDir
	}
	if err := os.MkdirAll(CrashLogDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "faultlens: cannot create crash directory: %v\n", err)
	}
}

// WriteCrashFile writes a report for panicVal and returns its path, or "" when
// the report could only be printed to stderr.
func WriteCrashFile(panicVal interface{}, stack []byte) string {
	var report bytes.Buffer
	fmt.Fprintf(&report, "faultlens crash at %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&report, "version: %s\n", GetFullVersion())
	fmt.Fprintf(&report, "go: %s %s/%s, goroutines: %d\n\n", runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.NumGoroutine())
	fmt.Fprintf(&report, "panic: %v\n\n%s\n", panicVal, stack)

	crashPath := filepath.Join(CrashLogDir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))
	if err := os.WriteFile(crashPath, report.Bytes(), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "faultlens: cannot write crash file: %v\n%s", err, report.String())
		return ""
	}

	fmt.Fprintf(os.Stderr, "faultlens crashed: %v (report: %s)\n", panicVal, crashPath)
	return crashPath
}

// RecoverWithCrashFile is deferred at the top of main.
// Usage: defer common.RecoverWithCrashFile()
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		WriteCrashFile(r, debug.Stack())
		os.Exit(2)
	}
}
