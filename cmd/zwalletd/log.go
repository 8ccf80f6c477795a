// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/robustfengbin/zwallet/rpcclient"
	"github.com/robustfengbin/zwallet/scan"
	"github.com/robustfengbin/zwallet/transfer"
)

// logWriter implements an io.Writer that outputs to both standard
// output and the write-end pipe of an initialized log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

var (
	backendLog = btclog.NewBackend(logWriter{})
	logRotator *rotator.Rotator

	zwltLog = backendLog.Logger("ZWLT")
	scanLog = backendLog.Logger("SCAN")
	rpccLog = backendLog.Logger("RPCC")
	xferLog = backendLog.Logger("XFER")
)

func init() {
	scan.UseLogger(scanLog)
	rpcclient.UseLogger(rpccLog)
	transfer.UseLogger(xferLog)
}

// initLogRotator initializes the logging rotator to write logs to
// logFile and create roll files in the same directory.
func initLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("create log rotator: %w", err)
	}
	logRotator = r
	return nil
}

// setLogLevels sets the logging level for all subsystems.
func setLogLevels(levelStr string) error {
	level, ok := btclog.LevelFromString(levelStr)
	if !ok {
		return fmt.Errorf("invalid debug level %q", levelStr)
	}
	for _, logger := range []btclog.Logger{zwltLog, scanLog, rpccLog, xferLog} {
		logger.SetLevel(level)
	}
	return nil
}
