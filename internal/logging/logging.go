// Package logging wraps a single *logrus.Logger used throughout the
// server (spec §10.1 of SPEC_FULL.md), the way docker-compose's
// containerd daemon threads one package-level logrus instance through
// its supervisor instead of passing *log.Logger by hand.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the logger used by cmd/webserv. verbose maps to
// logrus.DebugLevel; otherwise logrus.InfoLevel.
func New(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.Out = os.Stderr
	log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

// Access logs one completed response (spec §10.1 "access logging once
// per response").
func Access(log *logrus.Logger, remote, method, path string, status int, bytes int) {
	log.WithFields(logrus.Fields{
		"remote": remote,
		"method": method,
		"path":   path,
		"status": status,
		"bytes":  bytes,
	}).Info("request")
}

// CGIStderr logs one line drained from a CGI child's stderr pipe (spec
// §12 "CGI stderr draining").
func CGIStderr(log *logrus.Logger, pid int, line string) {
	log.WithFields(logrus.Fields{
		"cgi_pid": pid,
	}).Warn(line)
}
