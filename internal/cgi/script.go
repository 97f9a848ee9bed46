package cgi

import (
	"os"
	"path"
	"strings"
)

// ResolveScript finds the longest prefix of uriAfterLocation such that
// cgiRoot/<prefix> exists and is executable, per spec §4.6. It returns
// the script's filesystem path, the URI's SCRIPT_NAME suffix (the
// matched prefix, to be prepended with the location prefix by the
// caller) and PATH_INFO (whatever follows, including its leading "/").
//
// ok is false when no such prefix exists (caller responds 404).
func ResolveScript(cgiRoot, uriAfterLocation string) (scriptPath, scriptName, pathInfo string, ok bool) {
	segments := strings.Split(strings.Trim(uriAfterLocation, "/"), "/")
	if uriAfterLocation == "" {
		segments = nil
	}

	// Walk from the longest candidate prefix down to the shortest so
	// that a deeper executable script (e.g. nested cgi-bin directories)
	// wins over a shallower one.
	for i := len(segments); i >= 1; i-- {
		candidate := path.Join(segments[:i]...)
		full := path.Join(cgiRoot, candidate)
		if isExecutableFile(full) {
			matched := "/" + candidate
			remainder := strings.TrimPrefix(uriAfterLocation, candidate)
			return full, matched, remainder, true
		}
	}
	return "", "", "", false
}

func isExecutableFile(p string) bool {
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0111 != 0
}
