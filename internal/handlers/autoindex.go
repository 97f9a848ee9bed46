package handlers

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Autoindex generates a minimal HTML directory listing for dir, mounted
// at urlPath. spec.md sketches directory-listing generation as an
// external collaborator (§1); original_source's method handlers fall
// back to one when no index file exists and autoindex is enabled, which
// is not excluded by any Non-goal, so it is implemented here.
func Autoindex(dir, urlPath string) ([]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>Index of %s</title></head><body>\n", urlPath)
	fmt.Fprintf(&b, "<h1>Index of %s</h1><ul>\n", urlPath)
	if urlPath != "/" {
		b.WriteString(`<li><a href="../">../</a></li>` + "\n")
	}
	for _, e := range entries {
		name := e.Name()
		href := name
		if e.IsDir() {
			href += "/"
		}
		fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", href, href)
	}
	b.WriteString("</ul></body></html>")
	return []byte(b.String()), nil
}
