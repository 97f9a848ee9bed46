package config

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

// Load reads and parses a configuration file, returning the immutable
// Config the core consumes.
//
// The format is a flat, nginx-like directive grammar: one directive per
// line, tokens separated by whitespace, an optional trailing semicolon,
// and `location <prefix> { ... }` blocks. This is tokenized the way the
// original implementation's config reader does it — line by line, a
// keyword switch, and a boolean "inside a location block" flag — rather
// than with a general-purpose serialization library, since the grammar
// is bespoke to this project and not JSON/YAML/TOML.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errAt(0, "could not open config file: %v", err)
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) (*Config, error) {
	cfg := &Config{
		ClientMaxBodySize: 1 << 20, // 1 MiB default
		ErrorPages:        make(map[int]string),
	}

	var (
		insideLocation bool
		current        Location
		lineNo         int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		tokens := tokenize(line)
		if len(tokens) == 0 {
			continue
		}
		keyword, args := tokens[0], tokens[1:]

		switch {
		case keyword == "}":
			if !insideLocation {
				return nil, errAt(lineNo, "unexpected '}' outside location block")
			}
			if err := finalizeLocation(&current); err != nil {
				return nil, errAt(lineNo, "%s", err)
			}
			if err := addLocation(cfg, current); err != nil {
				return nil, errAt(lineNo, "%s", err)
			}
			insideLocation = false
			current = Location{}

		case insideLocation:
			if err := applyLocationDirective(&current, keyword, args); err != nil {
				return nil, errAt(lineNo, "%s", err)
			}

		case keyword == "listen":
			port, err := parsePort(args)
			if err != nil {
				return nil, errAt(lineNo, "%s", err)
			}
			cfg.Listen = append(cfg.Listen, port)

		case keyword == "root":
			if len(args) != 1 {
				return nil, errAt(lineNo, "root requires exactly one path")
			}
			cfg.Root = args[0]

		case keyword == "client_max_body_size":
			size, err := parseSize(args)
			if err != nil {
				return nil, errAt(lineNo, "%s", err)
			}
			cfg.ClientMaxBodySize = size

		case keyword == "error_page":
			code, path, err := parseErrorPage(args)
			if err != nil {
				return nil, errAt(lineNo, "%s", err)
			}
			cfg.ErrorPages[code] = path

		case keyword == "location":
			if len(args) == 0 {
				return nil, errAt(lineNo, "location requires a path prefix")
			}
			current = Location{Path: stripSemicolon(args[0])}
			insideLocation = true

		default:
			return nil, errAt(lineNo, "unknown directive %q", keyword)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errAt(lineNo, "read error: %v", err)
	}
	if insideLocation {
		return nil, errAt(lineNo, "unterminated location block")
	}
	if len(cfg.Listen) == 0 {
		return nil, errAt(0, "at least one listen directive is required")
	}
	if cfg.Root == "" {
		return nil, errAt(0, "root directive is required")
	}

	return cfg, nil
}

// tokenize splits a directive line on whitespace, stripping a trailing
// semicolon from the final token (the `{` that opens a location block
// carries no semicolon and is left as its own token).
func tokenize(line string) []string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return fields
	}
	last := len(fields) - 1
	if fields[last] == "{" {
		// `location /path {` — drop the brace, it's implicit.
		return fields[:last]
	}
	fields[last] = stripSemicolon(fields[last])
	return fields
}

func stripSemicolon(tok string) string {
	return strings.TrimSuffix(tok, ";")
}

func parsePort(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errAt(0, "listen requires exactly one port")
	}
	port, err := strconv.Atoi(args[0])
	if err != nil || port <= 0 || port > 65535 {
		return 0, errAt(0, "invalid listen port %q", args[0])
	}
	return port, nil
}

func parseSize(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errAt(0, "client_max_body_size requires exactly one value")
	}
	size, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || size < 0 {
		return 0, errAt(0, "invalid client_max_body_size %q", args[0])
	}
	return size, nil
}

func parseErrorPage(args []string) (int, string, error) {
	if len(args) != 2 {
		return 0, "", errAt(0, "error_page requires a code and a path")
	}
	code, err := strconv.Atoi(args[0])
	if err != nil || code < 100 || code > 599 {
		return 0, "", errAt(0, "invalid error_page status code %q", args[0])
	}
	return code, args[1], nil
}

func applyLocationDirective(loc *Location, keyword string, args []string) error {
	switch keyword {
	case "root":
		if len(args) != 1 {
			return errAt(0, "location root requires exactly one path")
		}
		loc.Root = args[0]
	case "index":
		if len(args) != 1 {
			return errAt(0, "index requires exactly one filename")
		}
		loc.Index = args[0]
	case "methods":
		if len(args) == 0 {
			return errAt(0, "methods requires at least one verb")
		}
		for _, m := range args {
			loc.Methods = append(loc.Methods, Method(strings.ToUpper(m)))
		}
	case "cgi_extension":
		if len(args) != 1 {
			return errAt(0, "cgi_extension requires exactly one extension")
		}
		loc.CGIExtension = args[0]
	case "cgi_root":
		if len(args) != 1 {
			return errAt(0, "cgi_root requires exactly one path")
		}
		loc.CGIRoot = args[0]
	case "upload_dir":
		if len(args) != 1 {
			return errAt(0, "upload_dir requires exactly one path")
		}
		loc.UploadDir = args[0]
	case "autoindex":
		if len(args) != 1 {
			return errAt(0, "autoindex requires on|off")
		}
		loc.Autoindex = args[0] == "on"
	case "return":
		if len(args) != 2 {
			return errAt(0, "return requires a status code and a url")
		}
		code, err := strconv.Atoi(args[0])
		if err != nil {
			return errAt(0, "invalid return status code %q", args[0])
		}
		loc.Redirect = &Redirect{Code: code, URL: args[1]}
	default:
		return errAt(0, "unknown location directive %q", keyword)
	}
	return nil
}

// finalizeLocation applies defaults the way the original config reader
// does at the close of a location block.
func finalizeLocation(loc *Location) error {
	if loc.Index == "" {
		loc.Index = "index.html"
	}
	if len(loc.Methods) == 0 {
		loc.Methods = []Method{MethodGet}
	}
	return nil
}

func addLocation(cfg *Config, loc Location) error {
	for _, existing := range cfg.Locations {
		if existing.Path == loc.Path {
			return errAt(0, "duplicate location path %q", loc.Path)
		}
	}
	cfg.Locations = append(cfg.Locations, loc)
	return nil
}
