package manifest

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
)

var (
	quotedRE   = regexp.MustCompile(`^['"]([^'"]*)['"]$`)
	propertyRE = regexp.MustCompile(`^:(\w+)\s*=>\s*(.+)$`)
)

// Parse reads Puppetfile text and returns the declarations it
// contains. Statements may span multiple lines; a line ending in a
// comma continues on the next. Malformed statements are reported in
// File.Errors and do not stop the parse.
func Parse(r io.Reader) (*File, error) {
	f := &File{}

	scanner := bufio.NewScanner(r)
	var stmt strings.Builder
	stmtLine := 0
	lineNo := 0

	flush := func() {
		if stmt.Len() == 0 {
			return
		}
		parseStatement(f, strings.TrimSpace(stmt.String()), stmtLine)
		stmt.Reset()
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if stmt.Len() == 0 {
			stmtLine = lineNo
		} else {
			stmt.WriteByte(' ')
		}
		stmt.WriteString(line)

		if !strings.HasSuffix(line, ",") {
			flush()
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

// ParseFile parses the manifest at path.
func ParseFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(fh)
}

func parseStatement(f *File, stmt string, line int) {
	switch {
	case strings.HasPrefix(stmt, "forge"):
		if v, ok := unquote(strings.TrimSpace(strings.TrimPrefix(stmt, "forge"))); ok {
			f.Forge = v
			return
		}
		f.Errors = append(f.Errors, ParseError{line, "malformed forge directive"})
	case strings.HasPrefix(stmt, "mod"):
		parseMod(f, strings.TrimSpace(strings.TrimPrefix(stmt, "mod")), line)
	default:
		f.Errors = append(f.Errors, ParseError{line, "unrecognized statement: " + firstWord(stmt)})
	}
}

func parseMod(f *File, rest string, line int) {
	parts := splitArgs(rest)
	if len(parts) == 0 {
		f.Errors = append(f.Errors, ParseError{line, "mod statement without a module name"})
		return
	}

	name, ok := unquote(parts[0])
	if !ok || name == "" {
		f.Errors = append(f.Errors, ParseError{line, "mod statement without a quoted module name"})
		return
	}

	d := Declaration{Name: name, Source: SourceForge, Line: line}
	for _, arg := range parts[1:] {
		if m := propertyRE.FindStringSubmatch(arg); m != nil {
			val, vok := unquote(strings.TrimSpace(m[2]))
			if !vok {
				// Bare symbols like :latest carry no value.
				val = ""
			}
			switch m[1] {
			case "git":
				d.Source = SourceGit
				d.RepoURL = val
			case "ref", "branch", "commit":
				d.Ref = val
			case "tag":
				d.Tag = val
			case "latest":
				// Explicit "track latest" marker: leave the version empty.
			default:
				f.Errors = append(f.Errors, ParseError{line, "unknown mod property :" + m[1]})
			}
			continue
		}
		if v, vok := unquote(arg); vok {
			d.Version = v
			continue
		}
		f.Errors = append(f.Errors, ParseError{line, "malformed mod argument: " + arg})
	}

	if d.Source == SourceGit {
		d.Version = ""
		if d.RepoURL == "" {
			f.Errors = append(f.Errors, ParseError{line, "git module without a repository URL"})
			return
		}
	}
	f.Declarations = append(f.Declarations, d)
}

// splitArgs splits a statement body on top-level commas, keeping
// ":key => 'value'" pairs intact.
func splitArgs(s string) []string {
	var args []string
	depth := 0
	inQuote := byte(0)
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
		case c == '\'' || c == '"':
			inQuote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == ',' && depth == 0:
			if a := strings.TrimSpace(s[start:i]); a != "" {
				args = append(args, a)
			}
			start = i + 1
		}
	}
	if a := strings.TrimSpace(s[start:]); a != "" {
		args = append(args, a)
	}
	return args
}

func unquote(s string) (string, bool) {
	if m := quotedRE.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	return "", false
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
