// Package pathtemplate resolves the `%X`-escaped destination path templates
// used by both the intake server and the destination writer.
package pathtemplate

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/kpcyrd/brchd/internal/brchderr"
)

const randomTokenChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultTemplate is used when no template is configured.
const DefaultTemplate = "%p"

// Context is the resolver input: the template plus everything it can
// substitute. Time is UTC wall-clock unless overridden (tests freeze it).
type Context struct {
	Format   string
	Time     time.Time
	Remote   string // remote identifier, or "local"
	Filename string // last path component
	Path     string // relative path as provided by the producer
	FullPath string // full/original path if available; falls back to Path
}

// NewContext builds a Context with the current UTC time.
func NewContext(format, remote, filename, path, fullPath string) Context {
	return Context{
		Format:   format,
		Time:     time.Now().UTC(),
		Remote:   remote,
		Filename: filename,
		Path:     path,
		FullPath: fullPath,
	}
}

// Resolve renders the template, returning the rendered path and whether the
// result is deterministic (false iff the template contains a %r token).
// Unknown escapes and a trailing '%' are errors.
func (c Context) Resolve() (string, bool, error) {
	fullPath := c.FullPath
	if fullPath == "" {
		fullPath = c.Path
	}

	var out strings.Builder
	deterministic := true

	runes := []rune(c.Format)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if ch != '%' {
			out.WriteRune(ch)
			continue
		}

		i++
		if i >= len(runes) {
			return "", false, brchderr.ErrUnterminatedEscape
		}

		switch runes[i] {
		case '%':
			out.WriteByte('%')
		case 'Y':
			fmt.Fprintf(&out, "%04d", c.Time.Year())
		case 'm':
			fmt.Fprintf(&out, "%02d", c.Time.Month())
		case 'd':
			fmt.Fprintf(&out, "%02d", c.Time.Day())
		case 'H':
			fmt.Fprintf(&out, "%02d", c.Time.Hour())
		case 'M':
			fmt.Fprintf(&out, "%02d", c.Time.Minute())
		case 'S':
			fmt.Fprintf(&out, "%02d", c.Time.Second())
		case 'h':
			out.WriteString(c.Remote)
		case 'f':
			out.WriteString(c.Filename)
		case 'p':
			out.WriteString(c.Path)
		case 'P':
			out.WriteString(fullPath)
		case 'r':
			deterministic = false
			token, err := randomToken(6)
			if err != nil {
				return "", false, err
			}
			out.WriteString(token)
		default:
			return "", false, brchderr.ErrInvalidEscape
		}
	}

	return out.String(), deterministic, nil
}

// randomToken returns n random alphanumeric characters drawn from
// crypto/rand, matching the entropy of the source's thread_rng+Alphanumeric
// sampling (62 possible characters per position).
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating random token: %w", err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = randomTokenChars[int(b)%len(randomTokenChars)]
	}
	return string(out), nil
}
