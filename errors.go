package formic

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorSource is the origin bucket of an error message. Buckets are cleared
// independently: a server-reported duplicate-email error survives a client
// re-validation pass and vice versa.
type ErrorSource string

const (
	SourceSync   ErrorSource = "sync"
	SourceAsync  ErrorSource = "async"
	SourceSchema ErrorSource = "schema"
	SourceServer ErrorSource = "server"
	SourceManual ErrorSource = "manual"
)

// sourceOrder fixes the concatenation order of a path's flat error list.
var sourceOrder = [...]ErrorSource{SourceSync, SourceAsync, SourceSchema, SourceServer, SourceManual}

// Issue represents a single validation entry.
type Issue struct {
	Path    string // dotted path (for example: items.2.price); "" is form level
	Source  ErrorSource
	Message string
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		p := it.Path
		if p == "" {
			p = "(form)"
		}
		fmt.Fprintf(b, "%s: %s", p, it.Message)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// ByPath groups the issues' messages by path.
func (iss Issues) ByPath() map[string][]string {
	out := map[string][]string{}
	for _, it := range iss {
		out[it.Path] = append(out[it.Path], it.Message)
	}
	return out
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// ErrSuperseded is returned by a submission that lost to a newer one. The
// loser's outcome is discarded entirely.
var ErrSuperseded = errors.New("formic: superseded by a newer submission")

// ErrNoSubmitHandler is returned by Submit when the config carries no
// handler.
var ErrNoSubmitHandler = errors.New("formic: no submit handler configured")
