package schema

import "fmt"

// SchemaLoadError reports a malformed schema document. It is fatal: the
// shell refuses to start on a broken schema rather than failing at runtime.
type SchemaLoadError struct {
	Path string // schema path of the offending node, space-joined
	Msg  string
}

func (e *SchemaLoadError) Error() string {
	if e.Path == "" {
		return "schema: " + e.Msg
	}
	return fmt.Sprintf("schema: %s: %s", e.Path, e.Msg)
}

// ValidationError reports a token that failed its validator or an
// unrecognized action. Offset is the byte position of the token in the
// original input line, for cursor placement. It is recoverable: the
// command is rejected and the session continues.
type ValidationError struct {
	Token  string
	Offset int
	Msg    string
}

func (e *ValidationError) Error() string { return e.Msg }
