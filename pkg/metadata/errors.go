package metadata

import (
    "errors"
    "fmt"
)

var (
    // ErrStructure reports a document that does not have the expected shape.
    ErrStructure = errors.New("metadata: malformed document")
    // ErrValue reports a numeric or name field that cannot be interpreted.
    ErrValue = errors.New("metadata: invalid value")
    // ErrConfig reports a builder missing a required field.
    ErrConfig = errors.New("metadata: invalid configuration")
)

// IndexError identifies the index, and the field when known, a failure
// belongs to. It unwraps to one of the sentinel errors above.
type IndexError struct {
    Index string
    Field string
    Err   error
}

func (e *IndexError) Error() string {
    if e.Field == "" {
        return fmt.Sprintf("index [%s]: %v", e.Index, e.Err)
    }
    return fmt.Sprintf("index [%s] field [%s]: %v", e.Index, e.Field, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

func indexErr(index, field string, kind error, format string, args ...any) error {
    return &IndexError{Index: index, Field: field, Err: fmt.Errorf("%w: "+format, append([]any{kind}, args...)...)}
}

// inIndex attaches index to err unless it already carries one.
func inIndex(index string, err error) error {
    var ie *IndexError
    if errors.As(err, &ie) { return err }
    return &IndexError{Index: index, Err: err}
}
