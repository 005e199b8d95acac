package docex

import (
	"errors"
	"io/fs"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&ErrPathEscape{Path: "../x.pdf"}, "path escapes document root: ../x.pdf"},
		{&ErrNotFound{Path: "a.pdf", Root: "/docs"}, "pdf not found: a.pdf (looked in /docs)"},
		{&ErrCorruptDocument{Path: "a.pdf", Err: errors.New("malformed xref")}, "cannot open pdf a.pdf: malformed xref"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestErrCorruptDocumentUnwrap(t *testing.T) {
	err := &ErrCorruptDocument{Path: "a.pdf", Err: fs.ErrPermission}
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("errors.Is did not see the wrapped cause")
	}
}
