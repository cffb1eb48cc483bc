package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with ID",
			err:      &NotFoundError{Resource: "history", ID: "book/GEN.SFM"},
			wantMsg:  "history not found: book/GEN.SFM",
			wantBase: ErrNotFound,
		},
		{
			name:     "without ID",
			err:      &NotFoundError{Resource: "repository"},
			wantMsg:  "repository not found",
			wantBase: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}
}

func TestParseError(t *testing.T) {
	err := NewParse("verse range", "3-", "expected verse after dash")
	if got, want := err.Error(), `failed to parse verse range "3-": expected verse after dash`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ParseError should unwrap to ErrInvalidInput")
	}

	noInput := &ParseError{Format: "hg log", Message: "no entries"}
	if got, want := noInput.Error(), "failed to parse hg log: no entries"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidation("chapter", "must not be empty")
	if got, want := err.Error(), "validation failed for chapter: must not be empty"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should unwrap to ErrInvalidInput")
	}
}

func TestIOError(t *testing.T) {
	underlying := fmt.Errorf("exit status 255")
	err := NewIO("cat", "GEN.SFM", underlying)
	if got, want := err.Error(), "failed to cat GEN.SFM: exit status 255"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, underlying) {
		t.Error("IOError should unwrap to the underlying error")
	}
	var ioErr *IOError
	if !As(Wrap(err, "walk"), &ioErr) {
		t.Error("As should find IOError through Wrap")
	}
}

func TestUnsupportedError(t *testing.T) {
	err := NewUnsupported("archive", "expected .tar.gz or .tar.xz")
	if got, want := err.Error(), "unsupported archive: expected .tar.gz or .tar.xz"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, ErrUnsupported) {
		t.Error("UnsupportedError should unwrap to ErrUnsupported")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}
