package types

import (
	"errors"
	"fmt"
	"testing"
)

// TestAppErrorImplementsError verifies that *AppError satisfies the error interface.
func TestAppErrorImplementsError(t *testing.T) {
	var _ error = (*AppError)(nil)
}

// TestAppErrorErrorFormat verifies the Error() method produces "code: message".
func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeRangeFrame,
		Message: "frame 3 outside [0, 3)",
	}

	expected := "range_frame_out_of_bounds: frame 3 outside [0, 3)"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

// TestAppErrorErrorFormatWithCause verifies the cause is appended to the message.
func TestAppErrorErrorFormatWithCause(t *testing.T) {
	appErr := NewAppError(ErrCodeLoadMalformed, "cannot load zips.geojson", errors.New("unexpected EOF"))

	expected := "load_malformed: cannot load zips.geojson: unexpected EOF"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

// TestAppErrorUnwrap verifies the error chain support via Unwrap.
func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("no such file")
	appErr := NewLoadError(ErrCodeLoadFileMissing, "city.geojson", underlying)

	if appErr.Unwrap() != underlying {
		t.Errorf("Unwrap() returned unexpected error: got %v, want %v", appErr.Unwrap(), underlying)
	}
	if !errors.Is(appErr, underlying) {
		t.Error("errors.Is should find the underlying error")
	}
}

// TestAppErrorErrorsAs verifies that errors.As can extract AppError from an error chain.
func TestAppErrorErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("advance failed: %w", NewRangeError(-1, 3))

	var target *AppError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find AppError in the chain")
	}
	if target.Code != ErrCodeRangeFrame {
		t.Errorf("extracted Code = %q, want %q", target.Code, ErrCodeRangeFrame)
	}
	if target.Details["index"] != -1 {
		t.Errorf("Details[index] = %v, want -1", target.Details["index"])
	}
}

// TestWithDetailsDoesNotMutate verifies WithDetails returns a merged copy.
func TestWithDetailsDoesNotMutate(t *testing.T) {
	orig := NewLookupError("2019-12-01", "2020-01-31", "2020-03-31")
	copied := orig.WithDetails(map[string]any{"caller": "jump"})

	if _, ok := orig.Details["caller"]; ok {
		t.Error("WithDetails mutated the original error")
	}
	if copied.Details["caller"] != "jump" || copied.Details["date"] != "2019-12-01" {
		t.Errorf("merged details = %v", copied.Details)
	}
}

// TestErrorPredicates verifies the taxonomy helpers across wrapped chains.
func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name                  string
		err                   error
		load, rangeE, lookupE bool
	}{
		{"load", NewLoadError(ErrCodeLoadMalformed, "x", nil), true, false, false},
		{"range", fmt.Errorf("wrap: %w", NewRangeError(5, 3)), false, true, false},
		{"lookup", NewLookupError("a", "b", "c"), false, false, true},
		{"plain", errors.New("boom"), false, false, false},
		{"nil", nil, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLoadError(tt.err); got != tt.load {
				t.Errorf("IsLoadError = %v, want %v", got, tt.load)
			}
			if got := IsRangeError(tt.err); got != tt.rangeE {
				t.Errorf("IsRangeError = %v, want %v", got, tt.rangeE)
			}
			if got := IsLookupError(tt.err); got != tt.lookupE {
				t.Errorf("IsLookupError = %v, want %v", got, tt.lookupE)
			}
		})
	}
}

// TestErrorCodeExitCode verifies the category to exit status mapping.
func TestErrorCodeExitCode(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeLoadFileMissing, ExitLoad},
		{ErrCodeLoadInvalidZip, ExitLoad},
		{ErrCodeRangeFrame, ExitUsage},
		{ErrCodeLookupDate, ExitUsage},
		{ErrCodeConfigUnknownPalette, ExitUsage},
		{ErrCodeRenderSink, ExitRender},
		{ErrCodeInternalUnexpected, ExitInternal},
		{ErrorCode("something_else"), ExitInternal},
	}
	for _, tt := range tests {
		if got := tt.code.ExitCode(); got != tt.want {
			t.Errorf("%s.ExitCode() = %d, want %d", tt.code, got, tt.want)
		}
	}
}

// TestCodeOfPlainError verifies non-AppErrors map to the internal code.
func TestCodeOfPlainError(t *testing.T) {
	if got := CodeOf(errors.New("x")); got != ErrCodeInternalUnexpected {
		t.Errorf("CodeOf(plain) = %q", got)
	}
}

func TestParseZip(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"60601", 60601, true},
		{"60601-1234", 60601, true},
		{" 60622 ", 60622, true},
		{"IL 60614", 60614, true},
		{"6060", 0, false},
		{"", 0, false},
		{"N/A", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseZip(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseZip(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
