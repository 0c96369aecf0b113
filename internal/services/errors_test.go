package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	underlying := errors.New("boom")
	err := Wrap(ErrInference, "classifying", "parse payload", "model returned garbage", underlying)
	if !errors.Is(err, ErrInference) {
		t.Fatalf("expected inference marker, got %v", err)
	}
	if !errors.Is(err, underlying) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"classifying", "parse payload", "model returned garbage", "boom"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "placing", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"extraction", Wrap(ErrExtraction, "extracting", "", "", nil), "extraction"},
		{"inference", Wrap(ErrInference, "classifying", "", "", nil), "inference"},
		{"exhausted", Wrap(ErrValidationExhausted, "validating", "", "", nil), "validation_exhausted"},
		{"placement", Wrap(ErrPlacement, "placing", "", "", nil), "placement"},
		{"configuration", Wrap(ErrConfiguration, "preflight", "", "", nil), "configuration"},
		{"other", errors.New("weird"), "transient"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ErrorKind(tc.err); got != tc.want {
				t.Fatalf("ErrorKind = %q, want %q", got, tc.want)
			}
		})
	}
}
