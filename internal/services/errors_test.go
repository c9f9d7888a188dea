package services

import (
	"errors"
	"testing"
)

func TestWrapTagsWithMarker(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Wrap(ErrExternalTool, "lame", "encode", "track 3", cause)

	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("marker lost: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
	want := "external tool error: lame: encode: track 3: exit status 1"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap(ErrConfiguration, "gracenote", "", "client id missing", nil)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("marker lost: %v", err)
	}
	want := "configuration error: gracenote: client id missing"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if err.Error() != "transient failure: service failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
