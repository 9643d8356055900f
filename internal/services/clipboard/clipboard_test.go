package clipboard

import (
	"errors"
	"testing"
)

func TestServiceCopyDelegatesToWriter(t *testing.T) {
	var captured string
	service := &Service{writeAll: func(text string) error {
		captured = text
		return nil
	}}
	if err := service.Copy("listing"); err != nil {
		t.Fatalf("Copy error: %v", err)
	}
	if captured != "listing" {
		t.Fatalf("expected clipboard to receive %q, got %q", "listing", captured)
	}
}

func TestServiceCopyWrapsWriterError(t *testing.T) {
	writerErr := errors.New("no display")
	service := &Service{writeAll: func(string) error { return writerErr }}
	err := service.Copy("listing")
	if !errors.Is(err, writerErr) {
		t.Fatalf("expected wrapped writer error, got %v", err)
	}
}

func TestZeroServiceReportsUnsupported(t *testing.T) {
	var service *Service
	if err := service.Copy("listing"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
