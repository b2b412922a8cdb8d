package plugin

import (
	"errors"
	"testing"
)

// TestMetadataValidation tests plugin metadata validation.
func TestMetadataValidation(t *testing.T) {
	tests := []struct {
		name      string
		metadata  Metadata
		expectErr bool
	}{
		{
			name: "valid metadata",
			metadata: Metadata{
				Name:        "blog",
				Version:     "0.1",
				Description: "Blog posts",
			},
			expectErr: false,
		},
		{
			name:      "missing name",
			metadata:  Metadata{Version: "0.1"},
			expectErr: true,
		},
		{
			name:      "missing version",
			metadata:  Metadata{Name: "blog"},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.metadata.Validate()
			if tt.expectErr && err == nil {
				t.Error("expected error but got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// TestMetadataString tests the metadata string form.
func TestMetadataString(t *testing.T) {
	m := Metadata{Name: "blog", Version: "0.1"}
	if got := m.String(); got != "blog@0.1" {
		t.Errorf("String() = %q, want %q", got, "blog@0.1")
	}
}

// TestPluginError tests error wrapping.
func TestPluginError(t *testing.T) {
	cause := errors.New("boom")
	err := NewError("blog", "setup", cause)

	if got := err.Error(); got != "plugin blog failed during setup: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}
