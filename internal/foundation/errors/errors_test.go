package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "config.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid configuration" {
			t.Errorf("expected message 'invalid configuration', got %s", err.Message())
		}

		file, exists := err.Context().GetString("file")
		if !exists || file != "config.yaml" {
			t.Errorf("expected context file=config.yaml, got %v", file)
		}
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		err := fmt.Errorf("read doc: %w", DocsError("missing author").Build())

		if !HasCategory(err, CategoryDocs) {
			t.Error("expected wrapped error to have docs category")
		}
		if GetCategory(errors.New("plain")) != CategoryInternal {
			t.Error("expected unclassified error to map to internal")
		}
	})

	t.Run("Config errors are fatal and not retryable", func(t *testing.T) {
		err := ConfigError("bad").Build()
		if err.CanRetry() {
			t.Error("expected config error to not be retryable")
		}
		if !err.IsFatal() {
			t.Error("expected config error to be fatal")
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	originalErr := errors.New("original error")
	err := WrapError(originalErr, CategoryNetwork, "nats publish failed").
		Warning().
		Retryable().
		WithContext("subject", "docblog.build").
		Build()

	if !errors.Is(err, originalErr) {
		t.Error("expected wrapped error to unwrap to the original")
	}
	if !err.CanRetry() {
		t.Error("expected backoff error to be retryable")
	}
	if got := err.Error(); got != "[network:warning] nats publish failed: original error" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestErrorContextMerge(t *testing.T) {
	a := ErrorContext{"a": 1, "b": 1}
	b := ErrorContext{"b": 2}

	merged := a.Merge(b)
	if merged["a"] != 1 || merged["b"] != 2 {
		t.Errorf("unexpected merge result %v", merged)
	}
	if a["b"] != 1 {
		t.Error("merge must not modify the receiver")
	}
}

func TestWithContextDoesNotMutate(t *testing.T) {
	base := DocsError("bad directive").Build()
	derived := base.WithContext("docname", "posts/a")

	if _, ok := base.Context().Get("docname"); ok {
		t.Error("WithContext must not modify the original error")
	}
	if v, _ := derived.Context().GetString("docname"); v != "posts/a" {
		t.Errorf("expected docname context, got %q", v)
	}
}
