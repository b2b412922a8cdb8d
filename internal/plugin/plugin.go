// Package plugin keeps the catalogue of build extensions that a
// configuration can enable by name.
package plugin

import (
	"fmt"
)

// Plugin is anything with plugin metadata. Build extensions satisfy it and
// add their own setup method on top.
type Plugin interface {
	// Metadata returns the plugin's name, version and capabilities.
	Metadata() Metadata
}

// Metadata describes a plugin's identity and how the build may schedule it.
type Metadata struct {
	// Name is the unique plugin identifier (e.g., "blog").
	Name string

	// Version is the plugin version (e.g., "0.1").
	Version string

	// Description provides a human-readable summary of the plugin's purpose.
	Description string

	// ParallelReadSafe reports whether documents may be read in parallel
	// workers while the plugin is loaded.
	ParallelReadSafe bool

	// ParallelWriteSafe reports whether outputs may be written in parallel
	// while the plugin is loaded.
	ParallelWriteSafe bool

	// Dependencies lists other plugins this plugin requires.
	Dependencies []Dependency
}

// Dependency describes a required or optional plugin dependency.
type Dependency struct {
	// Name is the required plugin name.
	Name string

	// Optional indicates the dependency may be absent.
	Optional bool
}

// String returns a human-readable representation of the plugin metadata.
func (m Metadata) String() string {
	return fmt.Sprintf("%s@%s", m.Name, m.Version)
}

// Validate checks if the plugin metadata is valid.
func (m Metadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("plugin version is required")
	}
	return nil
}

// Error represents an error that occurred within a plugin.
type Error struct {
	// PluginName identifies which plugin failed.
	PluginName string

	// Operation describes what the plugin was doing when it failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("plugin %s failed during %s: %v", e.PluginName, e.Operation, e.Err)
}

// Unwrap returns the underlying error for error inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new plugin error.
func NewError(pluginName, operation string, err error) *Error {
	return &Error{
		PluginName: pluginName,
		Operation:  operation,
		Err:        err,
	}
}
