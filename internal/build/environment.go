package build

import (
	"sort"
	"strconv"

	"git.home.luguber.info/inful/docblog/internal/posts"
)

// DocInfo is what the environment remembers about a source document
// between builds.
type DocInfo struct {
	// RelPath is the slash separated source path relative to the source directory.
	RelPath string
	// Fingerprint identifies the content that was last read.
	Fingerprint string
	// Title is the first heading of the document, if any.
	Title string
}

// Environment is the build state shared by every document of one build and
// persisted between incremental builds.
type Environment struct {
	// Docname is the document being read. It is only set while reading.
	Docname string

	// Posts is the list of post records. Nil means no post has been
	// registered yet, which is distinct from an empty list.
	Posts *posts.List

	// Docs holds every document read so far.
	Docs map[string]DocInfo

	// Volatile lists documents that are read on every build because their
	// output depends on other documents.
	Volatile map[string]struct{}

	serials map[string]int
}

// NewEnvironment returns an empty environment.
func NewEnvironment() *Environment {
	return &Environment{
		Docs:     make(map[string]DocInfo),
		Volatile: make(map[string]struct{}),
	}
}

// BeginDocument prepares the environment for reading docname. Serial
// counters restart for every document so anchors stay stable when other
// documents change.
func (e *Environment) BeginDocument(docname string) {
	e.Docname = docname
	e.serials = make(map[string]int)
}

// EndDocument clears the per-document read state.
func (e *Environment) EndDocument() {
	e.Docname = ""
	e.serials = nil
}

// NewSerial returns the next serial number of category within the current
// document, starting at 0.
func (e *Environment) NewSerial(category string) int {
	if e.serials == nil {
		e.serials = make(map[string]int)
	}
	n := e.serials[category]
	e.serials[category] = n + 1
	return n
}

// NewID returns a document unique id of the form "<category>-<serial>".
func (e *Environment) NewID(category string) string {
	return category + "-" + strconv.Itoa(e.NewSerial(category))
}

// MarkVolatile flags docname to be read again on every build.
func (e *Environment) MarkVolatile(docname string) {
	e.Volatile[docname] = struct{}{}
}

// IsVolatile reports whether docname is read on every build.
func (e *Environment) IsVolatile(docname string) bool {
	_, ok := e.Volatile[docname]
	return ok
}

// Docnames returns the known documents in sorted order.
func (e *Environment) Docnames() []string {
	names := make([]string, 0, len(e.Docs))
	for name := range e.Docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// forget removes the host bookkeeping of docname. Extension state is
// removed by the purge hooks.
func (e *Environment) forget(docname string) {
	delete(e.Docs, docname)
	delete(e.Volatile, docname)
}

// Fork returns a copy for a parallel read worker. The worker starts from the
// same post list contents; records it adds are merged back by the merge hooks.
func (e *Environment) Fork() *Environment {
	child := NewEnvironment()
	for name, info := range e.Docs {
		child.Docs[name] = info
	}
	if e.Posts != nil {
		child.Posts = posts.NewList(e.Posts.Records()...)
	}
	return child
}

// absorb copies host bookkeeping for docnames from a worker environment.
func (e *Environment) absorb(docnames map[string]struct{}, other *Environment) {
	for name := range docnames {
		if info, ok := other.Docs[name]; ok {
			e.Docs[name] = info
		}
		if other.IsVolatile(name) {
			e.MarkVolatile(name)
		}
	}
}
