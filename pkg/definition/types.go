package definition

import (
	"sort"

	"github.com/goliatone/go-tablebuttons/pkg/button"
)

// Control keys consumed by the builder. Every other key of an entry becomes a
// button attribute.
const (
	keyRaw         = "raw"
	keyCan         = "can"
	keyIf          = "if"
	keyTextKey     = "textKey"
	keyButtons     = button.KeyButtons
	keyFormButtons = button.KeyFormButtons
)

// Catalog keeps the toolbars parsed from definition documents. It is safe for
// concurrent readers when treated as immutable after construction.
type Catalog struct {
	toolbars map[string]Toolbar
}

// Toolbar is a named, ordered list of button entries.
type Toolbar struct {
	Name    string
	Source  string
	Entries []Entry
}

// Entry describes one button. A plain string entry in a document is stored
// as Shorthand and builds with button.Make.
type Entry struct {
	Shorthand   string
	Raw         bool
	Can         string
	If          string
	TextKey     string
	Attributes  *button.Attributes
	Buttons     []Entry
	FormButtons []Entry
}

// Toolbar returns the toolbar registered under name.
func (c *Catalog) Toolbar(name string) (Toolbar, bool) {
	if c == nil {
		return Toolbar{}, false
	}
	tb, ok := c.toolbars[name]
	return tb, ok
}

// Names returns the toolbar names sorted alphabetically.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.toolbars))
	for name := range c.toolbars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether the catalog holds any toolbars.
func (c *Catalog) Empty() bool {
	return c == nil || len(c.toolbars) == 0
}

func (e Entry) options() any {
	if e.Shorthand != "" {
		return e.Shorthand
	}
	if e.Attributes == nil {
		return nil
	}
	return e.Attributes
}
