package nav

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/lintel/internal/dom"
)

// Defaults for the menu markup contract.
const (
	DefaultMenuClass    = "menu"
	DefaultCurrentClass = "current-menu-item"
)

// Alias lets a parameterized page count as part of a static section: when
// the current path contains Page and a link path contains Section, the link
// is current.
type Alias struct {
	Page    string
	Section string
}

// DefaultAliases keeps dataset-pages.html?name=... under the datasets link.
var DefaultAliases = []Alias{
	{Page: "dataset-pages.html", Section: "datasets"},
}

// Matcher marks menu links that point at the current page.
type Matcher struct {
	MenuClass    string
	CurrentClass string
	Aliases      []Alias
}

// NewMatcher returns a Matcher using the default classes and aliases.
func NewMatcher() Matcher {
	return Matcher{
		MenuClass:    DefaultMenuClass,
		CurrentClass: DefaultCurrentClass,
		Aliases:      DefaultAliases,
	}
}

// IsExternal reports whether href points at another origin.
func IsExternal(href string) bool {
	return strings.Contains(href, "://")
}

// IsCurrent reports whether a link to href should be marked current on the
// page whose normalized path is current.
func (m Matcher) IsCurrent(current Path, href string) bool {
	link := Normalize(href)
	// Normalize maps both "" and "/" to Root, so the root rule is equality.
	if link == current {
		return true
	}
	for _, a := range m.Aliases {
		if a.Page == "" || a.Section == "" {
			continue
		}
		if strings.Contains(string(current), strings.ToLower(a.Page)) &&
			strings.Contains(string(link), strings.ToLower(a.Section)) {
			return true
		}
	}
	return false
}

// Apply walks every a[href] under container that sits inside a menu and
// updates the enclosing li: the current one gets the marker class and
// aria-current="page", the others lose both. Links to other origins and
// links outside an li are left alone. Apply returns the number of links
// marked current and is safe to call repeatedly.
func (m Matcher) Apply(container *html.Node, current Path) int {
	if container == nil {
		return 0
	}
	menuClass := m.MenuClass
	if menuClass == "" {
		menuClass = DefaultMenuClass
	}
	currentClass := m.CurrentClass
	if currentClass == "" {
		currentClass = DefaultCurrentClass
	}

	links := dom.FindAll(container, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.A {
			return false
		}
		_, ok := dom.Attr(n, "href")
		return ok && dom.HasAncestorClass(n, menuClass)
	})

	marked := 0
	for _, a := range links {
		href, _ := dom.Attr(a, "href")
		if IsExternal(href) {
			continue
		}
		li := dom.Closest(a, atom.Li)
		if li == nil {
			continue
		}
		if m.IsCurrent(current, href) {
			dom.AddClass(li, currentClass)
			dom.SetAttr(li, "aria-current", "page")
			marked++
		} else {
			dom.RemoveClass(li, currentClass)
			dom.RemoveAttr(li, "aria-current")
		}
	}
	return marked
}
