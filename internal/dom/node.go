package dom

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ElementByID returns the first element under root whose id equals id.
func ElementByID(root *html.Node, id string) *html.Node {
	if root == nil || id == "" {
		return nil
	}
	if root.Type == html.ElementNode {
		if v, ok := Attr(root, "id"); ok && v == id {
			return root
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := ElementByID(c, id); n != nil {
			return n
		}
	}
	return nil
}

// FindAll returns the descendants of root (root excluded) for which match
// returns true, in document order.
func FindAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if match(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets attribute key on n, replacing any existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes attribute key from n.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// HasClass reports whether class is in n's class list.
func HasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	v, _ := Attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends class to n's class list if it is not already present.
func AddClass(n *html.Node, class string) {
	if HasClass(n, class) {
		return
	}
	v, _ := Attr(n, "class")
	fields := append(strings.Fields(v), class)
	SetAttr(n, "class", strings.Join(fields, " "))
}

// RemoveClass drops class from n's class list. The attribute is removed
// when the list becomes empty.
func RemoveClass(n *html.Node, class string) {
	v, ok := Attr(n, "class")
	if !ok {
		return
	}
	var keep []string
	for _, c := range strings.Fields(v) {
		if c != class {
			keep = append(keep, c)
		}
	}
	if len(keep) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(keep, " "))
}

// Closest returns n or its nearest ancestor that is an element of type a.
func Closest(n *html.Node, a atom.Atom) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && n.DataAtom == a {
			return n
		}
	}
	return nil
}

// HasAncestorClass reports whether any ancestor of n carries class.
func HasAncestorClass(n *html.Node, class string) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if HasClass(p, class) {
			return true
		}
	}
	return false
}

// RemoveChildren detaches every child of n.
func RemoveChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, text string) {
	RemoveChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// TextContent concatenates the text nodes under n.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// ParseFragment parses src as the content of context and returns the
// resulting top-level nodes, detached and ready to be appended.
func ParseFragment(src string, context *html.Node) ([]*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(src), context)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	return nodes, nil
}

// AppendChildren appends nodes to parent after its existing children.
func AppendChildren(parent *html.Node, nodes []*html.Node) {
	for _, n := range nodes {
		parent.AppendChild(n)
	}
}

// InnerHTML serializes the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}
