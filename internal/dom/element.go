package dom

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// IsStructural reports whether a node is a structural container (the
// document itself, or html/head/body). Restoring innerHTML on these would
// destroy host-injected nodes that are not part of any captured snapshot.
func IsStructural(n *html.Node) bool {
	if n == nil {
		return false
	}
	if n.Type == html.DocumentNode {
		return true
	}
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Html, atom.Head, atom.Body:
		return true
	}
	return false
}

// Text returns the concatenated text content of a node's subtree.
func Text(n *html.Node) string {
	var buf bytes.Buffer
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			buf.WriteString(c.Data)
		}
		return true
	})
	return buf.String()
}

// SetText replaces a node's children with a single text node.
func SetText(n *html.Node, text string) {
	removeChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// InnerHTML serializes a node's children.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return buf.String()
		}
	}
	return buf.String()
}

// SetInnerHTML replaces a node's children with a parsed HTML fragment. The
// fragment is parsed in the context of an element with the node's tag so
// parser recovery matches what a browser would do.
func SetInnerHTML(n *html.Node, fragment string) error {
	ctx := &html.Node{Type: html.ElementNode, Data: n.Data, DataAtom: n.DataAtom}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return fmt.Errorf("parse fragment: %w", err)
	}

	removeChildren(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

// CreateElement builds a detached element node.
func CreateElement(tag string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

// Remove detaches a node from its parent.
func Remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// GetAttr returns an attribute value, or "" when absent.
func GetAttr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether an attribute is present.
func HasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

// SetAttr adds or overwrites an attribute.
func SetAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr deletes an attribute if present.
func RemoveAttr(n *html.Node, name string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Attrs returns a copy of the node's attributes.
func Attrs(n *html.Node) map[string]string {
	out := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		out[a.Key] = a.Val
	}
	return out
}

// ClassList returns the node's classes in document order.
func ClassList(n *html.Node) []string {
	return strings.Fields(GetAttr(n, "class"))
}

// SetClassList replaces the class attribute wholesale.
func SetClassList(n *html.Node, classes []string) {
	SetAttr(n, "class", strings.Join(classes, " "))
}

// AddClass appends a class if not already present.
func AddClass(n *html.Node, class string) {
	if class == "" {
		return
	}
	for _, c := range ClassList(n) {
		if c == class {
			return
		}
	}
	classes := append(ClassList(n), class)
	SetClassList(n, classes)
}

func removeChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}
