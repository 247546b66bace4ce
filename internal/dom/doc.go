/*
Package dom provides the in-memory document tree the preview engine mutates.

A Page wraps a parsed golang.org/x/net/html node tree together with a goquery
document for CSS selection and the page's navigation location. Elements are
plain *html.Node values, so element identity is pointer identity and the
tracking maps in the preview package key directly on the node pointer.

Selector resolution accepts CSS selectors (cascadia, via goquery) and XPath
expressions (antchfx/htmlquery) for selectors starting with "//" or the
"xpath=" prefix, since visual editors commonly emit XPath.

The element helpers mirror the small slice of the browser DOM API the engine
needs: textContent, innerHTML, attributes, class list, and inline style
properties with per-property !important handling.
*/
package dom
