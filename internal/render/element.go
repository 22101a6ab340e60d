// Package render draws hotspot shapes into DOM-equivalent element trees.
package render

import (
	"bytes"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// SVGNamespace is the namespace of elements created for polygon shapes.
const SVGNamespace = "http://www.w3.org/2000/svg"

// Pointer events dispatched by the viewport.
const (
	EventPointerEnter = "mouseenter"
	EventPointerLeave = "mouseleave"
)

// Element is a minimal DOM node. Attribute and style maps are serialised in
// key order so equal trees always produce equal markup.
type Element struct {
	Tag       string
	Namespace string
	Class     string
	Attrs     map[string]string
	Style     map[string]string
	Text      string
	Children  []*Element
	Parent    *Element

	listeners map[string][]func()
}

// NewElement returns an empty HTML element.
func NewElement(tag string) *Element {
	return &Element{
		Tag:   tag,
		Attrs: make(map[string]string),
		Style: make(map[string]string),
	}
}

// NewSVGElement returns an empty element in the SVG namespace.
func NewSVGElement(tag string) *Element {
	el := NewElement(tag)
	el.Namespace = SVGNamespace
	return el
}

// Append adds child as the last child of e and returns child.
func (e *Element) Append(child *Element) *Element {
	child.Parent = e
	e.Children = append(e.Children, child)
	return child
}

// Remove detaches child from e. It reports whether child was found.
func (e *Element) Remove(child *Element) bool {
	for i, c := range e.Children {
		if c == child {
			e.Children = append(e.Children[:i], e.Children[i+1:]...)
			child.Parent = nil
			return true
		}
	}
	return false
}

// HasClass reports whether name is one of e's classes.
func (e *Element) HasClass(name string) bool {
	for _, c := range strings.Fields(e.Class) {
		if c == name {
			return true
		}
	}
	return false
}

// FindByClass returns every descendant of e (e included) carrying class, in
// document order.
func (e *Element) FindByClass(class string) []*Element {
	var out []*Element
	e.walk(func(el *Element) {
		if el.HasClass(class) {
			out = append(out, el)
		}
	})
	return out
}

// FindByAttr returns the first descendant whose attribute key equals value.
func (e *Element) FindByAttr(key, value string) *Element {
	var found *Element
	e.walk(func(el *Element) {
		if found == nil && el.Attrs[key] == value {
			found = el
		}
	})
	return found
}

func (e *Element) walk(fn func(*Element)) {
	fn(e)
	for _, c := range e.Children {
		c.walk(fn)
	}
}

// On registers fn for event.
func (e *Element) On(event string, fn func()) {
	if e.listeners == nil {
		e.listeners = make(map[string][]func())
	}
	e.listeners[event] = append(e.listeners[event], fn)
}

// Dispatch runs the listeners registered for event on e.
func (e *Element) Dispatch(event string) {
	for _, fn := range e.listeners[event] {
		fn()
	}
}

// StyleString renders the inline style declaration.
func (e *Element) StyleString() string {
	if len(e.Style) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Style))
	for k := range e.Style {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(e.Style[k])
		b.WriteByte(';')
	}
	return b.String()
}

func (e *Element) node() *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: e.Tag}
	if e.Namespace == SVGNamespace {
		n.Namespace = "svg"
	}
	if e.Class != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: e.Class})
	}

	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: e.Attrs[k]})
	}
	if style := e.StyleString(); style != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: style})
	}

	if e.Text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: e.Text})
	}
	for _, c := range e.Children {
		n.AppendChild(c.node())
	}
	return n
}

// HTML serialises e and its subtree.
func (e *Element) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.node()); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// px formats a pixel length.
func px(v float64) string {
	return formatFloat(v) + "px"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ApplyScale sets a uniform centred scale transform on e.
func ApplyScale(e *Element, scale float64) {
	e.Style["transform"] = "scale(" + formatFloat(scale) + ")"
	e.Style["transform-origin"] = "center center"
}
