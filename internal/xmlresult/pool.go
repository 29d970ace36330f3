package xmlresult

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Collection wrapper names used by the aggregating tools.
const (
	VMPool          = "VM_POOL"
	HostPool        = "HOST_POOL"
	MarketAppPool   = "MARKETPLACEAPP_POOL"
	errorMarkerName = "ERROR"
)

// ErrNoRoot is returned when a document parses but carries no root element.
var ErrNoRoot = errors.New("document has no root element")

// Parse parses raw as an XML document and returns its root element.
func Parse(raw string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(strings.TrimSpace(raw)); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, ErrNoRoot
	}
	return root, nil
}

// ChildText returns the trimmed text of the first element matching path
// below el, and whether it was found.
func ChildText(el *etree.Element, path string) (string, bool) {
	child := el.FindElement(path)
	if child == nil {
		return "", false
	}
	return strings.TrimSpace(child.Text()), true
}

// Pool accumulates member documents under one collection wrapper.
type Pool struct {
	doc  *etree.Document
	root *etree.Element
}

// NewPool returns an empty pool wrapped in an element called name.
func NewPool(name string) *Pool {
	doc := newDocument()
	return &Pool{doc: doc, root: doc.CreateElement(name)}
}

// Append parses raw and adds its root element to the pool.
func (p *Pool) Append(raw string) error {
	el, err := Parse(raw)
	if err != nil {
		return err
	}
	p.AppendElement(el)
	return nil
}

// AppendElement adds a copy of el to the pool.
func (p *Pool) AppendElement(el *etree.Element) {
	p.root.AddChild(el.Copy())
}

// AppendError adds an inline failure marker for the member identified by id.
func (p *Pool) AppendError(id, message string) {
	marker := p.root.CreateElement(errorMarkerName)
	marker.CreateElement("ID").SetText(id)
	marker.CreateElement("MESSAGE").SetText(message)
}

// Len reports the number of members, error markers included.
func (p *Pool) Len() int {
	return len(p.root.ChildElements())
}

// String renders the pool document.
func (p *Pool) String() string {
	return render(p.doc)
}

// Filter parses a pool document and returns a new pool with the same wrapper
// name holding only the members for which keep returns true.
func Filter(raw string, keep func(*etree.Element) bool) (*Pool, error) {
	root, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	out := NewPool(root.Tag)
	for _, member := range root.ChildElements() {
		if keep(member) {
			out.AppendElement(member)
		}
	}
	return out, nil
}
