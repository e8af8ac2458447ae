// Package sra reads SRA experiment package documents and flattens them into
// table records.
package sra

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
)

const (
	// RecordTag names the element that delimits one experiment package in an
	// efetch response.
	RecordTag = "EXPERIMENT_PACKAGE"

	// ErrorTag names the element the remote service uses to report a failure.
	ErrorTag = "ERROR"
)

// ErrSchema matches every schema failure.
var ErrSchema = errors.New("document schema violation")

// SchemaError reports a required element missing from a document.
type SchemaError struct {
	// ID is the document's primary id, when it could be read.
	ID string
	// Path is the lookup that found nothing.
	Path string
	// Reason optionally explains a malformed value.
	Reason string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	doc := "document"
	if e.ID != "" {
		doc = fmt.Sprintf("document %s", e.ID)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s: %s", doc, e.Path, e.Reason)
	}
	return fmt.Sprintf("%s: required element %s not found", doc, e.Path)
}

// Is matches ErrSchema.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// Document is one experiment package subtree. It is opaque except for the
// lookups the collator performs.
type Document struct {
	root *xmlquery.Node
}

// NewDocument wraps an EXPERIMENT_PACKAGE element node.
func NewDocument(root *xmlquery.Node) *Document {
	return &Document{root: root}
}

// ParseDocument parses a standalone EXPERIMENT_PACKAGE subtree.
func ParseDocument(r io.Reader) (*Document, error) {
	top, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", RecordTag, err)
	}
	for n := top.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return NewDocument(n), nil
		}
	}
	return nil, &SchemaError{Path: RecordTag}
}

// Root returns the underlying element node.
func (d *Document) Root() *xmlquery.Node {
	return d.root
}

// one returns the first node matching expr, or a SchemaError.
func (d *Document) one(expr string) (*xmlquery.Node, error) {
	n := xmlquery.FindOne(d.root, expr)
	if n == nil {
		return nil, &SchemaError{Path: expr}
	}
	return n, nil
}

// oneText returns the trimmed own text of the first node matching expr.
func (d *Document) oneText(expr string) (string, error) {
	n, err := d.one(expr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(ownText(n)), nil
}

// ownText concatenates the direct text children of n, ignoring the text of
// nested elements.
func ownText(n *xmlquery.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.TextNode || c.Type == xmlquery.CharDataNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// attr returns the value of the named attribute and whether it is present.
func attr(n *xmlquery.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}
