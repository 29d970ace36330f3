// Package xmlresult builds the XML documents every tool returns: success
// envelopes, error envelopes, and aggregated resource pools.
package xmlresult

import (
	"fmt"

	"github.com/beevik/etree"
)

// Kind classifies a tool-level failure. It never appears on the wire.
type Kind int

const (
	WriteDisabled Kind = iota + 1
	InvalidIdentifier
	InvalidParameter
	UnknownOperation
	IllegalStateTransition
	StatusFetchFailed
	StatusParseFailed
	ExecutionFailed
	BatchExecutionFailed
	IdExtractionFailed
	EmptyTarget
)

var kindNames = map[Kind]string{
	WriteDisabled:          "write_disabled",
	InvalidIdentifier:      "invalid_identifier",
	InvalidParameter:       "invalid_parameter",
	UnknownOperation:       "unknown_operation",
	IllegalStateTransition: "illegal_state_transition",
	StatusFetchFailed:      "status_fetch_failed",
	StatusParseFailed:      "status_parse_failed",
	ExecutionFailed:        "execution_failed",
	BatchExecutionFailed:   "batch_execution_failed",
	IdExtractionFailed:     "id_extraction_failed",
	EmptyTarget:            "empty_target",
}

// String returns the snake_case name of k, used in logs and metrics labels.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// WriteDisabledMessage is the fixed message returned when a mutating tool is
// invoked on a read-only server.
const WriteDisabledMessage = "Write operations are disabled on this MCP instance."

// Error is a classified tool failure rendered as <error><message/></error>.
type Error struct {
	Kind    Kind
	Message string
}

// Errorf builds an Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrWriteDisabled returns the WriteDisabled error.
func ErrWriteDisabled() *Error {
	return &Error{Kind: WriteDisabled, Message: WriteDisabledMessage}
}

func (e *Error) Error() string {
	return e.Message
}

// XML renders the error envelope.
func (e *Error) XML() string {
	doc := newDocument()
	root := doc.CreateElement("error")
	root.CreateElement("message").SetText(e.Message)
	return render(doc)
}

// Field is one named child of a success envelope.
type Field struct {
	Name  string
	Value string
}

// F is shorthand for constructing a Field.
func F(name, value string) Field {
	return Field{Name: name, Value: value}
}

// Result renders <result> with one child per field, in the given order.
func Result(fields ...Field) string {
	doc := newDocument()
	root := doc.CreateElement("result")
	for _, f := range fields {
		root.CreateElement(f.Name).SetText(f.Value)
	}
	return render(doc)
}

// Bool renders b the way envelopes echo boolean parameters.
func Bool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.WriteSettings.CanonicalText = true
	return doc
}

func render(doc *etree.Document) string {
	s, err := doc.WriteToString()
	if err != nil {
		// Writing to an in-memory buffer only fails on a broken token tree.
		return "<error><message>failed to render XML</message></error>"
	}
	return s
}
