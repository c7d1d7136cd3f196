package document

import "strings"

// Field names of a document compound.
const (
	TypeKey = "hexcasting:type"
	DataKey = "hexcasting:data"
)

// Field names inside dict data.
const (
	DictKeysKey   = "k"
	DictValuesKey = "v"
)

// Kind classifies a document tag by its local name.
type Kind int

const (
	// KindOpaque covers every tag the sanitizer has no rule for.
	KindOpaque Kind = iota
	KindList
	KindDict
	KindEntity
	KindGarbage
	KindString
	KindNumber
)

// String returns the local name associated with the kind.
func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	case KindEntity:
		return "entity"
	case KindGarbage:
		return "garbage"
	case KindString:
		return "string"
	case KindNumber:
		return "double"
	default:
		return "opaque"
	}
}

// KindOf classifies tag. Namespaces are ignored: "hexcasting:list" and
// "list" are both KindList.
func KindOf(tag string) Kind {
	switch LocalName(tag) {
	case "list":
		return KindList
	case "dict":
		return KindDict
	case "entity":
		return KindEntity
	case "garbage":
		return KindGarbage
	case "string":
		return KindString
	case "double":
		return KindNumber
	default:
		return KindOpaque
	}
}

// LocalName returns the part of tag after its last ':'.
func LocalName(tag string) string {
	if i := strings.LastIndexByte(tag, ':'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

// WithLocalName swaps the local name of tag, keeping its namespace.
func WithLocalName(tag, local string) string {
	if i := strings.LastIndexByte(tag, ':'); i >= 0 {
		return tag[:i+1] + local
	}
	return local
}

// Document is a typed view over a document compound.
type Document struct {
	Tag  string
	Data Value
}

// Kind classifies the document's tag.
func (d Document) Kind() Kind {
	return KindOf(d.Tag)
}

// New builds a document compound.
func New(tag string, data Value) Compound {
	return Compound{C(TypeKey, String(tag)), C(DataKey, data)}
}

// As interprets v as a document. It reports false unless v is a Compound
// whose TypeKey field is a String. A missing data field reads as an
// empty Compound.
func As(v Value) (Document, bool) {
	c, ok := v.(Compound)
	if !ok {
		return Document{}, false
	}
	t, ok := c.Get(TypeKey)
	if !ok {
		return Document{}, false
	}
	tag, ok := t.(String)
	if !ok {
		return Document{}, false
	}
	data, ok := c.Get(DataKey)
	if !ok {
		data = Compound{}
	}
	return Document{Tag: string(tag), Data: data}, true
}

// NewList builds a list document.
func NewList(namespace string, items ...Value) Compound {
	return New(namespace+":list", List(items))
}

// NewDict builds a dict document from parallel key and value lists.
func NewDict(namespace string, keys, values List) Compound {
	return New(namespace+":dict", Compound{C(DictKeysKey, keys), C(DictValuesKey, values)})
}

// NewGarbage builds an empty garbage document.
func NewGarbage(namespace string) Compound {
	return New(namespace+":garbage", Compound{})
}
