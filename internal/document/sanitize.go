package document

import "github.com/samber/lo"

// Sanitize returns v with every entity document redacted.
//
// Entity documents are replaced by an empty garbage document of the same
// namespace. Everything else is reproduced field for field, descending
// into lists, dicts, opaque document data, extra document fields and
// plain containers, so the encoded form of anything not redacted is
// unchanged.
//
// Sanitize is total, deterministic and idempotent. It never mutates v.
func Sanitize(v Value) Value {
	switch val := v.(type) {
	case Compound:
		if doc, ok := As(val); ok {
			return sanitizeDocument(val, doc)
		}
		return sanitizeFields(val)
	case List:
		return sanitizeList(val)
	default:
		return v
	}
}

func sanitizeDocument(c Compound, doc Document) Compound {
	if doc.Kind() == KindEntity {
		// extra fields go too; they may carry the same identifying data
		return New(WithLocalName(doc.Tag, KindGarbage.String()), Compound{})
	}

	out := make(Compound, len(c))
	for i, f := range c {
		if f.Name == DataKey {
			out[i] = Field{Name: DataKey, Value: sanitizeData(doc)}
			continue
		}
		out[i] = Field{Name: f.Name, Value: Sanitize(f.Value)}
	}
	return out
}

// sanitizeData cleans a document's data. Data that does not have the
// shape its tag promises is walked like any other value.
func sanitizeData(doc Document) Value {
	switch doc.Kind() {
	case KindList:
		if items, ok := doc.Data.(List); ok {
			return sanitizeList(items)
		}
	case KindDict:
		if kv, ok := doc.Data.(Compound); ok {
			return sanitizeDict(kv)
		}
	}
	return Sanitize(doc.Data)
}

// sanitizeDict cleans both halves of a dict. Keys may themselves be
// documents (entity keys are legal in game) so both lists are walked.
func sanitizeDict(kv Compound) Compound {
	out := make(Compound, len(kv))
	for i, f := range kv {
		switch f.Name {
		case DictKeysKey, DictValuesKey:
			if items, ok := f.Value.(List); ok {
				out[i] = Field{Name: f.Name, Value: sanitizeList(items)}
				continue
			}
		}
		out[i] = Field{Name: f.Name, Value: Sanitize(f.Value)}
	}
	return out
}

func sanitizeList(items List) List {
	return lo.Map(items, func(item Value, _ int) Value {
		return Sanitize(item)
	})
}

func sanitizeFields(c Compound) Compound {
	return lo.Map(c, func(f Field, _ int) Field {
		return Field{Name: f.Name, Value: Sanitize(f.Value)}
	})
}
