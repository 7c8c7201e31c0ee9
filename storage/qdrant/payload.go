package qdrant

import (
	"github.com/poiesic/nameres/core"
	"github.com/qdrant/go-client/qdrant"
)

func toPayload(p *core.Payload) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		keyID:            qdrant.NewValueString(p.ID),
		keyLabel:         qdrant.NewValueString(p.Label),
		keySynonyms:      stringList(p.Synonyms),
		keyTypes:         stringList(p.Types),
		keyCategory:      qdrant.NewValueString(p.Category),
		keyEmbeddedLabel: qdrant.NewValueString(p.EmbeddedLabel),
	}
}

func fromPayload(m map[string]*qdrant.Value) core.Payload {
	return core.Payload{
		ID:            m[keyID].GetStringValue(),
		Label:         m[keyLabel].GetStringValue(),
		Synonyms:      stringValues(m[keySynonyms]),
		Types:         stringValues(m[keyTypes]),
		Category:      m[keyCategory].GetStringValue(),
		EmbeddedLabel: m[keyEmbeddedLabel].GetStringValue(),
	}
}

func stringList(values []string) *qdrant.Value {
	list := make([]*qdrant.Value, len(values))
	for i, v := range values {
		list[i] = qdrant.NewValueString(v)
	}
	return qdrant.NewValueFromList(list...)
}

// stringValues reads a list value; non-string elements are skipped.
func stringValues(v *qdrant.Value) []string {
	values := v.GetListValue().GetValues()
	out := make([]string, 0, len(values))
	for _, item := range values {
		if s, ok := item.GetKind().(*qdrant.Value_StringValue); ok {
			out = append(out, s.StringValue)
		}
	}
	return out
}
