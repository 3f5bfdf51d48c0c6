package quota

import (
	"fmt"
	"strings"
)

// TopLevel marks a Violation that concerns the payload itself rather than one declaration.
const TopLevel = -1

// Violation describes one way a quota payload failed its structural contract.
type Violation struct {
	Index   int    `json:"index"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	var sb strings.Builder
	if v.Index == TopLevel {
		sb.WriteString("quotas")
	} else {
		fmt.Fprintf(&sb, "quotas[%d]", v.Index)
	}
	if v.Field != "" {
		sb.WriteString(".")
		sb.WriteString(v.Field)
	}
	sb.WriteString(": ")
	sb.WriteString(v.Message)
	return sb.String()
}

// Violations is the full batch found in one pass; validation never partially accepts.
type Violations []Violation

func (vs Violations) Error() string {
	msgs := make([]string, len(vs))
	for i, v := range vs {
		msgs[i] = v.String()
	}
	return strings.Join(msgs, "; ")
}

func atTopLevel(msg string, args ...any) Violation {
	return Violation{Index: TopLevel, Message: fmt.Sprintf(msg, args...)}
}

func atIndex(index int, field string, msg string, args ...any) Violation {
	return Violation{Index: index, Field: field, Message: fmt.Sprintf(msg, args...)}
}
