package alias

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is an alias-analysis result.
type Kind string

const (
	NoAlias      Kind = "NoAlias"
	MustAlias    Kind = "MustAlias"
	PartialAlias Kind = "PartialAlias"
	MayAlias     Kind = "MayAlias"
)

// Kinds lists every kind in code order.
var Kinds = []Kind{NoAlias, MustAlias, PartialAlias, MayAlias}

// Code is the single-digit protocol answer sent to the oracle.
type Code uint8

const (
	CodeNoAlias      Code = 0
	CodeMustAlias    Code = 1
	CodePartialAlias Code = 2
	CodeMayAlias     Code = 3
)

// ParseKind maps a kind token read from the oracle to a Kind.
// Unknown tokens yield a PROTOCOL_VIOLATION error.
func ParseKind(token string) (Kind, error) {
	switch Kind(token) {
	case NoAlias, MustAlias, PartialAlias, MayAlias:
		return Kind(token), nil
	}
	return "", NewProtocolViolation(fmt.Sprintf("unknown alias result %q", token))
}

// Code returns the protocol code for k.
// Panics on a kind that did not come from ParseKind or the constants above.
func (k Kind) Code() Code {
	switch k {
	case NoAlias:
		return CodeNoAlias
	case MustAlias:
		return CodeMustAlias
	case PartialAlias:
		return CodePartialAlias
	case MayAlias:
		return CodeMayAlias
	}
	panic(fmt.Sprintf("alias: no code for kind %q", string(k)))
}

// Valid reports whether c is one of the four protocol codes.
func (c Code) Valid() bool {
	return c <= CodeMayAlias
}

// Kind returns the kind encoded by c.
func (c Code) Kind() (Kind, error) {
	if !c.Valid() {
		return "", fmt.Errorf("invalid alias code %d", c)
	}
	return Kinds[c], nil
}

// Wire returns the protocol frame for c without the newline.
func (c Code) Wire() string {
	return strconv.Itoa(int(c))
}

// String returns the kind name, or the raw number for invalid codes.
func (c Code) String() string {
	k, err := c.Kind()
	if err != nil {
		return strconv.Itoa(int(c))
	}
	return string(k)
}

// ParseCode parses a user-supplied override. Accepts a digit ("1") or a
// kind name, case-insensitively ("MustAlias", "mustalias").
func ParseCode(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > int(CodeMayAlias) {
			return 0, fmt.Errorf("alias code %d out of range [0,3]", n)
		}
		return Code(n), nil
	}
	for _, k := range Kinds {
		if strings.EqualFold(s, string(k)) {
			return k.Code(), nil
		}
	}
	return 0, fmt.Errorf("unknown alias code %q", s)
}
