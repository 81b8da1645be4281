package lineutil

import (
	"errors"
	"fmt"
	"strings"
)

// PostbackSplitChar separates the action from its parameters.
const PostbackSplitChar = "$"

// Postback is a decoded postback payload of the form "module:action$p0$p1".
type Postback struct {
	Module string
	Action string
	Params []string
}

// Encode returns the wire form of p. Parameters must not contain the split char.
func (p Postback) Encode() string {
	var b strings.Builder
	b.WriteString(p.Module)
	b.WriteByte(':')
	b.WriteString(p.Action)
	for _, param := range p.Params {
		b.WriteString(PostbackSplitChar)
		b.WriteString(param)
	}
	return b.String()
}

// Param returns the i-th parameter, or "" if absent.
func (p Postback) Param(i int) string {
	if i < 0 || i >= len(p.Params) {
		return ""
	}
	return p.Params[i]
}

// ParsePostback decodes data produced by Postback.Encode.
func ParsePostback(data string) (Postback, error) {
	if len(data) > MaxPostbackData {
		return Postback{}, fmt.Errorf("invalid postback: %d bytes exceeds %d", len(data), MaxPostbackData)
	}
	module, rest, ok := strings.Cut(data, ":")
	if !ok || module == "" {
		return Postback{}, errors.New("invalid postback format: missing ':' separator")
	}
	parts := strings.Split(rest, PostbackSplitChar)
	if parts[0] == "" {
		return Postback{}, errors.New("invalid postback format: missing action")
	}
	return Postback{Module: module, Action: parts[0], Params: parts[1:]}, nil
}
