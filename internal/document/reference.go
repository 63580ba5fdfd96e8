package document

import "strings"

// refPrefix marks a string value as a pointer into the vault rather than
// the secret itself.
const refPrefix = "SEC:"

// Reference is a resolved secret reference. The Account locates exactly one
// secretized field within one service's document.
type Reference struct {
	Account string
}

// NewReference creates a Reference for the given vault account.
func NewReference(account string) Reference {
	return Reference{Account: account}
}

// ParseReference reports whether v is a secret reference string and, if so,
// returns the parsed reference. All reference detection goes through this
// function; nothing else inspects the prefix.
func ParseReference(v any) (Reference, bool) {
	s, ok := v.(string)
	if !ok {
		return Reference{}, false
	}
	account, ok := strings.CutPrefix(s, refPrefix)
	if !ok {
		return Reference{}, false
	}
	return Reference{Account: account}, true
}

// String renders the reference in its on-disk form.
func (r Reference) String() string {
	return refPrefix + r.Account
}
