package ldap

import (
	"fmt"
	"strings"
)

// Standard organizational units of the managed tree.
const (
	UnitUsers  = "Users"
	UnitGroups = "Groups"
)

// BaseFromDomain derives the base DN from a dotted domain name.
// "example.org" becomes "dc=example,dc=org".
func BaseFromDomain(domain string) string {
	if domain == "" {
		return ""
	}

	parts := strings.Split(domain, ".")
	components := make([]string, 0, len(parts))
	for _, part := range parts {
		components = append(components, "dc="+part)
	}

	return strings.Join(components, ",")
}

// BuildDN constructs the distinguished name for a login inside one of the
// managed organizational units. Entries under the Users unit are keyed by
// uid, entries under every other unit (notably Groups) by cn.
//
// Construction is deterministic and never consults the directory.
func BuildDN(login, unit, base string) string {
	idAttr := "cn"
	if unit == UnitUsers {
		idAttr = "uid"
	}

	return fmt.Sprintf("%s=%s,ou=%s,%s", idAttr, EscapeDNValue(login), unit, base)
}

// UnitDN constructs the distinguished name of an organizational unit itself,
// e.g. "ou=Users,dc=example,dc=org".
func UnitDN(unit, base string) string {
	return fmt.Sprintf("ou=%s,%s", unit, base)
}

// EscapeDNValue escapes special characters in a DN attribute value according
// to RFC 4514.
//
// RFC 4514 defines the following escaping rules for DN attribute values:
// - Special characters that must be escaped: , + " \ < > ;
// - Leading # must be escaped
// - Leading and trailing spaces must be escaped
// - NULL bytes must be escaped as \00
func EscapeDNValue(value string) string {
	if value == "" {
		return value
	}

	var result strings.Builder
	result.Grow(len(value) + 10)

	for i, r := range value {
		switch r {
		case ',', '+', '"', '\\', '<', '>', ';':
			result.WriteRune('\\')
			result.WriteRune(r)
		case '#':
			// Leading # must be escaped
			if i == 0 {
				result.WriteRune('\\')
			}
			result.WriteRune(r)
		case ' ':
			// Leading and trailing spaces must be escaped
			if i == 0 || i == len(value)-1 {
				result.WriteRune('\\')
			}
			result.WriteRune(r)
		case 0:
			result.WriteString("\\00")
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// UnescapeDNValue removes RFC 4514 escaping from a DN attribute value.
// It is the inverse operation of EscapeDNValue.
func UnescapeDNValue(value string) string {
	if value == "" || !strings.Contains(value, "\\") {
		return value
	}

	var result strings.Builder
	result.Grow(len(value))

	escaped := false
	hexBuffer := make([]rune, 0, 2)

	for i, r := range value {
		if escaped {
			// Handle hex escapes like \00
			if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F') {
				hexBuffer = append(hexBuffer, r)
				if len(hexBuffer) == 2 {
					var hexValue int
					for _, h := range hexBuffer {
						hexValue = hexValue * 16
						switch {
						case h >= '0' && h <= '9':
							hexValue += int(h - '0')
						case h >= 'a' && h <= 'f':
							hexValue += int(h - 'a' + 10)
						case h >= 'A' && h <= 'F':
							hexValue += int(h - 'A' + 10)
						}
					}
					result.WriteRune(rune(hexValue))
					hexBuffer = hexBuffer[:0]
					escaped = false
				}
				continue
			}

			// Started hex but got a non-hex char: emit what we buffered
			if len(hexBuffer) > 0 {
				result.WriteRune('\\')
				for _, h := range hexBuffer {
					result.WriteRune(h)
				}
				hexBuffer = hexBuffer[:0]
			}

			result.WriteRune(r)
			escaped = false
		} else if r == '\\' {
			if i == len(value)-1 {
				result.WriteRune(r) // Trailing backslash, keep as-is
			} else {
				escaped = true
			}
		} else {
			result.WriteRune(r)
		}
	}

	if escaped {
		result.WriteRune('\\')
	}
	if len(hexBuffer) > 0 {
		result.WriteRune('\\')
		for _, h := range hexBuffer {
			result.WriteRune(h)
		}
	}

	return result.String()
}

// LoginFromDN extracts the leading RDN value from a DN, e.g.
// "uid=jane,ou=Users,dc=example,dc=org" yields "jane". Returns the input
// unchanged when it does not look like a DN.
func LoginFromDN(dn string) string {
	first := dn
	for i := 0; i < len(dn); i++ {
		switch dn[i] {
		case '\\':
			i++ // Skip the escaped character
		case ',':
			first = dn[:i]
			i = len(dn)
		}
	}

	_, value, found := strings.Cut(first, "=")
	if !found {
		return dn
	}

	return UnescapeDNValue(value)
}
