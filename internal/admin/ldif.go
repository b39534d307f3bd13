package admin

import (
	"fmt"
	"io"
	"sort"
)

// RenderLDIF writes the change as an LDIF record. Attribute names are
// emitted in a fixed order (objectClass first, the rest sorted) so the
// output is deterministic for a given change.
func RenderLDIF(w io.Writer, change Change) error {
	if _, err := fmt.Fprintf(w, "dn: %s\n", change.DN); err != nil {
		return err
	}

	switch change.Kind {
	case OpAdd:
		if _, err := fmt.Fprintln(w, "changetype: add"); err != nil {
			return err
		}
		for _, attr := range attributeOrder(change.Attributes) {
			for _, value := range change.Attributes[attr] {
				if _, err := fmt.Fprintf(w, "%s: %s\n", attr, value); err != nil {
					return err
				}
			}
		}

	case OpModify:
		if _, err := fmt.Fprintln(w, "changetype: modify"); err != nil {
			return err
		}
		for _, mod := range change.Mods {
			if _, err := fmt.Fprintf(w, "%s: %s\n", mod.Op, mod.Attr); err != nil {
				return err
			}
			for _, value := range mod.Values {
				if _, err := fmt.Fprintf(w, "%s: %s\n", mod.Attr, value); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintln(w, "-"); err != nil {
				return err
			}
		}

	case OpDelete:
		if _, err := fmt.Fprintln(w, "changetype: delete"); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}

// attributeOrder returns the attribute names with objectClass first and the
// remainder sorted, matching conventional LDIF layout.
func attributeOrder(attrs map[string][]string) []string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		if name != "objectClass" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	if _, ok := attrs["objectClass"]; ok {
		names = append([]string{"objectClass"}, names...)
	}
	return names
}
