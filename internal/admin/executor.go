package admin

import (
	"fmt"
	"io"
	"sort"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/sirupsen/logrus"

	"ldapadm/internal/ldap"
)

// Executor applies changes to the directory or previews them as LDIF.
// Exactly one mode is selected per invocation; dry runs never touch the
// network, so Execute may be called with a nil connection in that case.
type Executor struct {
	Out io.Writer
	Log *logrus.Entry
}

// Execute performs the change. In dry-run mode it renders the change as an
// LDIF record and returns. In apply mode it issues the directory operation
// and, for adds and modifies, re-fetches the entry and prints it.
func (e *Executor) Execute(conn ldap.Conn, change Change, apply bool) error {
	if !apply {
		return RenderLDIF(e.Out, change)
	}

	var err error
	switch change.Kind {
	case OpAdd:
		e.Log.WithField("dn", change.DN).Debug("adding entry")
		err = conn.Add(&ldap.AddRequest{DN: change.DN, Attributes: change.Attributes})
	case OpModify:
		e.Log.WithField("dn", change.DN).Debug("modifying entry")
		err = conn.Modify(&ldap.ModifyRequest{DN: change.DN, Mods: change.Mods})
	case OpDelete:
		e.Log.WithField("dn", change.DN).Debug("deleting entry")
		err = conn.Delete(change.DN)
	default:
		return fmt.Errorf("unknown operation kind %d", change.Kind)
	}
	if err != nil {
		return err
	}

	// A deleted entry has nothing left to show.
	if change.Kind == OpDelete {
		return nil
	}

	entry, err := FetchEntry(conn, change.DN)
	if err != nil {
		return err
	}
	return PrintEntry(e.Out, entry)
}

// FetchEntry reads a single entry by DN.
func FetchEntry(conn ldap.Conn, dn string) (*goldap.Entry, error) {
	result, err := conn.Search(&ldap.SearchRequest{
		BaseDN: dn,
		Scope:  ldap.ScopeBaseObject,
		Filter: "(objectClass=*)",
	})
	if err != nil {
		return nil, err
	}
	if len(result.Entries) == 0 {
		return nil, &ldap.LDAPError{
			Operation: "search",
			Category:  ldap.ErrorCategoryNotFound,
			Info:      "No Such Object",
			DN:        dn,
		}
	}
	return result.Entries[0], nil
}

// SearchEntries runs a subtree search under base and returns the matching
// entries.
func SearchEntries(conn ldap.Conn, base, filter string) ([]*goldap.Entry, error) {
	result, err := conn.Search(&ldap.SearchRequest{
		BaseDN: base,
		Scope:  ldap.ScopeWholeSubtree,
		Filter: filter,
	})
	if err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// PrintEntry writes the entry with sorted attribute names, one value per
// line, followed by a blank line.
func PrintEntry(w io.Writer, entry *goldap.Entry) error {
	if _, err := fmt.Fprintf(w, "dn: %s\n", entry.DN); err != nil {
		return err
	}

	attrs := make([]*goldap.EntryAttribute, len(entry.Attributes))
	copy(attrs, entry.Attributes)
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Name < attrs[j].Name })

	for _, attr := range attrs {
		for _, value := range attr.Values {
			if _, err := fmt.Fprintf(w, "%s: %s\n", attr.Name, value); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}
