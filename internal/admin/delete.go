package admin

import (
	"fmt"

	"ldapadm/internal/ldap"
)

// frame is one node of the deletion traversal. A node is pushed once,
// expanded into its children on first visit, and deleted when it surfaces
// again with all children already gone.
type frame struct {
	dn       string
	expanded bool
}

// DeleteSubtree removes every entry at or below baseDN, children before
// parents, since the directory refuses to delete non-leaf entries. The
// traversal reuses the one connection for the whole walk. In dry-run mode
// it prints the deletion order without issuing deletes; the one-level
// searches that drive the walk still run. A missing base is treated as an
// already-empty subtree.
func (e *Executor) DeleteSubtree(conn ldap.Conn, baseDN string, apply bool) error {
	stack := []frame{{dn: baseDN}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.expanded {
			dn := top.dn
			stack = stack[:len(stack)-1]

			if !apply {
				if _, err := fmt.Fprintf(e.Out, "Would delete: %s\n", dn); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(e.Out, "Deleting: %s\n", dn); err != nil {
				return err
			}
			if err := conn.Delete(dn); err != nil {
				return err
			}
			continue
		}

		top.expanded = true
		children, err := listChildren(conn, top.dn)
		if err != nil {
			if ldap.IsNotFoundError(err) && top.dn == baseDN {
				e.Log.WithField("dn", baseDN).Debug("subtree does not exist, nothing to delete")
				return nil
			}
			return err
		}

		// Children go on the stack in reverse so they surface in
		// server order.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{dn: children[i]})
		}
	}

	return nil
}

func listChildren(conn ldap.Conn, dn string) ([]string, error) {
	result, err := conn.Search(&ldap.SearchRequest{
		BaseDN:     dn,
		Scope:      ldap.ScopeSingleLevel,
		Filter:     "(objectClass=*)",
		Attributes: []string{"1.1"},
	})
	if err != nil {
		return nil, err
	}

	children := make([]string, 0, len(result.Entries))
	for _, entry := range result.Entries {
		children = append(children, entry.DN)
	}
	return children, nil
}
