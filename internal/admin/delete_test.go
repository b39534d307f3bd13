package admin

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ldapadm/internal/ldap"
)

// buildTree seeds the fake with ou=Users (one child) and ou=Groups (empty).
func buildTree(conn *fakeConn) (usersDN, groupsDN, childDN string) {
	usersDN = "ou=Users," + testBase
	groupsDN = "ou=Groups," + testBase
	childDN = "uid=u1," + usersDN

	conn.entries[usersDN] = ldap.Attributes{"ou": {"Users"}}
	conn.entries[groupsDN] = ldap.Attributes{"ou": {"Groups"}}
	conn.entries[childDN] = ldap.Attributes{"uid": {"u1"}}
	conn.children[usersDN] = []string{childDN}
	return
}

func TestDeleteSubtreePostOrder(t *testing.T) {
	conn := newFakeConn()
	usersDN, groupsDN, childDN := buildTree(conn)

	var out bytes.Buffer
	exec := &Executor{Out: &out, Log: testLogger()}

	require.NoError(t, exec.DeleteSubtree(conn, groupsDN, true))
	require.NoError(t, exec.DeleteSubtree(conn, usersDN, true))

	// Children strictly before parents.
	assert.Equal(t, []string{groupsDN, childDN, usersDN}, conn.deleted)
	assert.Equal(t, "Deleting: "+groupsDN+"\nDeleting: "+childDN+"\nDeleting: "+usersDN+"\n", out.String())
}

func TestDeleteSubtreeDeepNesting(t *testing.T) {
	conn := newFakeConn()
	root := "ou=Users," + testBase
	mid := "ou=Staff," + root
	leaf1 := "uid=a," + mid
	leaf2 := "uid=b," + mid

	for _, dn := range []string{root, mid, leaf1, leaf2} {
		conn.entries[dn] = ldap.Attributes{}
	}
	conn.children[root] = []string{mid}
	conn.children[mid] = []string{leaf1, leaf2}

	var out bytes.Buffer
	exec := &Executor{Out: &out, Log: testLogger()}
	require.NoError(t, exec.DeleteSubtree(conn, root, true))

	assert.Equal(t, []string{leaf1, leaf2, mid, root}, conn.deleted)
}

func TestDeleteSubtreeDryRunDeletesNothing(t *testing.T) {
	conn := newFakeConn()
	usersDN, _, childDN := buildTree(conn)

	var out bytes.Buffer
	exec := &Executor{Out: &out, Log: testLogger()}
	require.NoError(t, exec.DeleteSubtree(conn, usersDN, false))

	assert.Empty(t, conn.deleted)
	assert.Equal(t, "Would delete: "+childDN+"\nWould delete: "+usersDN+"\n", out.String())

	for _, call := range conn.calls {
		assert.True(t, strings.HasPrefix(call, "search "), "unexpected call %s", call)
	}
}

func TestDeleteSubtreeMissingBaseIsEmpty(t *testing.T) {
	conn := newFakeConn()

	var out bytes.Buffer
	exec := &Executor{Out: &out, Log: testLogger()}
	err := exec.DeleteSubtree(conn, "ou=Users,"+testBase, true)

	require.NoError(t, err)
	assert.Empty(t, conn.deleted)
	assert.Empty(t, out.String())
}

func TestDeleteSubtreePropagatesDeleteError(t *testing.T) {
	conn := newFakeConn()
	usersDN, _, _ := buildTree(conn)
	conn.deleteErr = &ldap.LDAPError{Operation: "delete", Category: ldap.ErrorCategoryPermission}

	var out bytes.Buffer
	exec := &Executor{Out: &out, Log: testLogger()}
	err := exec.DeleteSubtree(conn, usersDN, true)

	require.Error(t, err)
	assert.True(t, ldap.IsPermissionError(err))
}
