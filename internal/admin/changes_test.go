package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ldapadm/internal/ldap"
)

const testBase = "dc=example,dc=com"

func TestStructureChanges(t *testing.T) {
	changes := StructureChanges(testBase)
	require.Len(t, changes, 2)

	assert.Equal(t, "ou=Users,"+testBase, changes[0].DN)
	assert.Equal(t, "ou=Groups,"+testBase, changes[1].DN)

	for _, change := range changes {
		assert.Equal(t, OpAdd, change.Kind)
		assert.Equal(t, []string{"organizationalUnit", "top"}, change.Attributes["objectClass"])
		require.Len(t, change.Attributes["ou"], 1)
	}
	assert.Equal(t, "Users", changes[0].Attributes["ou"][0])
	assert.Equal(t, "Groups", changes[1].Attributes["ou"][0])
}

func TestUserChange(t *testing.T) {
	tests := []struct {
		name     string
		req      UserRequest
		wantDN   string
		wantCN   string
		wantSN   string
		checkFns []func(t *testing.T, attrs ldap.Attributes)
	}{
		{
			name:   "full name",
			req:    UserRequest{Login: "jdoe", First: "John", Last: "Doe", Mail: "jdoe@example.com"},
			wantDN: "uid=jdoe,ou=Users," + testBase,
			wantCN: "John Doe",
			wantSN: "Doe",
			checkFns: []func(t *testing.T, attrs ldap.Attributes){
				func(t *testing.T, attrs ldap.Attributes) {
					assert.Equal(t, []string{"John"}, attrs["givenName"])
					assert.Equal(t, []string{"jdoe@example.com"}, attrs["mail"])
				},
			},
		},
		{
			name:   "name falls back to login",
			req:    UserRequest{Login: "jdoe"},
			wantDN: "uid=jdoe,ou=Users," + testBase,
			wantCN: "jdoe",
			wantSN: "jdoe",
			checkFns: []func(t *testing.T, attrs ldap.Attributes){
				func(t *testing.T, attrs ldap.Attributes) {
					assert.NotContains(t, attrs, "givenName")
					assert.NotContains(t, attrs, "mail")
					assert.NotContains(t, attrs, "userPassword")
				},
			},
		},
		{
			name:   "last name only",
			req:    UserRequest{Login: "jdoe", Last: "Doe"},
			wantDN: "uid=jdoe,ou=Users," + testBase,
			wantCN: "Doe",
			wantSN: "Doe",
		},
		{
			name:   "explicit dn override",
			req:    UserRequest{Login: "jdoe", DN: "uid=jdoe,ou=Staff," + testBase},
			wantDN: "uid=jdoe,ou=Staff," + testBase,
			wantCN: "jdoe",
			wantSN: "jdoe",
		},
		{
			name:   "passwords included when supplied",
			req:    UserRequest{Login: "jdoe", Passwords: []string{"s3cret", "backup"}},
			wantDN: "uid=jdoe,ou=Users," + testBase,
			wantCN: "jdoe",
			wantSN: "jdoe",
			checkFns: []func(t *testing.T, attrs ldap.Attributes){
				func(t *testing.T, attrs ldap.Attributes) {
					assert.Equal(t, []string{"s3cret", "backup"}, attrs["userPassword"])
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change := UserChange(tt.req, testBase)

			assert.Equal(t, OpAdd, change.Kind)
			assert.Equal(t, tt.wantDN, change.DN)
			assert.Equal(t, []string{tt.wantCN}, change.Attributes["cn"])
			assert.Equal(t, []string{tt.wantSN}, change.Attributes["sn"])
			assert.Equal(t, []string{tt.req.Login}, change.Attributes["uid"])
			assert.Contains(t, change.Attributes["objectClass"], "inetOrgPerson")

			for _, check := range tt.checkFns {
				check(t, change.Attributes)
			}
		})
	}
}

func TestGroupChangeOwnersAreMembers(t *testing.T) {
	change := GroupChange(GroupRequest{
		Login:   "devs",
		Members: []string{"u1"},
		Owners:  []string{"u2", "u3"},
	}, testBase)

	assert.Equal(t, "cn=devs,ou=Groups,"+testBase, change.DN)
	assert.Equal(t, OpAdd, change.Kind)
	assert.Equal(t, []string{"devs"}, change.Attributes["cn"])
	assert.Equal(t, []string{"groupOfUniqueNames", "top"}, change.Attributes["objectClass"])

	assert.ElementsMatch(t, []string{
		"uid=u1,ou=Users," + testBase,
		"uid=u2,ou=Users," + testBase,
		"uid=u3,ou=Users," + testBase,
	}, change.Attributes["uniqueMember"])

	assert.ElementsMatch(t, []string{
		"uid=u2,ou=Users," + testBase,
		"uid=u3,ou=Users," + testBase,
	}, change.Attributes["owner"])
}

func TestGroupChangeOwnerGivenAsDN(t *testing.T) {
	change := GroupChange(GroupRequest{
		Login:  "devs",
		Owners: []string{"uid=u2,ou=Users," + testBase},
	}, testBase)

	assert.Equal(t, []string{"uid=u2,ou=Users," + testBase}, change.Attributes["owner"])
	assert.Equal(t, []string{"uid=u2,ou=Users," + testBase}, change.Attributes["uniqueMember"])
}

func TestGroupChangeMemberOwnerOverlap(t *testing.T) {
	change := GroupChange(GroupRequest{
		Login:   "devs",
		Members: []string{"u1", "u2"},
		Owners:  []string{"u2"},
	}, testBase)

	assert.ElementsMatch(t, []string{
		"uid=u1,ou=Users," + testBase,
		"uid=u2,ou=Users," + testBase,
	}, change.Attributes["uniqueMember"])
}

func TestGroupChangeEmpty(t *testing.T) {
	change := GroupChange(GroupRequest{Login: "empty"}, testBase)

	assert.NotContains(t, change.Attributes, "uniqueMember")
	assert.NotContains(t, change.Attributes, "owner")
}

func TestPasswordChange(t *testing.T) {
	dn := "uid=jdoe,ou=Users," + testBase

	replace := PasswordChange(dn, []string{"one", "two"}, false)
	require.Len(t, replace.Mods, 1)
	assert.Equal(t, OpModify, replace.Kind)
	assert.Equal(t, ldap.ModReplace, replace.Mods[0].Op)
	assert.Equal(t, "userPassword", replace.Mods[0].Attr)
	assert.Equal(t, []string{"one", "two"}, replace.Mods[0].Values)

	add := PasswordChange(dn, []string{"extra"}, true)
	require.Len(t, add.Mods, 1)
	assert.Equal(t, ldap.ModAdd, add.Mods[0].Op)
	assert.Equal(t, []string{"extra"}, add.Mods[0].Values)
}

func TestMemberChangeOneModPerLogin(t *testing.T) {
	change := MemberChange("devs", []string{"u1", "u2", "u3"}, true, testBase)

	assert.Equal(t, "cn=devs,ou=Groups,"+testBase, change.DN)
	require.Len(t, change.Mods, 3)
	for i, login := range []string{"u1", "u2", "u3"} {
		assert.Equal(t, ldap.ModAdd, change.Mods[i].Op)
		assert.Equal(t, "uniqueMember", change.Mods[i].Attr)
		assert.Equal(t, []string{"uid=" + login + ",ou=Users," + testBase}, change.Mods[i].Values)
	}
}

func TestMemberChangeRemove(t *testing.T) {
	change := MemberChange("devs", []string{"u1"}, false, testBase)

	require.Len(t, change.Mods, 1)
	assert.Equal(t, ldap.ModDelete, change.Mods[0].Op)
}

func TestOwnerChangeTargetsOwnerAttribute(t *testing.T) {
	change := OwnerChange("devs", []string{"u1"}, true, testBase)

	require.Len(t, change.Mods, 1)
	assert.Equal(t, "owner", change.Mods[0].Attr)
	assert.Equal(t, ldap.ModAdd, change.Mods[0].Op)
}
