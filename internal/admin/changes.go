// Package admin turns administrative intents into directory change-lists
// and executes them, either as an LDIF preview or against a live session.
package admin

import (
	"sort"
	"strings"

	"ldapadm/internal/ldap"
)

// Object classes of the entries this tool provisions.
var (
	unitObjectClasses  = []string{"organizationalUnit", "top"}
	userObjectClasses  = []string{"organizationalPerson", "person", "extensibleObject", "uidObject", "inetOrgPerson", "top"}
	groupObjectClasses = []string{"groupOfUniqueNames", "top"}
)

// OpKind selects the directory operation a change performs.
type OpKind int

const (
	OpAdd OpKind = iota
	OpModify
	OpDelete
)

// Change is one complete, addressed change-list: the target DN plus either
// an attribute map (add), an ordered mod sequence (modify), or nothing
// (delete). It is constructed once, consumed once by the executor.
type Change struct {
	DN         string
	Kind       OpKind
	Attributes ldap.Attributes // set for OpAdd
	Mods       []ldap.Mod      // set for OpModify
}

// UserRequest carries the validated parameters of a user provisioning
// intent.
type UserRequest struct {
	Login     string
	First     string
	Last      string
	Mail      string
	Passwords []string
	DN        string // Explicit target DN override
}

// GroupRequest carries the validated parameters of a group creation intent.
type GroupRequest struct {
	Login   string
	Members []string // Member logins
	Owners  []string // Owner logins or DNs
}

// StructureChanges returns the two add-changes that create the standard
// ou=Users and ou=Groups containers beneath the base.
func StructureChanges(base string) []Change {
	changes := make([]Change, 0, 2)
	for _, unit := range []string{ldap.UnitUsers, ldap.UnitGroups} {
		changes = append(changes, Change{
			DN:   ldap.UnitDN(unit, base),
			Kind: OpAdd,
			Attributes: ldap.Attributes{
				"objectClass": unitObjectClasses,
				"ou":          {unit},
			},
		})
	}
	return changes
}

// UserChange builds the add-change for a user entry. The common name is
// assembled from the given and family names, falling back to the login when
// neither is set. userPassword is included only when passwords were
// supplied.
func UserChange(req UserRequest, base string) Change {
	dn := req.DN
	if dn == "" {
		dn = ldap.BuildDN(req.Login, ldap.UnitUsers, base)
	}

	cn := strings.TrimSpace(req.First + " " + req.Last)
	if cn == "" {
		cn = req.Login
	}

	sn := req.Last
	if sn == "" {
		sn = req.Login
	}

	attrs := ldap.Attributes{
		"objectClass": userObjectClasses,
		"uid":         {req.Login},
		"cn":          {cn},
		"sn":          {sn},
	}

	if req.First != "" {
		attrs["givenName"] = []string{req.First}
	}
	if req.Mail != "" {
		attrs["mail"] = []string{req.Mail}
	}
	if len(req.Passwords) > 0 {
		attrs["userPassword"] = req.Passwords
	}

	return Change{DN: dn, Kind: OpAdd, Attributes: attrs}
}

// GroupChange builds the add-change for a group entry. Every owner is also
// a member: the uniqueMember set is the union of the listed members and the
// login portion of every owner, all mapped to user DNs. Value order within
// the sets is not significant.
func GroupChange(req GroupRequest, base string) Change {
	memberSet := make(map[string]struct{}, len(req.Members)+len(req.Owners))
	for _, member := range req.Members {
		memberSet[ldap.BuildDN(member, ldap.UnitUsers, base)] = struct{}{}
	}

	owners := make([]string, 0, len(req.Owners))
	for _, owner := range req.Owners {
		ownerDN := ldap.BuildDN(ldap.LoginFromDN(owner), ldap.UnitUsers, base)
		owners = append(owners, ownerDN)
		memberSet[ownerDN] = struct{}{}
	}

	members := make([]string, 0, len(memberSet))
	for dn := range memberSet {
		members = append(members, dn)
	}
	sort.Strings(members)

	attrs := ldap.Attributes{
		"objectClass": groupObjectClasses,
		"cn":          {req.Login},
	}
	if len(members) > 0 {
		attrs["uniqueMember"] = members
	}
	if len(owners) > 0 {
		attrs["owner"] = owners
	}

	return Change{
		DN:         ldap.BuildDN(req.Login, ldap.UnitGroups, base),
		Kind:       OpAdd,
		Attributes: attrs,
	}
}

// PasswordChange builds the modify-change that sets or appends passwords on
// the target entry: a single operation on userPassword, ModAdd when
// appending, ModReplace otherwise, carrying the gathered values in order.
func PasswordChange(targetDN string, passwords []string, appendValues bool) Change {
	op := ldap.ModReplace
	if appendValues {
		op = ldap.ModAdd
	}

	return Change{
		DN:   targetDN,
		Kind: OpModify,
		Mods: []ldap.Mod{{Op: op, Attr: "userPassword", Values: passwords}},
	}
}

// MemberChange builds the modify-change that adds or removes members of a
// group, one operation per login, each carrying a single user DN.
func MemberChange(group string, logins []string, add bool, base string) Change {
	return membershipChange(group, "uniqueMember", logins, add, base)
}

// OwnerChange builds the modify-change that adds or removes owners of a
// group. Ownership edits never touch the member list.
func OwnerChange(group string, logins []string, add bool, base string) Change {
	return membershipChange(group, "owner", logins, add, base)
}

func membershipChange(group, attr string, logins []string, add bool, base string) Change {
	op := ldap.ModDelete
	if add {
		op = ldap.ModAdd
	}

	mods := make([]ldap.Mod, 0, len(logins))
	for _, login := range logins {
		mods = append(mods, ldap.Mod{
			Op:     op,
			Attr:   attr,
			Values: []string{ldap.BuildDN(login, ldap.UnitUsers, base)},
		})
	}

	return Change{
		DN:   ldap.BuildDN(group, ldap.UnitGroups, base),
		Kind: OpModify,
		Mods: mods,
	}
}
