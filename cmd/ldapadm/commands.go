package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"ldapadm/internal/admin"
	"ldapadm/internal/config"
	"ldapadm/internal/ldap"
)

// parseArgs parses flags and collects positional arguments even when they
// are intermixed, since flag parsing stops at the first non-flag token.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, errUsage("%s", err)
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// execute runs the changes in order, opening the one directory session
// first when applying. The first failure stops the sequence; changes
// already applied stay committed.
func execute(cfg *config.Config, log *logrus.Entry, apply bool, changes ...admin.Change) int {
	exec := &admin.Executor{Out: os.Stdout, Log: log}

	var conn ldap.Conn
	if apply {
		sess, err := connect(cfg, log)
		if err != nil {
			return report(err)
		}
		defer sess.Close()
		conn = sess
	}

	for _, change := range changes {
		if err := exec.Execute(conn, change, apply); err != nil {
			return report(err)
		}
	}
	return exitOK
}

func cmdInit(args []string) int {
	fs := newFlagSet("init")
	var g globalOpts
	g.register(fs)

	positional, err := parseArgs(fs, args)
	if err != nil {
		return report(err)
	}
	if len(positional) != 0 {
		return report(errUsage("init takes no arguments"))
	}

	cfg, log, apply, err := g.setup()
	if err != nil {
		return report(err)
	}

	return execute(cfg, log, apply, admin.StructureChanges(cfg.Base)...)
}

func cmdUser(args []string) int {
	fs := newFlagSet("user")
	var g globalOpts
	g.register(fs)

	var passwords stringList
	var first, last, mail, dn string
	fs.Var(&passwords, "password", "password value (repeatable)")
	fs.StringVar(&first, "first", "", "given name")
	fs.StringVar(&last, "last", "", "surname")
	fs.StringVar(&mail, "mail", "", "mail address")
	fs.StringVar(&dn, "dn", "", "explicit target DN")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return report(err)
	}
	if len(positional) != 1 {
		return report(errUsage("user requires exactly one LOGIN argument"))
	}

	cfg, log, apply, err := g.setup()
	if err != nil {
		return report(err)
	}

	change := admin.UserChange(admin.UserRequest{
		Login:     positional[0],
		First:     first,
		Last:      last,
		Mail:      mail,
		Passwords: passwords,
		DN:        dn,
	}, cfg.Base)

	return execute(cfg, log, apply, change)
}

func cmdPasswd(args []string) int {
	fs := newFlagSet("passwd")
	var g globalOpts
	g.register(fs)

	var passwords, files stringList
	var adminFlag, appendFlag, replaceFlag bool
	var login, dn string
	fs.BoolVar(&adminFlag, "admin", false, "target the administrator account")
	fs.StringVar(&login, "login", "", "target user login")
	fs.StringVar(&dn, "dn", "", "explicit target DN")
	fs.BoolVar(&appendFlag, "append", false, "add to the existing passwords")
	fs.BoolVar(&replaceFlag, "replace", false, "replace all passwords (default)")
	fs.Var(&passwords, "password", "password value (repeatable)")
	fs.Var(&files, "file", "file of password values, one per line; - reads standard input (repeatable)")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return report(err)
	}
	if len(positional) != 0 {
		return report(errUsage("passwd takes no arguments; use --admin, --login or --dn"))
	}
	if appendFlag && replaceFlag {
		return report(errUsage("--append and --replace are mutually exclusive"))
	}

	cfg, log, apply, err := g.setup()
	if err != nil {
		return report(err)
	}

	source := &admin.PasswordSource{Values: passwords, Files: files}
	values, err := source.Gather()
	if err != nil {
		return report(err)
	}

	target := admin.PasswordTarget{Admin: adminFlag, DN: dn, Login: login}

	var conn ldap.Conn
	sessionDN := cfg.BindDN
	if apply {
		sess, err := connect(cfg, log)
		if err != nil {
			return report(err)
		}
		defer sess.Close()
		conn = sess
		if bound := sess.BoundDN(); bound != "" {
			sessionDN = bound
		}
	}

	targetDN, err := target.Resolve(cfg.AdminDN, cfg.Base, sessionDN)
	if err != nil {
		return report(err)
	}

	exec := &admin.Executor{Out: os.Stdout, Log: log}
	if err := exec.Execute(conn, admin.PasswordChange(targetDN, values, appendFlag), apply); err != nil {
		return report(err)
	}
	return exitOK
}

func cmdGroup(args []string) int {
	fs := newFlagSet("group")
	var g globalOpts
	g.register(fs)

	var members, owners stringList
	fs.Var(&members, "member", "member login (repeatable)")
	fs.Var(&owners, "owner", "owner login or DN (repeatable)")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return report(err)
	}
	if len(positional) != 1 {
		return report(errUsage("group requires exactly one LOGIN argument"))
	}

	cfg, log, apply, err := g.setup()
	if err != nil {
		return report(err)
	}

	change := admin.GroupChange(admin.GroupRequest{
		Login:   positional[0],
		Members: members,
		Owners:  owners,
	}, cfg.Base)

	return execute(cfg, log, apply, change)
}

func cmdMember(args []string) int {
	return cmdMembership("member", admin.MemberChange, args)
}

func cmdOwner(args []string) int {
	return cmdMembership("owner", admin.OwnerChange, args)
}

func cmdMembership(name string, build func(group string, logins []string, add bool, base string) admin.Change, args []string) int {
	fs := newFlagSet(name)
	var g globalOpts
	g.register(fs)

	var addFlag, removeFlag bool
	fs.BoolVar(&addFlag, "add", false, "add the listed logins (default)")
	fs.BoolVar(&removeFlag, "remove", false, "remove the listed logins")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return report(err)
	}
	if len(positional) < 2 {
		return report(errUsage("%s requires a GROUP and at least one LOGIN argument", name))
	}
	if addFlag && removeFlag {
		return report(errUsage("--add and --remove are mutually exclusive"))
	}

	cfg, log, apply, err := g.setup()
	if err != nil {
		return report(err)
	}

	change := build(positional[0], positional[1:], !removeFlag, cfg.Base)
	return execute(cfg, log, apply, change)
}

func cmdGet(args []string) int {
	fs := newFlagSet("get")
	var g globalOpts
	g.register(fs)

	positional, err := parseArgs(fs, args)
	if err != nil {
		return report(err)
	}
	if len(positional) != 1 {
		return report(errUsage("get requires exactly one DN argument"))
	}

	cfg, log, _, err := g.setup()
	if err != nil {
		return report(err)
	}

	sess, err := connect(cfg, log)
	if err != nil {
		return report(err)
	}
	defer sess.Close()

	entry, err := admin.FetchEntry(sess, positional[0])
	if err != nil {
		return report(err)
	}
	if err := admin.PrintEntry(os.Stdout, entry); err != nil {
		return report(err)
	}
	return exitOK
}

func cmdSearch(args []string) int {
	fs := newFlagSet("search")
	var g globalOpts
	g.register(fs)

	positional, err := parseArgs(fs, args)
	if err != nil {
		return report(err)
	}
	if len(positional) > 1 {
		return report(errUsage("search takes at most one QUERY argument"))
	}

	filter := "(objectClass=*)"
	if len(positional) == 1 {
		filter = positional[0]
	}

	cfg, log, _, err := g.setup()
	if err != nil {
		return report(err)
	}

	sess, err := connect(cfg, log)
	if err != nil {
		return report(err)
	}
	defer sess.Close()

	entries, err := admin.SearchEntries(sess, cfg.Base, filter)
	if err != nil {
		return report(err)
	}
	for _, entry := range entries {
		if err := admin.PrintEntry(os.Stdout, entry); err != nil {
			return report(err)
		}
	}
	return exitOK
}

func cmdClear(args []string) int {
	fs := newFlagSet("clear")
	var g globalOpts
	g.register(fs)

	positional, err := parseArgs(fs, args)
	if err != nil {
		return report(err)
	}

	cfg, log, apply, err := g.setup()
	if err != nil {
		return report(err)
	}

	targets := positional
	if len(targets) == 0 {
		targets = []string{
			ldap.UnitDN(ldap.UnitGroups, cfg.Base),
			ldap.UnitDN(ldap.UnitUsers, cfg.Base),
		}
	}

	sess, err := connect(cfg, log)
	if err != nil {
		return report(err)
	}
	defer sess.Close()

	exec := &admin.Executor{Out: os.Stdout, Log: log}
	for _, target := range targets {
		if err := exec.DeleteSubtree(sess, target, apply); err != nil {
			return report(err)
		}
	}
	return exitOK
}
