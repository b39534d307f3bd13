// Command ldapadm provisions users, groups and passwords in an LDAP
// directory laid out as ou=Users/ou=Groups beneath a dc-style base.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"ldapadm/internal/config"
	"ldapadm/internal/ldap"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage(os.Stderr)
		return exitUsage
	}

	switch args[0] {
	case "init":
		return cmdInit(args[1:])
	case "user":
		return cmdUser(args[1:])
	case "passwd":
		return cmdPasswd(args[1:])
	case "group":
		return cmdGroup(args[1:])
	case "member":
		return cmdMember(args[1:])
	case "owner":
		return cmdOwner(args[1:])
	case "get":
		return cmdGet(args[1:])
	case "search":
		return cmdSearch(args[1:])
	case "clear":
		return cmdClear(args[1:])
	case "help", "-h", "--help":
		usage(os.Stdout)
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "ldapadm: unknown command %q\n\n", args[0])
		usage(os.Stderr)
		return exitUsage
	}
}

func usage(w *os.File) {
	fmt.Fprintf(w, `Usage: ldapadm COMMAND [options] [arguments]

Commands:
  init                      create the ou=Users and ou=Groups containers
  user LOGIN                create a user entry
  passwd                    set or append passwords on an entry
  group LOGIN               create a group entry
  member GROUP MEMBER...    add or remove group members
  owner GROUP OWNER...      add or remove group owners
  get DN                    fetch and print one entry
  search [QUERY]            subtree search beneath the base
  clear [DN...]             delete whole subtrees, children first

Global options (every command):
  -f, --apply               apply changes to the directory
  -n, --dry-run             print changes without applying (default)
      --url URL             directory URL (ldap:// or ldaps://)
      --host HOST           directory host
      --base DN             base DN
      --domain DOMAIN       dotted domain, used for SRV discovery and base DN
      --bind-user DN        bind DN
      --bind-pass PASSWORD  bind password
      --debug               verbose logging

Environment: %s_URL, %s_HOST, %s_PORT, %s_DOMAIN, %s_BASE,
%s_ADMIN_DN, %s_ADMIN_PASSWORD, %s_KERBEROS_REALM.
`, config.EnvPrefix, config.EnvPrefix, config.EnvPrefix, config.EnvPrefix,
		config.EnvPrefix, config.EnvPrefix, config.EnvPrefix, config.EnvPrefix)
}

// stringList collects the values of a repeatable flag in order.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

// globalOpts are the flags shared by every subcommand.
type globalOpts struct {
	apply    bool
	dryRun   bool
	url      string
	host     string
	base     string
	domain   string
	bindUser string
	bindPass string
	debug    bool
}

func (g *globalOpts) register(fs *flag.FlagSet) {
	fs.BoolVar(&g.apply, "f", false, "apply changes to the directory")
	fs.BoolVar(&g.apply, "apply", false, "apply changes to the directory")
	fs.BoolVar(&g.dryRun, "n", false, "print changes without applying")
	fs.BoolVar(&g.dryRun, "dry-run", false, "print changes without applying")
	fs.StringVar(&g.url, "url", "", "directory URL")
	fs.StringVar(&g.host, "host", "", "directory host")
	fs.StringVar(&g.base, "base", "", "base DN")
	fs.StringVar(&g.domain, "domain", "", "dotted domain")
	fs.StringVar(&g.bindUser, "bind-user", "", "bind DN")
	fs.StringVar(&g.bindPass, "bind-pass", "", "bind password")
	fs.BoolVar(&g.debug, "debug", false, "verbose logging")
}

// setup validates the global flags, loads and resolves the configuration,
// and builds the logger. The returned bool reports apply mode.
func (g *globalOpts) setup() (*config.Config, *logrus.Entry, bool, error) {
	if g.apply && g.dryRun {
		return nil, nil, false, errUsage("--apply and --dry-run are mutually exclusive")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, false, err
	}

	if g.url != "" {
		cfg.URL = g.url
	}
	if g.host != "" {
		cfg.Host = g.host
	}
	if g.base != "" {
		cfg.Base = g.base
	}
	if g.domain != "" {
		cfg.Domain = g.domain
	}
	if g.bindUser != "" {
		cfg.BindDN = g.bindUser
	}
	if g.bindPass != "" {
		cfg.BindPassword = g.bindPass
	}
	if g.debug {
		cfg.Debug = true
	}

	if err := cfg.Resolve(); err != nil {
		return nil, nil, false, err
	}

	return cfg, newLogger(cfg.Debug), g.apply, nil
}

func newLogger(debug bool) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(log)
}

// usageError marks malformed command input; it maps to exit status 2.
type usageError struct {
	message string
}

func (e *usageError) Error() string { return e.message }

func errUsage(format string, args ...any) error {
	return &usageError{message: fmt.Sprintf(format, args...)}
}

// report prints err and returns the matching exit status. Directory errors
// print their info and description fields; everything else prints as-is.
func report(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(os.Stderr, "ldapadm: %s\n", ue.message)
		return exitUsage
	}

	var le *ldap.LDAPError
	if errors.As(err, &le) {
		if le.Info != "" {
			fmt.Fprintf(os.Stderr, "ldapadm: %s\n", le.Info)
		}
		if le.Diagnostic != "" && le.Diagnostic != le.Info {
			fmt.Fprintf(os.Stderr, "ldapadm: %s\n", le.Diagnostic)
		}
		if le.Info == "" && le.Diagnostic == "" {
			fmt.Fprintf(os.Stderr, "ldapadm: %s\n", le.Error())
		}
		return exitError
	}

	fmt.Fprintf(os.Stderr, "ldapadm: %s\n", err)
	return exitError
}

// connect opens the one session this invocation uses. Callers must Close it
// on every path.
func connect(cfg *config.Config, log *logrus.Entry) (*ldap.Session, error) {
	return ldap.Connect(context.Background(), cfg.Connection(), log)
}
