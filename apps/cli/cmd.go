package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/classroom/core/classroom"
	"github.com/trezcool/classroom/core/session"
	"github.com/trezcool/classroom/ui"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp        = errors.New("help provided")
	errNotLoggedIn = errors.New("not logged in: run `classroom login -username USERNAME` first")
	errLoginFailed = errors.New(ui.LoginFailedText)
)

type commandLine struct {
	sess       *session.Session
	login      *ui.LoginBox
	validate   *validator.Validate
	translator ut.Translator
	in         *bufio.Reader // answers to confirmations
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME                        - log in; the password will be prompted")
	fmt.Fprintln(cli.out, "  logout                                          - forget the stored token")
	fmt.Fprintln(cli.out, "  teachers list                                   - list teachers")
	fmt.Fprintln(cli.out, "  teachers add -first F -last L -email E          - add a teacher")
	fmt.Fprintln(cli.out, "  teachers edit -id ID [-first F] [-last L] [-email E]")
	fmt.Fprintln(cli.out, "  teachers delete -id ID [-yes]")
	fmt.Fprintln(cli.out, "  students -teacher ID list|add|edit|delete ...   - same as teachers, for a teacher's students")
	fmt.Fprintln(cli.out, "  users list                                      - list users")
	fmt.Fprintln(cli.out, "  users add -username U -email E                  - add a user; the password will be prompted")
	fmt.Fprintln(cli.out, "  users delete -username U [-yes]")
	fmt.Fprintln(cli.out, "  roles [-user USERNAME]                          - list roles, or the roles of a user")
	fmt.Fprintln(cli.out, "  roles add|remove -user USERNAME -role ROLE")
	fmt.Fprintln(cli.out, "  export -teacher ID -out FILE.xlsx               - write a teacher's students to a spreadsheet")
	fmt.Fprintln(cli.out, "  import -teacher ID -in FILE.xlsx                - add the students listed in a spreadsheet")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "login":
		return cli.runLogin(ctx, args[2:])
	case "logout":
		if err := cli.sess.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "Logged out.")
		return nil
	case "teachers":
		return cli.authenticated(ctx, func() error { return cli.runTeachers(ctx, args[2:]) })
	case "students":
		return cli.authenticated(ctx, func() error { return cli.runStudents(ctx, args[2:]) })
	case "users":
		return cli.authenticated(ctx, func() error { return cli.runUsers(ctx, args[2:]) })
	case "roles":
		return cli.authenticated(ctx, func() error { return cli.runRoles(ctx, args[2:]) })
	case "export":
		return cli.authenticated(ctx, func() error { return cli.runExport(ctx, args[2:]) })
	case "import":
		return cli.authenticated(ctx, func() error { return cli.runImport(ctx, args[2:]) })
	default:
		cli.printUsage()
		return errHelp
	}
}

// authenticated runs `cmd` with the token stored by a previous login.
func (cli *commandLine) authenticated(ctx context.Context, cmd func() error) error {
	if !cli.sess.LoggedIn() {
		ok, err := cli.sess.TryAutoLogin(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errNotLoggedIn
		}
	}
	return cmd()
}

func (cli *commandLine) runLogin(ctx context.Context, args []string) error {
	loginCmd := cli.flagSet("login")
	loginUname := loginCmd.String("username", "", "The user's username. The password will be prompted next.")
	if err := parseFlags(loginCmd, args); err != nil {
		return err
	}
	if *loginUname == "" {
		loginCmd.Usage()
		return errHelp
	}

	pwd, err := cli.readPassword(loginCmd)
	if err != nil {
		return err
	}
	if err := cli.login.Submit(ctx, classroom.LoginForm{Username: *loginUname, Password: pwd}); err != nil {
		return err
	}
	if cli.login.Failure() != "" {
		return errLoginFailed
	}
	fmt.Fprintf(cli.out, "Logged in as %s.\n", *loginUname)
	return nil
}

// Helpers

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) readPassword(fs *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

// confirm asks `question` unless `yes` was given on the command line.
func (cli *commandLine) confirm(question string, yes bool) bool {
	if yes {
		return true
	}
	fmt.Fprintf(cli.out, "%s [y/N] ", question)
	answer, err := cli.in.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		fmt.Fprintln(cli.out, "Aborted.")
		return false
	}
}
