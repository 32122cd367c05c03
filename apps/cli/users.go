package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/trezcool/classroom/core/classroom"
	"github.com/trezcool/classroom/ui"
)

func (cli *commandLine) runUsers(ctx context.Context, args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}

	cmd := cli.flagSet("users " + args[0])
	uname := cmd.String("username", "", "The user's username.")
	email := cmd.String("email", "", "The user's email address.")
	yes := cmd.Bool("yes", false, "Do not ask for confirmation.")
	if err := parseFlags(cmd, args[1:]); err != nil {
		return err
	}

	switch args[0] {
	case "list":
		users, err := cli.sess.Users(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "USERNAME\tEMAIL")
		for _, usr := range users {
			fmt.Fprintf(w, "%s\t%s\n", usr.Username, usr.Email)
		}
		return w.Flush()
	case "add":
		if *uname == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword(cmd)
		if err != nil {
			return err
		}
		form := classroom.UserForm{Username: *uname, Email: *email, Password: pwd}
		if err := form.Validate(cli.validate, cli.translator); err != nil {
			return err
		}
		usr, err := cli.sess.CreateUser(ctx, form.User())
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Added user %s.\n", usr.Username)
		return nil
	case "delete":
		if *uname == "" {
			cmd.Usage()
			return errHelp
		}
		if !cli.confirm(ui.DeleteText(*uname), *yes) {
			return nil
		}
		if err := cli.sess.DeleteUser(ctx, *uname); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Deleted user %s.\n", *uname)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) runRoles(ctx context.Context, args []string) error {
	action := ""
	if len(args) > 0 && (args[0] == "add" || args[0] == "remove") {
		action, args = args[0], args[1:]
	}

	rolesCmd := cli.flagSet("roles")
	uname := rolesCmd.String("user", "", "The user's username.")
	role := rolesCmd.String("role", "", "The role to add or remove.")
	if err := parseFlags(rolesCmd, args); err != nil {
		return err
	}

	switch action {
	case "":
		var roles []string
		var err error
		if *uname == "" {
			roles, err = cli.sess.Roles(ctx)
		} else {
			roles, err = cli.sess.RolesForUser(ctx, *uname)
		}
		if err != nil {
			return err
		}
		for _, r := range roles {
			fmt.Fprintln(cli.out, r)
		}
		return nil
	default:
		if *uname == "" || *role == "" {
			rolesCmd.Usage()
			return errHelp
		}
		if action == "add" {
			if err := cli.sess.AddRoleToUser(ctx, *uname, *role); err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "Granted %s to %s.\n", *role, *uname)
			return nil
		}
		if err := cli.sess.RemoveRoleFromUser(ctx, *uname, *role); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Revoked %s from %s.\n", *role, *uname)
		return nil
	}
}
