package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core/classroom"
	"github.com/trezcool/classroom/ui"
)

// recordFlags are the fields of a teacher or a student.
type recordFlags struct {
	first, last, email *string
}

func addRecordFlags(fs *flag.FlagSet) recordFlags {
	return recordFlags{
		first: fs.String("first", "", "First name."),
		last:  fs.String("last", "", "Last name."),
		email: fs.String("email", "", "Email address."),
	}
}

// merge overwrites the fields given on the command line.
func (f recordFlags) merge(first, last, email string) (string, string, string) {
	if *f.first != "" {
		first = *f.first
	}
	if *f.last != "" {
		last = *f.last
	}
	if *f.email != "" {
		email = *f.email
	}
	return first, last, email
}

// Teachers

func (cli *commandLine) runTeachers(ctx context.Context, args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}

	cmd := cli.flagSet("teachers " + args[0])
	id := cmd.Int("id", 0, "The teacher's ID.")
	yes := cmd.Bool("yes", false, "Do not ask for confirmation.")
	fields := addRecordFlags(cmd)
	if err := parseFlags(cmd, args[1:]); err != nil {
		return err
	}

	switch args[0] {
	case "list":
		return cli.listTeachers(ctx)
	case "add":
		form := classroom.TeacherForm{}
		form.FirstName, form.LastName, form.Email = fields.merge("", "", "")
		if err := form.Validate(cli.validate, cli.translator); err != nil {
			return err
		}
		teacher, err := cli.sess.CreateTeacher(ctx, form.Teacher(0))
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Added teacher %d: %s.\n", teacher.ID, teacher.FullName())
		return nil
	case "edit":
		if *id <= 0 {
			cmd.Usage()
			return errHelp
		}
		teacher, err := cli.sess.Teacher(ctx, *id)
		if err != nil {
			return err
		}
		form := classroom.TeacherForm{}
		form.FirstName, form.LastName, form.Email = fields.merge(teacher.FirstName, teacher.LastName, teacher.Email)
		if err := form.Validate(cli.validate, cli.translator); err != nil {
			return err
		}
		if _, err := cli.sess.UpdateTeacher(ctx, *id, form.Teacher(*id)); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Updated teacher %d.\n", *id)
		return nil
	case "delete":
		if *id <= 0 {
			cmd.Usage()
			return errHelp
		}
		teacher, err := cli.sess.Teacher(ctx, *id)
		if err != nil {
			return err
		}
		if !cli.confirm(ui.DeleteText(teacher.FullName()), *yes) {
			return nil
		}
		if err := cli.sess.DeleteTeacher(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Deleted teacher %d.\n", *id)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) listTeachers(ctx context.Context) error {
	teachers, err := cli.sess.Teachers(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL")
	for _, t := range teachers {
		fmt.Fprintf(w, "%d\t%s\t%s\n", t.ID, t.FullName(), t.Email)
	}
	return w.Flush()
}

// Students

func (cli *commandLine) runStudents(ctx context.Context, args []string) error {
	studentsCmd := cli.flagSet("students")
	teacherID := studentsCmd.Int("teacher", 0, "The ID of the students' teacher.")
	if err := parseFlags(studentsCmd, args); err != nil {
		return err
	}
	args = studentsCmd.Args()
	if *teacherID <= 0 || len(args) == 0 {
		studentsCmd.Usage()
		return errHelp
	}

	cmd := cli.flagSet("students " + args[0])
	id := cmd.Int("id", 0, "The student's ID.")
	yes := cmd.Bool("yes", false, "Do not ask for confirmation.")
	fields := addRecordFlags(cmd)
	if err := parseFlags(cmd, args[1:]); err != nil {
		return err
	}

	switch args[0] {
	case "list":
		return cli.listStudents(ctx, *teacherID)
	case "add":
		form := classroom.StudentForm{}
		form.FirstName, form.LastName, form.Email = fields.merge("", "", "")
		if err := form.Validate(cli.validate, cli.translator); err != nil {
			return err
		}
		student, err := cli.sess.CreateStudent(ctx, form.Student(0, *teacherID))
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Added student %d: %s.\n", student.ID, student.FullName())
		return nil
	case "edit":
		if *id <= 0 {
			cmd.Usage()
			return errHelp
		}
		student, err := cli.teacherStudent(ctx, *teacherID, *id)
		if err != nil {
			return err
		}
		form := classroom.StudentForm{}
		form.FirstName, form.LastName, form.Email = fields.merge(student.FirstName, student.LastName, student.Email)
		if err := form.Validate(cli.validate, cli.translator); err != nil {
			return err
		}
		if _, err := cli.sess.UpdateStudent(ctx, *id, form.Student(*id, *teacherID)); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Updated student %d.\n", *id)
		return nil
	case "delete":
		if *id <= 0 {
			cmd.Usage()
			return errHelp
		}
		student, err := cli.teacherStudent(ctx, *teacherID, *id)
		if err != nil {
			return err
		}
		if !cli.confirm(ui.DeleteText(student.FullName()), *yes) {
			return nil
		}
		if err := cli.sess.DeleteStudent(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Deleted student %d.\n", *id)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

// teacherStudent gets a student of the teacher `teacherID`.
func (cli *commandLine) teacherStudent(ctx context.Context, teacherID, id int) (classroom.Student, error) {
	student, err := cli.sess.Student(ctx, id)
	if err != nil {
		return classroom.Student{}, err
	}
	if student.TeacherID != teacherID {
		return classroom.Student{}, errors.Errorf("student %d is not a student of teacher %d", id, teacherID)
	}
	return student, nil
}

func (cli *commandLine) listStudents(ctx context.Context, teacherID int) error {
	students, err := cli.sess.Students(ctx, teacherID)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL")
	for _, s := range students {
		fmt.Fprintf(w, "%d\t%s\t%s\n", s.ID, s.FullName(), s.Email)
	}
	return w.Flush()
}
