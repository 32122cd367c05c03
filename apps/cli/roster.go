package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/classroom"
)

const rosterSheet = "Students"

var rosterHeader = []string{"ID", "First Name", "Last Name", "Email"}

type rosterEntry struct {
	row  int // 1-based, as numbered in spreadsheets
	form classroom.StudentForm
}

func (cli *commandLine) runExport(ctx context.Context, args []string) error {
	exportCmd := cli.flagSet("export")
	teacherID := exportCmd.Int("teacher", 0, "The ID of the teacher whose students are exported.")
	path := exportCmd.String("out", "", "The spreadsheet to write (.xlsx).")
	if err := parseFlags(exportCmd, args); err != nil {
		return err
	}
	if *teacherID <= 0 || *path == "" {
		exportCmd.Usage()
		return errHelp
	}

	teacher, err := cli.sess.Teacher(ctx, *teacherID)
	if err != nil {
		return err
	}
	students, err := cli.sess.Students(ctx, *teacherID)
	if err != nil {
		return err
	}
	if err := writeRoster(*path, students); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Exported %d students of %s to %s.\n", len(students), teacher.FullName(), *path)
	return nil
}

func (cli *commandLine) runImport(ctx context.Context, args []string) error {
	importCmd := cli.flagSet("import")
	teacherID := importCmd.Int("teacher", 0, "The ID of the teacher the students are added to.")
	path := importCmd.String("in", "", "The spreadsheet to read (.xlsx), laid out as written by export.")
	if err := parseFlags(importCmd, args); err != nil {
		return err
	}
	if *teacherID <= 0 || *path == "" {
		importCmd.Usage()
		return errHelp
	}

	entries, err := readRoster(*path)
	if err != nil {
		return err
	}
	// every row is checked before anything is sent
	for i := range entries {
		if err := entries[i].form.Validate(cli.validate, cli.translator); err != nil {
			return errors.Wrapf(err, "row %d", entries[i].row)
		}
	}
	if _, err := cli.sess.Teacher(ctx, *teacherID); err != nil {
		return err
	}

	for i, entry := range entries {
		if _, err := cli.sess.CreateStudent(ctx, entry.form.Student(0, *teacherID)); err != nil {
			return errors.Wrapf(err, "importing row %d (%d students imported)", entry.row, i)
		}
	}
	fmt.Fprintf(cli.out, "Imported %d students.\n", len(entries))
	return nil
}

func writeRoster(path string, students []classroom.Student) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = errors.Wrap(cErr, "closing spreadsheet")
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), rosterSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	if err := f.SetSheetRow(rosterSheet, "A1", &rosterHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for i, s := range students {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{s.ID, s.FirstName, s.LastName, s.Email}
		if err := f.SetSheetRow(rosterSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing student %d", s.ID)
		}
	}
	if err := f.SetColWidth(rosterSheet, "B", "D", 24); err != nil {
		return errors.Wrap(err, "sizing columns")
	}
	return errors.Wrapf(f.SaveAs(path), "saving %s", path)
}

// readRoster reads the students listed in the first sheet of a roster; blank rows are skipped.
func readRoster(path string) ([]rosterEntry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %s", sheet)
	}
	if len(rows) == 0 || !isRosterHeader(rows[0]) {
		return nil, errors.Errorf("%s: the first row must be %s", path, strings.Join(rosterHeader, ", "))
	}

	entries := make([]rosterEntry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		cells := make([]string, len(rosterHeader))
		copy(cells, row)
		if core.CleanString(strings.Join(cells[1:], "")) == "" {
			continue
		}
		entries = append(entries, rosterEntry{
			row:  i + 2,
			form: classroom.StudentForm{FirstName: cells[1], LastName: cells[2], Email: cells[3]},
		})
	}
	return entries, nil
}

func isRosterHeader(row []string) bool {
	if len(row) < len(rosterHeader) {
		return false
	}
	for i, title := range rosterHeader {
		if !strings.EqualFold(core.CleanString(row[i]), title) {
			return false
		}
	}
	return true
}
