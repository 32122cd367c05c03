package ui_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/trezcool/classroom/core/session"
	logsvc "github.com/trezcool/classroom/services/logger"
	"github.com/trezcool/classroom/tests"
	"github.com/trezcool/classroom/ui"
)

func options(sess *session.Session) ui.Options {
	return ui.Options{Bus: sess.Bus(), Logger: logsvc.NewDiscardLogger()}
}

func newTeacherList(t *testing.T, backend *testutil.Backend) (*ui.TeacherList, *session.Session) {
	t.Helper()
	sess := testutil.LoggedInSession(t, backend)
	list, err := ui.NewTeacherList(sess, options(sess))
	if err != nil {
		t.Fatalf("NewTeacherList() failed: %v", err)
	}
	return list, sess
}

func newStudentList(t *testing.T, backend *testutil.Backend) (*ui.StudentList, *session.Session) {
	t.Helper()
	sess := testutil.LoggedInSession(t, backend)
	list, err := ui.NewStudentList(sess, options(sess))
	if err != nil {
		t.Fatalf("NewStudentList() failed: %v", err)
	}
	return list, sess
}

// text returns the whitespace-normalized text of `sel`.
func text(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// rowText returns "<name> (<email>)" as displayed by a list row.
func rowText(row *goquery.Selection) string {
	return text(row.Find(".name")) + " " + text(row.Find(".email"))
}

type confirmer struct {
	answer bool
	asked  []string
}

func (c *confirmer) Confirm(msg string) bool {
	c.asked = append(c.asked, msg)
	return c.answer
}
