package ui_test

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/classroom"
	"github.com/trezcool/classroom/core/events"
	"github.com/trezcool/classroom/core/session"
	logsvc "github.com/trezcool/classroom/services/logger"
	"github.com/trezcool/classroom/tests"
	"github.com/trezcool/classroom/ui"
)

func TestNewTeacherList(t *testing.T) {
	sess := testutil.NewSession(t, "http://localhost", nil)

	_, err := ui.NewTeacherList(nil, options(sess))
	assert.Error(t, err, "no session")
	_, err = ui.NewTeacherList(sess, ui.Options{Logger: logsvc.NewDiscardLogger()})
	assert.Error(t, err, "no bus")
	_, err = ui.NewTeacherList(sess, ui.Options{Bus: sess.Bus()})
	assert.Error(t, err, "no logger")
}

func TestTeacherList_Mount(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	ada := backend.AddTeacher("Ada", "Lovelace", "ada@x.com")
	backend.AddTeacher("Alan", "Turing", "alan@x.com")
	list, _ := newTeacherList(t, backend)

	doc := testutil.Render(t, list)
	assert.Equal(t, 0, doc.Find(".rows").Length(), "not loaded yet")

	require.NoError(t, list.Mount(ctx))
	require.NoError(t, list.Mount(ctx))
	assert.Equal(t, 1, backend.Count("GET", "/teachers"), "mounted once")

	doc = testutil.Render(t, list)
	rows := doc.Find(".teacher-list .row")
	require.Equal(t, 2, rows.Length())
	assert.Equal(t, "Ada Lovelace (ada@x.com)", rowText(rows.First()))
	assert.Equal(t, strconv.Itoa(ada.ID), rows.First().Find(".edit").AttrOr("data-id", ""))
	assert.Equal(t, strconv.Itoa(ada.ID), rows.First().Find(".delete").AttrOr("data-id", ""))
	assert.Equal(t, 0, doc.Find("dialog").Length(), "idle")
}

func TestTeacherList_Add(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	list, _ := newTeacherList(t, backend)
	require.NoError(t, list.Mount(ctx))

	require.NoError(t, list.ShowAdd())
	assert.Equal(t, ui.Adding, list.Mode())
	doc := testutil.Render(t, list)
	assert.Equal(t, "Add Teacher", text(doc.Find("dialog .title")))
	assert.Equal(t, "", doc.Find(`dialog input[name="firstName"]`).AttrOr("value", "x"), "blank form")

	backend.ResetRequests()
	err := list.Submit(ctx, classroom.TeacherForm{FirstName: " Grace ", LastName: "Hopper", Email: "grace@x.com"})
	require.NoError(t, err)

	assert.Equal(t, ui.Idle, list.Mode())
	reqs := backend.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "POST", reqs[0].Method)
	assert.JSONEq(t, `{"id":0,"firstName":"Grace","lastName":"Hopper","email":"grace@x.com"}`, reqs[0].Body)
	assert.Equal(t, "GET", reqs[1].Method, "reloaded after the create")

	doc = testutil.Render(t, list)
	assert.Equal(t, 0, doc.Find("dialog").Length(), "dialog closed")
	assert.Equal(t, "Grace Hopper (grace@x.com)", rowText(doc.Find(".row")))
}

func TestTeacherList_Edit(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	ada := backend.AddTeacher("Ada", "Lovelace", "ada@x.com")
	list, _ := newTeacherList(t, backend)
	require.NoError(t, list.Mount(ctx))

	assert.Equal(t, ui.ErrUnknownRecord, list.ShowEdit(ada.ID+1))

	require.NoError(t, list.ShowEdit(ada.ID))
	assert.Equal(t, ui.Editing, list.Mode())
	doc := testutil.Render(t, list)
	assert.Equal(t, "Edit Teacher", text(doc.Find("dialog .title")))
	assert.Equal(t, "Ada", doc.Find(`dialog input[name="firstName"]`).AttrOr("value", ""))
	assert.Equal(t, "ada@x.com", doc.Find(`dialog input[name="email"]`).AttrOr("value", ""))

	require.NoError(t, list.Submit(ctx, classroom.TeacherForm{FirstName: "Ada", LastName: "King", Email: "ada@x.com"}))
	assert.Equal(t, 1, backend.Count("PUT", "/teachers/"+strconv.Itoa(ada.ID)))
	assert.Equal(t, []classroom.Teacher{{ID: ada.ID, FirstName: "Ada", LastName: "King", Email: "ada@x.com"}}, list.Teachers())
	assert.Equal(t, ui.Idle, list.Mode())
}

func TestTeacherList_SubmitInvalid(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	list, _ := newTeacherList(t, backend)
	require.NoError(t, list.Mount(ctx))

	tests := []struct {
		name      string
		form      classroom.TeacherForm
		wantField string
		wantMsg   string
	}{
		{
			name:      "no first name",
			form:      classroom.TeacherForm{FirstName: "  ", LastName: "Hopper", Email: "grace@x.com"},
			wantField: "firstName",
			wantMsg:   "this field is required",
		},
		{
			name:      "no last name",
			form:      classroom.TeacherForm{FirstName: "Grace", Email: "grace@x.com"},
			wantField: "lastName",
		},
		{
			name:      "invalid email",
			form:      classroom.TeacherForm{FirstName: "Grace", LastName: "Hopper", Email: "grace"},
			wantField: "email",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, list.ShowAdd())
			backend.ResetRequests()

			err := list.Submit(ctx, tt.form)
			vErr, ok := core.AsValidationError(err)
			require.True(t, ok, "error = %v", err)
			assert.Contains(t, vErr.FieldErrors(), tt.wantField)

			assert.Equal(t, ui.Adding, list.Mode(), "dialog kept open")
			assert.Empty(t, backend.Requests(), "nothing sent")

			doc := testutil.Render(t, list)
			msg := doc.Find(`dialog .error[data-field="` + tt.wantField + `"]`)
			require.Equal(t, 1, msg.Length())
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, text(msg))
			}
			list.Cancel()
		})
	}
}

func TestTeacherList_SubmitFailed(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	list, sess := newTeacherList(t, backend)
	require.NoError(t, list.Mount(ctx))
	backend.Override("POST", "/teachers", http.StatusInternalServerError)

	require.NoError(t, list.ShowAdd())
	backend.ResetRequests()
	err := list.Submit(ctx, classroom.TeacherForm{FirstName: "Grace", LastName: "Hopper", Email: "grace@x.com"})

	assert.NoError(t, err, "not shown to the user")
	assert.Equal(t, ui.Idle, list.Mode(), "dialog closed all the same")
	assert.Equal(t, 1, backend.Count("GET", "/teachers"), "reloaded all the same")
	assert.Empty(t, list.Teachers())
	assert.True(t, sess.LoggedIn())
}

func TestTeacherList_SubmitInFlight(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	list, _ := newTeacherList(t, backend)
	require.NoError(t, list.Mount(ctx))

	started, release := make(chan struct{}), make(chan struct{})
	backend.OnRequest(func(req testutil.Request) {
		if req.Method == "POST" && req.Path == "/teachers" {
			close(started)
			<-release
		}
	})

	require.NoError(t, list.ShowAdd())
	form := classroom.TeacherForm{FirstName: "Grace", LastName: "Hopper", Email: "grace@x.com"}
	done := make(chan error)
	go func() { done <- list.Submit(ctx, form) }()
	<-started

	assert.Equal(t, ui.ErrBusy, list.Submit(ctx, form))
	assert.Equal(t, ui.ErrBusy, list.ShowAdd())
	list.Cancel()
	doc := testutil.Render(t, list)
	_, disabled := doc.Find("dialog .submit").Attr("disabled")
	assert.True(t, disabled, "submit disabled while in flight")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, backend.Count("POST", "/teachers"))
	assert.Len(t, list.Teachers(), 1)
	assert.Equal(t, ui.Idle, list.Mode())
}

func TestTeacherList_Delete(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	ada := backend.AddTeacher("Ada", "Lovelace", "ada@x.com")
	list, _ := newTeacherList(t, backend)
	require.NoError(t, list.Mount(ctx))

	no := &confirmer{answer: false}
	require.NoError(t, list.Delete(ctx, ada.ID, no))
	assert.Equal(t, []string{"Are you sure you want to delete [Ada Lovelace]?"}, no.asked)
	assert.Equal(t, 0, backend.Count("DELETE", "/teachers/"+strconv.Itoa(ada.ID)))
	assert.Len(t, list.Teachers(), 1)

	doc := testutil.Render(t, list)
	assert.Equal(t, "Are you sure you want to delete [Ada Lovelace]?", doc.Find(".row form[data-confirm]").AttrOr("data-confirm", ""))

	require.NoError(t, list.Delete(ctx, ada.ID, ui.Yes))
	assert.Equal(t, 1, backend.Count("DELETE", "/teachers/"+strconv.Itoa(ada.ID)))
	assert.Empty(t, list.Teachers())
	assert.Empty(t, backend.Teachers())

	assert.Equal(t, ui.ErrUnknownRecord, list.Delete(ctx, ada.ID, ui.Yes))
}

func TestTeacherList_DeleteFailed(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	ada := backend.AddTeacher("Ada", "Lovelace", "ada@x.com")
	list, _ := newTeacherList(t, backend)
	require.NoError(t, list.Mount(ctx))
	backend.Override("DELETE", "/teachers/"+strconv.Itoa(ada.ID), http.StatusConflict)
	backend.ResetRequests()

	require.NoError(t, list.Delete(ctx, ada.ID, ui.Yes))
	assert.Equal(t, 1, backend.Count("GET", "/teachers"), "reloaded whatever the outcome")
	assert.Len(t, list.Teachers(), 1)
}

func TestTeacherList_Select(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	backend.AddTeacher("Ada", "Lovelace", "ada@x.com")
	alan := backend.AddTeacher("Alan", "Turing", "alan@x.com")
	list, sess := newTeacherList(t, backend)
	require.NoError(t, list.Mount(ctx))

	var selected []classroom.Teacher
	sess.Bus().Subscribe(events.TeacherSelected, func(evt events.Event) {
		selected = append(selected, evt.Detail.(classroom.Teacher))
	})

	require.NoError(t, list.Select(alan.ID))
	assert.Equal(t, []classroom.Teacher{alan}, selected)
	doc := testutil.Render(t, list)
	assert.Equal(t, "Alan Turing", text(doc.Find(".row.selected .name")))

	assert.Equal(t, ui.ErrUnknownRecord, list.Select(alan.ID+10))
	assert.Len(t, selected, 1)
}

func TestTeacherList_Unauthorized(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	backend.AddTeacher("Ada", "Lovelace", "ada@x.com")
	list, sess := newTeacherList(t, backend)
	require.NoError(t, list.Mount(ctx))
	require.NoError(t, list.ShowAdd())

	backend.RevokeTokens()
	err := list.Load(ctx)

	assert.True(t, errors.Is(err, session.ErrUnauthorized), "error = %v", err)
	assert.False(t, sess.LoggedIn())
	assert.Empty(t, list.Teachers(), "cleared on logout")
	assert.Equal(t, ui.Idle, list.Mode())
	doc := testutil.Render(t, list)
	assert.Equal(t, 0, doc.Find(".rows").Length())
}

func TestTeacherList_Unmount(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	backend.AddTeacher("Ada", "Lovelace", "ada@x.com")
	list, sess := newTeacherList(t, backend)
	require.NoError(t, list.Mount(ctx))

	list.Unmount()
	require.NoError(t, sess.Logout(ctx))
	assert.Len(t, list.Teachers(), 1, "no longer listening once unmounted")
}
