package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/classroom"
	"github.com/trezcool/classroom/core/events"
	. "github.com/trezcool/classroom/core/session"
	logsvc "github.com/trezcool/classroom/services/logger"
	"github.com/trezcool/classroom/storage/inmem"
	"github.com/trezcool/classroom/tests"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "no base url", opts: Options{Store: inmem.NewStore(), Logger: logsvc.NewDiscardLogger()}, wantErr: true},
		{name: "no store", opts: Options{BaseURL: "http://localhost", Logger: logsvc.NewDiscardLogger()}, wantErr: true},
		{name: "no logger", opts: Options{BaseURL: "http://localhost", Store: inmem.NewStore()}, wantErr: true},
		{name: "ok", opts: Options{BaseURL: "http://localhost/", Store: inmem.NewStore(), Logger: logsvc.NewDiscardLogger()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := New(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				assert.NotNil(t, sess.Bus(), "a bus is created when none is given")
			}
		})
	}
}

func TestSession_LoginAndAutoLogin(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	store := inmem.NewStore()

	sess := testutil.NewSession(t, backend.URL, store)
	require.NoError(t, sess.Login(ctx, "alice", "secret"))
	assert.True(t, sess.LoggedIn())
	assert.Equal(t, "alice", sess.Username())

	stored, _ := store.Get(ctx, core.TokenKey)
	assert.Equal(t, sess.Token(), stored)

	req := backend.Requests()[0]
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "/auth/login", req.Path)
	assert.Equal(t, "", req.Auth, "login is not authenticated")
	assert.JSONEq(t, `{"username":"alice","password":"secret"}`, req.Body)

	// simulated reload: a new Session on the same durable storage
	reloaded := testutil.NewSession(t, backend.URL, store)
	assert.False(t, reloaded.LoggedIn())
	ok, err := reloaded.TryAutoLogin(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sess.Token(), reloaded.Token())
	assert.Len(t, backend.Requests(), 1, "auto login makes no request")

	_, err = reloaded.Teachers(ctx)
	assert.NoError(t, err, "the restored token is usable")
}

func TestSession_TryAutoLoginWithoutToken(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	sess := testutil.NewSession(t, "http://localhost", store)

	ok, err := sess.TryAutoLogin(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, core.TokenKey, ""))
	ok, _ = sess.TryAutoLogin(ctx)
	assert.False(t, ok, "an empty token is no token")
	assert.False(t, sess.LoggedIn())
}

func TestSession_LoginFailed(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	store := inmem.NewStore()
	sess := testutil.NewSession(t, backend.URL, store)

	err := sess.Login(ctx, "alice", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthenticationFailed))
	assert.Equal(t, KindAuth, KindOf(err))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))

	assert.False(t, sess.LoggedIn())
	stored, _ := store.Get(ctx, core.TokenKey)
	assert.Equal(t, "", stored, "durable token unchanged")
}

func TestSession_LoginServerError(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Override("POST", "/auth/login", http.StatusInternalServerError)
	sess := testutil.NewSession(t, backend.URL, nil)

	err := sess.Login(context.Background(), "alice", "secret")
	assert.True(t, errors.Is(err, ErrAuthenticationFailed))
	assert.False(t, sess.LoggedIn())
}

func TestSession_Logout(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	store := inmem.NewStore()
	sess := testutil.NewSession(t, backend.URL, store)
	require.NoError(t, sess.Login(ctx, "alice", "secret"))

	logouts := 0
	sess.Bus().Subscribe(events.Logout, func(events.Event) { logouts++ })

	for i := 0; i < 2; i++ {
		require.NoError(t, sess.Logout(ctx))
		assert.Equal(t, "", sess.Token())
		stored, _ := store.Get(ctx, core.TokenKey)
		assert.Equal(t, "", stored)
	}
	assert.Equal(t, 2, logouts, "every logout is broadcast")
	assert.Len(t, backend.Requests(), 1, "logout makes no request")
}

func TestSession_UnauthorizedLogsOut(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	teacher := backend.AddTeacher("Ada", "Lovelace", "ada@x.com")
	student := backend.AddStudent(classroom.Student{FirstName: "Amy", LastName: "Lee", Email: "a@x.com", TeacherID: teacher.ID})

	tests := []struct {
		name string
		call func(sess *Session) error
	}{
		{name: "getTeachers", call: func(s *Session) error { _, err := s.Teachers(ctx); return err }},
		{name: "getTeacher", call: func(s *Session) error { _, err := s.Teacher(ctx, teacher.ID); return err }},
		{name: "createTeacher", call: func(s *Session) error { _, err := s.CreateTeacher(ctx, teacher); return err }},
		{name: "updateTeacher", call: func(s *Session) error { _, err := s.UpdateTeacher(ctx, teacher.ID, teacher); return err }},
		{name: "deleteTeacher", call: func(s *Session) error { return s.DeleteTeacher(ctx, teacher.ID) }},
		{name: "getStudents", call: func(s *Session) error { _, err := s.Students(ctx, teacher.ID); return err }},
		{name: "getStudent", call: func(s *Session) error { _, err := s.Student(ctx, student.ID); return err }},
		{name: "createStudent", call: func(s *Session) error { _, err := s.CreateStudent(ctx, student); return err }},
		{name: "updateStudent", call: func(s *Session) error { _, err := s.UpdateStudent(ctx, student.ID, student); return err }},
		{name: "deleteStudent", call: func(s *Session) error { return s.DeleteStudent(ctx, student.ID) }},
		{name: "getUsers", call: func(s *Session) error { _, err := s.Users(ctx); return err }},
		{name: "getUser", call: func(s *Session) error { _, err := s.User(ctx, "alice"); return err }},
		{name: "createUser", call: func(s *Session) error { _, err := s.CreateUser(ctx, classroom.User{Username: "bob"}); return err }},
		{name: "updateUser", call: func(s *Session) error { _, err := s.UpdateUser(ctx, "alice", classroom.User{}); return err }},
		{name: "deleteUser", call: func(s *Session) error { return s.DeleteUser(ctx, "alice") }},
		{name: "getRoles", call: func(s *Session) error { _, err := s.Roles(ctx); return err }},
		{name: "getRolesForUser", call: func(s *Session) error { _, err := s.RolesForUser(ctx, "alice"); return err }},
		{name: "addRoleToUser", call: func(s *Session) error { return s.AddRoleToUser(ctx, "alice", "TEACHER") }},
		{name: "removeRoleFromUser", call: func(s *Session) error { return s.RemoveRoleFromUser(ctx, "alice", "ADMIN") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := inmem.NewStore()
			sess := testutil.NewSession(t, backend.URL, store)
			require.NoError(t, sess.Login(ctx, "alice", "secret"))
			loggedOut := false
			sess.Bus().Subscribe(events.Logout, func(events.Event) { loggedOut = true })

			backend.RevokeTokens()
			err := tt.call(sess)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnauthorized), "error = %v", err)
			assert.Equal(t, KindAuth, KindOf(err))
			assert.Equal(t, "", sess.Token())
			stored, _ := store.Get(ctx, core.TokenKey)
			assert.Equal(t, "", stored)
			assert.True(t, loggedOut)
		})
	}
}

func TestSession_OtherFailuresKeepToken(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	sess := testutil.LoggedInSession(t, backend)

	tests := []struct {
		name     string
		status   int
		method   string
		path     string
		call     func() error
		wantKind Kind
	}{
		{
			name: "list 500", status: http.StatusInternalServerError, method: "GET", path: "/teachers",
			call:     func() error { _, err := sess.Teachers(ctx); return err },
			wantKind: KindServer,
		},
		{
			name: "get 404", status: http.StatusNotFound, method: "GET", path: "/teachers/99",
			call:     func() error { _, err := sess.Teacher(ctx, 99); return err },
			wantKind: KindNotFound,
		},
		{
			name: "create 400", status: http.StatusBadRequest, method: "POST", path: "/teachers",
			call:     func() error { _, err := sess.CreateTeacher(ctx, classroom.Teacher{}); return err },
			wantKind: KindValidation,
		},
		{
			name: "create 200 is not 201", status: http.StatusOK, method: "POST", path: "/students",
			call:     func() error { _, err := sess.CreateStudent(ctx, classroom.Student{}); return err },
			wantKind: KindUnexpected,
		},
		{
			name: "delete 200 is not 204", status: http.StatusOK, method: "DELETE", path: "/students/1",
			call:     func() error { return sess.DeleteStudent(ctx, 1) },
			wantKind: KindUnexpected,
		},
		{
			name: "forbidden", status: http.StatusForbidden, method: "DELETE", path: "/users/alice",
			call:     func() error { return sess.DeleteUser(ctx, "alice") },
			wantKind: KindAuth,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend.Override(tt.method, tt.path, tt.status)
			defer backend.Override(tt.method, tt.path, 0)

			err := tt.call()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnexpectedStatus))
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.Equal(t, tt.status, StatusOf(err))
			assert.True(t, sess.LoggedIn(), "only a 401 logs out")
		})
	}
}

func TestSession_NetworkFailure(t *testing.T) {
	backend := testutil.NewBackend(t)
	sess := testutil.LoggedInSession(t, backend)
	backend.Close()

	_, err := sess.Teachers(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, 0, StatusOf(err))
	assert.True(t, sess.LoggedIn())

	err = testutil.NewSession(t, backend.URL, nil).Login(context.Background(), "alice", "secret")
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestSession_Timeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(slow.Close)
	t.Cleanup(func() { close(release) })

	store := inmem.NewStore()
	require.NoError(t, store.Set(context.Background(), core.TokenKey, "abc"))
	sess, err := New(Options{
		BaseURL:    slow.URL,
		Store:      store,
		Logger:     logsvc.NewDiscardLogger(),
		HTTPClient: &http.Client{}, // a client of its own does not lift the timeout
		Timeout:    50 * time.Millisecond,
	})
	require.NoError(t, err)
	_, err = sess.TryAutoLogin(context.Background())
	require.NoError(t, err)

	start := time.Now()
	_, err = sess.Teachers(context.Background())
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, sess.LoggedIn())

	err = sess.Login(context.Background(), "alice", "secret")
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestSession_BearerHeader(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)

	sess := testutil.NewSession(t, backend.URL, nil)
	_, err := sess.Teachers(ctx)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "Bearer", backend.Requests()[0].Auth, "sent without a token (the trailing space is trimmed on the wire)")

	sess = testutil.LoggedInSession(t, backend)
	_, err = sess.Teachers(ctx)
	require.NoError(t, err)
	reqs := backend.Requests()
	assert.Equal(t, "Bearer "+sess.Token(), reqs[len(reqs)-1].Auth)
}

func TestSession_TeacherRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	sess := testutil.LoggedInSession(t, backend)

	created, err := sess.CreateTeacher(ctx, classroom.Teacher{ID: 0, FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.com"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	teachers, err := sess.Teachers(ctx)
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, "Ada", teachers[0].FirstName)
	assert.Equal(t, "Lovelace", teachers[0].LastName)
	assert.Equal(t, "ada@x.com", teachers[0].Email)

	created.Email = "ada@lovelace.org"
	updated, err := sess.UpdateTeacher(ctx, created.ID, created)
	require.NoError(t, err)
	assert.Equal(t, created, updated)

	got, err := sess.Teacher(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@lovelace.org", got.Email)

	require.NoError(t, sess.DeleteTeacher(ctx, created.ID))
	teachers, err = sess.Teachers(ctx)
	require.NoError(t, err)
	assert.Empty(t, teachers)
}

func TestSession_Students(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	sess := testutil.LoggedInSession(t, backend)
	backend.AddStudent(classroom.Student{ID: 1, FirstName: "Amy", LastName: "Lee", Email: "a@x.com", TeacherID: 5})
	backend.AddStudent(classroom.Student{ID: 2, FirstName: "Bo", LastName: "Ng", Email: "b@x.com", TeacherID: 6})

	students, err := sess.Students(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []classroom.Student{{ID: 1, FirstName: "Amy", LastName: "Lee", Email: "a@x.com", TeacherID: 5}}, students)
	reqs := backend.Requests()
	assert.Equal(t, "teacherId=5", reqs[len(reqs)-1].Query)

	all, err := sess.AllStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	created, err := sess.CreateStudent(ctx, classroom.Student{FirstName: "Cy", LastName: "Oz", Email: "c@x.com", TeacherID: 5})
	require.NoError(t, err)
	created.LastName = "Ozz"
	_, err = sess.UpdateStudent(ctx, created.ID, created)
	require.NoError(t, err)
	got, err := sess.Student(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ozz", got.LastName)

	require.NoError(t, sess.DeleteStudent(ctx, 1))
	students, err = sess.Students(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []classroom.Student{got}, students)
}

func TestSession_UsersAndRoles(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewBackend(t)
	sess := testutil.LoggedInSession(t, backend)

	roles, err := sess.Roles(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ADMIN", "TEACHER", "STUDENT"}, roles)

	created, err := sess.CreateUser(ctx, classroom.User{Username: "bob", Password: "pwd", Email: "bob@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "", created.Password, "passwords are write-only")

	_, err = sess.CreateUser(ctx, classroom.User{Username: "bob", Password: "pwd"})
	assert.Equal(t, KindValidation, KindOf(err), "duplicate username")

	_, err = sess.UpdateUser(ctx, "bob", classroom.User{Username: "bob", Email: "robert@x.com"})
	require.NoError(t, err)
	usr, err := sess.User(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "robert@x.com", usr.Email)

	require.NoError(t, sess.AddRoleToUser(ctx, "bob", "TEACHER"))
	reqs := backend.Requests()
	last := reqs[len(reqs)-1]
	assert.Equal(t, "/users/bob/roles", last.Path)
	assert.Equal(t, "TEACHER", last.Body, "the role is posted bare")

	userRoles, err := sess.RolesForUser(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"TEACHER"}, userRoles)

	require.NoError(t, sess.RemoveRoleFromUser(ctx, "bob", "TEACHER"))
	assert.Empty(t, backend.UserRoles("bob"))

	users, err := sess.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, sess.DeleteUser(ctx, "bob"))
	_, err = sess.User(ctx, "bob")
	assert.Equal(t, KindNotFound, KindOf(err))
}
