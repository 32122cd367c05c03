package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/classroom/core/classroom"
)

var (
	jwtExpirationDelta = 10 * time.Minute

	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errNotFound     = echo.NewHTTPError(http.StatusNotFound, "not found")
)

type (
	// Request is a request received by the Backend.
	Request struct {
		Method string
		Path   string
		Query  string
		Auth   string
		Body   string
	}

	// Backend is an in-memory classroom backend served over HTTP, for tests.
	Backend struct {
		*httptest.Server

		mu        sync.Mutex
		secret    []byte
		teachers  map[int]classroom.Teacher
		students  map[int]classroom.Student
		users     map[string]backendUser
		roles     []string
		pkCount   int
		requests  []Request
		overrides map[string]int // "METHOD /path" -> forced status
		onRequest func(Request)
	}

	backendUser struct {
		classroom.User
		passwordHash []byte
		roles        []string
	}
)

// NewBackend starts a Backend knowing the user "alice" (password "secret"); it is closed with the test.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		secret:    []byte("secret-" + strconv.FormatInt(time.Now().UnixNano(), 36)),
		teachers:  make(map[int]classroom.Teacher),
		students:  make(map[int]classroom.Student),
		users:     make(map[string]backendUser),
		roles:     []string{"ADMIN", "TEACHER", "STUDENT"},
		overrides: make(map[string]int),
	}
	b.AddUser(t, classroom.User{Username: "alice", Password: "secret", Email: "alice@test.cd"}, "ADMIN")

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(b.record, b.override)
	e.HTTPErrorHandler = backendErrorHandler

	e.POST("/auth/login", b.login)

	ag := e.Group("", b.authenticate)
	ag.GET("/teachers", b.queryTeachers)
	ag.POST("/teachers", b.createTeacher)
	ag.GET("/teachers/:id", b.retrieveTeacher)
	ag.PUT("/teachers/:id", b.updateTeacher)
	ag.DELETE("/teachers/:id", b.destroyTeacher)

	ag.GET("/students", b.queryStudents)
	ag.POST("/students", b.createStudent)
	ag.GET("/students/:id", b.retrieveStudent)
	ag.PUT("/students/:id", b.updateStudent)
	ag.DELETE("/students/:id", b.destroyStudent)

	ag.GET("/users", b.queryUsers)
	ag.POST("/users", b.createUser)
	ag.GET("/users/:username", b.retrieveUser)
	ag.PUT("/users/:username", b.updateUser)
	ag.DELETE("/users/:username", b.destroyUser)
	ag.GET("/users/:username/roles", b.queryUserRoles)
	ag.POST("/users/:username/roles", b.addUserRole)
	ag.DELETE("/users/:username/roles/:role", b.removeUserRole)
	ag.GET("/roles", b.queryRoles)

	b.Server = httptest.NewServer(e)
	t.Cleanup(b.Close)
	return b
}

// Fixtures

func (b *Backend) AddUser(t *testing.T, usr classroom.User, roles ...string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(usr.Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("AddUser() failed: %v", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	usr.Password = ""
	b.users[usr.Username] = backendUser{User: usr, passwordHash: hash, roles: roles}
}

func (b *Backend) AddTeacher(first, last, email string) classroom.Teacher {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pkCount++
	teacher := classroom.Teacher{ID: b.pkCount, FirstName: first, LastName: last, Email: email}
	b.teachers[teacher.ID] = teacher
	return teacher
}

// AddStudent stores the student as is when it has an ID, with a new ID otherwise.
func (b *Backend) AddStudent(student classroom.Student) classroom.Student {
	b.mu.Lock()
	defer b.mu.Unlock()
	if student.ID == 0 {
		b.pkCount++
		student.ID = b.pkCount
	} else if student.ID > b.pkCount {
		b.pkCount = student.ID
	}
	b.students[student.ID] = student
	return student
}

// Token returns a valid token for `username`, as the login endpoint would.
func (b *Backend) Token(t *testing.T, username string) string {
	t.Helper()
	token, err := b.generateToken(username)
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	return token
}

// RevokeTokens invalidates every token issued so far.
func (b *Backend) RevokeTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.secret = append(b.secret, 'x')
}

// Override forces the status of every request to "METHOD /path"; status 0 removes it.
func (b *Backend) Override(method, path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + path
	if status == 0 {
		delete(b.overrides, key)
		return
	}
	b.overrides[key] = status
}

// OnRequest registers a func called with every request, before it is handled.
func (b *Backend) OnRequest(fn func(Request)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onRequest = fn
}

// Requests returns the requests received so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	reqs := make([]Request, len(b.requests))
	copy(reqs, b.requests)
	return reqs
}

// Count returns how many "METHOD /path" requests were received.
func (b *Backend) Count(method, path string) int {
	n := 0
	for _, req := range b.Requests() {
		if req.Method == method && req.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) ResetRequests() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = nil
}

func (b *Backend) Teachers() []classroom.Teacher {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sortedTeachers()
}

func (b *Backend) UserRoles(username string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.users[username].roles...)
}

// Middlewares

func (b *Backend) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		r := ctx.Request()
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		req := Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
			Body:   string(body),
		}

		b.mu.Lock()
		b.requests = append(b.requests, req)
		onRequest := b.onRequest
		b.mu.Unlock()

		if onRequest != nil {
			onRequest(req)
		}
		return next(ctx)
	}
}

func (b *Backend) override(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		b.mu.Lock()
		status, ok := b.overrides[ctx.Request().Method+" "+ctx.Request().URL.Path]
		b.mu.Unlock()
		if ok {
			return ctx.NoContent(status)
		}
		return next(ctx)
	}
}

func (b *Backend) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		auth := ctx.Request().Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			return errUnauthorized
		}
		claims := new(jwt.StandardClaims)
		_, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errUnauthorized
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			return b.secret, nil
		})
		if err != nil {
			return errUnauthorized
		}
		ctx.Set("username", claims.Subject)
		return next(ctx)
	}
}

func (b *Backend) generateToken(username string) (string, error) {
	now := time.Now()
	claims := jwt.StandardClaims{
		Subject:   username,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(jwtExpirationDelta).Unix(),
	}
	b.mu.Lock()
	secret := b.secret
	b.mu.Unlock()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func backendErrorHandler(err error, ctx echo.Context) {
	code := http.StatusInternalServerError
	message := http.StatusText(code)
	if herr, ok := err.(*echo.HTTPError); ok {
		code = herr.Code
		if m, ok := herr.Message.(string); ok {
			message = m
		}
	}
	if !ctx.Response().Committed {
		_ = ctx.JSON(code, echo.Map{"error": message})
	}
}

// Handlers

func (b *Backend) login(ctx echo.Context) error {
	var creds classroom.Credentials
	if err := ctx.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed credentials")
	}
	b.mu.Lock()
	usr, ok := b.users[creds.Username]
	b.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(usr.passwordHash, []byte(creds.Password)) != nil {
		return errUnauthorized
	}
	token, err := b.generateToken(usr.Username)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, classroom.TokenResponse{AccessToken: classroom.AccessToken{Token: token}})
}

func paramID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errNotFound
	}
	return id, nil
}

func (b *Backend) sortedTeachers() []classroom.Teacher {
	teachers := make([]classroom.Teacher, 0, len(b.teachers))
	for _, teacher := range b.teachers {
		teachers = append(teachers, teacher)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].ID < teachers[j].ID })
	return teachers
}

func (b *Backend) queryTeachers(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ctx.JSON(http.StatusOK, b.sortedTeachers())
}

func (b *Backend) retrieveTeacher(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	teacher, ok := b.teachers[id]
	if !ok {
		return errNotFound
	}
	return ctx.JSON(http.StatusOK, teacher)
}

func (b *Backend) createTeacher(ctx echo.Context) error {
	var teacher classroom.Teacher
	if err := ctx.Bind(&teacher); err != nil || teacher.FirstName == "" || teacher.LastName == "" || teacher.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid teacher")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pkCount++
	teacher.ID = b.pkCount
	b.teachers[teacher.ID] = teacher
	return ctx.JSON(http.StatusCreated, teacher)
}

func (b *Backend) updateTeacher(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var teacher classroom.Teacher
	if err := ctx.Bind(&teacher); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid teacher")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.teachers[id]; !ok {
		return errNotFound
	}
	teacher.ID = id
	b.teachers[id] = teacher
	return ctx.JSON(http.StatusOK, teacher)
}

func (b *Backend) destroyTeacher(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.teachers[id]; !ok {
		return errNotFound
	}
	delete(b.teachers, id)
	return ctx.NoContent(http.StatusNoContent)
}

func (b *Backend) queryStudents(ctx echo.Context) error {
	teacherID := -1
	if raw := ctx.QueryParam("teacherId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid teacherId")
		}
		teacherID = id
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	students := make([]classroom.Student, 0)
	for _, student := range b.students {
		if teacherID == -1 || student.TeacherID == teacherID {
			students = append(students, student)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return ctx.JSON(http.StatusOK, students)
}

func (b *Backend) retrieveStudent(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	student, ok := b.students[id]
	if !ok {
		return errNotFound
	}
	return ctx.JSON(http.StatusOK, student)
}

func (b *Backend) createStudent(ctx echo.Context) error {
	var student classroom.Student
	if err := ctx.Bind(&student); err != nil || student.FirstName == "" || student.LastName == "" || student.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid student")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pkCount++
	student.ID = b.pkCount
	b.students[student.ID] = student
	return ctx.JSON(http.StatusCreated, student)
}

func (b *Backend) updateStudent(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var student classroom.Student
	if err := ctx.Bind(&student); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid student")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.students[id]; !ok {
		return errNotFound
	}
	student.ID = id
	b.students[id] = student
	return ctx.JSON(http.StatusOK, student)
}

func (b *Backend) destroyStudent(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.students[id]; !ok {
		return errNotFound
	}
	delete(b.students, id)
	return ctx.NoContent(http.StatusNoContent)
}

func (b *Backend) queryUsers(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	users := make([]classroom.User, 0, len(b.users))
	for _, usr := range b.users {
		users = append(users, usr.User)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return ctx.JSON(http.StatusOK, users)
}

func (b *Backend) retrieveUser(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	usr, ok := b.users[ctx.Param("username")]
	if !ok {
		return errNotFound
	}
	return ctx.JSON(http.StatusOK, usr.User)
}

func (b *Backend) createUser(ctx echo.Context) error {
	var usr classroom.User
	if err := ctx.Bind(&usr); err != nil || usr.Username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(usr.Password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[usr.Username]; ok {
		return echo.NewHTTPError(http.StatusConflict, "a user with this username already exists")
	}
	usr.Password = ""
	b.users[usr.Username] = backendUser{User: usr, passwordHash: hash}
	return ctx.JSON(http.StatusCreated, usr)
}

func (b *Backend) updateUser(ctx echo.Context) error {
	var data classroom.User
	if err := ctx.Bind(&data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	usr, ok := b.users[ctx.Param("username")]
	if !ok {
		return errNotFound
	}
	usr.Email = data.Email
	if data.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(data.Password), bcrypt.MinCost)
		if err != nil {
			return err
		}
		usr.passwordHash = hash
	}
	b.users[usr.Username] = usr
	return ctx.JSON(http.StatusOK, usr.User)
}

func (b *Backend) destroyUser(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[ctx.Param("username")]; !ok {
		return errNotFound
	}
	delete(b.users, ctx.Param("username"))
	return ctx.NoContent(http.StatusNoContent)
}

func (b *Backend) queryRoles(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ctx.JSON(http.StatusOK, b.roles)
}

func (b *Backend) queryUserRoles(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	usr, ok := b.users[ctx.Param("username")]
	if !ok {
		return errNotFound
	}
	roles := append([]string{}, usr.roles...)
	return ctx.JSON(http.StatusOK, roles)
}

func (b *Backend) addUserRole(ctx echo.Context) error {
	body, err := io.ReadAll(ctx.Request().Body)
	role := strings.TrimSpace(string(body))
	if err != nil || role == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid role")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	usr, ok := b.users[ctx.Param("username")]
	if !ok {
		return errNotFound
	}
	for _, r := range usr.roles {
		if r == role {
			return ctx.NoContent(http.StatusCreated)
		}
	}
	usr.roles = append(usr.roles, role)
	b.users[usr.Username] = usr
	return ctx.NoContent(http.StatusCreated)
}

func (b *Backend) removeUserRole(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	usr, ok := b.users[ctx.Param("username")]
	if !ok {
		return errNotFound
	}
	roles := usr.roles[:0:0]
	for _, r := range usr.roles {
		if r != ctx.Param("role") {
			roles = append(roles, r)
		}
	}
	usr.roles = roles
	b.users[usr.Username] = usr
	return ctx.NoContent(http.StatusNoContent)
}
