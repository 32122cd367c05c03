package echoweb

import (
	"context"
	"net/http"
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/classroom"
	"github.com/trezcool/classroom/core/events"
	"github.com/trezcool/classroom/core/session"
	"github.com/trezcool/classroom/storage"
	"github.com/trezcool/classroom/storage/inmem"
	"github.com/trezcool/classroom/ui"
)

const (
	clientCookie = "classroom_client"
	clientCtxKey = "client"
)

var errClientNotFoundInCtx = errors.New("client not found in echo.Context")

const (
	defaultMaxClients = 10000
	defaultClientIdle = 30 * time.Minute
)

type (
	// client is the state of one browser: its session and its screens.
	client struct {
		mu       sync.Mutex // one request of a browser at a time
		id       string     // "" for a browser without cookie, which is not kept
		lastSeen time.Time
		sess     *session.Session
		login    *ui.LoginBox
		teachers *ui.TeacherList
		students *ui.StudentList
		mounted  bool
		entering bool // logged in by the login box, lists not shown yet
		selected int  // teacher whose students are listed
	}

	clients struct {
		deps       Deps
		validate   *validator.Validate
		translator ut.Translator
		max        int
		idle       time.Duration
		now        func() time.Time

		mu        sync.Mutex
		all       map[string]*client
		lastSweep time.Time
	}
)

func newClients(deps Deps) *clients {
	validate, translator := core.NewValidator()
	cs := &clients{
		deps:       deps,
		validate:   validate,
		translator: translator,
		max:        deps.Conf.Web.MaxClients,
		idle:       deps.Conf.Web.ClientIdle,
		now:        time.Now,
		all:        make(map[string]*client),
	}
	if cs.max <= 0 {
		cs.max = defaultMaxClients
	}
	if cs.idle <= 0 {
		cs.idle = defaultClientIdle
	}
	cs.lastSweep = cs.now()
	return cs
}

func (cs *clients) get(id string) (*client, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	if now.Sub(cs.lastSweep) >= cs.idle/4 {
		cs.sweep(now)
	}
	if c, ok := cs.all[id]; ok {
		c.lastSeen = now
		return c, nil
	}

	c, err := cs.newClient(id, cs.deps.Storage.Store(cs.namespace(id)))
	if err != nil {
		return nil, err
	}
	c.lastSeen = now
	cs.all[id] = c
	for len(cs.all) > cs.max {
		cs.evict(cs.leastRecent())
	}
	return c, nil
}

// transient returns a client for a single request of a browser without cookie.
func (cs *clients) transient() (*client, error) {
	return cs.newClient("", inmem.NewStore())
}

func (cs *clients) namespace(id string) string {
	return storage.Origin(cs.deps.Conf.API.BaseURL) + ":" + id
}

// sweep forgets the clients idle for longer than cs.idle.
func (cs *clients) sweep(now time.Time) {
	cs.lastSweep = now
	for _, c := range cs.all {
		if now.Sub(c.lastSeen) > cs.idle {
			cs.evict(c)
		}
	}
}

// leastRecent picks the least recently seen client, preferring logged out ones.
func (cs *clients) leastRecent() *client {
	var oldest, oldestOut *client
	for _, c := range cs.all {
		if oldest == nil || c.lastSeen.Before(oldest.lastSeen) {
			oldest = c
		}
		if !c.sess.LoggedIn() && (oldestOut == nil || c.lastSeen.Before(oldestOut.lastSeen)) {
			oldestOut = c
		}
	}
	if oldestOut != nil {
		return oldestOut
	}
	return oldest
}

// evict forgets a client. The stored token of a logged in client is kept: the browser logs back in with it.
func (cs *clients) evict(c *client) {
	delete(cs.all, c.id)
	if !c.sess.LoggedIn() {
		cs.deps.Storage.Forget(cs.namespace(c.id))
	}
}

func (cs *clients) newClient(id string, store core.TokenStore) (*client, error) {
	conf := cs.deps.Conf
	bus := events.NewBus()
	sess, err := session.New(session.Options{
		BaseURL:    conf.API.BaseURL,
		Store:      store,
		Logger:     cs.deps.Logger,
		Bus:        bus,
		HTTPClient: cs.deps.HTTPClient,
		Timeout:    conf.API.Timeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating session")
	}

	opts := ui.Options{Bus: bus, Logger: cs.deps.Logger, Validate: cs.validate, Translator: cs.translator}
	c := &client{id: id, sess: sess}
	if c.login, err = ui.NewLoginBox(sess, opts); err != nil {
		return nil, err
	}
	if c.teachers, err = ui.NewTeacherList(sess, opts); err != nil {
		return nil, err
	}
	if c.students, err = ui.NewStudentList(sess, opts); err != nil {
		return nil, err
	}

	// events are published while the browser's request holds c.mu
	bus.Subscribe(events.LoginSuccess, func(events.Event) {
		c.entering = true
	})
	bus.Subscribe(events.TeacherSelected, func(evt events.Event) {
		if teacher, ok := evt.Detail.(classroom.Teacher); ok {
			c.selected = teacher.ID
		}
	})
	bus.Subscribe(events.Logout, func(events.Event) {
		c.selected = 0
		c.entering = false
	})
	return c, nil
}

// enter shows the lists of a logged in client, loading them.
// Both lists are mounted even when the first fails to load, so both follow logouts.
func (c *client) enter(ctx context.Context) error {
	c.entering = false
	if !c.mounted {
		tErr := c.teachers.Mount(ctx)
		sErr := c.students.Mount(ctx)
		c.mounted = true
		if tErr != nil {
			return tErr
		}
		return sErr
	}
	return c.teachers.Load(ctx)
}

// identify binds the browser's client to the context, holding its lock during the request.
// Browsers are told apart by a random id kept in a cookie, given on their first POST:
// pages read without cookie are rendered by a client that is not kept.
func (s *Server) identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var id string
		if cookie, err := ctx.Cookie(clientCookie); err == nil {
			if _, err := uuid.Parse(cookie.Value); err == nil {
				id = cookie.Value
			}
		}

		var c *client
		var err error
		switch method := ctx.Request().Method; {
		case id == "" && (method == http.MethodGet || method == http.MethodHead):
			c, err = s.clients.transient()
		default:
			if id == "" {
				id = uuid.NewString()
				ctx.SetCookie(&http.Cookie{
					Name:     clientCookie,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   s.deps.Conf.Web.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			c, err = s.clients.get(id)
		}
		if err != nil {
			return errors.Wrap(err, "getting client")
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		ctx.Set(clientCtxKey, c)
		return next(ctx)
	}
}

func getContextClient(ctx echo.Context) (*client, error) {
	c, ok := ctx.Get(clientCtxKey).(*client)
	if !ok {
		return nil, errClientNotFoundInCtx
	}
	return c, nil
}
