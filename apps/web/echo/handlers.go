package echoweb

import (
	"bytes"
	"html/template"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/classroom"
	"github.com/trezcool/classroom/core/session"
	"github.com/trezcool/classroom/ui"
)

// Every action redirects to the shell, which renders the state left by the action.
func registerRoutes(app *echo.Echo, s *Server) {
	app.GET("/", s.home)
	app.POST("/login", s.login)
	app.POST("/logout", s.logout)

	tg := app.Group("/teachers", loggedInMiddleware)
	tg.POST("/add", listAction(func(ctx echo.Context, c *client) error { return c.teachers.ShowAdd() }))
	tg.POST("/form", listAction(submitTeacher))
	tg.POST("/cancel", listAction(func(ctx echo.Context, c *client) error { c.teachers.Cancel(); return nil }))
	tg.POST("/:id/edit", listAction(func(ctx echo.Context, c *client) error {
		id, err := paramID(ctx)
		if err != nil {
			return err
		}
		return c.teachers.ShowEdit(id)
	}))
	tg.POST("/:id/delete", listAction(func(ctx echo.Context, c *client) error {
		id, err := paramID(ctx)
		if err != nil {
			return err
		}
		return c.teachers.Delete(ctx.Request().Context(), id, formConfirmer(ctx))
	}))
	tg.POST("/:id/select", listAction(selectTeacher))

	sg := app.Group("/students", loggedInMiddleware)
	sg.POST("/add", listAction(func(ctx echo.Context, c *client) error { return c.students.ShowAdd() }))
	sg.POST("/form", listAction(submitStudent))
	sg.POST("/cancel", listAction(func(ctx echo.Context, c *client) error { c.students.Cancel(); return nil }))
	sg.POST("/:id/edit", listAction(func(ctx echo.Context, c *client) error {
		id, err := paramID(ctx)
		if err != nil {
			return err
		}
		return c.students.ShowEdit(id)
	}))
	sg.POST("/:id/delete", listAction(func(ctx echo.Context, c *client) error {
		id, err := paramID(ctx)
		if err != nil {
			return err
		}
		return c.students.Delete(ctx.Request().Context(), id, formConfirmer(ctx))
	}))
}

func redirectHome(ctx echo.Context) error {
	return ctx.Redirect(http.StatusSeeOther, "/")
}

func loggedInMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		c, err := getContextClient(ctx)
		if err != nil {
			return err
		}
		if !c.sess.LoggedIn() {
			return redirectHome(ctx)
		}
		return next(ctx)
	}
}

// listAction runs a list action, then redirects home.
// Errors the lists show themselves (invalid forms, submits in flight) are not errors of the request.
func listAction(action func(ctx echo.Context, c *client) error) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		c, err := getContextClient(ctx)
		if err != nil {
			return err
		}
		if err := action(ctx, c); err != nil && !isShownError(err) {
			return err
		}
		return redirectHome(ctx)
	}
}

func isShownError(err error) bool {
	if _, ok := core.AsValidationError(err); ok {
		return true
	}
	cause := errors.Cause(err)
	return cause == ui.ErrBusy || cause == ui.ErrNoDialog
}

func paramID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, ui.ErrUnknownRecord
	}
	return id, nil
}

// formConfirmer confirms what the browser confirmed before posting.
func formConfirmer(ctx echo.Context) ui.Confirmer {
	return ui.ConfirmFunc(func(string) bool {
		return ctx.FormValue("confirm") == "yes"
	})
}

// Handlers

func (s *Server) home(ctx echo.Context) error {
	c, err := getContextClient(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	if !c.sess.LoggedIn() {
		ok, err := c.sess.TryAutoLogin(reqCtx)
		if err != nil {
			return errors.Wrap(err, "restoring session")
		}
		// a stale token logs the session out: the login box is shown
		if ok {
			if err := c.enter(reqCtx); err != nil && !errors.Is(err, session.ErrUnauthorized) {
				return err
			}
		}
	}

	var body bytes.Buffer
	loggedIn := c.sess.LoggedIn()
	if loggedIn {
		if err := c.teachers.Render(&body); err != nil {
			return err
		}
		if err := c.students.Render(&body); err != nil {
			return err
		}
	} else if err := c.login.Render(&body); err != nil {
		return err
	}

	var page bytes.Buffer
	err = ui.RenderPage(&page, ui.Page{
		Title:    s.deps.Conf.AppName,
		Username: c.sess.Username(),
		LoggedIn: loggedIn,
		Body:     template.HTML(body.String()),
	})
	if err != nil {
		return err
	}
	return ctx.HTMLBlob(http.StatusOK, page.Bytes())
}

func (s *Server) login(ctx echo.Context) error {
	c, err := getContextClient(ctx)
	if err != nil {
		return err
	}
	var form classroom.LoginForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to LoginForm")
	}

	reqCtx := ctx.Request().Context()
	if err := c.login.Submit(reqCtx, form); err != nil && !isShownError(err) {
		return err
	}
	// the login box signals its success; the lists are shown then
	if c.entering {
		if err := c.enter(reqCtx); err != nil {
			return err
		}
	}
	return redirectHome(ctx)
}

func (s *Server) logout(ctx echo.Context) error {
	c, err := getContextClient(ctx)
	if err != nil {
		return err
	}
	if err := c.sess.Logout(ctx.Request().Context()); err != nil {
		return err
	}
	return redirectHome(ctx)
}

func submitTeacher(ctx echo.Context, c *client) error {
	var form classroom.TeacherForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to TeacherForm")
	}
	return c.teachers.Submit(ctx.Request().Context(), form)
}

func submitStudent(ctx echo.Context, c *client) error {
	var form classroom.StudentForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to StudentForm")
	}
	return c.students.Submit(ctx.Request().Context(), form)
}

// selectTeacher lists the students of the teacher selected in the teacher list.
func selectTeacher(ctx echo.Context, c *client) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err := c.teachers.Select(id); err != nil {
		return err
	}
	return c.students.Update(ctx.Request().Context(), ui.Attrs{ui.TeacherIDAttr: strconv.Itoa(c.selected)})
}
