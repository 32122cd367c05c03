package echoweb

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/session"
	"github.com/trezcool/classroom/ui"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message string

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = fmt.Sprint(origErr.Message)
		case *session.Error:
			// the session logged out: back to the login box
			if errors.Is(origErr, session.ErrUnauthorized) {
				if !ctx.Response().Committed {
					_ = redirectHome(ctx)
				}
				return
			}
			code, message = sessionErrorStatus(origErr)
			if code >= http.StatusInternalServerError {
				logger.Error(message, err)
			}
		case *core.ValidationError:
			code = http.StatusBadRequest
			message = origErr.Error()
		default:
			if origErr == ui.ErrUnknownRecord {
				code = http.StatusNotFound
				message = http.StatusText(code)
				break
			}
			// any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(code)
			logger.Error(message, errors.Wrap(err, message))
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = renderError(ctx, code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func sessionErrorStatus(err *session.Error) (int, string) {
	switch err.Kind {
	case session.KindNetwork:
		return http.StatusBadGateway, "the classroom backend cannot be reached"
	case session.KindServer:
		return http.StatusBadGateway, "the classroom backend failed"
	case session.KindNotFound:
		return http.StatusNotFound, http.StatusText(http.StatusNotFound)
	case session.KindValidation:
		return http.StatusBadRequest, "the classroom backend refused the request"
	case session.KindAuth:
		return http.StatusForbidden, "permission denied"
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

func renderError(ctx echo.Context, code int, message string) error {
	var page bytes.Buffer
	err := ui.RenderPage(&page, ui.Page{
		Title: http.StatusText(code),
		Body:  template.HTML(`<p class="error">` + template.HTMLEscapeString(message) + `</p>`),
	})
	if err != nil {
		return err
	}
	return ctx.HTMLBlob(code, page.Bytes())
}
