package ui

import (
	"context"
	"io"
	"sync"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/classroom"
	"github.com/trezcool/classroom/core/events"
	"github.com/trezcool/classroom/core/session"
)

// LoginFailedText is shown when the backend refuses the credentials.
const LoginFailedText = "Invalid username or password"

type LoginSession interface {
	Login(ctx context.Context, username, password string) error
}

// LoginBox logs the user in and broadcasts events.LoginSuccess with the username.
type LoginBox struct {
	sess       LoginSession
	bus        *events.Bus
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator

	mu       sync.Mutex
	username string
	failure  string
	errs     map[string]string
	busy     bool
}

var _ Component = (*LoginBox)(nil)

func NewLoginBox(sess LoginSession, opts Options) (*LoginBox, error) {
	if err := opts.check(sess); err != nil {
		return nil, err
	}
	return &LoginBox{
		sess:       sess,
		bus:        opts.Bus,
		logger:     opts.Logger,
		validate:   opts.Validate,
		translator: opts.Translator,
	}, nil
}

// Mount clears the form.
func (b *LoginBox) Mount(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.username, b.failure, b.errs = "", "", nil
	return nil
}

func (b *LoginBox) Update(context.Context, Attrs) error { return nil }
func (b *LoginBox) Unmount()                            {}

// Failure returns the inline error shown, "" if none.
func (b *LoginBox) Failure() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failure
}

// Submit logs in. Refused credentials are reported inline and return nil:
// the user stays on the form. Invalid forms return a *core.ValidationError and
// failures to reach the backend are returned as is.
func (b *LoginBox) Submit(ctx context.Context, form classroom.LoginForm) error {
	b.mu.Lock()
	if b.busy {
		b.mu.Unlock()
		return ErrBusy
	}
	b.username = form.Username
	if err := form.Validate(b.validate, b.translator); err != nil {
		if vErr, ok := core.AsValidationError(err); ok {
			b.errs = vErr.FieldErrors()
		}
		b.mu.Unlock()
		return err
	}
	b.errs = nil
	b.busy = true
	b.mu.Unlock()

	err := b.sess.Login(ctx, form.Username, form.Password)
	refused := err != nil && session.KindOf(err) == session.KindAuth

	b.mu.Lock()
	b.busy = false
	b.failure = ""
	if refused {
		b.failure = LoginFailedText
	}
	b.mu.Unlock()

	if refused {
		b.logger.Warn("login refused", core.LogUser{Username: form.Username})
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "logging in")
	}

	b.bus.Publish(events.Event{Name: events.LoginSuccess, Detail: form.Username})
	return nil
}

func (b *LoginBox) Render(w io.Writer) error {
	b.mu.Lock()
	view := loginView{Username: b.username, Error: b.failure, Errors: b.errs, Busy: b.busy}
	b.mu.Unlock()

	return render(w, "login-box", view)
}
