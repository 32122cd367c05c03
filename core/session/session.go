// Package session is the authenticated client of the classroom backend.
//
// A Session holds the bearer token, mirrors it to a core.TokenStore so it survives restarts,
// and turns every backend operation into one HTTP call. A 401 on any authenticated call logs
// the Session out and is broadcast as an events.Logout event.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/classroom"
	"github.com/trezcool/classroom/core/events"
)

const loginPath = "/auth/login"

type (
	Options struct {
		BaseURL    string
		Store      core.TokenStore
		Logger     core.Logger
		Bus        *events.Bus  // a new Bus when nil
		HTTPClient *http.Client  // http.DefaultClient when nil
		Timeout    time.Duration // bounds every request, whatever the client; none when 0
	}

	Session struct {
		baseURL string
		store   core.TokenStore
		logger  core.Logger
		bus     *events.Bus
		client  *http.Client
		timeout time.Duration

		mu       sync.RWMutex
		token    string
		username string
	}

	request struct {
		op          string
		method      string
		path        string
		body        io.Reader
		contentType string
		wantStatus  int
		out         interface{} // decoded from the JSON response when set
	}
)

func New(opts Options) (*Session, error) {
	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(opts.BaseURL, "BaseURL"),
		vala.IsNotNil(opts.Store, "Store"),
		vala.IsNotNil(opts.Logger, "Logger"),
	).Check()
	if err != nil {
		return nil, errors.Wrap(err, "checking session options")
	}

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	return &Session{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		store:   opts.Store,
		logger:  opts.Logger,
		bus:     bus,
		client:  client,
		timeout: opts.Timeout,
	}, nil
}

// Bus returns the bus the Session broadcasts logouts on.
func (s *Session) Bus() *events.Bus {
	return s.bus
}

// Token returns the current bearer token, "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Username returns the name used for the last successful Login of this process.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

func (s *Session) setToken(token, username string) {
	s.mu.Lock()
	s.token = token
	s.username = username
	s.mu.Unlock()
}

// TryAutoLogin adopts the stored token, if any. No request is made.
func (s *Session) TryAutoLogin(ctx context.Context) (bool, error) {
	token, err := s.store.Get(ctx, core.TokenKey)
	if err != nil {
		return false, errors.Wrap(err, "reading stored token")
	}
	if token == "" {
		return false, nil
	}
	s.setToken(token, "")
	return true, nil
}

// Login exchanges credentials for a bearer token and stores it.
// Nothing is written unless the backend answers 200 with a token.
func (s *Session) Login(ctx context.Context, username, password string) error {
	const op = "login"

	body, err := json.Marshal(classroom.Credentials{Username: username, Password: password})
	if err != nil {
		return errors.Wrap(err, "encoding credentials")
	}
	reqCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "creating login request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("login request failed", err)
		return &Error{Op: op, Kind: KindNetwork, Err: err}
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return &Error{Op: op, Kind: KindAuth, Status: resp.StatusCode, Err: ErrAuthenticationFailed}
	}

	var data classroom.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return &Error{Op: op, Kind: KindUnexpected, Status: resp.StatusCode, Err: errors.Wrap(err, "decoding token response")}
	}
	if data.AccessToken.Token == "" {
		return &Error{Op: op, Kind: KindUnexpected, Status: resp.StatusCode, Err: errors.New("empty access token")}
	}

	if err := s.store.Set(ctx, core.TokenKey, data.AccessToken.Token); err != nil {
		return errors.Wrap(err, "storing token")
	}
	s.setToken(data.AccessToken.Token, username)
	s.logger.Info("logged in", core.LogUser{Username: username})
	return nil
}

// Logout forgets the token, in memory and in the store, then broadcasts events.Logout.
// It makes no request and can be called any number of times.
func (s *Session) Logout(ctx context.Context) error {
	s.setToken("", "")
	err := s.store.Delete(ctx, core.TokenKey)
	s.bus.Publish(events.Event{Name: events.Logout})
	return errors.Wrap(err, "deleting stored token")
}

// do runs an authenticated request.
// The Authorization header is sent even when there is no token.
func (s *Session) do(ctx context.Context, r request) error {
	reqCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, r.method, s.baseURL+r.path, r.body)
	if err != nil {
		return &Error{Op: r.op, Kind: KindUnexpected, Err: errors.Wrap(err, "creating request")}
	}
	if r.body != nil {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Authorization", "Bearer "+s.Token())

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error(r.op+" request failed", err, core.LogUser{Username: s.Username()})
		return &Error{Op: r.op, Kind: KindNetwork, Err: err}
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusUnauthorized {
		s.logger.Warn(r.op+": token rejected, logging out", core.LogUser{Username: s.Username()})
		if lErr := s.Logout(ctx); lErr != nil {
			s.logger.Error("logout failed", lErr)
		}
		return &Error{Op: r.op, Kind: KindAuth, Status: resp.StatusCode, Err: ErrUnauthorized}
	}
	if resp.StatusCode != r.wantStatus {
		return statusError(r.op, resp.StatusCode)
	}
	if r.out != nil {
		if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil {
			return &Error{Op: r.op, Kind: KindUnexpected, Status: resp.StatusCode, Err: errors.Wrap(err, "decoding response")}
		}
	}
	return nil
}

func (s *Session) get(ctx context.Context, op, path string, out interface{}) error {
	return s.do(ctx, request{op: op, method: http.MethodGet, path: path, wantStatus: http.StatusOK, out: out})
}

func (s *Session) send(ctx context.Context, op, method, path string, wantStatus int, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &Error{Op: op, Kind: KindUnexpected, Err: errors.Wrap(err, "encoding request")}
	}
	return s.do(ctx, request{
		op:          op,
		method:      method,
		path:        path,
		body:        bytes.NewReader(body),
		contentType: "application/json",
		wantStatus:  wantStatus,
		out:         out,
	})
}

func (s *Session) delete(ctx context.Context, op, path string) error {
	return s.do(ctx, request{op: op, method: http.MethodDelete, path: path, wantStatus: http.StatusNoContent})
}

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// drain lets the transport reuse the connection.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
