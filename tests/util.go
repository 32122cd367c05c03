package testutil

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/events"
	"github.com/trezcool/classroom/core/session"
	logsvc "github.com/trezcool/classroom/services/logger"
	"github.com/trezcool/classroom/storage/inmem"
)

// NewSession returns a logged out Session on `baseURL`, storing its token in `store` (a new one when nil).
func NewSession(t *testing.T, baseURL string, store core.TokenStore) *session.Session {
	t.Helper()
	if store == nil {
		store = inmem.NewStore()
	}
	sess, err := session.New(session.Options{
		BaseURL: baseURL,
		Store:   store,
		Logger:  logsvc.NewDiscardLogger(),
		Bus:     events.NewBus(),
	})
	if err != nil {
		t.Fatalf("session.New() failed: %v", err)
	}
	return sess
}

// LoggedInSession returns a Session logged in as "alice" on `backend`.
func LoggedInSession(t *testing.T, backend *Backend) *session.Session {
	t.Helper()
	sess := NewSession(t, backend.URL, nil)
	if err := sess.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	return sess
}

// Document parses `html` for assertions.
func Document(t *testing.T, html []byte) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		t.Fatalf("goquery.NewDocumentFromReader() failed: %v", err)
	}
	return doc
}

// Render renders `c` and parses the result.
func Render(t *testing.T, c interface{ Render(io.Writer) error }) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	return Document(t, buf.Bytes())
}
