// Package ui holds the classroom screens as framework independent components.
//
// A component is a struct holding its local state. Hosts (the web shell, the terminal) feed it
// user input through its verbs and write it out with Render; they supply the event loop.
// Components never hold their lock across a backend call.
package ui

import (
	"context"
	"io"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/events"
)

var (
	ErrBusy          = errors.New("a submit is already in flight")
	ErrNoDialog      = errors.New("no dialog open")
	ErrUnknownRecord = errors.New("record not in list")
)

type (
	// Attrs are the string inputs a host sets on a component, like element attributes.
	Attrs map[string]string

	Component interface {
		// Mount registers the component's handlers and loads it; later calls do nothing.
		Mount(ctx context.Context) error
		Update(ctx context.Context, attrs Attrs) error
		Unmount()
		Render(w io.Writer) error
	}

	// Confirmer asks the user to confirm a destructive action.
	Confirmer interface {
		Confirm(msg string) bool
	}

	ConfirmFunc func(msg string) bool

	Options struct {
		Bus        *events.Bus
		Logger     core.Logger
		Validate   *validator.Validate // english messages when nil
		Translator ut.Translator
	}
)

func (f ConfirmFunc) Confirm(msg string) bool { return f(msg) }

// Yes confirms without asking.
var Yes = ConfirmFunc(func(string) bool { return true })

func (opts *Options) check(sess interface{}) error {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(sess, "Session"),
		vala.IsNotNil(opts.Logger, "Logger"),
	).Check()
	if err == nil && opts.Bus == nil { // a typed nil passes IsNotNil
		err = errors.New("parameter was nil: Bus")
	}
	if err != nil {
		return errors.Wrap(err, "checking component options")
	}
	if opts.Validate == nil || opts.Translator == nil {
		opts.Validate, opts.Translator = core.NewValidator()
	}
	return nil
}

// Mode is the state of a list's add/edit dialog.
type Mode int

const (
	Idle Mode = iota
	Adding
	Editing
)

func (m Mode) String() string {
	switch m {
	case Adding:
		return "adding"
	case Editing:
		return "editing"
	default:
		return "idle"
	}
}

// dialog is the add/edit modal shared by the list components.
type dialog struct {
	mode   Mode
	editID int
	errs   map[string]string
	busy   bool
}

func (d *dialog) open(mode Mode, id int) error {
	if d.busy {
		return ErrBusy
	}
	d.mode, d.editID, d.errs = mode, id, nil
	return nil
}

func (d *dialog) close() {
	*d = dialog{}
}

// sequencer orders list reloads: a result older than the last applied one is dropped.
type sequencer struct {
	issued, applied uint64
}

func (s *sequencer) next() uint64 {
	s.issued++
	return s.issued
}

// drop discards the results of every reload issued so far.
func (s *sequencer) drop() {
	s.issued++
	s.applied = s.issued
}

func (s *sequencer) apply(seq uint64) bool {
	if seq <= s.applied {
		return false
	}
	s.applied = seq
	return true
}

// DeleteText is the question asked before deleting the record named `name`.
func DeleteText(name string) string {
	return "Are you sure you want to delete [" + name + "]?"
}
