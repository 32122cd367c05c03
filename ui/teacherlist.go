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
)

// TeacherSession is the part of the backend session a TeacherList uses.
type TeacherSession interface {
	Teachers(ctx context.Context) ([]classroom.Teacher, error)
	CreateTeacher(ctx context.Context, teacher classroom.Teacher) (classroom.Teacher, error)
	UpdateTeacher(ctx context.Context, id int, teacher classroom.Teacher) (classroom.Teacher, error)
	DeleteTeacher(ctx context.Context, id int) error
}

// TeacherList lists the teachers and lets the user add, edit, delete and select them.
type TeacherList struct {
	sess       TeacherSession
	bus        *events.Bus
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator

	mu          sync.Mutex
	mounted     bool
	unsubscribe func()
	loaded      bool
	teachers    []classroom.Teacher
	selected    int
	dlg         dialog
	form        classroom.TeacherForm
	seq         sequencer
}

var _ Component = (*TeacherList)(nil)

func NewTeacherList(sess TeacherSession, opts Options) (*TeacherList, error) {
	if err := opts.check(sess); err != nil {
		return nil, err
	}
	return &TeacherList{
		sess:       sess,
		bus:        opts.Bus,
		logger:     opts.Logger,
		validate:   opts.Validate,
		translator: opts.Translator,
	}, nil
}

func (l *TeacherList) Mount(ctx context.Context) error {
	l.mu.Lock()
	if l.mounted {
		l.mu.Unlock()
		return nil
	}
	l.mounted = true
	l.unsubscribe = l.bus.Subscribe(events.Logout, func(events.Event) { l.reset() })
	l.mu.Unlock()

	return l.Load(ctx)
}

// Update does nothing: a TeacherList has no attributes.
func (l *TeacherList) Update(context.Context, Attrs) error {
	return nil
}

func (l *TeacherList) Unmount() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
	l.mounted = false
}

// reset forgets everything shown, e.g. once logged out.
func (l *TeacherList) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = false
	l.teachers = nil
	l.selected = 0
	l.dlg.close()
	l.form = classroom.TeacherForm{}
	l.seq.drop()
}

// Load replaces the listed teachers with the backend's.
func (l *TeacherList) Load(ctx context.Context) error {
	l.mu.Lock()
	seq := l.seq.next()
	l.mu.Unlock()

	teachers, err := l.sess.Teachers(ctx)
	if err != nil {
		return errors.Wrap(err, "loading teachers")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seq.apply(seq) {
		l.teachers = teachers
		l.loaded = true
	}
	return nil
}

func (l *TeacherList) reload(ctx context.Context) {
	if err := l.Load(ctx); err != nil {
		l.logger.Error("reloading teachers", err)
	}
}

// Teachers returns the listed teachers.
func (l *TeacherList) Teachers() []classroom.Teacher {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]classroom.Teacher(nil), l.teachers...)
}

func (l *TeacherList) Mode() Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dlg.mode
}

func (l *TeacherList) find(id int) (classroom.Teacher, bool) {
	for _, teacher := range l.teachers {
		if teacher.ID == id {
			return teacher, true
		}
	}
	return classroom.Teacher{}, false
}

// ShowAdd opens a blank dialog creating a teacher on submit.
func (l *TeacherList) ShowAdd() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.dlg.open(Adding, 0); err != nil {
		return err
	}
	l.form = classroom.TeacherForm{}
	return nil
}

// ShowEdit opens the dialog filled with the listed teacher `id`, updating it on submit.
func (l *TeacherList) ShowEdit(id int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	teacher, ok := l.find(id)
	if !ok {
		return ErrUnknownRecord
	}
	if err := l.dlg.open(Editing, id); err != nil {
		return err
	}
	l.form = classroom.TeacherForm{FirstName: teacher.FirstName, LastName: teacher.LastName, Email: teacher.Email}
	return nil
}

// Cancel closes the dialog without saving. It does nothing while a submit is in flight.
func (l *TeacherList) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dlg.busy {
		return
	}
	l.dlg.close()
	l.form = classroom.TeacherForm{}
}

// Submit creates or updates the teacher, reloads the list and closes the dialog.
// A backend failure is logged and the list reloaded all the same; only an invalid form
// (a *core.ValidationError) keeps the dialog open.
func (l *TeacherList) Submit(ctx context.Context, form classroom.TeacherForm) error {
	l.mu.Lock()
	if l.dlg.mode == Idle {
		l.mu.Unlock()
		return ErrNoDialog
	}
	if l.dlg.busy {
		l.mu.Unlock()
		return ErrBusy
	}
	err := form.Validate(l.validate, l.translator)
	l.form = form
	if err != nil {
		if vErr, ok := core.AsValidationError(err); ok {
			l.dlg.errs = vErr.FieldErrors()
		}
		l.mu.Unlock()
		return err
	}
	l.dlg.errs = nil
	l.dlg.busy = true
	mode, id := l.dlg.mode, l.dlg.editID
	l.mu.Unlock()

	if mode == Adding {
		_, err = l.sess.CreateTeacher(ctx, form.Teacher(0))
	} else {
		_, err = l.sess.UpdateTeacher(ctx, id, form.Teacher(id))
	}
	if err != nil {
		l.logger.Error("saving teacher", err)
	}
	l.reload(ctx)

	l.mu.Lock()
	l.dlg.close()
	l.form = classroom.TeacherForm{}
	l.mu.Unlock()
	return nil
}

// Delete deletes the listed teacher `id` once confirmed, then reloads the list whatever the outcome.
func (l *TeacherList) Delete(ctx context.Context, id int, confirm Confirmer) error {
	l.mu.Lock()
	teacher, ok := l.find(id)
	l.mu.Unlock()
	if !ok {
		return ErrUnknownRecord
	}
	if !confirm.Confirm(DeleteText(teacher.FullName())) {
		return nil
	}

	if err := l.sess.DeleteTeacher(ctx, id); err != nil {
		l.logger.Error("deleting teacher", err)
	}
	l.reload(ctx)
	return nil
}

// Select marks the listed teacher `id` as selected and broadcasts it as events.TeacherSelected.
func (l *TeacherList) Select(id int) error {
	l.mu.Lock()
	teacher, ok := l.find(id)
	if ok {
		l.selected = id
	}
	l.mu.Unlock()
	if !ok {
		return ErrUnknownRecord
	}

	l.bus.Publish(events.Event{Name: events.TeacherSelected, Detail: teacher})
	return nil
}

func (l *TeacherList) Render(w io.Writer) error {
	l.mu.Lock()
	view := teacherListView{Loaded: l.loaded}
	for _, teacher := range l.teachers {
		view.Rows = append(view.Rows, rowView{
			ID:       teacher.ID,
			Name:     teacher.FullName(),
			Email:    teacher.Email,
			Confirm:  DeleteText(teacher.FullName()),
			Selected: teacher.ID == l.selected,
		})
	}
	if l.dlg.mode != Idle {
		title := "Add Teacher"
		if l.dlg.mode == Editing {
			title = "Edit Teacher"
		}
		view.Dialog = &dialogView{
			Title:        title,
			Action:       "/teachers/form",
			CancelAction: "/teachers/cancel",
			FirstName:    l.form.FirstName,
			LastName:     l.form.LastName,
			Email:        l.form.Email,
			Errors:       l.dlg.errs,
			Busy:         l.dlg.busy,
		}
	}
	l.mu.Unlock()

	return render(w, "teacher-list", view)
}
