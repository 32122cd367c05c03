package ui

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/classroom"
	"github.com/trezcool/classroom/core/events"
	"github.com/trezcool/classroom/core/session"
)

// TeacherIDAttr is the StudentList attribute naming the teacher whose students are listed.
const TeacherIDAttr = "teacher-id"

type StudentSession interface {
	Teacher(ctx context.Context, id int) (classroom.Teacher, error)
	Students(ctx context.Context, teacherID int) ([]classroom.Student, error)
	CreateStudent(ctx context.Context, student classroom.Student) (classroom.Student, error)
	UpdateStudent(ctx context.Context, id int, student classroom.Student) (classroom.Student, error)
	DeleteStudent(ctx context.Context, id int) error
}

// StudentList lists the students of one teacher. It is hidden while no teacher is set.
type StudentList struct {
	sess       StudentSession
	bus        *events.Bus
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator

	mu          sync.Mutex
	mounted     bool
	unsubscribe func()
	teacherID   int
	teacher     classroom.Teacher
	students    []classroom.Student
	dlg         dialog
	form        classroom.StudentForm
	seq         sequencer
}

var _ Component = (*StudentList)(nil)

func NewStudentList(sess StudentSession, opts Options) (*StudentList, error) {
	if err := opts.check(sess); err != nil {
		return nil, err
	}
	return &StudentList{
		sess:       sess,
		bus:        opts.Bus,
		logger:     opts.Logger,
		validate:   opts.Validate,
		translator: opts.Translator,
	}, nil
}

func (l *StudentList) Mount(ctx context.Context) error {
	l.mu.Lock()
	if l.mounted {
		l.mu.Unlock()
		return nil
	}
	l.mounted = true
	l.unsubscribe = l.bus.Subscribe(events.Logout, func(events.Event) { l.hide() })
	l.mu.Unlock()

	return l.Load(ctx)
}

// Update reads the TeacherIDAttr attribute; a missing, non numeric or non positive id hides the list.
func (l *StudentList) Update(ctx context.Context, attrs Attrs) error {
	return l.SetTeacherID(ctx, parseID(attrs[TeacherIDAttr]))
}

func (l *StudentList) Unmount() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
	l.mounted = false
}

func parseID(s string) int {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// SetTeacherID lists the students of teacher `id`, reloading when it changed; id <= 0 hides the list.
func (l *StudentList) SetTeacherID(ctx context.Context, id int) error {
	if id <= 0 {
		l.hide()
		return nil
	}

	l.mu.Lock()
	if id == l.teacherID {
		l.mu.Unlock()
		return nil
	}
	l.teacherID = id
	l.teacher = classroom.Teacher{}
	l.students = nil
	l.dlg.close()
	l.mu.Unlock()

	return l.Load(ctx)
}

func (l *StudentList) TeacherID() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.teacherID
}

func (l *StudentList) Hidden() bool {
	return l.TeacherID() == 0
}

func (l *StudentList) hide() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.teacherID = 0
	l.teacher = classroom.Teacher{}
	l.students = nil
	l.dlg.close()
	l.form = classroom.StudentForm{}
	l.seq.drop()
}

// Load replaces the listed students with the backend's. A hidden list fetches nothing.
func (l *StudentList) Load(ctx context.Context) error {
	l.mu.Lock()
	teacherID := l.teacherID
	seq := l.seq.next()
	l.mu.Unlock()

	if teacherID == 0 {
		return nil
	}

	// the header names the teacher; the list is shown without it
	teacher, err := l.sess.Teacher(ctx, teacherID)
	if errors.Is(err, session.ErrUnauthorized) {
		return errors.Wrap(err, "loading the students' teacher")
	}
	if err != nil {
		l.logger.Warn("loading the students' teacher", err)
	}
	students, err := l.sess.Students(ctx, teacherID)
	if err != nil {
		return errors.Wrap(err, "loading students")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if teacherID != l.teacherID || !l.seq.apply(seq) {
		return nil
	}
	l.students = students
	if teacher.ID != 0 {
		l.teacher = teacher
	}
	return nil
}

func (l *StudentList) reload(ctx context.Context) {
	if err := l.Load(ctx); err != nil {
		l.logger.Error("reloading students", err)
	}
}

func (l *StudentList) Students() []classroom.Student {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]classroom.Student(nil), l.students...)
}

func (l *StudentList) Mode() Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dlg.mode
}

func (l *StudentList) find(id int) (classroom.Student, bool) {
	for _, student := range l.students {
		if student.ID == id {
			return student, true
		}
	}
	return classroom.Student{}, false
}

func (l *StudentList) ShowAdd() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.teacherID == 0 {
		return ErrNoDialog
	}
	if err := l.dlg.open(Adding, 0); err != nil {
		return err
	}
	l.form = classroom.StudentForm{}
	return nil
}

func (l *StudentList) ShowEdit(id int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	student, ok := l.find(id)
	if !ok {
		return ErrUnknownRecord
	}
	if err := l.dlg.open(Editing, id); err != nil {
		return err
	}
	l.form = classroom.StudentForm{FirstName: student.FirstName, LastName: student.LastName, Email: student.Email}
	return nil
}

func (l *StudentList) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dlg.busy {
		return
	}
	l.dlg.close()
	l.form = classroom.StudentForm{}
}

// Submit saves the student for the current teacher; see TeacherList.Submit.
func (l *StudentList) Submit(ctx context.Context, form classroom.StudentForm) error {
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
	mode, id, teacherID := l.dlg.mode, l.dlg.editID, l.teacherID
	l.mu.Unlock()

	if mode == Adding {
		_, err = l.sess.CreateStudent(ctx, form.Student(0, teacherID))
	} else {
		_, err = l.sess.UpdateStudent(ctx, id, form.Student(id, teacherID))
	}
	if err != nil {
		l.logger.Error("saving student", err)
	}
	l.reload(ctx)

	l.mu.Lock()
	l.dlg.close()
	l.form = classroom.StudentForm{}
	l.mu.Unlock()
	return nil
}

func (l *StudentList) Delete(ctx context.Context, id int, confirm Confirmer) error {
	l.mu.Lock()
	student, ok := l.find(id)
	l.mu.Unlock()
	if !ok {
		return ErrUnknownRecord
	}
	if !confirm.Confirm(DeleteText(student.FullName())) {
		return nil
	}

	if err := l.sess.DeleteStudent(ctx, id); err != nil {
		l.logger.Error("deleting student", err)
	}
	l.reload(ctx)
	return nil
}

func (l *StudentList) Render(w io.Writer) error {
	l.mu.Lock()
	view := studentListView{Hidden: l.teacherID == 0, Header: "Students"}
	if l.teacher.ID != 0 {
		view.Header = l.teacher.FullName() + "'s Students"
	}
	for _, student := range l.students {
		view.Rows = append(view.Rows, rowView{
			ID:      student.ID,
			Name:    student.FullName(),
			Email:   student.Email,
			Confirm: DeleteText(student.FullName()),
		})
	}
	if l.dlg.mode != Idle {
		title := "Add Student"
		if l.dlg.mode == Editing {
			title = "Edit Student"
		}
		view.Dialog = &dialogView{
			Title:        title,
			Action:       "/students/form",
			CancelAction: "/students/cancel",
			FirstName:    l.form.FirstName,
			LastName:     l.form.LastName,
			Email:        l.form.Email,
			Errors:       l.dlg.errs,
			Busy:         l.dlg.busy,
		}
	}
	l.mu.Unlock()

	return render(w, "student-list", view)
}
