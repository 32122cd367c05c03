package session

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/trezcool/classroom/core/classroom"
)

func studentPath(id int) string {
	return "/students/" + strconv.Itoa(id)
}

// Students lists the students of one teacher.
func (s *Session) Students(ctx context.Context, teacherID int) ([]classroom.Student, error) {
	query := url.Values{"teacherId": {strconv.Itoa(teacherID)}}
	return s.students(ctx, "/students?"+query.Encode())
}

// AllStudents lists every student, whatever their teacher.
func (s *Session) AllStudents(ctx context.Context) ([]classroom.Student, error) {
	return s.students(ctx, "/students")
}

func (s *Session) students(ctx context.Context, path string) ([]classroom.Student, error) {
	var students []classroom.Student
	if err := s.get(ctx, "getStudents", path, &students); err != nil {
		return nil, err
	}
	return students, nil
}

func (s *Session) Student(ctx context.Context, id int) (classroom.Student, error) {
	var student classroom.Student
	if err := s.get(ctx, "getStudent", studentPath(id), &student); err != nil {
		return classroom.Student{}, err
	}
	return student, nil
}

func (s *Session) CreateStudent(ctx context.Context, student classroom.Student) (classroom.Student, error) {
	var created classroom.Student
	if err := s.send(ctx, "createStudent", http.MethodPost, "/students", http.StatusCreated, student, &created); err != nil {
		return classroom.Student{}, err
	}
	return created, nil
}

func (s *Session) UpdateStudent(ctx context.Context, id int, student classroom.Student) (classroom.Student, error) {
	var updated classroom.Student
	if err := s.send(ctx, "updateStudent", http.MethodPut, studentPath(id), http.StatusOK, student, &updated); err != nil {
		return classroom.Student{}, err
	}
	return updated, nil
}

func (s *Session) DeleteStudent(ctx context.Context, id int) error {
	return s.delete(ctx, "deleteStudent", studentPath(id))
}
