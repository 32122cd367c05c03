package session

import (
	"context"
	"net/http"
	"strconv"

	"github.com/trezcool/classroom/core/classroom"
)

func teacherPath(id int) string {
	return "/teachers/" + strconv.Itoa(id)
}

// Teachers lists all the teachers.
func (s *Session) Teachers(ctx context.Context) ([]classroom.Teacher, error) {
	var teachers []classroom.Teacher
	if err := s.get(ctx, "getTeachers", "/teachers", &teachers); err != nil {
		return nil, err
	}
	return teachers, nil
}

func (s *Session) Teacher(ctx context.Context, id int) (classroom.Teacher, error) {
	var teacher classroom.Teacher
	if err := s.get(ctx, "getTeacher", teacherPath(id), &teacher); err != nil {
		return classroom.Teacher{}, err
	}
	return teacher, nil
}

// CreateTeacher returns the teacher as created by the backend, with its new ID.
func (s *Session) CreateTeacher(ctx context.Context, teacher classroom.Teacher) (classroom.Teacher, error) {
	var created classroom.Teacher
	if err := s.send(ctx, "createTeacher", http.MethodPost, "/teachers", http.StatusCreated, teacher, &created); err != nil {
		return classroom.Teacher{}, err
	}
	return created, nil
}

func (s *Session) UpdateTeacher(ctx context.Context, id int, teacher classroom.Teacher) (classroom.Teacher, error) {
	var updated classroom.Teacher
	if err := s.send(ctx, "updateTeacher", http.MethodPut, teacherPath(id), http.StatusOK, teacher, &updated); err != nil {
		return classroom.Teacher{}, err
	}
	return updated, nil
}

func (s *Session) DeleteTeacher(ctx context.Context, id int) error {
	return s.delete(ctx, "deleteTeacher", teacherPath(id))
}
