package session

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/trezcool/classroom/core/classroom"
)

func userPath(username string) string {
	return "/users/" + url.PathEscape(username)
}

func (s *Session) Users(ctx context.Context) ([]classroom.User, error) {
	var users []classroom.User
	if err := s.get(ctx, "getUsers", "/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Session) User(ctx context.Context, username string) (classroom.User, error) {
	var usr classroom.User
	if err := s.get(ctx, "getUser", userPath(username), &usr); err != nil {
		return classroom.User{}, err
	}
	return usr, nil
}

func (s *Session) CreateUser(ctx context.Context, usr classroom.User) (classroom.User, error) {
	var created classroom.User
	if err := s.send(ctx, "createUser", http.MethodPost, "/users", http.StatusCreated, usr, &created); err != nil {
		return classroom.User{}, err
	}
	return created, nil
}

func (s *Session) UpdateUser(ctx context.Context, username string, usr classroom.User) (classroom.User, error) {
	var updated classroom.User
	if err := s.send(ctx, "updateUser", http.MethodPut, userPath(username), http.StatusOK, usr, &updated); err != nil {
		return classroom.User{}, err
	}
	return updated, nil
}

func (s *Session) DeleteUser(ctx context.Context, username string) error {
	return s.delete(ctx, "deleteUser", userPath(username))
}

// Roles lists every role a user can be given.
func (s *Session) Roles(ctx context.Context) ([]string, error) {
	var roles []string
	if err := s.get(ctx, "getRoles", "/roles", &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// RolesForUser lists the roles given to one user.
func (s *Session) RolesForUser(ctx context.Context, username string) ([]string, error) {
	var roles []string
	if err := s.get(ctx, "getRolesForUser", userPath(username)+"/roles", &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// AddRoleToUser posts the bare role name, which is what the backend binds the body to.
func (s *Session) AddRoleToUser(ctx context.Context, username, role string) error {
	return s.do(ctx, request{
		op:          "addRoleToUser",
		method:      http.MethodPost,
		path:        userPath(username) + "/roles/",
		body:        strings.NewReader(role),
		contentType: "text/plain",
		wantStatus:  http.StatusCreated,
	})
}

func (s *Session) RemoveRoleFromUser(ctx context.Context, username, role string) error {
	return s.delete(ctx, "removeRoleFromUser", userPath(username)+"/roles/"+url.PathEscape(role))
}
