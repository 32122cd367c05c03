package classroom

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classroom/core"
)

type (
	Teacher struct {
		ID        int    `json:"id"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
	}

	Student struct {
		ID        int    `json:"id"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		TeacherID int    `json:"teacherId"`
	}

	User struct {
		Username string `json:"username"`
		Password string `json:"password,omitempty"` // write-only
		Email    string `json:"email"`
	}

	AccessToken struct {
		Token string `json:"token"`
	}

	TokenResponse struct {
		AccessToken AccessToken `json:"accessToken"`
	}

	Credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
)

func (t Teacher) FullName() string {
	return t.FirstName + " " + t.LastName
}

func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Forms hold what a user typed in; their rules are the ones a browser enforces natively.
type (
	TeacherForm struct {
		FirstName string `json:"firstName" form:"firstName" validate:"required"`
		LastName  string `json:"lastName" form:"lastName" validate:"required"`
		Email     string `json:"email" form:"email" validate:"required,email"`
	}

	StudentForm struct {
		FirstName string `json:"firstName" form:"firstName" validate:"required"`
		LastName  string `json:"lastName" form:"lastName" validate:"required"`
		Email     string `json:"email" form:"email" validate:"required,email"`
	}

	LoginForm struct {
		Username string `json:"username" form:"username" validate:"required"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	UserForm struct {
		Username string `json:"username" form:"username" validate:"required,notblank"`
		Email    string `json:"email" form:"email" validate:"required,email"`
		Password string `json:"password" form:"password"`
	}
)

func (f *TeacherForm) Validate(validate *validator.Validate, translator ut.Translator) error {
	f.FirstName = core.CleanString(f.FirstName)
	f.LastName = core.CleanString(f.LastName)
	f.Email = core.CleanString(f.Email)
	return core.ValidateStruct(validate, translator, f)
}

// Teacher builds the record sent to the backend; id 0 asks the backend for a new one.
func (f TeacherForm) Teacher(id int) Teacher {
	return Teacher{ID: id, FirstName: f.FirstName, LastName: f.LastName, Email: f.Email}
}

func (f *StudentForm) Validate(validate *validator.Validate, translator ut.Translator) error {
	f.FirstName = core.CleanString(f.FirstName)
	f.LastName = core.CleanString(f.LastName)
	f.Email = core.CleanString(f.Email)
	return core.ValidateStruct(validate, translator, f)
}

func (f StudentForm) Student(id, teacherID int) Student {
	return Student{ID: id, FirstName: f.FirstName, LastName: f.LastName, Email: f.Email, TeacherID: teacherID}
}

func (f *LoginForm) Validate(validate *validator.Validate, translator ut.Translator) error {
	return core.ValidateStruct(validate, translator, f)
}

func (f *UserForm) Validate(validate *validator.Validate, translator ut.Translator) error {
	f.Username = core.CleanString(f.Username)
	f.Email = core.CleanString(f.Email)
	return core.ValidateStruct(validate, translator, f)
}

func (f UserForm) User() User {
	return User{Username: f.Username, Password: f.Password, Email: f.Email}
}
