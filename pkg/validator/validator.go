package validator

import (
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RoleTag validates a department role. Roles are opaque names such as
// "General Admin Department"; they only have to be non-blank and fit the
// role column.
const RoleTag = "role"

// MaxRoleLength is the width of the role column.
const MaxRoleLength = 100

var (
	registerErr error
	once        sync.Once
)

// ValidRole reports whether s can be stored as a role.
func ValidRole(s string) bool {
	return strings.TrimSpace(s) != "" && utf8.RuneCountInString(s) <= MaxRoleLength
}

func validateRole(fl validator.FieldLevel) bool {
	return ValidRole(fl.Field().String())
}

// Register installs the custom tags on v and reports fields by their JSON name.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v.RegisterValidation(RoleTag, validateRole)
}

// RegisterBindings installs the custom tags on gin's default validator.
// Safe to call more than once.
func RegisterBindings() error {
	once.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerErr = Register(v)
		}
	})
	return registerErr
}
