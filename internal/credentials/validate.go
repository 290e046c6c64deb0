package credentials

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/account-api/internal/apperr"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

type registration struct {
	Username string `json:"username" validate:"required,min=3,max=32,username"`
	Password string `json:"password" validate:"required,password"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return validPassword(fl.Field().String())
	})
	return v
}

// validPassword は 6〜72 バイトで英字と数字を 1 文字以上含むかを判定します。
// 72 バイトは bcrypt が扱える上限です。
func validPassword(password string) bool {
	if len(password) < 6 || len(password) > 72 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

func validateRegistration(username, password string) error {
	err := validate.Struct(registration{Username: username, Password: password})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal(err)
	}
	for _, fe := range verrs {
		if fe.Field() == "password" {
			return apperr.InvalidInput("INVALID_PASSWORD", "パスワードは6〜72文字で、英字と数字を含めてください。")
		}
	}
	return apperr.InvalidInput("INVALID_USERNAME", "ユーザー名は3〜32文字の英数字と _ . - で指定してください。")
}

// NormalizeProfile は各項目の前後の空白を取り除きます。
func NormalizeProfile(p Profile) Profile {
	return Profile{
		Fullname: strings.TrimSpace(p.Fullname),
		Street1:  strings.TrimSpace(p.Street1),
		Street2:  strings.TrimSpace(p.Street2),
		City:     strings.TrimSpace(p.City),
		State:    strings.TrimSpace(p.State),
		Zip:      strings.TrimSpace(p.Zip),
	}
}

// ValidateProfile は必須項目がすべて入力されているかを検証します。
// 不足している項目名をメッセージに含めた InvalidInput を返します。
func ValidateProfile(p Profile) error {
	err := validate.Struct(NormalizeProfile(p))
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal(err)
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return apperr.InvalidInput("MISSING_FIELDS", "必須項目が入力されていません: "+strings.Join(missing, ", "))
}
