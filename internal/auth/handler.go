// Package auth はユーザー登録・サインイン・アクセストークンの検証を提供します。
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// registerRequest は /api/auth/register のボディです。
// 必須項目の有無を区別するためポインタで受け取ります。
type registerRequest struct {
	Login       *string `json:"login" binding:"omitempty,min=1,max=80"`
	Email       *string `json:"email" binding:"omitempty,min=1,max=120"`
	Password    *string `json:"password" binding:"omitempty,min=1,max=72"`
	CountryCode *string `json:"countryCode" binding:"omitempty,len=2,alpha"`
	IsPublic    *bool   `json:"isPublic"`
	Phone       *string `json:"phone" binding:"omitempty,min=1,max=15"`
	Image       *string `json:"image" binding:"omitempty,max=255"`
}

// missingFields は必須項目のうち欠けているものを定義順で返します。
func (r *registerRequest) missingFields() []string {
	var missing []string
	if r.Login == nil {
		missing = append(missing, "login")
	}
	if r.Email == nil {
		missing = append(missing, "email")
	}
	if r.Password == nil {
		missing = append(missing, "password")
	}
	if r.CountryCode == nil {
		missing = append(missing, "countryCode")
	}
	if r.IsPublic == nil {
		missing = append(missing, "isPublic")
	}
	return missing
}

// blankFields は空文字で送られた文字列項目を返します。
func (r *registerRequest) blankFields() []string {
	var blank []string
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"login", r.Login},
		{"email", r.Email},
		{"password", r.Password},
		{"countryCode", r.CountryCode},
	} {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			blank = append(blank, f.name)
		}
	}
	return blank
}

type signInRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func decodeJSON(body io.Reader, dst any) error {
	if body == nil {
		return fmt.Errorf("request body is empty")
	}
	return json.NewDecoder(body).Decode(dst)
}

// validate は binding タグの制約を検証し、違反した項目名を返します。
func validate(req any) []string {
	err := binding.Validator.ValidateStruct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, jsonFieldName(fe.Field()))
	}
	return fields
}

func jsonFieldName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
