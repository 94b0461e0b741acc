package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes は bcrypt が扱えるパスワードの最大バイト数です。
const MaxPasswordBytes = 72

var hashCost = bcrypt.DefaultCost

// HashPassword はパスワードを bcrypt でハッシュ化します。
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword はハッシュとパスワードが一致するかを返します。
func VerifyPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// isPasswordTooLong は bcrypt の長さ制限による失敗かを判定します。
func isPasswordTooLong(err error) bool {
	return errors.Is(err, bcrypt.ErrPasswordTooLong)
}
