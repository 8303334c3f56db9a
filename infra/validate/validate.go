// Package validate registers the gateway-specific validator tags
package validate

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gmopay/provider/gmo"
)

const (
	// MemberIDMinLength is the shortest member id the gateway accepts
	MemberIDMinLength = 5
	// MemberIDMaxLength is the longest member id the gateway accepts
	MemberIDMaxLength = 50
)

var cardExpirePattern = regexp.MustCompile(`^[0-9]{2}(0[1-9]|1[0-2])$`)

// New returns a validator with the custom tags registered
func New() *validator.Validate {
	v := validator.New()
	CustomValidate(v)
	return v
}

// CustomValidate registers gmo_member_id, card_expire and job_code on v
func CustomValidate(v *validator.Validate) {
	_ = v.RegisterValidation("gmo_member_id", memberID)
	_ = v.RegisterValidation("card_expire", cardExpire)
	_ = v.RegisterValidation("job_code", jobCode)
}

func memberID(fl validator.FieldLevel) bool {
	n := len(strings.TrimSpace(fl.Field().String()))
	return n >= MemberIDMinLength && n <= MemberIDMaxLength
}

// cardExpire accepts YYMM
func cardExpire(fl validator.FieldLevel) bool {
	return cardExpirePattern.MatchString(fl.Field().String())
}

func jobCode(fl validator.FieldLevel) bool {
	return gmo.IsJobCode(strings.ToUpper(fl.Field().String()))
}
