// Package validation holds the pure input checks used by the services.
// Every check accumulates all violations; messages are localization keys.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"healthportal/backend/internal/config"
)

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{2,50}$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

const (
	maxFullNameLen = 100
	maxTitleLen    = 200
	minPhoneLen    = 7
	maxPhoneLen    = 20
	minPasswordLen = 8
)

// Message keys.
const (
	MsgAllFieldsRequired   = "validation.all_fields_required"
	MsgUsernameFormat      = "validation.username_format"
	MsgEmailFormat         = "validation.email_format"
	MsgFullNameRequired    = "validation.full_name_required"
	MsgFullNameTooLong     = "validation.full_name_too_long"
	MsgPhoneRequired       = "validation.phone_required"
	MsgPhoneLength         = "validation.phone_length"
	MsgPasswordTooShort    = "validation.password_too_short"
	MsgEmailRequired       = "validation.email_required"
	MsgTitleRequired       = "validation.title_required"
	MsgContentRequired     = "validation.content_required"
	MsgTitleTooLong        = "validation.title_too_long"
	MsgInvalidRole         = "validation.invalid_role"
	MsgInvalidPostCat      = "validation.invalid_post_category"
	MsgInvalidComplaintCat = "validation.invalid_complaint_category"
	MsgInvalidStatus       = "validation.invalid_complaint_status"
)

// Errors is a list of violated rules. A nil or empty Errors means the input is valid.
type Errors []string

func (e Errors) Error() string {
	return strings.Join(e, "; ")
}

// Err returns e as an error, or nil when there are no violations.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func required(v string) bool {
	return strings.TrimSpace(v) != ""
}

func runeLen(v string) int {
	return utf8.RuneCountInString(v)
}

func Registration(username, email, fullName, phone, password string) Errors {
	var errs Errors
	for _, v := range []string{username, email, fullName, phone, password} {
		if !required(v) {
			errs = append(errs, MsgAllFieldsRequired)
			break
		}
	}

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	fullName = strings.TrimSpace(fullName)
	phone = strings.TrimSpace(phone)

	if username != "" && !usernameRe.MatchString(username) {
		errs = append(errs, MsgUsernameFormat)
	}
	if email != "" && !emailRe.MatchString(email) {
		errs = append(errs, MsgEmailFormat)
	}
	if fullName != "" && runeLen(fullName) > maxFullNameLen {
		errs = append(errs, MsgFullNameTooLong)
	}
	if phone != "" && !phoneLenOK(phone) {
		errs = append(errs, MsgPhoneLength)
	}
	if password != "" && runeLen(password) < minPasswordLen {
		errs = append(errs, MsgPasswordTooShort)
	}
	return errs
}

// Profile checks the editable profile fields. Email is required here because
// the profile form always submits it.
func Profile(fullName, phone, email string) Errors {
	var errs Errors
	fullName = strings.TrimSpace(fullName)
	phone = strings.TrimSpace(phone)
	email = strings.TrimSpace(email)

	if fullName == "" {
		errs = append(errs, MsgFullNameRequired)
	}
	if phone == "" {
		errs = append(errs, MsgPhoneRequired)
	}
	if email == "" {
		errs = append(errs, MsgEmailRequired)
	}
	if fullName != "" && runeLen(fullName) > maxFullNameLen {
		errs = append(errs, MsgFullNameTooLong)
	}
	if phone != "" && !phoneLenOK(phone) {
		errs = append(errs, MsgPhoneLength)
	}
	if email != "" && !emailRe.MatchString(email) {
		errs = append(errs, MsgEmailFormat)
	}
	return errs
}

func TitleAndContent(title, content string) Errors {
	var errs Errors
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" {
		errs = append(errs, MsgTitleRequired)
	}
	if content == "" {
		errs = append(errs, MsgContentRequired)
	}
	if title != "" && runeLen(title) > maxTitleLen {
		errs = append(errs, MsgTitleTooLong)
	}
	return errs
}

func Role(role string) Errors {
	return membership(config.Roles, role, MsgInvalidRole)
}

func PostCategory(category string) Errors {
	return membership(config.PostCategories, category, MsgInvalidPostCat)
}

func ComplaintCategory(category string) Errors {
	return membership(config.ComplaintCategories, category, MsgInvalidComplaintCat)
}

func ComplaintStatus(status string) Errors {
	return membership(config.ComplaintStatuses, status, MsgInvalidStatus)
}

// membership is an exact match; values are not trimmed or case-folded.
func membership(allowed []string, v, msg string) Errors {
	if config.Contains(allowed, v) {
		return nil
	}
	return Errors{msg}
}

func phoneLenOK(phone string) bool {
	n := runeLen(phone)
	return n >= minPhoneLen && n <= maxPhoneLen
}
