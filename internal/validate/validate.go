// Package validate turns raw check records into domain.Check values the
// worker can execute.
//
// Coercion is field by field: a field with the wrong type or shape becomes
// its zero value instead of failing the whole record, so the caller can log
// exactly which fields were rejected.
package validate

import (
	"math"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/tidwall/gjson"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

const (
	IDLength        = 20
	UserPhoneLength = 8
	MinTimeout      = 1
	MaxTimeout      = 5
)

var methods = []interface{}{http.MethodPost, http.MethodGet, http.MethodPut, http.MethodDelete}

type Result struct {
	Check    domain.Check
	Eligible bool
	// Err lists the required fields that failed (validation.Errors keyed by
	// JSON field name). Nil iff Eligible.
	Err error
}

// Check coerces raw into a domain.Check. Malformed JSON or a non-object is
// treated as an empty record.
func Check(raw []byte) Result {
	root := gjson.Result{}
	if gjson.ValidBytes(raw) {
		root = gjson.ParseBytes(raw)
	}
	if !root.IsObject() {
		root = gjson.Parse("{}")
	}

	c := domain.Check{
		ID:        str(root.Get("id"), validation.Required, validation.RuneLength(IDLength, IDLength)),
		UserPhone: str(root.Get("userPhone"), validation.Required, validation.RuneLength(UserPhoneLength, UserPhoneLength)),
		Protocol: domain.Protocol(str(root.Get("protocol"), validation.Required,
			validation.In(string(domain.ProtocolHTTP), string(domain.ProtocolHTTPS)))),
		URL:            str(root.Get("url"), validation.Required),
		Method:         str(root.Get("method"), validation.Required, validation.In(methods...)),
		SuccessCodes:   codes(root.Get("successCodes")),
		TimeoutSeconds: timeout(root.Get("timeoutSeconds")),
		State:          state(root.Get("state")),
		LastChecked:    lastChecked(root.Get("lastChecked")),
	}

	err := Eligible(&c)
	return Result{Check: c, Eligible: err == nil, Err: err}
}

// Eligible reports, as validation.Errors, every required field of c that is
// still unset.
func Eligible(c *domain.Check) error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.UserPhone, validation.Required),
		validation.Field(&c.Protocol, validation.Required),
		validation.Field(&c.URL, validation.Required),
		validation.Field(&c.Method, validation.Required),
		validation.Field(&c.SuccessCodes, validation.Required),
		validation.Field(&c.TimeoutSeconds, validation.Required),
	)
}

// str returns v's string value when it is a string whose trimmed form passes
// rules. The untrimmed value is kept, like the rest of the record.
func str(v gjson.Result, rules ...validation.Rule) string {
	if v.Type != gjson.String {
		return ""
	}
	if err := validation.Validate(strings.TrimSpace(v.Str), rules...); err != nil {
		return ""
	}
	return v.Str
}

func codes(v gjson.Result) []int {
	if !v.IsArray() {
		return nil
	}
	items := v.Array()
	if len(items) == 0 {
		return nil
	}
	out := make([]int, 0, len(items))
	for _, it := range items {
		if !isInteger(it) {
			return nil
		}
		out = append(out, int(it.Int()))
	}
	return out
}

func timeout(v gjson.Result) int {
	if !isInteger(v) || v.Num < MinTimeout || v.Num > MaxTimeout {
		return 0
	}
	return int(v.Num)
}

func state(v gjson.Result) domain.State {
	if v.Type == gjson.String {
		switch s := domain.State(v.Str); s {
		case domain.StateUp, domain.StateDown:
			return s
		}
	}
	return domain.StateDown
}

func lastChecked(v gjson.Result) int64 {
	if v.Type != gjson.Number || v.Num <= 0 {
		return 0
	}
	return int64(v.Num)
}

func isInteger(v gjson.Result) bool {
	return v.Type == gjson.Number && v.Num == math.Trunc(v.Num) && !math.IsInf(v.Num, 0)
}
