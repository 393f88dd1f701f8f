package validate

import (
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

const good = `{
	"id": "abcdefghij0123456789",
	"userPhone": "55551234",
	"protocol": "https",
	"url": "example.com/health?deep=1",
	"method": "GET",
	"successCodes": [200, 201],
	"timeoutSeconds": 3,
	"state": "up",
	"lastChecked": 1700000000000
}`

func TestCheck_ValidRecord(t *testing.T) {
	res := Check([]byte(good))

	require.True(t, res.Eligible)
	require.NoError(t, res.Err)
	assert.Equal(t, domain.Check{
		ID:             "abcdefghij0123456789",
		UserPhone:      "55551234",
		Protocol:       domain.ProtocolHTTPS,
		URL:            "example.com/health?deep=1",
		Method:         "GET",
		SuccessCodes:   []int{200, 201},
		TimeoutSeconds: 3,
		State:          domain.StateUp,
		LastChecked:    1700000000000,
	}, res.Check)
}

func TestCheck_DefaultsForOptionalFields(t *testing.T) {
	res := Check([]byte(`{
		"id": "abcdefghij0123456789",
		"userPhone": "55551234",
		"protocol": "http",
		"url": "example.com",
		"method": "POST",
		"successCodes": [204],
		"timeoutSeconds": 1,
		"state": "sideways",
		"lastChecked": -5
	}`))

	require.True(t, res.Eligible)
	assert.Equal(t, domain.StateDown, res.Check.State)
	assert.Zero(t, res.Check.LastChecked)
	assert.True(t, res.Check.NeverChecked())
}

func TestCheck_InvalidFieldsAreReported(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		field string
	}{
		{"short id", `{"id":"short"}`, "id"},
		{"numeric phone", `{"userPhone":55551234}`, "userPhone"},
		{"ftp protocol", `{"protocol":"ftp"}`, "protocol"},
		{"blank url", `{"url":"   "}`, "url"},
		{"lowercase method", `{"method":"get"}`, "method"},
		{"empty codes", `{"successCodes":[]}`, "successCodes"},
		{"non-int codes", `{"successCodes":[200,"201"]}`, "successCodes"},
		{"timeout too big", `{"timeoutSeconds":6}`, "timeoutSeconds"},
		{"fractional timeout", `{"timeoutSeconds":2.5}`, "timeoutSeconds"},
		{"zero timeout", `{"timeoutSeconds":0}`, "timeoutSeconds"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Check([]byte(tc.raw))
			require.False(t, res.Eligible)

			var errs validation.Errors
			require.ErrorAs(t, res.Err, &errs)
			assert.Contains(t, errs, tc.field)
		})
	}
}

func TestCheck_MalformedJSONIsEmptyRecord(t *testing.T) {
	for _, raw := range []string{``, `not json`, `[1,2,3]`, `"str"`, `null`} {
		res := Check([]byte(raw))
		require.False(t, res.Eligible, raw)

		var errs validation.Errors
		require.ErrorAs(t, res.Err, &errs)
		assert.Len(t, errs, 7, raw)
		assert.Equal(t, domain.StateDown, res.Check.State)
	}
}

func TestCheck_IsStateless(t *testing.T) {
	a := Check([]byte(good))
	b := Check([]byte(good))
	assert.Equal(t, a, b)
}
