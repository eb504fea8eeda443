package bind

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "claimguard/internal/platform/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type startBody struct {
	Source string `json:"source" validate:"required,claims_source"`
	Rows   int64  `json:"expected_rows,omitempty" validate:"omitempty,min=1"`
	Trees  int    `json:"trees,omitempty" validate:"omitempty,max=500"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(body))
}

func TestParseJSON_OK(t *testing.T) {
	got, err := ParseJSON[startBody](post(`{"source":"https://data.example.org/claims.csv","expected_rows":10}`))
	require.NoError(t, err)
	assert.Equal(t, "https://data.example.org/claims.csv", got.Source)
	assert.Equal(t, int64(10), got.Rows)
}

func TestParseJSON_RejectsMalformedBodies(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"syntax":   `{"source":`,
		"unknown":  `{"source":"a.csv","region":"west"}`,
		"trailing": `{"source":"a.csv"} {"source":"b.csv"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJSON[startBody](post(body))
			assert.True(t, perr.IsCode(err, perr.ErrorCodeJSON), "got %v", err)
		})
	}
}

func TestParseJSON_ValidationMessagesUseWireNames(t *testing.T) {
	_, err := ParseJSON[startBody](post(`{"source":"a.csv","expected_rows":-3}`))
	require.True(t, perr.IsCode(err, perr.ErrorCodeValidation), "got %v", err)
	e, ok := perr.As(err)
	require.True(t, ok)
	assert.Equal(t, "expected_rows", e.Field())
	assert.Equal(t, "expected_rows must be at least 1", e.Error())

	_, err = ParseJSON[startBody](post(`{"source":"a.csv","trees":9000}`))
	e, _ = perr.As(err)
	assert.Equal(t, "trees must be at most 500", e.Error())
}

func TestParseJSON_BodyLargerThanCapFails(t *testing.T) {
	big := `{"source":"` + strings.Repeat("x", int(MaxBody)) + `"}`
	_, err := ParseJSON[startBody](post(big))
	assert.True(t, perr.IsCode(err, perr.ErrorCodeJSON), "got %v", err)
}

func TestClaimsSource(t *testing.T) {
	ok := []string{
		"claims.csv",
		"/data/2024/claims.csv.gz",
		"file:///data/claims.csv",
		"https://data.example.org/claims.csv",
		"HTTP://mirror.local/claims.csv",
	}
	for _, s := range ok {
		assert.NoError(t, Struct(startBody{Source: s}), s)
	}

	bad := []string{"   ", "s3://bucket/claims.csv", "https://", "file://", "ftp://host/claims.csv"}
	for _, s := range bad {
		err := Struct(startBody{Source: s})
		require.Error(t, err, s)
		e, _ := perr.As(err)
		assert.Equal(t, "source", e.Field(), s)
	}

	e, _ := perr.As(Struct(startBody{Source: "s3://bucket/x"}))
	assert.Equal(t, "source must be a file path or an http(s) or file url", e.Error())
}

func TestJSONName(t *testing.T) {
	type row struct {
		A int `json:"billing_id,omitempty" validate:"min=1"`
		B int `json:"-" validate:"min=1"`
		C int `validate:"min=1"`
	}
	_, err := ParseJSON[row](post(`{"billing_id":0}`))
	e, _ := perr.As(err)
	assert.Equal(t, "billing_id", e.Field())

	field, _ := FirstError(Get().V.Struct(row{A: 1}))
	assert.Equal(t, "B", field)

	field, _ = FirstError(Get().V.Struct(row{A: 1, B: 1}))
	assert.Equal(t, "C", field)
}
