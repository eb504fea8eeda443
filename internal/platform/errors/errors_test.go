package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFoundf("run %s not found", "r1"), http.StatusNotFound},
		{InvalidArgf("id must be a uuid"), http.StatusUnprocessableEntity},
		{JSONErrf("empty body"), http.StatusBadRequest},
		{New(ErrorCodeValidation, "limit must be at most 1000"), http.StatusBadRequest},
		{Unauthorizedf("missing bearer token"), http.StatusUnauthorized},
		{Sourcef("GET claims.csv: 503"), http.StatusBadGateway},
		{Parsef("row 12: wrong number of fields"), http.StatusUnprocessableEntity},
		{Cancelledf("cancelled by operator"), http.StatusConflict},
		{Conflictf("run already finished"), http.StatusConflict},
		{PanicErrf("panic recovered"), http.StatusInternalServerError},
		{stderrs.New("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatus(c.err), c.err.Error())
	}
}

func TestWrap_KeepsCauseAndCode(t *testing.T) {
	cause := stderrs.New("connection reset")
	err := fmt.Errorf("fetch chunk 3: %w", Wrapf(cause, ErrorCodeSource, "read %s", "claims.csv"))

	assert.True(t, IsCode(err, ErrorCodeSource))
	assert.ErrorIs(t, err, cause)
	assert.Same(t, cause, Root(err))
	assert.Equal(t, "fetch chunk 3: read claims.csv: connection reset", err.Error())
}

func TestWithField_CopiesOnWrite(t *testing.T) {
	base := InvalidArgf("bad limit")
	withField := WithField(base, "limit")

	e, ok := As(withField)
	require.True(t, ok)
	assert.Equal(t, "limit", e.Field())

	orig, _ := As(base)
	assert.Empty(t, orig.Field())

	plain := stderrs.New("x")
	assert.Same(t, plain, WithField(plain, "limit"))
}

func TestWireFrom(t *testing.T) {
	assert.Equal(t, Wire{}, WireFrom(nil))
	assert.Equal(t, Wire{Code: ErrorCodeUnknown, Message: "plain"}, WireFrom(stderrs.New("plain")))

	w := WireFrom(WithField(Wrap(stderrs.New("inner"), ErrorCodeValidation, "source is required"), "source"))
	assert.Equal(t, Wire{Code: ErrorCodeValidation, Message: "source is required", Field: "source"}, w,
		"the wire message leaves out the wrapped cause")
}

func TestNilError(t *testing.T) {
	var e *Error
	assert.Equal(t, "<nil>", e.Error())
	assert.Nil(t, Root(nil))
	assert.Equal(t, ErrorCodeUnknown, CodeOf(nil))
}
