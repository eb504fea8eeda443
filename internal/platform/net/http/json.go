package http

import (
	"net/http"

	"claimguard/internal/platform/net/http/bind"
)

// JSONHandler decodes and validates a T body before calling fn
func JSONHandler[T any](fn func(*http.Request, T) (any, error)) Handler {
	return Handle(func(r *http.Request) Response {
		in, err := bind.ParseJSON[T](r)
		if err != nil {
			return Error(err)
		}
		return Result(fn(r, in))
	})
}

// NoBody calls fn without reading the request body
func NoBody(fn func(*http.Request) (any, error)) Handler {
	return Handle(func(r *http.Request) Response { return Result(fn(r)) })
}
