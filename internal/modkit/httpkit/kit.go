// Package httpkit is what modules mount routes with. It keeps handlers to the
// return-style (value, error) shape and hides the platform http package
package httpkit

import phttp "claimguard/internal/platform/net/http"

type (
	Envelope = phttp.Envelope
	Response = phttp.Response
	Handler  = phttp.Handler
	Router   = phttp.Router
)

// Created answers 201 with data
func Created(data any) Response { return phttp.Created(data) }
