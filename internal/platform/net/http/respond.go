// Package http adapts return-style handlers to net/http and writes the shared json envelope
package http

import (
	stdhttp "net/http"

	pnet "claimguard/internal/platform/net"
)

// Envelope is the response body type
type Envelope = pnet.Envelope

// Response is what return-style handlers produce. A Body that is an error
// becomes a failure envelope with the error's status
type Response struct {
	Status int
	Body   any
	Header stdhttp.Header
}

// OK is a 200 carrying data
func OK(data any) Response { return Response{Status: stdhttp.StatusOK, Body: data} }

// Created is a 201 carrying data
func Created(data any) Response { return Response{Status: stdhttp.StatusCreated, Body: data} }

// NoContent is an empty 204
func NoContent() Response { return Response{Status: stdhttp.StatusNoContent} }

// Error renders err as a failure envelope
func Error(err error) Response { return Response{Body: err} }

// Result turns a handler's (value, error) pair into a Response. A value that
// already is a Response passes through so handlers can pick their status
func Result(out any, err error) Response {
	if err != nil {
		return Error(err)
	}
	if r, ok := out.(Response); ok {
		return r
	}
	return OK(out)
}

// JSON writes v as json with status
func JSON(w stdhttp.ResponseWriter, status int, v any) { pnet.WriteJSON(w, status, v) }

// Handle adapts h to a Handler
func Handle(h func(*stdhttp.Request) Response) Handler {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) { h(r).write(w, r) }
}

func (resp Response) write(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	reqID := pnet.RequestID(r.Context())

	if err, ok := resp.Body.(error); ok && err != nil {
		pnet.WriteEnvelope(w, pnet.Failure(err, reqID))
		return
	}

	status := resp.Status
	switch status {
	case 0:
		status = stdhttp.StatusOK
	case stdhttp.StatusNoContent:
		w.WriteHeader(status)
		return
	}
	pnet.WriteEnvelope(w, pnet.Success(status, resp.Body, reqID))
}
