package kv

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// Store defines the interface for a key-value store.
// Implementations can be swapped out (in-memory, Raft-ordered, instrumented)
// without the dispatch layer noticing.
//
// A key that is not present is reported through a StatusNotFound Response,
// never through the error return. The error is reserved for failures of the
// backend itself.
type Store interface {
	// Put inserts or overwrites key. Always StatusOK.
	Put(key, value string) (Response, error)

	// Get returns StatusOK with the value, or StatusNotFound.
	Get(key string) (Response, error)

	// Delete removes key, or reports StatusNotFound if it was absent.
	Delete(key string) (Response, error)
}

// Status codes carried by a Response.
const (
	StatusOK       = "200"
	StatusNotFound = "404"
)

// Response is the outcome of a single store operation.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PutOK builds the response for a successful put.
func PutOK(key, value string) Response {
	return Response{
		Status:  StatusOK,
		Message: "PUT Request successful with key = " + key + " and value = " + value,
	}
}

// GetOK builds the response for a get that found key.
func GetOK(key, value string) Response {
	return Response{
		Status:  StatusOK,
		Message: "GET Request Successful with key = " + key + ", value = " + value,
	}
}

// DeleteOK builds the response for a delete that removed key.
func DeleteOK(key string) Response {
	return Response{
		Status:  StatusOK,
		Message: "DELETE Request successful with key = " + key,
	}
}

// NotFound builds the response for a get or delete of an absent key.
func NotFound(key string) Response {
	return Response{
		Status:  StatusNotFound,
		Message: "Key = " + key + " not found",
	}
}

// OK reports whether the operation succeeded.
func (r Response) OK() bool { return r.Status == StatusOK }

// Valid reports whether r carries one of the known status codes.
func (r Response) Valid() bool {
	return r.Status == StatusOK || r.Status == StatusNotFound
}

func (r Response) String() string {
	return fmt.Sprintf("Response{status='%s', message='%s'}", r.Status, r.Message)
}

// Op is a request operation tag.
type Op string

const (
	OpPut    Op = "put"
	OpGet    Op = "get"
	OpDelete Op = "delete"
)

// ErrInvalidRequestType is returned for an op tag outside put, get and delete.
var ErrInvalidRequestType = errors.New("invalid request type")

// ErrInvalidEncoding is returned for a key or value that is not valid UTF-8.
// Such strings cannot cross the wire intact, so distinct keys would collide.
var ErrInvalidEncoding = errors.New("key and value must be valid UTF-8")

// ParseOp normalizes an op tag. Matching is case-insensitive and "del" is
// accepted as an alias for delete.
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "put":
		return OpPut, nil
	case "get":
		return OpGet, nil
	case "delete", "del":
		return OpDelete, nil
	}
	return "", errors.Wrapf(ErrInvalidRequestType, "%q", s)
}

// Request is a single call against the store. Value is only read for puts.
type Request struct {
	Op    Op     `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// Validate normalizes r.Op in place, failing with ErrInvalidRequestType.
// A key or value that is not valid UTF-8 fails with ErrInvalidEncoding.
func (r *Request) Validate() error {
	op, err := ParseOp(string(r.Op))
	if err != nil {
		return err
	}
	if !utf8.ValidString(r.Key) {
		return errors.Wrapf(ErrInvalidEncoding, "key %q", r.Key)
	}
	if op == OpPut && !utf8.ValidString(r.Value) {
		return errors.Wrapf(ErrInvalidEncoding, "value %q", r.Value)
	}
	r.Op = op
	return nil
}
