// Package cli implements the interactive client session.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"

	"github.com/heysubinoy/remotekv/internal/logging"
	"github.com/heysubinoy/remotekv/pkg/client"
	"github.com/heysubinoy/remotekv/pkg/kv"
)

const menu = "Choose From Following Options:\n1) PUT\n2) GET\n3) DELETE\n4) CLOSE CLIENT"

// Caller sends one request to the store.
type Caller interface {
	Do(ctx context.Context, req kv.Request) (kv.Response, error)
}

// Session drives a Caller from line-based input.
type Session struct {
	Caller Caller
	In     io.Reader
	Out    io.Writer
	// Now is the clock used for output timestamps.
	Now func() time.Time
}

// Send issues req and prints the outcome. Failures are printed, not
// returned: one failed call never ends the session.
func (s *Session) Send(ctx context.Context, req kv.Request) {
	resp, err := s.Caller.Do(ctx, req)
	ts := logging.Timestamp(s.now())
	if err != nil {
		fmt.Fprintln(s.Out, color.RedString("%s %s", ts, describe(err)))
		return
	}
	fmt.Fprintf(s.Out, "%s %s\n", ts, resp)
}

// Run shows the menu until the user closes the client or input ends.
func (s *Session) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.In)
	prompt := func(label string) (string, bool) {
		fmt.Fprint(s.Out, label)
		if !scanner.Scan() {
			return "", false
		}
		return scanner.Text(), true
	}

	for {
		fmt.Fprintln(s.Out)
		fmt.Fprintln(s.Out, menu)
		if !scanner.Scan() {
			return scanner.Err()
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			key, ok := prompt("Enter Key: ")
			if !ok {
				return scanner.Err()
			}
			value, ok := prompt("Enter Value: ")
			if !ok {
				return scanner.Err()
			}
			s.Send(ctx, kv.Request{Op: kv.OpPut, Key: key, Value: value})
		case "2":
			key, ok := prompt("Enter Key: ")
			if !ok {
				return scanner.Err()
			}
			s.Send(ctx, kv.Request{Op: kv.OpGet, Key: key})
		case "3":
			key, ok := prompt("Enter Key: ")
			if !ok {
				return scanner.Err()
			}
			s.Send(ctx, kv.Request{Op: kv.OpDelete, Key: key})
		case "4":
			fmt.Fprintln(s.Out, "Client Closed")
			return nil
		default:
			fmt.Fprintln(s.Out, "Please enter valid Input")
		}
	}
}

// Prepopulate runs the warm-up script against the store.
func (s *Session) Prepopulate(ctx context.Context) {
	for _, req := range PrepopulateScript {
		s.Send(ctx, req)
	}
}

func (s *Session) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// describe renders err for the user by category.
func describe(err error) string {
	switch {
	case errors.Is(err, client.ErrUnreachable):
		return "Unable to connect to the Server."
	case errors.Is(err, client.ErrMalformedResponse):
		return "Received malformed response from the server"
	case errors.Is(err, kv.ErrInvalidRequestType):
		return "Please enter valid request type"
	default:
		return err.Error()
	}
}

// PrepopulateScript exercises every outcome once: inserts, an overwrite,
// hits and misses for both get and delete.
var PrepopulateScript = []kv.Request{
	{Op: kv.OpPut, Key: "key1", Value: "value1"},
	{Op: kv.OpPut, Key: "key2", Value: "value2"},
	{Op: kv.OpPut, Key: "key3", Value: "value3"},

	{Op: kv.OpPut, Key: "key4", Value: "value1"},
	{Op: kv.OpGet, Key: "key4"},
	{Op: kv.OpDelete, Key: "key4"},

	{Op: kv.OpDelete, Key: "key1"},
	{Op: kv.OpGet, Key: "key1"},

	{Op: kv.OpPut, Key: "key5", Value: "value5"},
	{Op: kv.OpGet, Key: "key5"},
	{Op: kv.OpPut, Key: "key5", Value: "value6"},
	{Op: kv.OpGet, Key: "key5"},

	{Op: kv.OpPut, Key: "key7", Value: "value7"},
	{Op: kv.OpPut, Key: "key8", Value: "value8"},
	{Op: kv.OpDelete, Key: "key8"},
	{Op: kv.OpGet, Key: "key8"},

	{Op: kv.OpDelete, Key: "key7"},
	{Op: kv.OpGet, Key: "key7"},

	{Op: kv.OpDelete, Key: "INVALID"},
}
