package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"stockbot/internal/agent"
	"stockbot/internal/users"
)

type stubAuth struct{}

func (stubAuth) Authenticate(name, pass string) (users.User, error) {
	if name == "ana" && pass == "a1" {
		return users.User{Username: "ana", Role: "admin"}, nil
	}
	return users.User{}, users.ErrInvalidCredentials
}

type echoHandler struct{ seen []string }

func (e *echoHandler) Handle(_ context.Context, _ *agent.Session, text string) agent.Reply {
	e.seen = append(e.seen, text)
	return agent.Reply{Kind: agent.ReplyMessage, Text: "got " + text}
}

func TestLoginRetries(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("ana\nbad\nana\na1\n"))
	var out bytes.Buffer
	u, err := login(in, &out, stubAuth{}, readLine)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.Role != "admin" {
		t.Fatalf("role = %q", u.Role)
	}
	if !strings.Contains(out.String(), "Wrong username or password.") {
		t.Fatalf("missing failure notice: %q", out.String())
	}
}

func TestLoginGivesUp(t *testing.T) {
	in := bufio.NewReader(strings.NewReader(strings.Repeat("x\ny\n", maxLoginAttempts)))
	if _, err := login(in, &bytes.Buffer{}, stubAuth{}, readLine); err == nil {
		t.Fatal("expected an error after repeated failures")
	}
}

func TestREPLStopsOnExitWord(t *testing.T) {
	h := &echoHandler{}
	in := bufio.NewReader(strings.NewReader("producto 1\n\nSALIR\nnever sent\n"))
	var out bytes.Buffer
	if err := repl(context.Background(), in, &out, h, agent.NewSession("cli", "ana", "admin")); err != nil {
		t.Fatalf("repl: %v", err)
	}
	if len(h.seen) != 1 || h.seen[0] != "producto 1" {
		t.Fatalf("handled %v", h.seen)
	}
	if !strings.Contains(out.String(), "got producto 1") || !strings.Contains(out.String(), "Bye.") {
		t.Fatalf("output %q", out.String())
	}
}

func TestREPLEndsOnEOF(t *testing.T) {
	h := &echoHandler{}
	in := bufio.NewReader(strings.NewReader("last line without newline"))
	if err := repl(context.Background(), in, &bytes.Buffer{}, h, agent.NewSession("cli", "ana", "admin")); err != nil {
		t.Fatalf("repl: %v", err)
	}
	if len(h.seen) != 1 {
		t.Fatalf("handled %v", h.seen)
	}
}

func TestHashCommand(t *testing.T) {
	var out bytes.Buffer
	if err := hashCmd([]string{"s3cret"}, &out); err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(out.String(), "$2") {
		t.Fatalf("not a bcrypt hash: %q", out.String())
	}
	if err := hashCmd(nil, &out); err == nil {
		t.Fatal("expected usage error")
	}
}
