package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"golang.org/x/term"

	"stockbot/internal/agent"
	"stockbot/internal/app"
	"stockbot/internal/config"
	"stockbot/internal/users"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash" {
		if err := hashCmd(os.Args[2:], os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()
	core, err := app.NewCore(ctx, cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer core.Close()

	in := bufio.NewReader(os.Stdin)
	user, err := login(in, os.Stdout, core.Users, readPassword)
	if err != nil {
		log.Fatal(err)
	}
	sess := agent.NewSession("cli", user.Username, user.Role)
	if err := repl(ctx, in, os.Stdout, core.Agent, sess); err != nil {
		log.Fatal(err)
	}
}

// hashCmd prints a bcrypt hash for the users file.
func hashCmd(args []string, out io.Writer) error {
	if len(args) != 1 || args[0] == "" {
		return fmt.Errorf("usage: stockbot-cli hash <password>")
	}
	h, err := users.HashPassword(args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, h)
	return err
}

type authenticator interface {
	Authenticate(username, password string) (users.User, error)
}

// readPassword hides input on a terminal and falls back to a plain line.
func readPassword(in *bufio.Reader) (string, error) {
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		return string(b), err
	}
	return readLine(in)
}

const maxLoginAttempts = 3

func login(in *bufio.Reader, out io.Writer, auth authenticator, password func(*bufio.Reader) (string, error)) (users.User, error) {
	for i := 0; i < maxLoginAttempts; i++ {
		fmt.Fprint(out, "Username: ")
		name, err := readLine(in)
		if err != nil {
			return users.User{}, err
		}
		fmt.Fprint(out, "Password: ")
		pass, err := password(in)
		if err != nil {
			return users.User{}, err
		}
		u, err := auth.Authenticate(name, pass)
		if err == nil {
			fmt.Fprintf(out, "Welcome, %s (%s).\n", u.Username, u.Role)
			return u, nil
		}
		fmt.Fprintln(out, "Wrong username or password.")
	}
	return users.User{}, fmt.Errorf("too many failed logins")
}

type handler interface {
	Handle(ctx context.Context, sess *agent.Session, text string) agent.Reply
}

var exitWords = map[string]bool{"salir": true, "exit": true, "quit": true}

func repl(ctx context.Context, in *bufio.Reader, out io.Writer, h handler, sess *agent.Session) error {
	fmt.Fprintln(out, "Type your request. 'exit' to leave.")
	for {
		fmt.Fprint(out, "> ")
		line, err := readLine(in)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if exitWords[strings.ToLower(line)] {
			if sess.Pending != nil {
				fmt.Fprintln(out, "Pending action discarded. Nothing was changed.")
			}
			fmt.Fprintln(out, "Bye.")
			return nil
		}
		if line == "" {
			continue
		}
		r := h.Handle(ctx, sess, line)
		fmt.Fprintln(out, r.Text)
		if r.Kind == agent.ReplyPending && r.Err == nil {
			fmt.Fprintln(out, "(yes / no)")
		}
	}
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
