package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/brezze/brezze/internal/bus"
	"github.com/brezze/brezze/internal/client"
	"github.com/brezze/brezze/internal/config"
	"github.com/brezze/brezze/internal/logging"
	"github.com/brezze/brezze/internal/wire"
	"go.uber.org/zap"
)

func main() {
	configFlag := flag.String("config", "", "path to config file (default ~/.brezze/config.toml)")
	serverFlag := flag.String("server", "", "server url (overrides config)")
	emailFlag := flag.String("email", "", "account email (overrides config)")
	flag.Parse()

	path := *configFlag
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "error: load config %s: %v\n", path, err)
			os.Exit(1)
		}
		cfg = config.Default()
	}
	if *serverFlag != "" {
		cfg.Client.ServerURL = *serverFlag
	}
	if *emailFlag != "" {
		cfg.Client.Email = *emailFlag
	}
	if err := cfg.ValidateClient(); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid client config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(config.ClientLogPath(cfg.Server.DataDir), "brezze")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open log: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stdin := bufio.NewScanner(os.Stdin)

	rest, err := client.NewClient(cfg.Client.ServerURL)
	if err != nil {
		return err
	}
	self, err := authenticate(ctx, rest, cfg.Client.Email, stdin)
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s <%s>\n", self.FullName, self.Email)

	b := bus.New()
	machine := client.NewMachine(b)
	sess := client.NewSession(*self, rest, b, logger)
	sess.Start(ctx)
	defer sess.Stop()

	go printEvents(ctx, b, self.ID)

	_ = machine.Transition(client.Connecting)
	conn, err := connect(ctx, cfg.Client.ServerURL, self.ID, sess, rest, b, logger)
	if err != nil {
		_ = machine.Transition(client.Disconnected)
		return err
	}
	_ = machine.Transition(client.Ready)
	defer conn.Close()

	// Redial with backoff when the read loop drops, then refresh the open
	// conversation to fill any delivery gap.
	go func() {
		c := conn
		for {
			err := c.ReadLoop(ctx)
			if ctx.Err() != nil {
				return
			}
			logger.Warn("relay connection lost", zap.Error(err))
			_ = machine.Transition(client.Reconnecting)

			for {
				time.Sleep(2 * time.Second)
				if ctx.Err() != nil {
					return
				}
				_ = machine.Transition(client.Connecting)
				c, err = connect(ctx, cfg.Client.ServerURL, self.ID, sess, rest, b, logger)
				if err == nil {
					break
				}
				logger.Warn("reconnect failed", zap.Error(err))
				_ = machine.Transition(client.Reconnecting)
			}
			_ = machine.Transition(client.Ready)
			sess.Refresh(ctx)
		}
	}()

	repl(ctx, sess, rest, self.ID, stdin)
	_ = machine.Transition(client.Closed)
	return nil
}

func authenticate(ctx context.Context, rest *client.Client, email string, stdin *bufio.Scanner) (*client.Account, error) {
	if email == "" {
		email = prompt(stdin, "email: ")
	}
	password := prompt(stdin, "password: ")

	self, err := rest.Login(ctx, email, password)
	if err == nil {
		return self, nil
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return nil, err
	}

	fmt.Println("no account with those credentials, creating one")
	fullName := prompt(stdin, "full name: ")
	return rest.Signup(ctx, email, fullName, password)
}

func connect(ctx context.Context, serverURL, selfID string, sess *client.Session, rest *client.Client, b *bus.Bus, logger *zap.Logger) (*client.Conn, error) {
	conn, err := client.Dial(ctx, serverURL, selfID, rest.Jar(), b, logger)
	if err != nil {
		return nil, err
	}
	if err := sess.Attach(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func repl(ctx context.Context, sess *client.Session, rest *client.Client, selfID string, stdin *bufio.Scanner) {
	fmt.Println("commands: /contacts, /open <email>, /history, /quit; anything else sends")
	for {
		fmt.Print("> ")
		if !stdin.Scan() {
			return
		}
		line := strings.TrimSpace(stdin.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			sess.StopTyping()
			return
		case line == "/contacts":
			listContacts(ctx, rest)
		case strings.HasPrefix(line, "/open "):
			openPeer(ctx, sess, rest, strings.TrimSpace(strings.TrimPrefix(line, "/open ")))
		case line == "/history":
			printHistory(sess, selfID)
		default:
			if sess.Peer().ID == "" {
				fmt.Println("no conversation open, use /open <email>")
				continue
			}
			if _, err := sess.Send(ctx, line); err != nil {
				fmt.Printf("send failed: %v (draft kept: %q)\n", err, sess.Draft())
			}
		}
	}
}

func listContacts(ctx context.Context, rest *client.Client) {
	entries, err := rest.Sidebar(ctx)
	if err != nil {
		fmt.Printf("contacts: %v\n", err)
		return
	}
	for _, e := range entries {
		last := ""
		if e.LastMessage != nil {
			last = " | " + e.LastMessage.Body
		}
		fmt.Printf("  %s <%s>%s\n", e.FullName, e.Email, last)
	}
}

func openPeer(ctx context.Context, sess *client.Session, rest *client.Client, email string) {
	entries, err := rest.Sidebar(ctx)
	if err != nil {
		fmt.Printf("open: %v\n", err)
		return
	}
	for _, e := range entries {
		if e.Email == email {
			sess.Open(ctx, e.Account)
			fmt.Printf("conversation with %s opened\n", e.FullName)
			return
		}
	}
	fmt.Printf("no contact with email %q\n", email)
}

func printHistory(sess *client.Session, selfID string) {
	for _, m := range sess.Messages() {
		who := m.SenderID
		if m.SenderID == selfID {
			who = "me"
		}
		marker := ""
		if m.Pending() {
			marker = " (sending)"
		}
		fmt.Printf("  [%s] %s: %s%s\n", m.CreatedAt.Local().Format("15:04"), who, m.Body, marker)
	}
}

// printEvents renders live relay and connection events as they arrive.
func printEvents(ctx context.Context, b *bus.Bus, selfID string) {
	ch, unsub := b.Subscribe("", 128)
	defer unsub()
	for {
		select {
		case evt := <-ch:
			switch p := evt.Payload.(type) {
			case wire.Event:
				printRelay(p, selfID)
			case client.StateChange:
				fmt.Printf("* connection: %s\n", p.To)
			}
		case <-ctx.Done():
			return
		}
	}
}

func printRelay(evt wire.Event, selfID string) {
	switch evt.Type {
	case wire.TypeMessageReceived:
		if evt.Message != nil && evt.Message.SenderID != selfID {
			fmt.Printf("\n%s: %s\n> ", evt.Message.SenderID, evt.Message.Body)
		}
	case wire.TypeTyping:
		fmt.Printf("\n* %s is typing...\n> ", evt.UserID)
	case wire.TypeMessageRead:
		fmt.Printf("\n* message %s read\n> ", evt.MessageID)
	case wire.TypeUserOffline:
		fmt.Printf("\n* %s went offline\n> ", evt.UserID)
	}
}

func prompt(stdin *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !stdin.Scan() {
		return ""
	}
	return strings.TrimSpace(stdin.Text())
}
