package client

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/pkg/protocol"
)

// Credentials identify an account on a library host.
type Credentials struct {
	Hostname string
	Username string
	Password string
}

// String never includes the password.
func (c Credentials) String() string {
	return fmt.Sprintf("%s@%s", c.Username, c.Hostname)
}

// Session is an authenticated session key. It is passed explicitly to Bind
// rather than held by the Client.
type Session struct {
	Key      string
	Hostname string
	Username string
	Created  time.Time
}

// Login authenticates and returns a new session.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	if creds.Hostname == "" || creds.Username == "" || creds.Password == "" {
		return nil, faults.Validationf("login", "hostname, username and password are required")
	}
	req := protocol.NewRequest(protocol.UserLogin).
		SetAlways("hostname", creds.Hostname).
		SetAlways("username", creds.Username).
		SetAlways("password", creds.Password).
		SetAlways("apikey", "")

	resp, err := c.Call(ctx, "", req)
	if err != nil {
		return nil, faults.Wrap(err, "login "+creds.String())
	}
	var s protocol.Session
	if err := resp.Into(&s); err != nil {
		return nil, faults.Transportf(protocol.UserLogin.String(), err, "decode session")
	}
	if s.Key == "" {
		return nil, faults.Transportf(protocol.UserLogin.String(), nil, "reply carried no session key")
	}
	c.logger.Info("logged in", zap.String("user", creds.String()))
	return &Session{Key: s.Key, Hostname: creds.Hostname, Username: creds.Username, Created: time.Now()}, nil
}

// Bind returns the remote capabilities for session.
func (c *Client) Bind(s *Session) *Remote {
	return &Remote{client: c, session: s}
}
