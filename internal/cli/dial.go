package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/remote"
	"github.com/fruitsalade/silosync/pkg/client"
)

func dialRemote(ctx context.Context, a *app) (remote.Service, error) {
	if err := a.cfg.RequireServer(); err != nil {
		return nil, faults.Wrap(err, "connect")
	}
	s := a.cfg.Server
	c := client.New(client.Config{
		BaseURL:            s.BaseURL,
		Timeout:            s.Timeout,
		RetryConfig:        s.Retry(),
		RequestsPerSecond:  s.RequestsPerSecond,
		Burst:              s.Burst,
		InsecureSkipVerify: s.InsecureSkipVerify,
		PageSize:           a.cfg.Search.PageSize,
		Logger:             a.logger,
	})

	creds := client.Credentials{
		Hostname: a.cfg.Credentials.Hostname,
		Username: a.cfg.Credentials.Username,
		Password: a.cfg.Credentials.Password,
	}
	if creds.Password == "" {
		pw, err := promptPassword(os.Stdin, os.Stderr, creds)
		if err != nil {
			return nil, err
		}
		creds.Password = pw
	}

	sess, err := c.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return c.Bind(sess), nil
}

// promptPassword reads a password without echo when in is a terminal and
// falls back to reading one line otherwise.
func promptPassword(in *os.File, out io.Writer, creds client.Credentials) (string, error) {
	fmt.Fprintf(out, "Password for %s: ", creds)
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", faults.Validationf("connect", "no password given")
	}
	return line, nil
}
