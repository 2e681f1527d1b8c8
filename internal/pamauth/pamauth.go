// Package pamauth wraps the host operating system's PAM service behind a
// small oracle interface so the authenticator can be tested without system
// accounts present.
package pamauth

import (
	"context"
	"errors"
	"time"

	"github.com/msteinert/pam/v2"
)

// ErrTimeout is returned when the host authentication call exceeds its deadline.
var ErrTimeout = errors.New("pam: authentication timed out")

// Oracle answers whether a (username, secret) pair is valid according to the
// host system. Implementations must treat errors as untrusted I/O failures,
// never as verdicts.
type Oracle interface {
	Authenticate(ctx context.Context, username, secret string) (bool, error)
}

// Service is the production Oracle backed by libpam.
type Service struct {
	service string
	timeout time.Duration
}

// New returns an Oracle using the given PAM service (realm) name. A
// non-positive timeout falls back to 5 seconds.
func New(service string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{service: service, timeout: timeout}
}

// Authenticate runs a PAM conversation for the user. The blocking libpam call
// runs in its own goroutine so the caller's deadline is honored; on timeout
// the transaction is abandoned and ErrTimeout returned.
func (s *Service) Authenticate(ctx context.Context, username, secret string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- s.converse(username, secret)
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return false, ErrTimeout
		}
		return false, ctx.Err()
	case err := <-result:
		if err == nil {
			return true, nil
		}
		var pamErr pam.Error
		if errors.As(err, &pamErr) {
			switch pamErr {
			case pam.ErrAuth, pam.ErrUserUnknown, pam.ErrPermDenied, pam.ErrAuthinfoUnavail:
				// Definitive rejection, not an infrastructure failure.
				return false, nil
			}
		}
		return false, err
	}
}

func (s *Service) converse(username, secret string) error {
	tx, err := pam.StartFunc(s.service, username, func(style pam.Style, msg string) (string, error) {
		switch style {
		case pam.PromptEchoOff:
			return secret, nil
		case pam.PromptEchoOn:
			return username, nil
		case pam.ErrorMsg, pam.TextInfo:
			return "", nil
		}
		return "", errors.New("unsupported conversation style")
	})
	if err != nil {
		return err
	}
	defer func() { _ = tx.End() }()

	if err := tx.Authenticate(0); err != nil {
		return err
	}

	// Honors account expiry and host-side lockouts.
	return tx.AcctMgmt(0)
}
