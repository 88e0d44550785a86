package mailsource

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-message/mail"
	pop3client "github.com/knadh/go-pop3"
)

// POP3Source fetches messages over POP3/POP3S.
//
// POP3 has no server-side search, so ListRecent pulls headers with TOP and
// filters by Date locally. The connection opened by ListRecent stays up for
// the DownloadRaw calls that follow.
type POP3Source struct {
	host     string
	port     int
	username string
	password string
	useTLS   bool
	logger   *slog.Logger

	conn    *pop3client.Conn
	seqNums map[string]int // ref ID -> message sequence from the last listing
}

// NewPOP3 creates a new POP3 source.
func NewPOP3(host string, port int, username, password string, useTLS bool, logger *slog.Logger) *POP3Source {
	return &POP3Source{
		host:     host,
		port:     port,
		username: username,
		password: password,
		useTLS:   useTLS,
		logger:   logger,
		seqNums:  make(map[string]int),
	}
}

func (s *POP3Source) connect() error {
	addr := net.JoinHostPort(s.host, fmt.Sprintf("%d", s.port))

	client := pop3client.New(pop3client.Opt{
		Host:       s.host,
		Port:       s.port,
		TLSEnabled: s.useTLS,
	})
	conn, err := client.NewConn()
	if err != nil {
		return fmt.Errorf("pop3 connect %s: %w", addr, err)
	}

	if err := conn.Auth(s.username, s.password); err != nil {
		conn.Quit()
		return fmt.Errorf("pop3 auth %s: %w", s.username, err)
	}

	s.conn = conn
	return nil
}

func (s *POP3Source) ListRecent(ctx context.Context, lookback time.Duration) ([]Ref, error) {
	// Sequence numbers are only valid within one POP3 session.
	s.closeConn()
	s.seqNums = make(map[string]int)

	if err := s.connect(); err != nil {
		return nil, err
	}

	msgs, err := s.conn.List(0)
	if err != nil {
		return nil, fmt.Errorf("pop3 list: %w", err)
	}

	cutoff := time.Now().Add(-lookback)
	var refs []Ref

	for _, msg := range msgs {
		ent, err := s.conn.Top(msg.ID, 0)
		if err != nil {
			s.logger.Warn("pop3 top failed", "seq", msg.ID, "error", err)
			continue
		}

		header := mail.Header{Header: ent.Header}
		msgID := header.Get("Message-Id")
		if msgID == "" {
			// Fall back to UIDL if available, otherwise use sequence + username.
			if msg.UID != "" {
				msgID = fmt.Sprintf("pop3-uid-%s-%s", msg.UID, s.username)
			} else {
				msgID = fmt.Sprintf("pop3-%d-%s", msg.ID, s.username)
			}
		}

		date, err := header.Date()
		if err != nil {
			date = time.Time{}
		}
		if !date.IsZero() && date.Before(cutoff) {
			continue
		}

		s.seqNums[msgID] = msg.ID
		refs = append(refs, Ref{ID: msgID, Date: date})
	}

	s.logger.Debug("listed messages", "count", len(refs))
	return refs, nil
}

func (s *POP3Source) DownloadRaw(ctx context.Context, id string) ([]byte, error) {
	seq, ok := s.seqNums[id]
	if !ok || s.conn == nil {
		return nil, nil
	}

	buf, err := s.conn.RetrRaw(seq)
	if err != nil {
		return nil, fmt.Errorf("pop3 retrieve %s: %w", id, err)
	}
	return buf.Bytes(), nil
}

func (s *POP3Source) closeConn() {
	if s.conn != nil {
		s.conn.Quit()
		s.conn = nil
	}
}

func (s *POP3Source) Close() error {
	s.closeConn()
	return nil
}
