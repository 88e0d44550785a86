package mailsource

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// IMAPSource fetches messages over IMAP/IMAPS.
//
// Each ListRecent dials a fresh connection and keeps it open so that
// subsequent DownloadRaw calls within the same run reuse it.
type IMAPSource struct {
	host     string
	port     int
	username string
	password string
	useTLS   bool
	folder   string
	logger   *slog.Logger

	client  *imapclient.Client
	seqNums map[string]uint32 // ref ID -> sequence number from the last listing
}

// NewIMAP creates a new IMAP source.
func NewIMAP(host string, port int, username, password string, useTLS bool, folder string, logger *slog.Logger) *IMAPSource {
	if folder == "" {
		folder = "INBOX"
	}
	return &IMAPSource{
		host:     host,
		port:     port,
		username: username,
		password: password,
		useTLS:   useTLS,
		folder:   folder,
		logger:   logger,
		seqNums:  make(map[string]uint32),
	}
}

func (s *IMAPSource) connect() error {
	addr := net.JoinHostPort(s.host, fmt.Sprintf("%d", s.port))

	var client *imapclient.Client
	var err error

	if s.useTLS {
		client, err = imapclient.DialTLS(addr, &imapclient.Options{
			TLSConfig: &tls.Config{ServerName: s.host},
		})
	} else {
		client, err = imapclient.DialInsecure(addr, nil)
	}
	if err != nil {
		return fmt.Errorf("imap connect %s: %w", addr, err)
	}

	if err := client.Login(s.username, s.password).Wait(); err != nil {
		client.Close()
		return fmt.Errorf("imap login %s: %w", s.username, err)
	}

	if _, err := client.Select(s.folder, nil).Wait(); err != nil {
		client.Logout()
		client.Close()
		return fmt.Errorf("imap select %s: %w", s.folder, err)
	}

	s.client = client
	return nil
}

func (s *IMAPSource) ListRecent(ctx context.Context, lookback time.Duration) ([]Ref, error) {
	// Sequence numbers from a previous listing are stale once we reconnect.
	s.closeClient()
	s.seqNums = make(map[string]uint32)

	if err := s.connect(); err != nil {
		return nil, err
	}

	since := time.Now().Add(-lookback)
	searchCriteria := &imap.SearchCriteria{
		Since: since,
	}
	searchData, err := s.client.Search(searchCriteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}

	seqNums := searchData.AllSeqNums()
	if len(seqNums) == 0 {
		s.logger.Debug("no messages found in date range")
		return nil, nil
	}

	seqSet := imap.SeqSetNum(seqNums...)
	fetchOptions := &imap.FetchOptions{
		Envelope: true,
	}

	buffers, err := s.client.Fetch(seqSet, fetchOptions).Collect()
	if err != nil {
		return nil, fmt.Errorf("imap fetch envelopes: %w", err)
	}

	var refs []Ref
	for _, buf := range buffers {
		var msgID string
		var date time.Time
		if buf.Envelope != nil {
			msgID = buf.Envelope.MessageID
			date = buf.Envelope.Date
		}
		if msgID == "" {
			msgID = fmt.Sprintf("imap-%d-%s", buf.SeqNum, s.username)
		}

		s.seqNums[msgID] = buf.SeqNum
		refs = append(refs, Ref{ID: msgID, Date: date})
	}

	s.logger.Debug("listed messages", "count", len(refs))
	return refs, nil
}

func (s *IMAPSource) DownloadRaw(ctx context.Context, id string) ([]byte, error) {
	seqNum, ok := s.seqNums[id]
	if !ok || s.client == nil {
		// Gone from the mailbox (or never listed); not an error.
		return nil, nil
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOptions := &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	buffers, err := s.client.Fetch(imap.SeqSetNum(seqNum), fetchOptions).Collect()
	if err != nil {
		return nil, fmt.Errorf("imap fetch body %s: %w", id, err)
	}
	if len(buffers) == 0 {
		return nil, nil
	}

	return buffers[0].FindBodySection(bodySection), nil
}

func (s *IMAPSource) closeClient() {
	if s.client != nil {
		s.client.Logout()
		s.client.Close()
		s.client = nil
	}
}

func (s *IMAPSource) Close() error {
	s.closeClient()
	return nil
}
