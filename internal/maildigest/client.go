// Package maildigest is the fallback notification channel. The task
// server mails a copy of every notification it pushes; when the
// websocket is down for long stretches this package polls the user's
// mailbox over IMAP and folds those emails back into the notification
// list so nothing is missed.
package maildigest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
)

// Message is one notification email pulled from the mailbox.
type Message struct {
	UID     uint32
	Subject string
	From    string
	Date    time.Time
	Body    string
}

// Fetcher pulls notification emails from an IMAP mailbox.
type Fetcher struct {
	host     string
	username string
	password string
	sender   string
}

// NewFetcher creates a new IMAP fetcher. host is host:port, sender is
// the address notification emails arrive from.
func NewFetcher(host, username, password, sender string) *Fetcher {
	return &Fetcher{
		host:     host,
		username: username,
		password: password,
		sender:   sender,
	}
}

// connect dials the IMAP server and authenticates. The caller owns
// the returned client and must Logout.
func (f *Fetcher) connect(_ context.Context) (*imapclient.Client, error) {
	client, err := imapclient.DialTLS(f.host, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", f.host, err)
	}

	if err := client.Login(f.username, f.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("IMAP login for %s: %w", f.username, err)
	}

	return client, nil
}

// Fetch returns notification emails received since the given time,
// oldest first.
func (f *Fetcher) Fetch(ctx context.Context, since time.Time) ([]Message, error) {
	client, err := f.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	criteria := &imap.SearchCriteria{
		Since: since,
		Header: []imap.SearchCriteriaHeaderField{
			{Key: "From", Value: f.sender},
		},
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	uidSet := imap.UIDSetNum(uids...)
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	var messages []Message
	for {
		raw := fetchCmd.Next()
		if raw == nil {
			break
		}

		buf, err := raw.Collect()
		if err != nil {
			continue
		}

		msg := Message{UID: uint32(buf.UID)}
		if buf.Envelope != nil {
			msg.Subject = buf.Envelope.Subject
			msg.Date = buf.Envelope.Date
			if len(buf.Envelope.From) > 0 {
				msg.From = buf.Envelope.From[0].Addr()
			}
		}
		if body := buf.FindBodySection(bodySection); body != nil {
			msg.Body = textBody(body)
		}
		messages = append(messages, msg)
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching messages: %w", err)
	}

	return messages, nil
}

// textBody extracts the text/plain part from a raw RFC 2822 message.
func textBody(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Not MIME; treat the whole thing as plain text.
		return string(raw)
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if !strings.HasPrefix(contentType, "text/plain") {
			continue
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		return string(body)
	}

	return ""
}
