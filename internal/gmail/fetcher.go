// Package gmail pulls statement PDFs out of a Gmail mailbox.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/dvloznov/statement-ledger/internal/logger"
)

// SearchQuery finds the statement notification emails. The issuer always
// uses this exact subject.
const SearchQuery = `subject:"Zolve credit card statement"`

// ReadonlyScope is the only Gmail permission the fetcher needs.
const ReadonlyScope = gmail.GmailReadonlyScope

// Attachment is one PDF pulled out of a statement email.
type Attachment struct {
	// Filename is the sanitized name, prefixed with the email date
	// (YYYY-MM-DD) so repeated statements sort chronologically.
	Filename string

	// EmailDate is when the carrying email was sent.
	EmailDate time.Time

	// Data is the decoded PDF bytes.
	Data []byte
}

// Fetcher lists statement emails and downloads their PDF attachments.
type Fetcher struct {
	service *gmail.Service
}

// NewFetcher creates a Fetcher using Application Default Credentials.
func NewFetcher(ctx context.Context, opts ...option.ClientOption) (*Fetcher, error) {
	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewFetcher: gmail service: %w", err)
	}
	return &Fetcher{service: service}, nil
}

// FetchStatements returns every PDF attached to an email matching
// SearchQuery. One unreadable message is logged and skipped, not fatal.
func (f *Fetcher) FetchStatements(ctx context.Context) ([]Attachment, error) {
	log := logger.FromContext(ctx)

	list, err := f.service.Users.Messages.List("me").Q(SearchQuery).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("FetchStatements: listing messages: %w", err)
	}

	var attachments []Attachment
	for _, ref := range list.Messages {
		msg, err := f.service.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			log.Warn().Err(err).Str("message_id", ref.Id).Msg("skipping unreadable message")
			continue
		}

		emailDate := headerDate(msg.Payload)
		pdfs, err := f.collectPDFParts(ctx, ref.Id, msg.Payload)
		if err != nil {
			log.Warn().Err(err).Str("message_id", ref.Id).Msg("skipping message attachments")
			continue
		}

		for _, pdf := range pdfs {
			attachments = append(attachments, Attachment{
				Filename:  SanitizeFilename(emailDate.Format("2006-01-02") + "_" + pdf.filename),
				EmailDate: emailDate,
				Data:      pdf.data,
			})
		}
	}

	return attachments, nil
}

type pdfPart struct {
	filename string
	data     []byte
}

// collectPDFParts walks the MIME tree of a message and decodes every PDF
// part, fetching detached attachment bodies as needed.
func (f *Fetcher) collectPDFParts(ctx context.Context, msgID string, payload *gmail.MessagePart) ([]pdfPart, error) {
	if payload == nil {
		return nil, nil
	}

	parts := payload.Parts
	if len(parts) == 0 && payload.Filename != "" {
		parts = []*gmail.MessagePart{payload}
	}

	var pdfs []pdfPart
	for _, part := range parts {
		if len(part.Parts) > 0 {
			nested, err := f.collectPDFParts(ctx, msgID, part)
			if err != nil {
				return nil, err
			}
			pdfs = append(pdfs, nested...)
			continue
		}

		if !IsPDFPart(part) {
			continue
		}

		data, err := f.partData(ctx, msgID, part)
		if err != nil {
			return nil, fmt.Errorf("collectPDFParts: attachment %s: %w", part.Filename, err)
		}
		pdfs = append(pdfs, pdfPart{filename: part.Filename, data: data})
	}

	return pdfs, nil
}

func (f *Fetcher) partData(ctx context.Context, msgID string, part *gmail.MessagePart) ([]byte, error) {
	if part.Body == nil {
		return nil, fmt.Errorf("part has no body")
	}

	encoded := part.Body.Data
	if encoded == "" && part.Body.AttachmentId != "" {
		att, err := f.service.Users.Messages.Attachments.
			Get("me", msgID, part.Body.AttachmentId).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("fetching attachment body: %w", err)
		}
		encoded = att.Data
	}
	if encoded == "" {
		return nil, fmt.Errorf("part has no data")
	}

	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return nil, fmt.Errorf("decoding attachment: %w", err)
	}

	return data, nil
}

// IsPDFPart reports whether a MIME part is a PDF attachment, by MIME type
// or by filename extension.
func IsPDFPart(part *gmail.MessagePart) bool {
	if part == nil || part.Filename == "" {
		return false
	}
	return part.MimeType == "application/pdf" ||
		strings.HasSuffix(strings.ToLower(part.Filename), ".pdf")
}

// headerDate parses the Date header of a message; unparseable or missing
// dates fall back to now so the filename prefix is always present.
func headerDate(payload *gmail.MessagePart) time.Time {
	if payload != nil {
		for _, h := range payload.Headers {
			if h.Name != "Date" {
				continue
			}
			if t, err := mail.ParseDate(h.Value); err == nil {
				return t
			}
		}
	}
	return time.Now()
}

var (
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	repeatedUnderscores  = regexp.MustCompile(`_+`)
)

// SanitizeFilename replaces filesystem-hostile characters with
// underscores, collapses runs of underscores, and caps the length at 200
// characters while keeping the extension.
func SanitizeFilename(filename string) string {
	s := invalidFilenameChars.ReplaceAllString(filename, "_")
	s = repeatedUnderscores.ReplaceAllString(s, "_")

	if len(s) > 200 {
		ext := ""
		if idx := strings.LastIndex(s, "."); idx >= 0 {
			ext = s[idx:]
			s = s[:idx]
		}
		if len(s) > 195 {
			s = s[:195]
		}
		s += ext
	}

	return s
}
