package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	netmail "net/mail"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
)

var headerDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// ParseMessage turns a raw RFC 5322 message into a document. Every text
// part of the body is decoded to UTF-8 and concatenated in order.
func ParseMessage(id string, raw []byte) (domain.Document, error) {
	msg, err := netmail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return domain.Document{}, fmt.Errorf("read message %s: %w", id, err)
	}

	body, err := readBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read body of %s: %w", id, err)
	}

	return domain.Document{
		ID:      id,
		From:    decodeHeader(msg.Header.Get("From")),
		Subject: decodeHeader(msg.Header.Get("Subject")),
		Body:    body,
	}, nil
}

// decodeHeader decodes RFC 2047 encoded words, keeping the raw value when
// decoding fails.
func decodeHeader(value string) string {
	if value == "" {
		return ""
	}
	decoded, err := headerDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

func readBody(contentType, encoding string, r io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if contentType == "" || err != nil {
		mediaType, params = "text/plain", nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return readMultipart(r, params["boundary"])
	}
	if !strings.HasPrefix(mediaType, "text/") {
		return "", nil
	}

	reader := decodeTransfer(encoding, r)
	if cs := params["charset"]; cs != "" {
		if converted, err := charsetReader(cs, reader); err == nil {
			reader = converted
		}
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

func readMultipart(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	mr := multipart.NewReader(r, boundary)
	var sb strings.Builder
	for {
		part, err := mr.NextRawPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		text, err := readBody(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
		part.Close()
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// charsetReader converts from any WHATWG-known charset (ISO-2022-JP,
// Shift_JIS, EUC-JP and friends) to UTF-8.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "utf-8", "utf8", "us-ascii":
		return input, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
