package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"mime"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
)

const plainMail = "From: Notifikasi OCBC <notifikasi@ocbc.id>\r\n" +
	"Subject: Successful Payment\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Nominal IDR 25,000\r\nTanggal 01 May 2024\r\n"

func makeMaildir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, sub := range []string{"new", "cur", "tmp"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, sub), 0o755))
	}
	return root
}

func writeMail(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestParseMessage_Plain(t *testing.T) {
	doc, err := ParseMessage("/maildir/new/1", []byte(plainMail))
	require.NoError(t, err)

	assert.Equal(t, "/maildir/new/1", doc.ID)
	assert.Equal(t, "Notifikasi OCBC <notifikasi@ocbc.id>", doc.From)
	assert.Equal(t, "Successful Payment", doc.Subject)
	assert.Equal(t, "Nominal IDR 25,000\nTanggal 01 May 2024\n", doc.Body)
}

func TestParseMessage_EncodedSubjectAndMultipart(t *testing.T) {
	sjis, err := japanese.ShiftJIS.NewEncoder().String("決済総額 1,200円")
	require.NoError(t, err)

	raw := "From: =?UTF-8?B?" + base64.StdEncoding.EncodeToString([]byte("楽天ペイ")) + "?= <no-reply@pay.rakuten.co.jp>\r\n" +
		"Subject: " + mime.BEncoding.Encode("UTF-8", "楽天ペイアプリご利用内容確認メール") + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=\"XYZ\"\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain; charset=Shift_JIS\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		base64.StdEncoding.EncodeToString([]byte(sjis)) + "\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"<p>ok=3D1</p>\r\n" +
		"--XYZ\r\n" +
		"Content-Type: image/png\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"iVBORw0KGgo=\r\n" +
		"--XYZ--\r\n"

	doc, err := ParseMessage("m", []byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "楽天ペイ <no-reply@pay.rakuten.co.jp>", doc.From)
	assert.Equal(t, "楽天ペイアプリご利用内容確認メール", doc.Subject)
	assert.Contains(t, doc.Body, "決済総額 1,200円")
	assert.Contains(t, doc.Body, "<p>ok=1</p>")
	assert.NotContains(t, doc.Body, "iVBOR")
}

func TestParseMessage_ISO2022JP(t *testing.T) {
	jis, err := japanese.ISO2022JP.NewEncoder().String("カード利用のお知らせ")
	require.NoError(t, err)

	raw := "From: info@mail.rakuten-card.co.jp\r\n" +
		"Subject: " + mime.BEncoding.Encode("ISO-2022-JP", jis) + "\r\n" +
		"Content-Type: text/plain; charset=ISO-2022-JP\r\n" +
		"Content-Transfer-Encoding: 7bit\r\n" +
		"\r\n" +
		jis + "\r\n"

	doc, err := ParseMessage("m", []byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "カード利用のお知らせ", doc.Subject)
	assert.Equal(t, "カード利用のお知らせ\n", doc.Body)
}

func TestParseMessage_Garbage(t *testing.T) {
	_, err := ParseMessage("m", []byte("this is not a mail"))
	assert.Error(t, err)
}

func TestReader_Read(t *testing.T) {
	root := makeMaildir(t)
	writeMail(t, filepath.Join(root, "new", "a"), plainMail)
	writeMail(t, filepath.Join(root, "cur", "b:2,S"), plainMail)
	writeMail(t, filepath.Join(root, "cur", "junk"), "no headers here")
	writeMail(t, filepath.Join(root, "tmp", "ignored"), plainMail)
	require.NoError(t, os.Mkdir(filepath.Join(root, "cur", "subdir"), 0o755))

	docs, err := NewReader(root).Read(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, filepath.Join(root, "new", "a"), docs[0].ID)
	assert.Equal(t, filepath.Join(root, "cur", "b:2,S"), docs[1].ID)
}

func TestReader_MissingMaildir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "new"), 0o755))

	_, err := NewReader(root).Read(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cur")
}

type recordingArchiver struct {
	err   error
	paths []string
}

func (a *recordingArchiver) Archive(_ context.Context, path string) error {
	if a.err != nil {
		return a.err
	}
	a.paths = append(a.paths, path)
	return nil
}

func TestCleaner_MovesToProcessed(t *testing.T) {
	root := makeMaildir(t)
	processed := t.TempDir()
	path := filepath.Join(root, "new", "a")
	writeMail(t, path, plainMail)
	archiver := &recordingArchiver{}

	docs := []domain.Document{{ID: path}, {ID: filepath.Join(root, "new", "gone")}}
	err := NewCleaner(processed, archiver).Clean(context.Background(), docs)
	require.NoError(t, err)

	assert.NoFileExists(t, path)
	assert.FileExists(t, filepath.Join(processed, "cur", "a"))
	assert.Equal(t, []string{path}, archiver.paths)
}

func TestCleaner_Removes(t *testing.T) {
	root := makeMaildir(t)
	path := filepath.Join(root, "cur", "a")
	writeMail(t, path, plainMail)

	err := NewCleaner("", nil).Clean(context.Background(), []domain.Document{{ID: path}})
	require.NoError(t, err)
	assert.NoFileExists(t, path)
}

func TestCleaner_ArchiveFailureKeepsMail(t *testing.T) {
	root := makeMaildir(t)
	path := filepath.Join(root, "new", "a")
	writeMail(t, path, plainMail)

	err := NewCleaner("", &recordingArchiver{err: errors.New("bucket missing")}).
		Clean(context.Background(), []domain.Document{{ID: path}})
	require.Error(t, err)
	assert.FileExists(t, path)
}

func TestObjectName(t *testing.T) {
	at := time.Date(2024, 5, 1, 23, 0, 0, 0, time.FixedZone("JST", 9*60*60))
	assert.Equal(t, "mail/2024/05/01/1714572000.M1P2.host:2,S", ObjectName("/mail/", at, "/home/u/Maildir/cur/1714572000.M1P2.host:2,S"))
}
