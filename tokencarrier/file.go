package tokencarrier

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// FileCarrier keeps the session token in a small file, the client-process
// equivalent of a session cookie. The record is a single line:
// URL-safe-encoded token, a semicolon, and the absolute expiry in unix seconds.
type FileCarrier struct {
	path string
}

var _ Carrier = (*FileCarrier)(nil)

// NewFileCarrier creates a carrier backed by the file at path.
func NewFileCarrier(path string) *FileCarrier {
	return &FileCarrier{path: path}
}

func (c *FileCarrier) Read() (string, error) {
	raw, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "[FileCarrier.Read] ReadFile")
	}

	parts := strings.SplitN(strings.TrimSpace(string(raw)), ";", 2)
	if len(parts) != 2 {
		return "", nil
	}

	expiresAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || time.Now().Unix() >= expiresAt {
		return "", nil
	}

	token, err := url.QueryUnescape(parts[0])
	if err != nil {
		return "", nil
	}
	return token, nil
}

func (c *FileCarrier) Write(token string, ttl time.Duration) error {
	record := url.QueryEscape(token) + ";" + strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)
	if err := os.WriteFile(c.path, []byte(record), 0o600); err != nil {
		return errors.Wrap(err, "[FileCarrier.Write] WriteFile")
	}
	return nil
}

// Clear overwrites the slot with an already-expired record.
func (c *FileCarrier) Clear() error {
	return c.Write("", -time.Second)
}
