package object

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidFileName is returned for names that are empty or try to escape their namespace.
var ErrInvalidFileName = errors.New("invalid file name")

const sniffLen = 512

// UserKey builds the storage key for an upload: a hashed user namespace and a
// random prefix in front of the sanitized file name.
func UserKey(userID, fileName string) (string, error) {
	name, err := sanitizeFileName(fileName)
	if err != nil {
		return "", err
	}
	return path.Join(hashUserID(userID), uuid.NewString()+"_"+name), nil
}

// hashUserID keeps raw user and guest ids out of object paths.
func hashUserID(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}

func sanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.TrimSpace(name)
	s = strings.NewReplacer("/", "_", "\\", "_").Replace(s)
	if s == "" {
		return "", ErrInvalidFileName
	}
	return s, nil
}

// Sniff detects the content type from the head of r and returns a reader that
// still yields the full body.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	head = head[:n]
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}

// CountingReader counts the bytes read through it.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}
