package download

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/adamwoolhether/pakfetch/manifest"
)

// HashFunc builds a fresh digest for one verification pass.
type HashFunc func() hash.Hash

// HashByName resolves the digest used to check entries. The empty
// name selects md5, which is what manifests carry by default.
func HashByName(name string) (HashFunc, error) {
	switch strings.ToLower(name) {
	case "", "md5":
		return md5.New, nil
	case "sha1":
		return sha1.New, nil
	case "sha256":
		return sha256.New, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHash, name)
	}
}

// Verifier decides whether the file at an entry's path already holds the
// expected content.
type Verifier struct {
	newHash HashFunc
	bufSize int
}

func NewVerifier(newHash HashFunc) *Verifier {
	if newHash == nil {
		newHash = md5.New
	}
	return &Verifier{newHash: newHash, bufSize: defaultBufSize}
}

// Verify hashes the file at e.Path and compares the digest with e.Hash,
// ignoring case. A missing file is reported as (false, nil). A digest
// mismatch is (false, *Error) wrapping ErrChecksumMismatch. Verify never
// changes the file.
//
// While hashing, tr is switched to its check phase and moved to the full
// expected size.
func (v *Verifier) Verify(ctx context.Context, e manifest.Entry, tr Tracker) (bool, error) {
	if tr == nil {
		tr = nopTracker{}
	}

	file, err := os.Open(e.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("opening %s: %w", e.Path, err)
	}
	defer file.Close()

	tr.StartCheck()
	tr.SetPosition(e.Size)
	defer tr.EndCheck()

	sum := &checksumVerifier{hash: v.newHash(), expected: e.Hash}
	if _, err := io.CopyBuffer(sum, &contextReader{ctx: ctx, r: file}, make([]byte, v.bufSize)); err != nil {
		return false, fmt.Errorf("hashing %s: %w", e.Path, err)
	}

	if err := sum.Verify(); err != nil {
		return false, err
	}

	return true, nil
}

// checksumVerifier accumulates a digest and compares it against the
// expected hex string.
type checksumVerifier struct {
	hash     hash.Hash
	expected string
}

func (v *checksumVerifier) Write(p []byte) (int, error) {
	return v.hash.Write(p)
}

func (v *checksumVerifier) Verify() error {
	actual := hex.EncodeToString(v.hash.Sum(nil))
	if !strings.EqualFold(actual, v.expected) {
		return &Error{
			Err:    ErrChecksumMismatch,
			Detail: fmt.Sprintf("expected %s, got %s", v.expected, actual),
		}
	}

	return nil
}
