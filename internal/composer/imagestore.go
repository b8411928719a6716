package composer

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"sync"
)

// ImageRecord is one stored image, keyed by the content hash of its bytes.
type ImageRecord struct {
	Base64Data string
	MIMEType   string
	FileName   string
}

// ImageStore is a content-addressed table of images pasted or dropped during
// a session. It only grows; identical content is stored once regardless of
// how many times (or under how many names) it is dropped.
type ImageStore struct {
	mu      sync.Mutex
	records map[string]ImageRecord
}

// NewImageStore creates an empty store.
func NewImageStore() *ImageStore {
	return &ImageStore{records: make(map[string]ImageRecord)}
}

// Add stores data under its content hash and returns the hash. If a record
// with the same hash already exists the existing hash is returned and the
// store is unchanged, so the first file name seen for given content wins.
func (s *ImageStore) Add(data []byte, mimeType, fileName string) string {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[hash]; ok {
		return hash
	}
	s.records[hash] = ImageRecord{
		Base64Data: base64.StdEncoding.EncodeToString(data),
		MIMEType:   mimeType,
		FileName:   fileName,
	}
	return hash
}

// Get returns the record for hash, if present.
func (s *ImageStore) Get(hash string) (ImageRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[hash]
	return rec, ok
}

// Len returns the number of distinct images stored.
func (s *ImageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Hashes returns the stored hashes in no particular order.
func (s *ImageStore) Hashes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for h := range s.records {
		out = append(out, h)
	}
	return out
}
