// Package corpus loads the template question bank that the vector index is
// built over.
package corpus

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"
)

// Row is one template question. ID is the row's 0-based position in the
// source file and stays stable for the life of the corpus.
type Row struct {
	ID             int       `json:"id"`
	Question       string    `json:"question"`
	Options        [4]string `json:"options"`
	Solution       string    `json:"solution"`
	Explanation    string    `json:"explanation"`
	Difficulty     string    `json:"difficulty"`
	DifficultyProb string    `json:"difficulty_prob"`
	Concept        string    `json:"concept"`
}

// EmbeddingText is the text embedded for this row at build time.
func (r Row) EmbeddingText() string {
	return NormalizeText(r.Question + " " + r.Concept + " " + r.Difficulty)
}

// Corpus is an immutable, ID-addressable set of rows.
type Corpus struct {
	rows        []Row
	fingerprint string
}

// New wraps rows. Rows must have IDs equal to their position.
func New(rows []Row) *Corpus {
	c := &Corpus{rows: rows}
	c.fingerprint = Fingerprint(rows)
	return c
}

// Len returns the number of rows.
func (c *Corpus) Len() int { return len(c.rows) }

// Rows returns the rows in ID order. Callers must not modify the slice.
func (c *Corpus) Rows() []Row { return c.rows }

// Row returns the row with the given ID.
func (c *Corpus) Row(id int) (Row, bool) {
	if id < 0 || id >= len(c.rows) {
		return Row{}, false
	}
	return c.rows[id], true
}

// Fingerprint returns the digest binding a persisted index to this corpus.
func (c *Corpus) Fingerprint() string { return c.fingerprint }

// NormalizeText applies NFKC and folds runs of whitespace to single spaces.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// Fingerprint hashes every row's ID and embedding text with BLAKE2b-256.
// Any change that would alter an embedding changes the fingerprint.
func Fingerprint(rows []Row) string {
	h, _ := blake2b.New256(nil)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(rows)))
	h.Write(buf[:])
	for _, r := range rows {
		binary.LittleEndian.PutUint64(buf[:], uint64(r.ID))
		h.Write(buf[:])
		h.Write([]byte(r.EmbeddingText()))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
