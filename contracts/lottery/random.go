package lottery

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
	"golang.org/x/xerrors"
)

// Draw is the input of a winner selection.
type Draw struct {
	Players    []string
	BlockIndex uint64
	Timestamp  time.Time
}

// Source is a source of randomness that picks the index of the winner.
type Source interface {
	// Pick returns an index in [0, len(draw.Players)).
	Pick(draw Draw) (int, error)
}

// SeededSource is a deterministic source.
//
// - implements lottery.Source
type SeededSource struct {
	sync.Mutex
	rand *mrand.Rand
}

// NewSeededSource returns a source that produces the same sequence of indices
// for the same seed.
func NewSeededSource(seed int64) *SeededSource {
	return &SeededSource{
		rand: mrand.New(mrand.NewSource(seed)),
	}
}

// Pick implements lottery.Source.
func (s *SeededSource) Pick(draw Draw) (int, error) {
	if len(draw.Players) == 0 {
		return 0, xerrors.New("no player")
	}

	s.Lock()
	defer s.Unlock()

	return s.rand.Intn(len(draw.Players)), nil
}

// LedgerSource derives the index from the block and the players. Anyone who
// knows the block can predict the winner, and the block producer can choose
// it. It is NOT cryptographically secure.
//
// - implements lottery.Source
type LedgerSource struct{}

// NewLedgerSource returns a source that hashes the block index, the timestamp
// and the players with Keccak-256 and reduces the digest modulo the number of
// players.
func NewLedgerSource() LedgerSource {
	return LedgerSource{}
}

// Pick implements lottery.Source.
func (LedgerSource) Pick(draw Draw) (int, error) {
	if len(draw.Players) == 0 {
		return 0, xerrors.New("no player")
	}

	h := sha3.NewLegacyKeccak256()

	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, draw.BlockIndex)
	h.Write(buffer)

	binary.BigEndian.PutUint64(buffer, uint64(draw.Timestamp.Unix()))
	h.Write(buffer)

	for _, player := range draw.Players {
		h.Write([]byte(player))
	}

	digest := new(uint256.Int).SetBytes(h.Sum(nil))
	index := digest.Mod(digest, uint256.NewInt(uint64(len(draw.Players))))

	return int(index.Uint64()), nil
}

// CryptoSource picks the index uniformly with the system random generator.
//
// - implements lottery.Source
type CryptoSource struct{}

// NewCryptoSource returns a cryptographically secure source.
func NewCryptoSource() CryptoSource {
	return CryptoSource{}
}

// Pick implements lottery.Source.
func (CryptoSource) Pick(draw Draw) (int, error) {
	if len(draw.Players) == 0 {
		return 0, xerrors.New("no player")
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(draw.Players))))
	if err != nil {
		return 0, xerrors.Errorf("failed to read random: %v", err)
	}

	return int(n.Int64()), nil
}
