package catalog

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrPeerNotFound = errors.New("peer not found")

// LocalPeer owns files uploaded through this node.
var LocalPeer = PeerRef{ID: "local", Name: "FileNest Node", IP: "127.0.0.1"}

// Store is the in-memory file and peer table. All reads return copies.
type Store struct {
	mu        sync.RWMutex
	files     map[string]*File
	fileOrder []string
	peers     map[string]*Peer
	peerOrder []string
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		files: make(map[string]*File),
		peers: make(map[string]*Peer),
		now:   time.Now,
	}
}

// PutFile inserts or replaces a file. Replacing keeps the original position.
func (s *Store) PutFile(f File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[f.ID]; !ok {
		s.fileOrder = append(s.fileOrder, f.ID)
	}
	copy := f.Clone()
	s.files[f.ID] = &copy
}

// PutPeer inserts or replaces a peer. Replacing keeps the original position.
func (s *Store) PutPeer(p Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.peers[p.ID]; !ok {
		s.peerOrder = append(s.peerOrder, p.ID)
	}
	copy := p
	s.peers[p.ID] = &copy
}

func (s *Store) File(id string) (File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[id]
	if !ok {
		return File{}, false
	}
	return f.Clone(), true
}

// Files returns every file in insertion order.
func (s *Store) Files() []File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]File, 0, len(s.fileOrder))
	for _, id := range s.fileOrder {
		result = append(result, s.files[id].Clone())
	}
	return result
}

// Peers returns every peer in insertion order.
func (s *Store) Peers() []Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Peer, 0, len(s.peerOrder))
	for _, id := range s.peerOrder {
		result = append(result, *s.peers[id])
	}
	return result
}

func (s *Store) SetPeerStatus(id string, status PeerStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peers[id]
	if !ok {
		return ErrPeerNotFound
	}
	p.Status = status
	return nil
}

// Counts computes the aggregate numbers under a single read lock.
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := Counts{
		TotalPeers: len(s.peers),
		TotalFiles: len(s.files),
	}
	latency := 0
	for _, p := range s.peers {
		if p.Status == Online {
			c.OnlinePeers++
			latency += p.LatencyMS
		}
	}
	if c.OnlinePeers > 0 {
		c.AvgLatencyMS = latency / c.OnlinePeers
	}
	for _, f := range s.files {
		if f.IsAvailable {
			c.AvailableFiles++
		}
	}
	return c
}

// UploadRequest describes a file announced through the upload endpoint.
// Zero fields fall back to the demo defaults.
type UploadRequest struct {
	Name string   `json:"name"`
	Type string   `json:"type"`
	Size int64    `json:"size"`
	Tags []string `json:"tags"`
}

// Upload registers a new file owned by LocalPeer and returns it.
func (s *Store) Upload(req UploadRequest) File {
	if req.Name == "" {
		req.Name = "uploaded_file.txt"
	}
	if req.Type == "" {
		req.Type = "text/plain"
	}
	if req.Size <= 0 {
		req.Size = 1024
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}

	f := File{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Type:         req.Type,
		Size:         req.Size,
		Path:         "/uploads/" + req.Name,
		LastModified: s.now().UTC().Truncate(time.Second),
		Tags:         req.Tags,
		Peer:         LocalPeer,
		Embedding:    []float64{},
		IsAvailable:  true,
	}
	s.PutFile(f)
	return f.Clone()
}
