package catalog

import (
	"encoding/json"
	"slices"
	"time"
)

type PeerStatus int

const (
	Offline PeerStatus = iota
	Online
)

var peerStatusNames = map[PeerStatus]string{
	Offline: "offline",
	Online:  "online",
}

var peerStatusFromName = map[string]PeerStatus{
	"offline": Offline,
	"online":  Online,
}

func (s PeerStatus) String() string {
	if n, ok := peerStatusNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s PeerStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *PeerStatus) UnmarshalJSON(data []byte) error {
	var n string
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if v, ok := peerStatusFromName[n]; ok {
		*s = v
	}
	return nil
}

// PeerRef is the owner reference embedded in a File.
type PeerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	IP   string `json:"ip"`
}

type Peer struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	IP          string     `json:"ip"`
	Status      PeerStatus `json:"status"`
	FilesShared int        `json:"filesShared"`
	LatencyMS   int        `json:"latencyMs"`
}

type File struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Size         int64     `json:"size"`
	Path         string    `json:"path"`
	LastModified time.Time `json:"lastModified"`
	Tags         []string  `json:"tags"`
	Peer         PeerRef   `json:"peer"`
	Embedding    []float64 `json:"embedding"`
	IsAvailable  bool      `json:"isAvailable"`
}

// Clone returns a deep copy of the File, duplicating slice fields so the copy
// can be mutated independently of the original.
func (f File) Clone() File {
	f.Tags = slices.Clone(f.Tags)
	f.Embedding = slices.Clone(f.Embedding)
	return f
}

// Counts is a consistent view of the catalog's aggregate numbers.
type Counts struct {
	TotalPeers     int
	OnlinePeers    int
	TotalFiles     int
	AvailableFiles int
	// AvgLatencyMS is the mean latency of online peers, 0 when none are online.
	AvgLatencyMS int
}
