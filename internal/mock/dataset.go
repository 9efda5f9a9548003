package mock

import (
	"time"

	"github.com/filenest/backend/internal/catalog"
)

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Peers is the demo peer table.
func Peers() []catalog.Peer {
	return []catalog.Peer{
		{ID: "peer-1", Name: "Alice's Laptop", IP: "192.168.1.100", Status: catalog.Online, FilesShared: 156, LatencyMS: 95},
		{ID: "peer-2", Name: "Bob's Desktop", IP: "192.168.1.101", Status: catalog.Online, FilesShared: 89, LatencyMS: 145},
		{ID: "peer-3", Name: "Charlie's Notebook", IP: "192.168.1.102", Status: catalog.Offline, FilesShared: 234, LatencyMS: 210},
	}
}

// Files is the demo file table.
func Files() []catalog.File {
	return []catalog.File{
		{
			ID: "1", Name: "React.js Documentation.pdf", Type: "application/pdf", Size: 2048576,
			Path: "/documents/react-docs.pdf", LastModified: mustTime("2024-01-15T10:30:00Z"),
			Tags:      []string{"react", "documentation", "frontend"},
			Peer:      catalog.PeerRef{ID: "peer-1", Name: "Alice's Laptop", IP: "192.168.1.100"},
			Embedding: []float64{0.1, 0.2, 0.3}, IsAvailable: true,
		},
		{
			ID: "2", Name: "Machine Learning Tutorial.mp4", Type: "video/mp4", Size: 104857600,
			Path: "/videos/ml-tutorial.mp4", LastModified: mustTime("2024-01-14T14:20:00Z"),
			Tags:      []string{"machine learning", "tutorial", "video"},
			Peer:      catalog.PeerRef{ID: "peer-2", Name: "Bob's Desktop", IP: "192.168.1.101"},
			Embedding: []float64{0.4, 0.5, 0.6}, IsAvailable: true,
		},
		{
			ID: "3", Name: "TypeScript Guide.md", Type: "text/markdown", Size: 51200,
			Path: "/docs/typescript-guide.md", LastModified: mustTime("2024-01-13T09:15:00Z"),
			Tags:      []string{"typescript", "guide", "programming"},
			Peer:      catalog.PeerRef{ID: "peer-3", Name: "Charlie's Notebook", IP: "192.168.1.102"},
			Embedding: []float64{0.7, 0.8, 0.9}, IsAvailable: false,
		},
	}
}

// Seed loads the demo dataset into store.
func Seed(store *catalog.Store) {
	for _, p := range Peers() {
		store.PutPeer(p)
	}
	for _, f := range Files() {
		store.PutFile(f)
	}
}
