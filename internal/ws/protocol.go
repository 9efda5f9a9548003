package ws

import (
	"encoding/json"
	"time"

	"github.com/filenest/backend/internal/snapshot"
)

type MessageType string

const (
	MsgStatsUpdate MessageType = "stats_update"
	MsgEcho        MessageType = "echo"
)

// EchoPrefix is prepended to every inbound message before it is sent back.
const EchoPrefix = "Echo: "

type WSMessage struct {
	Type MessageType `json:"type"`
	Data interface{} `json:"data"`
}

// StatsUpdatePayload is the stable wire shape of a periodic snapshot. Field
// names are relied on by existing clients.
type StatsUpdatePayload struct {
	Timestamp   string `json:"timestamp"`
	OnlinePeers int    `json:"onlinePeers"`
	TotalFiles  int    `json:"totalFiles"`
}

func NewStatsUpdate(snap snapshot.NetworkSnapshot) WSMessage {
	return WSMessage{
		Type: MsgStatsUpdate,
		Data: StatsUpdatePayload{
			Timestamp:   snap.Timestamp.UTC().Format(time.RFC3339Nano),
			OnlinePeers: snap.OnlinePeers,
			TotalFiles:  snap.TotalFiles,
		},
	}
}

// EncodeStatsUpdate serializes snap as a stats_update envelope.
func EncodeStatsUpdate(snap snapshot.NetworkSnapshot) ([]byte, error) {
	return json.Marshal(NewStatsUpdate(snap))
}

// EncodeEcho builds the plain-text echo reply for an inbound payload.
func EncodeEcho(payload string) []byte {
	return []byte(EchoPrefix + payload)
}
