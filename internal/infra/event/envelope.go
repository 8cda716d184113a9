package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ブローカーに流すメッセージの共通形
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

func newEnvelope(key string, data any, now time.Time) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Type:       key,
		OccurredAt: now.UTC(),
		Data:       data,
	}
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// データ側がキーを持っていればそれを使う（同じ注文のイベントを同じパーティションへ）
type keyed interface {
	PartitionKey() string
}

func partitionKey(key string, data any) string {
	if k, ok := data.(keyed); ok && k.PartitionKey() != "" {
		return k.PartitionKey()
	}
	return key
}
