package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"

	"olympia_live/internal/models"
	"olympia_live/pkg/logger"
)

// Broadcaster 負責事件日誌與即時推播：
// 事件先在指令交易內寫入資料庫（真相來源仍是 Store），
// 交易提交後再經 WebSocket 推給同場比賽的所有連線。
// 推播是 at-least-once，客戶端以事件 ID 去重，漏接時走 ListSince 補拉或重抓快照
type Broadcaster struct {
	node *snowflake.Node
	hub  *WebSocketManager
}

func NewBroadcaster(nodeID int64, hub *WebSocketManager) (*Broadcaster, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &Broadcaster{node: node, hub: hub}, nil
}

// NewEvent 產生一筆待寫入的事件，ID 為 snowflake：同場比賽內依時間嚴格遞增
func (b *Broadcaster) NewEvent(matchID uint, entity string, entityID uint, eventType models.EventType, payload interface{}) *models.MatchEvent {
	body := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error(context.Background()).Err(err).Str("event_type", string(eventType)).Msg("事件內容序列化失敗")
		} else {
			body = string(data)
		}
	}
	return &models.MatchEvent{
		ID:        b.node.Generate().Int64(),
		MatchID:   matchID,
		Entity:    entity,
		EntityID:  entityID,
		EventType: eventType,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}
}

// Fanout 將已提交的事件推給該場比賽的所有連線
// 只能在交易成功後呼叫，未提交的事件不得外流
func (b *Broadcaster) Fanout(events ...*models.MatchEvent) {
	if b.hub == nil {
		return
	}
	for _, ev := range events {
		if ev == nil {
			continue
		}
		b.hub.BroadcastEvent(ev.MatchID, ev)
	}
}
