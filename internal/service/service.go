package service

import (
	"olympia_live/internal/repository"
)

type Services struct {
	User             *UserService
	Match            *MatchService
	Session          *SessionService
	WebSocketManager *WebSocketManager
}

// NewServices 組裝服務層：連線管理器、廣播器、仲裁器與指令處理器
// nodeID 是事件 ID 的 snowflake 節點編號，單機部署固定為 1 即可
func NewServices(repos *repository.Repositories, nodeID int64) (*Services, error) {
	wsManager := NewWebSocketManager()
	broadcaster, err := NewBroadcaster(nodeID, wsManager)
	if err != nil {
		return nil, err
	}
	arbiter := NewBuzzerArbiter(repos, broadcaster)

	return &Services{
		User:             NewUserService(repos.User),
		Match:            NewMatchService(repos),
		Session:          NewSessionService(repos, broadcaster, arbiter),
		WebSocketManager: wsManager,
	}, nil
}
