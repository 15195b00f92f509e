package repository

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"olympia_live/internal/engine"
	"olympia_live/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.LiveSession{}, &models.MatchEvent{}))
	return db
}

func TestUpdateVersionedConflict(t *testing.T) {
	repos := NewRepositories(openTestDB(t))

	sess := &models.LiveSession{
		MatchID:  1,
		Status:   models.SessionStatusRunning,
		JoinCode: "ABC123",
	}
	require.NoError(t, repos.Session.Create(sess))

	// 兩個讀者拿到同一版本
	first, err := repos.Session.FindByMatchID(1)
	require.NoError(t, err)
	second, err := repos.Session.FindByMatchID(1)
	require.NoError(t, err)
	require.Equal(t, first.Version, second.Version)

	first.BuzzerEnabled = true
	require.NoError(t, repos.Session.UpdateVersioned(first))
	assert.Equal(t, second.Version+1, first.Version, "成功寫入後版本遞增")

	// 拿舊版本寫入要被擋下
	second.QuestionState = models.QuestionShowing
	err = repos.Session.UpdateVersioned(second)
	assert.ErrorIs(t, err, engine.ErrConflict)

	// 敗方的變更不得落地
	current, err := repos.Session.FindByMatchID(1)
	require.NoError(t, err)
	assert.True(t, current.BuzzerEnabled)
	assert.Equal(t, models.QuestionHidden, current.QuestionState)
	assert.Equal(t, first.Version, current.Version)
}

func TestUpdateVersionedSequentialWrites(t *testing.T) {
	repos := NewRepositories(openTestDB(t))

	sess := &models.LiveSession{MatchID: 7, Status: models.SessionStatusRunning, JoinCode: "XYZ789"}
	require.NoError(t, repos.Session.Create(sess))

	for i := 0; i < 5; i++ {
		sess.BuzzerEnabled = !sess.BuzzerEnabled
		require.NoError(t, repos.Session.UpdateVersioned(sess))
	}

	current, err := repos.Session.FindByMatchID(7)
	require.NoError(t, err)
	assert.Equal(t, int64(5), current.Version)
}

func TestEventListSince(t *testing.T) {
	repos := NewRepositories(openTestDB(t))

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, repos.Event.Append(&models.MatchEvent{
			ID:        i * 100,
			MatchID:   1,
			Entity:    "session",
			EventType: models.EventQuestionState,
		}))
	}
	// 另一場比賽的事件不得混入
	require.NoError(t, repos.Event.Append(&models.MatchEvent{
		ID:        999,
		MatchID:   2,
		Entity:    "session",
		EventType: models.EventRoomOpened,
	}))

	events, err := repos.Event.ListSince(1, 200, 100)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, int64(300), events[0].ID)
	assert.Equal(t, int64(500), events[2].ID)

	// limit 截斷
	events, err = repos.Event.ListSince(1, 0, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(100), events[0].ID)
}
