package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

func newMockMongoStore(mt *mtest.T) *MongoStore {
	mt.AddMockResponses(mtest.CreateSuccessResponse())
	store, err := NewMongoStore(context.Background(), nil, mt.DB, "messages")
	require.NoError(mt, err)
	return store
}

func textPartsJSON(t testing.TB, text string) string {
	t.Helper()
	data, err := json.Marshal([]model.Part{model.TextPart(text)})
	require.NoError(t, err)
	return string(data)
}

func messageDoc(id, sessionID string, seq int64, role, parts string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "session_id", Value: sessionID},
		{Key: "sequence", Value: seq},
		{Key: "role", Value: role},
		{Key: "parts", Value: parts},
		{Key: "timestamp", Value: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}
}

func commandNames(mt *mtest.T) []string {
	var names []string
	for _, evt := range mt.GetAllStartedEvents() {
		names = append(names, evt.CommandName)
	}
	return names
}

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("append assigns the counter sequence", func(mt *mtest.T) {
		store := newMockMongoStore(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
				{Key: "_id", Value: "table"},
				{Key: "seq", Value: int64(3)},
			}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		stored, err := store.Append(context.Background(), "table", model.NewTextMessage(model.RoleUser, "hello"))
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), stored.Sequence)
		assert.Equal(mt, "table", stored.SessionID)
		assert.NotEmpty(mt, stored.ID)
		assert.False(mt, stored.Timestamp.IsZero())

		assert.Equal(mt, []string{"createIndexes", "findAndModify", "insert"}, commandNames(mt))
	})

	mt.Run("append rejects invalid messages before writing", func(mt *mtest.T) {
		store := newMockMongoStore(mt)

		_, err := store.Append(context.Background(), "table", model.Message{Role: model.RoleUser})
		assert.ErrorIs(mt, err, model.ErrInvalidMessage)
		assert.Equal(mt, []string{"createIndexes"}, commandNames(mt))
	})

	mt.Run("load returns messages in sequence order", func(mt *mtest.T) {
		store := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.messages", mtest.FirstBatch,
			messageDoc("m1", "table", 1, model.RoleUser, textPartsJSON(mt, "roll 2d6")),
			messageDoc("m2", "table", 2, model.RoleModel, textPartsJSON(mt, "Rolled [2, 5] = 7")),
		))

		loaded, err := store.Load(context.Background(), "table")
		require.NoError(mt, err)
		require.Len(mt, loaded, 2)
		assert.Equal(mt, "roll 2d6", loaded[0].Text())
		assert.Equal(mt, int64(1), loaded[0].Sequence)
		assert.Equal(mt, "Rolled [2, 5] = 7", loaded[1].Text())
		assert.Equal(mt, int64(2), loaded[1].Sequence)

		events := mt.GetAllStartedEvents()
		find := events[len(events)-1]
		assert.Equal(mt, "find", find.CommandName)
		assert.Equal(mt, "table", find.Command.Lookup("filter", "session_id").StringValue())
	})

	mt.Run("load of unknown session is empty", func(mt *mtest.T) {
		store := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.messages", mtest.FirstBatch))

		loaded, err := store.Load(context.Background(), "nobody")
		require.NoError(mt, err)
		assert.NotNil(mt, loaded)
		assert.Empty(mt, loaded)
	})

	mt.Run("load validates stored parts", func(mt *mtest.T) {
		store := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.messages", mtest.FirstBatch,
			messageDoc("m1", "table", 1, model.RoleUser, `[{"tool_call":{"name":"roll_dice"}}]`),
		))

		_, err := store.Load(context.Background(), "table")
		assert.ErrorIs(mt, err, model.ErrInvalidMessage)
	})

	mt.Run("load rejects undecodable parts", func(mt *mtest.T) {
		store := newMockMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.messages", mtest.FirstBatch,
			messageDoc("m1", "table", 1, model.RoleUser, "not json"),
		))

		_, err := store.Load(context.Background(), "table")
		assert.ErrorIs(mt, err, model.ErrInvalidMessage)
	})
}
