package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-backend/internal/mocks"
	"chat-backend/internal/models"
	"chat-backend/internal/registry"
	"chat-backend/internal/store"
	"chat-backend/internal/ws"
)

func setupMessageRouter(handler *MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/rooms/:room_id/messages", handler.PostMessage)
	r.GET("/rooms/:room_id/messages", handler.ListMessages)
	return r
}

func newHub() *ws.Hub {
	return ws.NewHub(registry.NewRegistry())
}

func TestPostMessageSuccess(t *testing.T) {
	st := new(mocks.StoreMock)
	router := setupMessageRouter(NewMessageHandler(st, newHub()))

	st.On("GetRoom", mock.Anything, "r1").Return(models.Room{ID: "r1"}, nil).Once()
	st.On("GetUser", mock.Anything, "u1").Return(models.User{ID: "u1"}, nil).Once()
	st.On("AppendMessage", mock.Anything, mock.MatchedBy(func(msg models.Message) bool {
		return msg.RoomID == "r1" && msg.UserID == "u1" && msg.Content == "hi" &&
			msg.Type == models.MessageText && msg.ID != "" && !msg.CreatedAt.IsZero()
	})).Return(nil).Once()

	body := bytes.NewBufferString(`{"user_id":"u1","content":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/rooms/r1/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var msg models.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
	assert.Equal(t, "hi", msg.Content)
	st.AssertExpectations(t)
}

func TestPostMessageRoomNotFound(t *testing.T) {
	st := new(mocks.StoreMock)
	router := setupMessageRouter(NewMessageHandler(st, newHub()))

	st.On("GetRoom", mock.Anything, "missing").Return(models.Room{}, store.ErrRoomNotFound).Once()

	body := bytes.NewBufferString(`{"user_id":"u1","content":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/rooms/missing/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	st.AssertExpectations(t)
}

func TestPostMessageEmptyContent(t *testing.T) {
	st := new(mocks.StoreMock)
	router := setupMessageRouter(NewMessageHandler(st, newHub()))

	body := bytes.NewBufferString(`{"user_id":"u1","content":""}`)
	req := httptest.NewRequest(http.MethodPost, "/rooms/r1/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	st.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything)
}

func TestPostMessageInvalidType(t *testing.T) {
	st := new(mocks.StoreMock)
	router := setupMessageRouter(NewMessageHandler(st, newHub()))

	body := bytes.NewBufferString(`{"user_id":"u1","content":"hi","type":"carrier_pigeon"}`)
	req := httptest.NewRequest(http.MethodPost, "/rooms/r1/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessageStoreFailure(t *testing.T) {
	st := new(mocks.StoreMock)
	router := setupMessageRouter(NewMessageHandler(st, newHub()))

	st.On("GetRoom", mock.Anything, "r1").Return(models.Room{ID: "r1"}, nil).Once()
	st.On("GetUser", mock.Anything, "u1").Return(models.User{ID: "u1"}, nil).Once()
	st.On("AppendMessage", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	body := bytes.NewBufferString(`{"user_id":"u1","content":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/rooms/r1/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	st.AssertExpectations(t)
}

func TestListMessagesPassesCursor(t *testing.T) {
	st := new(mocks.StoreMock)
	router := setupMessageRouter(NewMessageHandler(st, newHub()))

	st.On("GetRoom", mock.Anything, "r1").Return(models.Room{ID: "r1"}, nil).Once()
	st.On("ListMessages", mock.Anything, "r1", 10, "m42").
		Return([]models.Message{{ID: "m41"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/r1/messages?limit=10&before=m42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]models.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp["messages"], 1)
	assert.Equal(t, "m41", resp["messages"][0].ID)
	st.AssertExpectations(t)
}

func TestListMessagesDefaultLimit(t *testing.T) {
	st := new(mocks.StoreMock)
	router := setupMessageRouter(NewMessageHandler(st, newHub()))

	st.On("GetRoom", mock.Anything, "r1").Return(models.Room{ID: "r1"}, nil).Once()
	st.On("ListMessages", mock.Anything, "r1", defaultListLimit, "").
		Return([]models.Message{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/r1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	st.AssertExpectations(t)
}

func TestListMessagesInvalidLimit(t *testing.T) {
	st := new(mocks.StoreMock)
	router := setupMessageRouter(NewMessageHandler(st, newHub()))

	st.On("GetRoom", mock.Anything, "r1").Return(models.Room{ID: "r1"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/r1/messages?limit=zero", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
