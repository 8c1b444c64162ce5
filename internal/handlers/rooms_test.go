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
	"chat-backend/internal/store"
)

func setupRoomRouter(handler *RoomHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/rooms", handler.CreateRoom)
	r.GET("/rooms", handler.ListRooms)
	r.GET("/rooms/:room_id", handler.GetRoom)
	return r
}

func TestCreateRoomSuccess(t *testing.T) {
	st := new(mocks.StoreMock)
	router := setupRoomRouter(NewRoomHandler(st, nil))

	st.On("CreateRoom", mock.Anything, "general", map[string]any(nil)).
		Return(models.Room{ID: "r1", Name: "general"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms", bytes.NewBufferString(`{"name":"general"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var room models.Room
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&room))
	assert.Equal(t, "r1", room.ID)
	st.AssertExpectations(t)
}

func TestCreateRoomMissingName(t *testing.T) {
	router := setupRoomRouter(NewRoomHandler(new(mocks.StoreMock), nil))

	req := httptest.NewRequest(http.MethodPost, "/rooms", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRoomStoreError(t *testing.T) {
	st := new(mocks.StoreMock)
	router := setupRoomRouter(NewRoomHandler(st, nil))

	st.On("CreateRoom", mock.Anything, "general", map[string]any(nil)).
		Return(models.Room{}, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms", bytes.NewBufferString(`{"name":"general"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	st.AssertExpectations(t)
}

func TestGetRoomNotFound(t *testing.T) {
	st := new(mocks.StoreMock)
	router := setupRoomRouter(NewRoomHandler(st, nil))

	st.On("GetRoom", mock.Anything, "missing").Return(models.Room{}, store.ErrRoomNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	st.AssertExpectations(t)
}

func TestListRoomsSuccess(t *testing.T) {
	st := new(mocks.StoreMock)
	router := setupRoomRouter(NewRoomHandler(st, nil))

	st.On("ListRooms", mock.Anything).Return([]models.Room{{ID: "r1"}, {ID: "r2"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]models.Room
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp["rooms"], 2)
	st.AssertExpectations(t)
}
