package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/account-api/internal/apperr"
	"github.com/yourusername/account-api/internal/credentials"
)

var newProfileData = credentials.Profile{
	Fullname: "Sam Ham",
	Street1:  "123 Sesame Street",
	Street2:  "APT 123",
	City:     "New York",
	State:    "NY",
	Zip:      "10003",
}

type recordingStore struct {
	*credentials.Store
	sets int
}

func (r *recordingStore) SetProfile(ctx context.Context, username string, p credentials.Profile) error {
	r.sets++
	return r.Store.SetProfile(ctx, username, p)
}

func newTestService(t *testing.T) (*Service, *recordingStore) {
	t.Helper()
	store := &recordingStore{Store: credentials.NewStore(credentials.NewMemoryRepository(), credentials.NewHasher(bcrypt.MinCost))}
	require.NoError(t, store.CreateUser(context.Background(), "samham", "Abc12345!"))
	return NewService(store), store
}

func TestUpdateProfileValidatesBeforeDelegating(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	err := svc.UpdateProfile(ctx, "samham", credentials.Profile{Fullname: "hello"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	assert.Zero(t, store.sets, "invalid profiles must not reach the store")

	require.NoError(t, svc.UpdateProfile(ctx, "samham", newProfileData))
	got, err := svc.GetProfileData(ctx, "samham")
	require.NoError(t, err)
	assert.Equal(t, newProfileData, got)
}

func TestUpdateProfileTrimsFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	padded := newProfileData
	padded.City = "  New York  "
	require.NoError(t, svc.UpdateProfile(ctx, "samham", padded))

	got, err := svc.GetProfileData(ctx, "samham")
	require.NoError(t, err)
	assert.Equal(t, "New York", got.City)
}

func TestGetProfileUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetProfileData(context.Background(), "ghost")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func newProfileRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/profile/:username", GetHandler(svc))
	router.POST("/profile/:username/edit", EditHandler(svc))
	return router
}

func TestEditHandlerRejectsWrongKeys(t *testing.T) {
	svc, _ := newTestService(t)
	router := newProfileRouter(svc)

	body, _ := json.Marshal(map[string]string{
		"full_name": "Sam Ham",
		"street1":   "123 Sesame Street",
		"city":      "New York",
		"state":     "NY",
		"zip":       "10003",
	})
	req := httptest.NewRequest(http.MethodPost, "/profile/samham/edit", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "MISSING_FIELDS", payload["code"])
	assert.Contains(t, payload["message"], "fullname")
}

func TestEditThenGet(t *testing.T) {
	svc, _ := newTestService(t)
	router := newProfileRouter(svc)

	body, _ := json.Marshal(newProfileData)
	req := httptest.NewRequest(http.MethodPost, "/profile/samham/edit", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile/samham", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "samham", payload["username"])
	assert.Equal(t, newProfileData.Fullname, payload["fullname"])
	assert.Equal(t, newProfileData.Street2, payload["street2"])
	assert.Equal(t, newProfileData.Zip, payload["zip"])
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestGetHandlerNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	router := newProfileRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile/ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
