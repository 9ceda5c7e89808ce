package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bizpulse/backend/internal/interfaces/http/dto"
	"github.com/bizpulse/backend/tests/testutil"
)

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler()
	assert.NotNil(t, h)
	assert.False(t, h.startTime.IsZero())
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler()
	tc := testutil.NewTestContext(t)

	h.GetSystemInfo(tc.Context)

	assert.Equal(t, http.StatusOK, tc.ResponseCode())
	testutil.AssertSuccessResponse(t, tc)

	resp := testutil.JSONResponseAs[dto.Response](t, tc)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "BizPulse Backend API", data["name"])
	assert.Equal(t, "1.0.0", data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler()
	tc := testutil.NewTestContext(t)

	h.Ping(tc.Context)

	assert.Equal(t, http.StatusOK, tc.ResponseCode())
	testutil.AssertSuccessResponse(t, tc)

	resp := testutil.JSONResponseAs[dto.Response](t, tc)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "pong", data["message"])
	assert.NotEmpty(t, data["timestamp"])

	// Verify timestamp is valid RFC3339
	timestamp := data["timestamp"].(string)
	_, err := time.Parse(time.RFC3339, timestamp)
	assert.NoError(t, err)
}
