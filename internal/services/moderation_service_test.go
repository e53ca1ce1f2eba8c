package services

import (
	"testing"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dto"
	"github.com/stretchr/testify/assert"
)

func TestFilterContent(t *testing.T) {
	ms := NewModerationService(nil)

	tests := []struct {
		name   string
		text   string
		ok     bool
		reason string
	}{
		{"empty", "", true, ""},
		{"plain dream", "someone was flying over a quiet harbor", true, ""},
		{"banned word", "this dream was bullshit", false, "inappropriate_language"},
		{"substring is fine", "a class of glass swans", true, ""},
		{"url", "see www.example.com for more", false, "url_not_allowed"},
		{"email", "write to dreamer@example.org", false, "contact_info_not_allowed"},
		{"phone", "call 555-123-4567 tonight", false, "contact_info_not_allowed"},
		{"repeated chars", "noooooo the tide", false, "spam_detected"},
		{"caps", "WAKEUP DREAM NOWNOW", false, "excessive_caps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := ms.FilterContent(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestCheckContent(t *testing.T) {
	ms := NewModerationService(nil)

	assert.NoError(t, ms.CheckContent("a meadow of paper lanterns"))

	err := ms.CheckContent("visit https://example.com")
	assert.ErrorIs(t, err, ErrContentRejected)
	assert.Contains(t, err.Error(), "URLs and web links are not allowed.")
}

func TestContainsProfanity(t *testing.T) {
	ms := NewModerationService(nil)
	assert.True(t, ms.ContainsProfanity("SHIT happens"))
	assert.False(t, ms.ContainsProfanity("a shiitake forest"))
}

func TestValidateReport(t *testing.T) {
	tests := []struct {
		name string
		req  dto.CreateReportRequest
		ok   bool
	}{
		{"public dream", dto.CreateReportRequest{ContentType: ContentTypePublicDream, ContentID: "d-1", Reason: "hateful"}, true},
		{"user", dto.CreateReportRequest{ContentType: "user", ContentID: "u-1", Reason: "spam"}, true},
		{"unknown type", dto.CreateReportRequest{ContentType: "comment", ContentID: "c-1", Reason: "spam"}, false},
		{"blank id", dto.CreateReportRequest{ContentType: ContentTypePublicDream, ContentID: " ", Reason: "spam"}, false},
		{"blank reason", dto.CreateReportRequest{ContentType: ContentTypePublicDream, ContentID: "d-1", Reason: "\t"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateReport(&tt.req)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidReport)
			}
		})
	}
}

func TestTakedown_DispatchesByContentType(t *testing.T) {
	ms := NewModerationService(nil)
	var gotApp, gotID string
	ms.OnTakedown(ContentTypePublicDream, func(appID, contentID string) bool {
		gotApp, gotID = appID, contentID
		return contentID == "d-1"
	})

	assert.True(t, ms.takedown("dreamscape", ContentTypePublicDream, "d-1"))
	assert.Equal(t, "dreamscape", gotApp)
	assert.Equal(t, "d-1", gotID)
	assert.False(t, ms.takedown("dreamscape", ContentTypePublicDream, "d-2"))
	assert.False(t, ms.takedown("dreamscape", "user", "u-1"))
}
