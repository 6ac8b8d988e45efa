package content_test

import (
	"testing"

	"healthportal/backend/internal/config"
	"healthportal/backend/internal/content"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := content.Default()

	assert.True(t, c.EmergencyBanner.Active)
	assert.NotEmpty(t, c.EmergencyBanner.Message)
	assert.NotEmpty(t, c.HealthPrograms)
	assert.NotEmpty(t, c.HealthNews)
	assert.NotEmpty(t, c.HealthFAQ)
	require.NotEmpty(t, c.HealthPrograms[0].Documents)
}

func TestComplaintGuideUsesKnownCategories(t *testing.T) {
	c := content.Default()
	for _, g := range c.ComplaintTypeGuide {
		assert.True(t, config.Contains(config.ComplaintCategories, g.Code), g.Code)
	}
}

func TestStatusFAQCoversEveryStatus(t *testing.T) {
	c := content.Default()
	require.Len(t, c.ComplaintStatusFAQ, len(config.ComplaintStatuses))
	for i, s := range config.ComplaintStatuses {
		assert.Equal(t, s, c.ComplaintStatusFAQ[i].Status)
		assert.NotEqual(t, s, c.StatusTitle(s))
	}
	assert.Equal(t, "unknown", c.StatusTitle("unknown"))
}
