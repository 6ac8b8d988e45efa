package notify_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"healthportal/backend/internal/models"
	"healthportal/backend/internal/notify"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func TestTelegram_ComplaintSubmitted(t *testing.T) {
	sender := new(MockSender)
	var sent tgbotapi.MessageConfig
	sender.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).
		Run(func(args mock.Arguments) { sent = args.Get(0).(tgbotapi.MessageConfig) }).
		Return(tgbotapi.Message{}, nil).Once()

	n := notify.NewTelegram(sender, -100123)
	c := &models.Complaint{ID: 12, Title: "Billing error", Content: strings.Repeat("가", 400), Category: "billing"}

	err := n.ComplaintSubmitted(context.Background(), c, &models.User{Username: "u1"})

	require.NoError(t, err)
	sender.AssertExpectations(t)
	assert.Equal(t, int64(-100123), sent.ChatID)
	assert.Contains(t, sent.Text, "New complaint #12 [billing]")
	assert.Contains(t, sent.Text, "From: u1")
	assert.True(t, strings.HasSuffix(sent.Text, "..."), "long content is cut")
}

func TestTelegram_SendError(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("blocked"))

	err := notify.NewTelegram(sender, 1).ComplaintSubmitted(context.Background(), &models.Complaint{}, nil)

	assert.ErrorContains(t, err, "blocked")
}

func TestTelegram_CancelledContext(t *testing.T) {
	sender := new(MockSender)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := notify.NewTelegram(sender, 1).ComplaintSubmitted(ctx, &models.Complaint{}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	sender.AssertNotCalled(t, "Send", mock.Anything)
}

func TestNop(t *testing.T) {
	var n notify.Notifier = notify.Nop{}
	assert.NoError(t, n.ComplaintSubmitted(context.Background(), &models.Complaint{}, nil))
}
