/* mock_session.go
 * Contains mock implementation of DiscordSession for testing
 * AI-Generated
 */

package bot

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// MockDiscordSession implements DiscordSession for testing purposes
type MockDiscordSession struct {
	mu sync.Mutex
	// SentMessages stores all messages sent during tests
	SentMessages []MockMessage
	// CreatedChannels stores the channel create requests in order
	CreatedChannels []discordgo.GuildChannelCreateData
	// DeletedChannels stores the ids of deleted channels
	DeletedChannels []string
	// ErrorToReturn allows tests to simulate errors
	ErrorToReturn error

	nextChannel int
}

// MockMessage represents a message sent to a channel
type MockMessage struct {
	ChannelID string
	Content   string
}

// ChannelMessageSend implements DiscordSession.ChannelMessageSend
func (m *MockDiscordSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ErrorToReturn != nil {
		return nil, m.ErrorToReturn
	}

	m.SentMessages = append(m.SentMessages, MockMessage{
		ChannelID: channelID,
		Content:   content,
	})

	return &discordgo.Message{
		ID:        "mock_message_id",
		ChannelID: channelID,
		Content:   content,
	}, nil
}

// GuildChannelCreateComplex implements DiscordSession.GuildChannelCreateComplex
func (m *MockDiscordSession) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ErrorToReturn != nil {
		return nil, m.ErrorToReturn
	}

	m.nextChannel++
	m.CreatedChannels = append(m.CreatedChannels, data)
	return &discordgo.Channel{
		ID:      fmt.Sprintf("mock_channel_%d", m.nextChannel),
		GuildID: guildID,
		Name:    data.Name,
		Type:    data.Type,
	}, nil
}

// ChannelDelete implements DiscordSession.ChannelDelete
func (m *MockDiscordSession) ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ErrorToReturn != nil {
		return nil, m.ErrorToReturn
	}

	m.DeletedChannels = append(m.DeletedChannels, channelID)
	return &discordgo.Channel{ID: channelID}, nil
}

// GetLastMessage returns the last message sent, or empty MockMessage if none
func (m *MockDiscordSession) GetLastMessage() MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SentMessages) == 0 {
		return MockMessage{}
	}
	return m.SentMessages[len(m.SentMessages)-1]
}

// MessagesFor returns every message sent to one channel
func (m *MockDiscordSession) MessagesFor(channelID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.SentMessages {
		if msg.ChannelID == channelID {
			out = append(out, msg.Content)
		}
	}
	return out
}

// ClearMessages clears all stored messages
func (m *MockDiscordSession) ClearMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = nil
}

// NewMockDiscordSession creates a new MockDiscordSession for testing
func NewMockDiscordSession() *MockDiscordSession {
	return &MockDiscordSession{
		SentMessages: make([]MockMessage, 0),
	}
}
