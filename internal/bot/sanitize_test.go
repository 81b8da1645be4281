package bot

import (
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeInput(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"trims and collapses", "  hello \n\n  there  ", 0, "hello there"},
		{"keeps punctuation", "I'm Ann!", 0, "I'm Ann!"},
		{"drops control chars", "he\x00llo\x07", 0, "hello"},
		{"drops zero width", "ye\u200bs", 0, "yes"},
		{"truncates by rune", "ééééé", 3, "ééé"},
		{"blank", " \t ", 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SanitizeInput(tt.in, tt.max))
		})
	}
}

func TestStripSelfMentions(t *testing.T) {
	t.Parallel()
	self := func(index, length int32) webhook.MentioneeInterface {
		return webhook.UserMentionee{Index: index, Length: length, IsSelf: true}
	}
	other := webhook.UserMentionee{Index: 0, Length: 5, UserId: "U2"}

	tests := []struct {
		name          string
		text          string
		mention       *webhook.Mention
		want          string
		wantMentioned bool
	}{
		{"no mention", "hello", nil, "hello", false},
		{"other user only", "@Dave hello", &webhook.Mention{Mentionees: []webhook.MentioneeInterface{other}}, "@Dave hello", false},
		{"leading", "@Bot hello", &webhook.Mention{Mentionees: []webhook.MentioneeInterface{self(0, 4)}}, "hello", true},
		{"middle", "hi @Bot there", &webhook.Mention{Mentionees: []webhook.MentioneeInterface{self(3, 4)}}, "hi there", true},
		{"twice", "@Bot yes @Bot", &webhook.Mention{Mentionees: []webhook.MentioneeInterface{self(0, 4), self(9, 4)}}, "yes", true},
		{"out of range", "@Bot", &webhook.Mention{Mentionees: []webhook.MentioneeInterface{self(2, 10)}}, "@B", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, mentioned := stripSelfMentions(tt.text, tt.mention)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMentioned, mentioned)
		})
	}
}

func TestSource(t *testing.T) {
	t.Parallel()
	user := webhook.UserSource{UserId: "U1"}
	group := webhook.GroupSource{GroupId: "G1", UserId: "U2"}
	room := webhook.RoomSource{RoomId: "R1"}

	assert.Equal(t, "U1", GetChatID(user))
	assert.Equal(t, "G1", GetChatID(group))
	assert.Equal(t, "R1", GetChatID(room))
	assert.Equal(t, "U2", GetUserID(group))
	assert.Empty(t, GetUserID(room))
	assert.True(t, IsPersonalChat(user))
	assert.False(t, IsPersonalChat(group))
	assert.Equal(t, "room", chatKind(room))
}
