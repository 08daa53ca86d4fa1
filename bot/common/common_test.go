package common

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"megafacil/models"
)

func TestFormatCredits(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1500, "-1,500"},
		{-12, "-12"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCredits(tt.in))
	}
}

func TestFormatSignedCredits(t *testing.T) {
	assert.Equal(t, "+2,000", FormatSignedCredits(2000))
	assert.Equal(t, "-3", FormatSignedCredits(-3))
}

func TestFormatCombination(t *testing.T) {
	combo := models.Combination{Numbers: [6]int{4, 11, 23, 35, 47, 58}, Score: 72.5}
	assert.Equal(t, "`04 11 23 35 47 58` · 72.50%", FormatCombination(combo))
}

func TestInteractionUser(t *testing.T) {
	guild := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "1"}},
	}}
	assert.Equal(t, "1", InteractionUser(guild).ID)

	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		User: &discordgo.User{ID: "2"},
	}}
	assert.Equal(t, "2", InteractionUser(dm).ID)
}

func TestParseDiscordID(t *testing.T) {
	id, err := ParseDiscordID("123456789012345678")
	require.NoError(t, err)
	assert.Equal(t, int64(123456789012345678), id)

	_, err = ParseDiscordID("abc")
	assert.Error(t, err)
}

func TestClientKey(t *testing.T) {
	assert.Equal(t, "discord:42", ClientKey("42"))
}
