package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationCommands(t *testing.T) {
	commands := applicationCommands()

	byName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range commands {
		byName[cmd.Name] = cmd
	}
	require.Len(t, byName, 3)

	generate := byName["generate"]
	require.NotNil(t, generate)
	require.Len(t, generate.Options, 3)
	assert.Equal(t, "cards", generate.Options[0].Name)
	assert.True(t, generate.Options[0].Required)

	addCredits := byName["addcredits"]
	require.NotNil(t, addCredits)
	require.NotNil(t, addCredits.DefaultMemberPermissions)
	assert.Equal(t, int64(discordgo.PermissionAdministrator), *addCredits.DefaultMemberPermissions)
}
