package access

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Policy maps a command key to the roles allowed to run it. Entries may be
// role ids or role names.
type Policy struct {
	gates map[string][]string
}

func NewPolicy(gates map[string][]string) *Policy {
	copied := make(map[string][]string, len(gates))
	for command, roles := range gates {
		cleaned := make([]string, 0, len(roles))
		for _, role := range roles {
			if role = strings.TrimSpace(role); role != "" {
				cleaned = append(cleaned, role)
			}
		}
		copied[command] = cleaned
	}
	return &Policy{gates: copied}
}

func (p *Policy) Required(command string) []string {
	return p.gates[command]
}

// Gated reports whether the command needs any role at all.
func (p *Policy) Gated(command string) bool {
	return len(p.gates[command]) > 0
}

// Allowed checks the member's roles against the command gate. guildRoles is
// used to resolve role names; it may be nil when the gate lists ids only.
func (p *Policy) Allowed(command string, member *discordgo.Member, guildRoles []*discordgo.Role) bool {
	required := p.gates[command]
	if len(required) == 0 {
		return true
	}
	if member == nil {
		return false
	}

	names := make(map[string]string, len(guildRoles))
	for _, role := range guildRoles {
		if role != nil {
			names[role.ID] = role.Name
		}
	}

	for _, roleID := range member.Roles {
		name := names[roleID]
		for _, entry := range required {
			if entry == roleID || (name != "" && strings.EqualFold(entry, name)) {
				return true
			}
		}
	}
	return false
}
