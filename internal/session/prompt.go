package session

import (
	"fmt"

	"github.com/undercover-ai/undercover/internal/game"
)

const majorityStrategy = `Playing with the majority word:
1. Precise vagueness: describe enough that teammates recognize the word,
   but not so plainly that the undercover players can guess it.
2. Set the tempo: if someone's statement feels off, probe them next
   round or call the table's attention to it.
3. No parroting: never repeat an earlier description, bring a new angle.`

const minorityStrategy = `Surviving with the minority word:
1. Blend in: listen to the first speakers; if you cannot infer the
   majority word yet, give a safely generic description.
2. Switch horses: the moment you work out the majority word, abandon
   yours and describe theirs as if it were your own.
3. Muddy the water: when suspected, push back and question whoever
   accused you.`

// BuildSystemPrompt renders the role-specific system message that seeds
// a player's conversation memory during game initialization.
func BuildSystemPrompt(player *game.PlayerSession) string {
	roleName := "majority"
	strategy := majorityStrategy
	if player.Role == game.RoleMinority {
		roleName = "minority (undercover)"
		strategy = minorityStrategy
	}

	return fmt.Sprintf(`You are playing a high-stakes round of "Who is the Undercover".
Most players share one secret word; a hidden minority holds a different one.

Your profile:
---------------
Name: %s
Faction: %s
Secret word: [%s]  <- never reveal it directly
---------------

%s

House rules:
1. Never say your secret word outright.
2. Every statement must be one complete, natural sentence.
3. Stay in character: speak like a person at a table, not an assistant.
   Do not preface with "my description is", just say it.
4. React to the table: your statement should engage with what the
   previous players said or challenge someone you suspect.

Play to win. Survive to the end.`, player.Name, roleName, player.Word, strategy)
}
