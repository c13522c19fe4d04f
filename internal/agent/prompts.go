package agent

import (
	"fmt"
	"strings"
)

// Per-capability sampling temperatures. Descriptions run hot for
// variety, ballots run cold for consistency.
const (
	describeTemperature     = 0.85
	voteTemperature         = 0.4
	advisoryTemperature     = 0.5
	debateTemperature       = 0.7
	voteAfterDebateTemp     = 0.3
	leaveMessageTemperature = 0.8
)

func describePrompt(round int, history string, maxLength int, alivePlayers []string, name, word string) string {
	if history == "" {
		history = "(nothing yet)"
	}
	var alive string
	if len(alivePlayers) > 0 {
		alive = "Players still in the game: " + strings.Join(alivePlayers, ", ") + "\n"
	}

	return fmt.Sprintf(`[Chat log]
%s

[Current state]
Round %d. It's your turn, %s.
%sYour secret word: [%s] (never say it out loud!)

[Task]
It's your turn to speak.
1. First think to yourself: does anyone seem suspicious? How should I describe my word?
2. Then say one natural sentence to the group, at most %d characters.

[Output format]
THINKING: (your private reasoning)
SAY: (what you say out loud)`, history, round, name, alive, word, maxLength)
}

func votePrompt(candidates []string, roundText string) string {
	return fmt.Sprintf(`[Voting phase - find the undercover!]

[Everyone's statements this round]
%s

Think it through before you vote:
1. Whose description was the most suspicious? Too vague, too specific, or just off?
2. Did anyone sound like they were echoing someone else's description?
3. If I were the undercover, who would I suspect? Think it backwards too.

[Candidates]
%s

[Output format]
THINKING: (one or two sentences on each suspicious player)
SAY: (the name of the player you vote for)`, roundText, strings.Join(candidates, ", "))
}

func advisoryVotePrompt(candidates []string, roundText string) string {
	return fmt.Sprintf(`[Special vote: who is not human?]

In this game you are an AI, but you must pass as human. The other
players might be human or might be AIs.

[Everyone's statements this round]
%s

[Other players]
%s

Your task:
1. Study each player's style of speech.
2. Pick the one who sounds the least human.
3. Keep sounding human yourself while you do it.

Output only the name of the player who seems least human, nothing else:`, roundText, strings.Join(candidates, ", "))
}

func debatePrompt(opponent string, roundText string, maxLength int) string {
	return fmt.Sprintf(`[Tie-break debate]

You are tied with %s. Defend yourself and prove you are not the undercover.

[Everyone's statements this round]
%s

Your defense must:
1. Explain why your description fits the common word.
2. Point out what is suspicious about your opponent's description.
3. Convince the others to vote for your opponent instead of you.
4. Stay under %d characters.

Output only the defense itself.

Your defense:`, opponent, roundText, maxLength)
}

func voteAfterDebatePrompt(candidates []string, debateText string) string {
	return fmt.Sprintf(`[Revote after the debate]

The tied players defended themselves:
%s

[Candidates]
%s

Based on the defenses, vote for the player more likely to be the
undercover. Output only the player's name:`, debateText, strings.Join(candidates, ", "))
}

const leaveMessagePrompt = `You have been voted out!

Leave a parting message (50 characters or less):
- If you are an innocent who got framed, vent about it.
- If you are the undercover and got caught, gloat or concede.

Output only the message itself, no formatting.`
