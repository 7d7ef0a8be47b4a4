package game

import (
	"fmt"
	"math/rand"
	"strings"

	"spectrum/internal/model"
)

// Classic mode transitions. Every function here is a pure state transition:
// it validates, then mutates the passed room, and holds no state of its own.
// On a validation or phase failure the room is left untouched.

// WinningScore ends the game for the first team that reaches it.
const WinningScore = 10

// RandomSpectrumTarget draws the hidden target, uniform in [0,20].
func RandomSpectrumTarget() int {
	return rand.Intn(21)
}

// InitializeGame resets the room to a fresh classic game in the team-picking
// phase, with a new deck seed and no team assignments.
func InitializeGame(room *model.Room) {
	room.GameState = &model.GameState{
		Phase:          model.PhasePickTeams,
		TurnsTaken:     -1,
		DeckSeed:       NewDeckSeed(),
		DeckIndex:      0,
		SpectrumTarget: RandomSpectrumTarget(),
		CounterGuess:   model.DirectionLeft,
	}
	room.Teams = make(map[string]model.Team)
}

// JoinTeam assigns or reassigns a player's team. Allowed in any phase so late
// joiners can still pick a side.
func JoinTeam(room *model.Room, playerID string, team model.Team) {
	if room.Teams == nil {
		room.Teams = make(map[string]model.Team)
	}
	room.Teams[playerID] = team
}

// StartGame moves from team picking into the first round. The team opposing
// the starting player begins with one point to offset the first-turn
// advantage.
func StartGame(room *model.Room, startingPlayerID, themeID string) error {
	gs := room.GameState
	if gs == nil || gs.Phase != model.PhasePickTeams {
		return model.ErrInvalidTransition
	}

	team := room.Teams[startingPlayerID]
	if team != model.TeamLeft && team != model.TeamRight {
		return fmt.Errorf("%w: starting player has not joined a team", model.ErrValidation)
	}

	if team.Opposite() == model.TeamLeft {
		gs.LeftScore = 1
		gs.RightScore = 0
	} else {
		gs.LeftScore = 0
		gs.RightScore = 1
	}

	gs.ClueGiver = startingPlayerID
	gs.Phase = model.PhaseGiveClue
	gs.TurnsTaken = 0
	gs.Theme = themeID
	return nil
}

// SubmitClue records the clue-giver's clue and opens the guessing phase.
func SubmitClue(room *model.Room, playerID, clue string) error {
	gs := room.GameState
	if gs == nil || gs.Phase != model.PhaseGiveClue {
		return model.ErrInvalidTransition
	}
	if playerID != gs.ClueGiver {
		return fmt.Errorf("%w: only the clue giver can submit a clue", model.ErrUnauthorized)
	}
	clue = strings.TrimSpace(clue)
	if clue == "" {
		return fmt.Errorf("%w: clue is empty", model.ErrValidation)
	}

	gs.Clue = clue
	gs.Phase = model.PhaseMakeGuess
	return nil
}

// SubmitGuess locks in the guessing team's position on the spectrum.
func SubmitGuess(room *model.Room, guess int) error {
	gs := room.GameState
	if gs == nil || gs.Phase != model.PhaseMakeGuess {
		return model.ErrInvalidTransition
	}
	if guess < 0 || guess > 20 {
		return fmt.Errorf("%w: guess must be between 0 and 20", model.ErrValidation)
	}

	gs.Guess = guess
	gs.Phase = model.PhaseCounterGuess
	return nil
}

// SubmitCounterGuess records the opposing team's left/right call and applies
// both scores for the round.
func SubmitCounterGuess(room *model.Room, direction string) error {
	gs := room.GameState
	if gs == nil || gs.Phase != model.PhaseCounterGuess {
		return model.ErrInvalidTransition
	}
	if direction != model.DirectionLeft && direction != model.DirectionRight {
		return fmt.Errorf("%w: direction must be %q or %q", model.ErrValidation, model.DirectionLeft, model.DirectionRight)
	}

	gs.CounterGuess = direction
	gs.Phase = model.PhaseViewScore

	guessScore := Score(gs.SpectrumTarget, gs.Guess)
	counterScore := 0
	if (direction == model.DirectionLeft && gs.Guess > gs.SpectrumTarget) ||
		(direction == model.DirectionRight && gs.Guess < gs.SpectrumTarget) {
		counterScore = 1
	}

	if room.Teams[gs.ClueGiver] == model.TeamLeft {
		gs.LeftScore += guessScore
		gs.RightScore += counterScore
	} else {
		gs.RightScore += guessScore
		gs.LeftScore += counterScore
	}
	return nil
}

// NextRound archives the finished round as the previous-turn recap and deals
// the next one: new clue giver, next deck position, fresh target, transient
// fields reset. Once a team has won, the score view is terminal.
func NextRound(room *model.Room, nextClueGiverID string, lastCard model.Card) error {
	gs := room.GameState
	if gs == nil || gs.Phase != model.PhaseViewScore {
		return model.ErrInvalidTransition
	}
	if IsGameOver(room) {
		return fmt.Errorf("%w: game is over", model.ErrInvalidTransition)
	}

	clueGiverName := "Unknown"
	if p, ok := room.Players[gs.ClueGiver]; ok {
		clueGiverName = p.Name
	}
	gs.PreviousTurn = &model.TurnSummary{
		SpectrumCard:   lastCard,
		ClueGiverName:  clueGiverName,
		Clue:           gs.Clue,
		SpectrumTarget: gs.SpectrumTarget,
		Guess:          gs.Guess,
	}

	gs.ClueGiver = nextClueGiverID
	gs.Phase = model.PhaseGiveClue
	gs.TurnsTaken++
	gs.DeckIndex++
	gs.SpectrumTarget = RandomSpectrumTarget()
	gs.Clue = ""
	gs.Guess = 0
	gs.CounterGuess = model.DirectionLeft
	return nil
}

func IsGameOver(room *model.Room) bool {
	gs := room.GameState
	return gs != nil && (gs.LeftScore >= WinningScore || gs.RightScore >= WinningScore)
}

// Winner returns the winning team, or TeamUnset while the game is running.
func Winner(room *model.Room) model.Team {
	gs := room.GameState
	if gs == nil {
		return model.TeamUnset
	}
	if gs.LeftScore >= WinningScore {
		return model.TeamLeft
	}
	if gs.RightScore >= WinningScore {
		return model.TeamRight
	}
	return model.TeamUnset
}

// Score is the guessing team's points for a round: 4 for an exact hit, 3
// within two ticks, 2 within three, nothing beyond that.
func Score(target, guess int) int {
	distance := target - guess
	if distance < 0 {
		distance = -distance
	}
	switch {
	case distance == 0:
		return 4
	case distance <= 2:
		return 3
	case distance <= 3:
		return 2
	default:
		return 0
	}
}
