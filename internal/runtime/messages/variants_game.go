package messages

import "fmt"

// Game2LauncherTeamInfo reports which team every player is on.
type Game2LauncherTeamInfo struct {
	PlayerToTeamID map[PlayerID]TeamID `json:"player_to_team_id"`
}

func (Game2LauncherTeamInfo) Tag() Tag { return TagGame2LauncherTeamInfo }

func NewGame2LauncherTeamInfo(playerToTeamID map[PlayerID]TeamID) (*Game2LauncherTeamInfo, error) {
	if playerToTeamID == nil {
		playerToTeamID = map[PlayerID]TeamID{}
	}
	msg := &Game2LauncherTeamInfo{PlayerToTeamID: playerToTeamID}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (m Game2LauncherTeamInfo) Validate() error {
	return validateTeams(m.PlayerToTeamID)
}

// Game2LauncherScoreInfo carries the current score of both teams.
type Game2LauncherScoreInfo struct {
	BEScore int `json:"be_score"`
	DSScore int `json:"ds_score"`
}

func (Game2LauncherScoreInfo) Tag() Tag { return TagGame2LauncherScoreInfo }

func NewGame2LauncherScoreInfo(beScore, dsScore int) *Game2LauncherScoreInfo {
	return &Game2LauncherScoreInfo{BEScore: beScore, DSScore: dsScore}
}

// Game2LauncherMatchTime reports the remaining match time. Counting is false
// while the countdown is frozen.
type Game2LauncherMatchTime struct {
	SecondsRemaining int  `json:"seconds_remaining"`
	Counting         bool `json:"counting"`
}

func (Game2LauncherMatchTime) Tag() Tag { return TagGame2LauncherMatchTime }

func NewGame2LauncherMatchTime(secondsRemaining int, counting bool) *Game2LauncherMatchTime {
	return &Game2LauncherMatchTime{SecondsRemaining: secondsRemaining, Counting: counting}
}

type Game2LauncherMatchEnd struct{}

func (Game2LauncherMatchEnd) Tag() Tag { return TagGame2LauncherMatchEnd }

// Game2LauncherLoadoutRequest asks the launcher for a player's loadout.
type Game2LauncherLoadoutRequest struct {
	PlayerUniqueID PlayerID      `json:"player_unique_id"`
	ClassID        ClassID       `json:"class_id"`
	LoadoutNumber  LoadoutNumber `json:"loadout_number"`
}

func (Game2LauncherLoadoutRequest) Tag() Tag { return TagGame2LauncherLoadoutRequest }

func NewGame2LauncherLoadoutRequest(playerID PlayerID, classID ClassID, loadoutNumber LoadoutNumber) (*Game2LauncherLoadoutRequest, error) {
	msg := &Game2LauncherLoadoutRequest{PlayerUniqueID: playerID, ClassID: classID, LoadoutNumber: loadoutNumber}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (m Game2LauncherLoadoutRequest) Validate() error {
	if m.LoadoutNumber > MaxLoadoutNumber {
		return &FieldError{Field: "loadout_number", Problem: fmt.Sprintf("%d out of range [0, %d]", m.LoadoutNumber, MaxLoadoutNumber)}
	}
	return nil
}

func validateTeams(teams map[PlayerID]TeamID) error {
	if teams == nil {
		return &FieldError{Field: "player_to_team_id", Problem: "is required"}
	}
	for player, team := range teams {
		if !team.Valid() {
			return &FieldError{Field: "player_to_team_id", Problem: fmt.Sprintf("player %d has unknown team id %d", player, team)}
		}
	}
	return nil
}
