package messages

// Launcher2LoginServerInfo announces the game server a launcher supervises.
type Launcher2LoginServerInfo struct {
	Port        uint16 `json:"port"`
	Description string `json:"description"`
	Motd        string `json:"motd"`
}

func (Launcher2LoginServerInfo) Tag() Tag { return TagLauncher2LoginServerInfo }

func NewLauncher2LoginServerInfo(port uint16, description, motd string) *Launcher2LoginServerInfo {
	return &Launcher2LoginServerInfo{Port: port, Description: description, Motd: motd}
}

type Launcher2LoginMapInfo struct{}

func (Launcher2LoginMapInfo) Tag() Tag { return TagLauncher2LoginMapInfo }

// Launcher2LoginTeamInfo relays the game server's team assignment.
type Launcher2LoginTeamInfo struct {
	PlayerToTeamID map[PlayerID]TeamID `json:"player_to_team_id"`
}

func (Launcher2LoginTeamInfo) Tag() Tag { return TagLauncher2LoginTeamInfo }

func NewLauncher2LoginTeamInfo(playerToTeamID map[PlayerID]TeamID) (*Launcher2LoginTeamInfo, error) {
	if playerToTeamID == nil {
		playerToTeamID = map[PlayerID]TeamID{}
	}
	msg := &Launcher2LoginTeamInfo{PlayerToTeamID: playerToTeamID}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (m Launcher2LoginTeamInfo) Validate() error {
	return validateTeams(m.PlayerToTeamID)
}

type Launcher2LoginScoreInfo struct{}

func (Launcher2LoginScoreInfo) Tag() Tag { return TagLauncher2LoginScoreInfo }

type Launcher2LoginMatchTime struct{}

func (Launcher2LoginMatchTime) Tag() Tag { return TagLauncher2LoginMatchTime }

type Launcher2LoginMatchEnd struct{}

func (Launcher2LoginMatchEnd) Tag() Tag { return TagLauncher2LoginMatchEnd }

// Launcher2GameLoadout answers a loadout request with the items per slot.
type Launcher2GameLoadout struct {
	PlayerUniqueID PlayerID `json:"player_unique_id"`
	Loadout        Loadout  `json:"loadout"`
}

func (Launcher2GameLoadout) Tag() Tag { return TagLauncher2GameLoadout }

func NewLauncher2GameLoadout(playerID PlayerID, loadout Loadout) (*Launcher2GameLoadout, error) {
	if loadout == nil {
		loadout = Loadout{}
	}
	msg := &Launcher2GameLoadout{PlayerUniqueID: playerID, Loadout: loadout}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (m Launcher2GameLoadout) Validate() error {
	if m.Loadout == nil {
		return &FieldError{Field: "loadout", Problem: "is required"}
	}
	return nil
}
