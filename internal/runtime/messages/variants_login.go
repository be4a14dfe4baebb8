package messages

import "fmt"

// Login2LauncherNextMap tells the launcher to advance to the next map.
type Login2LauncherNextMap struct{}

func (Login2LauncherNextMap) Tag() Tag { return TagLogin2LauncherNextMap }

// Login2LauncherSetPlayerLoadouts hands the launcher a player's stored loadouts.
type Login2LauncherSetPlayerLoadouts struct {
	UniqueID PlayerID       `json:"unique_id"`
	Loadouts PlayerLoadouts `json:"loadouts"`
}

func (Login2LauncherSetPlayerLoadouts) Tag() Tag { return TagLogin2LauncherSetPlayerLoadouts }

// NewLogin2LauncherSetPlayerLoadouts builds a validated SetPlayerLoadouts message.
// A nil loadouts map is treated as empty.
func NewLogin2LauncherSetPlayerLoadouts(uniqueID PlayerID, loadouts PlayerLoadouts) (*Login2LauncherSetPlayerLoadouts, error) {
	if loadouts == nil {
		loadouts = PlayerLoadouts{}
	}
	msg := &Login2LauncherSetPlayerLoadouts{UniqueID: uniqueID, Loadouts: loadouts}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (m Login2LauncherSetPlayerLoadouts) Validate() error {
	if m.Loadouts == nil {
		return &FieldError{Field: "loadouts", Problem: "is required"}
	}
	for classID, numbered := range m.Loadouts {
		if numbered == nil {
			return &FieldError{Field: "loadouts", Problem: fmt.Sprintf("class %d has no loadouts", classID)}
		}
		for number, loadout := range numbered {
			if number > MaxLoadoutNumber {
				return &FieldError{Field: "loadouts", Problem: fmt.Sprintf("class %d: loadout number %d out of range [0, %d]", classID, number, MaxLoadoutNumber)}
			}
			if loadout == nil {
				return &FieldError{Field: "loadouts", Problem: fmt.Sprintf("class %d: loadout %d is empty", classID, number)}
			}
		}
	}
	return nil
}

// Login2LauncherRemovePlayerLoadouts drops a player's loadouts from the launcher.
type Login2LauncherRemovePlayerLoadouts struct {
	UniqueID PlayerID `json:"unique_id"`
}

func (Login2LauncherRemovePlayerLoadouts) Tag() Tag { return TagLogin2LauncherRemovePlayerLoadouts }

func NewLogin2LauncherRemovePlayerLoadouts(uniqueID PlayerID) *Login2LauncherRemovePlayerLoadouts {
	return &Login2LauncherRemovePlayerLoadouts{UniqueID: uniqueID}
}
