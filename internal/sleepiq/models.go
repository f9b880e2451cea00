package sleepiq

// Fields tagged sleepiq:"optional" may be absent on the wire; all others must
// be present or decoding fails (see decodeStrict). Slots filled after decoding
// are optional too and are left out of JSON output while nil.

// Bed is the root aggregate of one fetch cycle.
type Bed struct {
	BedID          string `json:"bedId"`
	SleeperLeftID  string `json:"sleeperLeftId"`
	SleeperRightID string `json:"sleeperRightId"`
	Name           string `json:"name"`
	Model          string `json:"model"`
	Serial         string `json:"serial"`
	MacAddress     string `json:"macAddress"`
	Size           string `json:"size"`
	Generation     string `json:"generation"`

	AccountID           string `json:"accountId" sleepiq:"optional"`
	RegistrationDate    string `json:"registrationDate" sleepiq:"optional"`
	PurchaseDate        string `json:"purchaseDate" sleepiq:"optional"`
	Base                string `json:"base" sleepiq:"optional"`
	Sku                 string `json:"sku" sleepiq:"optional"`
	Version             string `json:"version" sleepiq:"optional"`
	Timezone            string `json:"timezone" sleepiq:"optional"`
	Zipcode             string `json:"zipcode" sleepiq:"optional"`
	Reference           string `json:"reference" sleepiq:"optional"`
	Status              int    `json:"status" sleepiq:"optional"`
	ReturnRequestStatus int    `json:"returnRequestStatus" sleepiq:"optional"`
	IsKidsBed           bool   `json:"isKidsBed" sleepiq:"optional"`
	DualSleep           bool   `json:"dualSleep" sleepiq:"optional"`

	LeftSide      *Side          `json:"leftSide,omitempty" sleepiq:"optional"`
	RightSide     *Side          `json:"rightSide,omitempty" sleepiq:"optional"`
	Lights        []*Light       `json:"lights,omitempty" sleepiq:"optional"`
	Foundation    *Foundation    `json:"foundation,omitempty" sleepiq:"optional"`
	ResponsiveAir *ResponsiveAir `json:"responsiveAir,omitempty" sleepiq:"optional"`
	PrivacyMode   *PrivacyMode   `json:"privacyMode,omitempty" sleepiq:"optional"`
	FootWarming   *FootWarming   `json:"footWarming,omitempty" sleepiq:"optional"`
}

// Side is the sensor state of one half of the bed.
type Side struct {
	IsInBed              bool   `json:"isInBed"`
	SleepNumber          int    `json:"sleepNumber"`
	Pressure             int    `json:"pressure"`
	AlertID              int    `json:"alertId"`
	AlertDetailedMessage string `json:"alertDetailedMessage" sleepiq:"optional"`
	LastLink             string `json:"lastLink" sleepiq:"optional"`

	Side    BedSide  `json:"side" sleepiq:"optional"`
	BedID   string   `json:"bedId" sleepiq:"optional"`
	Sleeper *Sleeper `json:"sleeper,omitempty" sleepiq:"optional"`
}

// Sleeper is an account profile assigned to a side.
type Sleeper struct {
	SleeperID string `json:"sleeperId"`
	BedID     string `json:"bedId"`
	FirstName string `json:"firstName"`
	Side      int    `json:"side"`

	AccountID            string `json:"accountId" sleepiq:"optional"`
	Username             string `json:"username" sleepiq:"optional"`
	Email                string `json:"email" sleepiq:"optional"`
	Gender               int    `json:"gender" sleepiq:"optional"`
	BirthYear            string `json:"birthYear" sleepiq:"optional"`
	BirthMonth           int    `json:"birthMonth" sleepiq:"optional"`
	Weight               int    `json:"weight" sleepiq:"optional"`
	Height               int    `json:"height" sleepiq:"optional"`
	SleepGoal            int    `json:"sleepGoal" sleepiq:"optional"`
	Duration             *int   `json:"duration,omitempty" sleepiq:"optional"`
	ZipCode              string `json:"zipCode" sleepiq:"optional"`
	Timezone             string `json:"timezone" sleepiq:"optional"`
	Active               bool   `json:"active" sleepiq:"optional"`
	EmailValidated       bool   `json:"emailValidated" sleepiq:"optional"`
	IsChild              bool   `json:"isChild" sleepiq:"optional"`
	IsAccountOwner       bool   `json:"isAccountOwner" sleepiq:"optional"`
	PrivacyPolicyVersion int    `json:"privacyPolicyVersion" sleepiq:"optional"`
	LicenseVersion       int    `json:"licenseVersion" sleepiq:"optional"`
	FirstSessionRecorded string `json:"firstSessionRecorded" sleepiq:"optional"`
	LastLogin            string `json:"lastLogin" sleepiq:"optional"`

	// Favorite is resolved from sleepNumberFavorite, not from the sleeper resource.
	Favorite *int `json:"favorite,omitempty" sleepiq:"optional"`
}

// Light is one foundation outlet.
type Light struct {
	BedID   string  `json:"bedId"`
	Outlet  Outlet  `json:"outlet"`
	Setting int     `json:"setting"`
	Timer   *string `json:"timer,omitempty" sleepiq:"optional"`

	Name string `json:"name" sleepiq:"optional"`
}

// On reports whether the outlet is switched on.
func (l *Light) On() bool { return l.Setting != 0 }

// Foundation is the adjustable base system info.
type Foundation struct {
	BedType               int `json:"fsBedType"`
	BoardFaults           int `json:"fsBoardFaults"`
	BoardFeatures         int `json:"fsBoardFeatures"`
	BoardHWRevisionCode   int `json:"fsBoardHWRevisionCode"`
	BoardStatus           int `json:"fsBoardStatus"`
	LeftUnderbedLightPWM  int `json:"fsLeftUnderbedLightPWM"`
	RightUnderbedLightPWM int `json:"fsRightUnderbedLightPWM"`

	BedID    string            `json:"bedId" sleepiq:"optional"`
	Status   *FoundationStatus `json:"status,omitempty" sleepiq:"optional"`
	Features *Features         `json:"features,omitempty" sleepiq:"optional"`
}

// FoundationStatus mirrors the vendor's foundation status payload verbatim.
type FoundationStatus struct {
	CurrentPositionPreset        string `json:"fsCurrentPositionPreset"`
	CurrentPositionPresetLeft    string `json:"fsCurrentPositionPresetLeft"`
	CurrentPositionPresetRight   string `json:"fsCurrentPositionPresetRight"`
	TimerPositionPreset          string `json:"fsTimerPositionPreset"`
	TimerPositionPresetLeft      string `json:"fsTimerPositionPresetLeft"`
	TimerPositionPresetRight     string `json:"fsTimerPositionPresetRight"`
	LeftHeadPosition             string `json:"fsLeftHeadPosition"`
	LeftFootPosition             string `json:"fsLeftFootPosition"`
	RightHeadPosition            string `json:"fsRightHeadPosition"`
	RightFootPosition            string `json:"fsRightFootPosition"`
	LeftPositionTimerLSB         string `json:"fsLeftPositionTimerLSB"`
	LeftPositionTimerMSB         string `json:"fsLeftPositionTimerMSB"`
	RightPositionTimerLSB        string `json:"fsRightPositionTimerLSB"`
	RightPositionTimerMSB        string `json:"fsRightPositionTimerMSB"`
	LeftHeadActuatorMotorStatus  string `json:"fsLeftHeadActuatorMotorStatus"`
	LeftFootActuatorMotorStatus  string `json:"fsLeftFootActuatorMotorStatus"`
	RightHeadActuatorMotorStatus string `json:"fsRightHeadActuatorMotorStatus"`
	RightFootActuatorMotorStatus string `json:"fsRightFootActuatorMotorStatus"`
	Type                         string `json:"fsType"`
	StatusSummary                string `json:"fsStatusSummary"`
	NeedsHoming                  bool   `json:"fsNeedsHoming"`
	OutletsOn                    bool   `json:"fsOutletsOn"`
	TimedOutletsOn               bool   `json:"fsTimedOutletsOn"`
	IsMoving                     bool   `json:"fsIsMoving"`
	Configured                   bool   `json:"fsConfigured"`

	BedID string `json:"bedId" sleepiq:"optional"`
}

// Features is the capability map decoded from the foundation bitmask.
type Features struct {
	Single      bool `json:"single"`
	SplitHead   bool `json:"splitHead"`
	SplitKing   bool `json:"splitKing"`
	EasternKing bool `json:"easternKing"`

	BoardIsASingle     bool `json:"boardIsASingle"`
	HasMassageAndLight bool `json:"hasMassageAndLight"`
	HasFootControl     bool `json:"hasFootControl"`
	HasFootWarming     bool `json:"hasFootWarming"`
	HasUnderbedLight   bool `json:"hasUnderbedLight"`

	LeftUnderbedLightPWM  int `json:"leftUnderbedLightPWM"`
	RightUnderbedLightPWM int `json:"rightUnderbedLightPWM"`
}

// PrivacyMode is the bed's pause state. While paused the bed stops recording.
type PrivacyMode struct {
	PauseMode string `json:"pauseMode"`
	AccountID string `json:"accountId" sleepiq:"optional"`
	BedID     string `json:"bedId" sleepiq:"optional"`
}

// Enabled reports whether privacy mode is on.
func (p *PrivacyMode) Enabled() bool { return p.PauseMode == "on" }

// ResponsiveAir holds the automatic firmness adjustment settings.
type ResponsiveAir struct {
	LeftSideEnabled     bool   `json:"leftSideEnabled"`
	RightSideEnabled    bool   `json:"rightSideEnabled"`
	AdjustmentThreshold int    `json:"adjustmentThreshold" sleepiq:"optional"`
	InBedTimeout        int    `json:"inBedTimeout" sleepiq:"optional"`
	OutOfBedTimeout     int    `json:"outOfBedTimeout" sleepiq:"optional"`
	PollFrequency       int    `json:"pollFrequency" sleepiq:"optional"`
	PrefSyncState       string `json:"prefSyncState" sleepiq:"optional"`
}

// FootWarming is the foot warmer state per side. Status is the temperature level.
type FootWarming struct {
	StatusLeft  int `json:"footWarmingStatusLeft"`
	StatusRight int `json:"footWarmingStatusRight"`
	TimerLeft   int `json:"footWarmingTimerLeft"`
	TimerRight  int `json:"footWarmingTimerRight"`
}

// SleepNumberFavorite is the stored favorite setting per side.
type SleepNumberFavorite struct {
	Left  int    `json:"sleepNumberFavoriteLeft"`
	Right int    `json:"sleepNumberFavoriteRight"`
	BedID string `json:"bedId" sleepiq:"optional"`
}

// For returns the favorite for the given side.
func (f *SleepNumberFavorite) For(side BedSide) int {
	if side == Right {
		return f.Right
	}
	return f.Left
}
