package wizard

// Screen identifies a wizard step.
type Screen int

// Screens in order.
const (
	ScreenWelcome Screen = iota
	ScreenCloud
	ScreenPrerequisites
	ScreenCloudCredentials
	ScreenDatabricksCredentials
	ScreenTemplate
	ScreenConfigure
	ScreenTags
	ScreenReview
	ScreenDone
)

var screenNames = map[Screen]string{
	ScreenWelcome:               "welcome",
	ScreenCloud:                 "cloud",
	ScreenPrerequisites:         "prerequisites",
	ScreenCloudCredentials:      "cloud-credentials",
	ScreenDatabricksCredentials: "databricks-credentials",
	ScreenTemplate:              "template",
	ScreenConfigure:             "configure",
	ScreenTags:                  "tags",
	ScreenReview:                "review",
	ScreenDone:                  "done",
}

func (s Screen) String() string {
	if name, ok := screenNames[s]; ok {
		return name
	}
	return "unknown"
}

// next returns the screen after s.
func (s Screen) next() Screen {
	if s >= ScreenDone {
		return ScreenDone
	}
	return s + 1
}
