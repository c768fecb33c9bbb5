package tracking

// NoDevice marks an unselected slot.
const NoDevice = -1

// Selection picks the primary and secondary controllers out of the list
// a source reports. Indices refer to positions in Frame.Controllers.
type Selection struct {
	Primary   int `json:"primary"`
	Secondary int `json:"secondary"`
}

// NewSelection starts with the first controller as primary and no secondary.
func NewSelection() Selection {
	return Selection{Primary: 0, Secondary: NoDevice}
}

// CyclePrimary moves the primary to the next controller.
func (s *Selection) CyclePrimary(count int) {
	if count == 0 {
		return
	}
	s.Primary = (s.Primary + 1) % count
}

// CycleSecondary walks the controllers and then back to none.
// Needs at least two controllers.
func (s *Selection) CycleSecondary(count int) {
	if count < 2 {
		return
	}
	s.Secondary++
	if s.Secondary >= count {
		s.Secondary = NoDevice
	}
}

// Pick returns the selected controller, if any.
func Pick(controllers []Controller, idx int) (Controller, bool) {
	if idx < 0 || idx >= len(controllers) {
		return Controller{}, false
	}
	return controllers[idx], true
}

// RoleName describes a selected controller for status output.
func RoleName(controllers []Controller, idx int) string {
	c, ok := Pick(controllers, idx)
	if !ok {
		return "None"
	}
	return string(c.Role)
}
