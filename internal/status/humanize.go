package status

// Humanize renders s for a status column in listings.  Daemon error
// messages are hidden behind a generic label unless showError is set.
func Humanize(s Status, showError bool) string {
	switch s {
	case OK:
		return "Ok"
	case ToAdd:
		return "Addition in progress..."
	case ToChange, ToRestore, ToChangePwd:
		return "Modification in progress..."
	case ToDelete:
		return "Deletion in progress..."
	case Disabled:
		return "Deactivated"
	case ToEnable:
		return "Activation in progress..."
	case ToDisable:
		return "Deactivation in progress..."
	case Ordered:
		return "Awaiting for approval"
	}
	if showError && s != "" {
		return string(s)
	}
	return "Unexpected error"
}
