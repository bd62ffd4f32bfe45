package interfaces

// Console renders operator-facing progress messages
type Console interface {
	Header(title string)
	Section(title string)
	Info(message string)
	Success(message string)
	Warn(message string)
	Error(message string)
}
