package errcode

// Error code convention:
// - 0: no error
// - 4xxx: recoverable/warning class (e.g. an asset was missing but the
//   render continued, or a fallback format was served)
// - 5xxx: system errors that aborted the flow
const (
	OK              = 0
	ResourceMissing = 4004
	FormatFellBack  = 4102
	SystemError     = 5000
)
