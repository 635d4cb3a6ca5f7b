package probe

// Worker configuration constants.
const (
	workerChannelMultiplier = 2
)
