package domain

// Pub/sub channel names used for feed events.
const (
	ChannelStatus      = "ch:status"
	ChannelPatchPrefix = "ch:patch:"
)

// PatchChannel returns the channel patch events for sport are published on.
func PatchChannel(sport string) string {
	return ChannelPatchPrefix + sport
}
