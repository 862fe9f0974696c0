package domain

// MediaKind names a media track whose state members broadcast.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	Identity   Identity
	AudioMuted bool
	VideoOff   bool
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(id Identity) *Member {
	return &Member{Identity: id}
}

// SetMedia records the latest state for kind. Unknown kinds are ignored.
func (m *Member) SetMedia(kind MediaKind, off bool) {
	switch kind {
	case MediaAudio:
		m.AudioMuted = off
	case MediaVideo:
		m.VideoOff = off
	}
}
