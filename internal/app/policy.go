package app

import "github.com/dkeye/Mall/internal/core"

type BackpressureAction int

const (
	KickMember BackpressureAction = iota
	DropFrame
)

// Policy decides what happens to a member whose outbound queue is full.
type Policy interface {
	OnBackPressure(member core.MemberSession) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(member core.MemberSession) BackpressureAction {
	return KickMember
}

// TolerantPolicy drops the frame and keeps the member connected.
type TolerantPolicy struct{}

func (TolerantPolicy) OnBackPressure(member core.MemberSession) BackpressureAction {
	return DropFrame
}

// PolicyFor maps the signal.backpressure setting to a policy. Unknown
// values fall back to kicking.
func PolicyFor(name string) Policy {
	if name == "drop" {
		return TolerantPolicy{}
	}
	return SimplePolicy{}
}
