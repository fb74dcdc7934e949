package binder

// Monitor receives the attach/detach lifecycle callbacks of spec.md
// §4.5: afterAttachment, beforeDetachment, afterDetachment. owner is the
// *Single or *Couple whose hand transitioned; a nil Monitor is a valid
// no-op subscriber, mirroring cytosim's optional HandMonitor.
type Monitor interface {
	AfterAttachment(owner interface{})
	BeforeDetachment(owner interface{})
	AfterDetachment(owner interface{})
}

func notifyAfterAttachment(m Monitor, owner interface{}) {
	if m != nil {
		m.AfterAttachment(owner)
	}
}

func notifyBeforeDetachment(m Monitor, owner interface{}) {
	if m != nil {
		m.BeforeDetachment(owner)
	}
}

func notifyAfterDetachment(m Monitor, owner interface{}) {
	if m != nil {
		m.AfterDetachment(owner)
	}
}
