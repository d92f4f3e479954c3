package ui

// Zone ID constants for bubblezone hit detection.
// These are used both in render paths (zone.Mark) and input paths (zone.Get().InBounds).
const (
	ZoneApprove        = "zone-approve"
	ZoneRequestChanges = "zone-request-changes"
	ZoneBeginPhase     = "zone-begin-phase"
	ZoneReport         = "zone-report"
	ZoneErrorBanner    = "zone-error-banner"
	ZoneTranscript     = "zone-transcript"
)
