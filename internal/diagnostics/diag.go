package diagnostics

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes pushed by the host.
const (
	CodeTestRunning = "TEST.RUNNING"
	CodeTestDone    = "TEST.DONE"
	CodeTestUnknown = "TEST.UNKNOWN"
	CodePixelRange  = "PIXEL.RANGE"
	CodeTransmit    = "SPI.TRANSMIT"
	CodeBadCommand  = "CONTROL.BAD_COMMAND"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Transmit describes a failed frame write to a strip of the given length
// with the usual culprits.
func Transmit(err error, pixels int) Diagnostic {
	return Diagnostic{
		Severity: Err,
		Code:     CodeTransmit,
		Summary:  "Frame write to the strip failed",
		Detail:   err.Error(),
		LikelyCauses: []string{
			"SPI device missing or not enabled (dtparam=spi=on)",
			"frame larger than the spidev buffer",
		},
		SuggestedFixes: []string{
			"check the spi.dev path in config.yaml",
			"raise spidev.bufsiz on the kernel command line",
		},
		Evidence: map[string]any{"pixels": pixels},
	}
}
