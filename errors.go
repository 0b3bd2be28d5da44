package stereocap

import "fmt"

// ErrorCode is the status returned by session operations. The zero value
// means success and is never returned as an error.
type ErrorCode uint8

const (
	ErrorCodeSuccess ErrorCode = iota
	ErrorCodeFailure
	ErrorCodeCameraNotDetected
	ErrorCodeInvalidResolution
	ErrorCodeInvalidSVOFile
	ErrorCodeInvalidFunctionParameters
	ErrorCodeNotANewFrame
	ErrorCodeCameraNotInitialized
	ErrorCodeDepthDisabled
	ErrorCodeEndOfSVOFileReached
)

var errorCodeMessages = map[ErrorCode]string{
	ErrorCodeSuccess:                   "SUCCESS",
	ErrorCodeFailure:                   "ERROR",
	ErrorCodeCameraNotDetected:         "CAMERA NOT DETECTED",
	ErrorCodeInvalidResolution:         "INVALID RESOLUTION",
	ErrorCodeInvalidSVOFile:            "INVALID SVO FILE",
	ErrorCodeInvalidFunctionParameters: "INVALID FUNCTION PARAMETERS",
	ErrorCodeNotANewFrame:              "NOT A NEW FRAME",
	ErrorCodeCameraNotInitialized:      "CAMERA NOT INITIALIZED",
	ErrorCodeDepthDisabled:             "DEPTH DISABLED",
	ErrorCodeEndOfSVOFileReached:       "END OF SVO FILE REACHED",
}

func (e ErrorCode) Error() string {
	if msg, ok := errorCodeMessages[e]; ok {
		return msg
	}
	return fmt.Sprintf("UNKNOWN ERROR CODE %d", uint8(e))
}
