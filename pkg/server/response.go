package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/RalXYZ/cc99/pkg/errors"
)

// St is the application status carried in every JSON envelope.
type St int64

// Status codes understood by the web front end.
const (
	StOk St = 0

	StParamErr     St = 10001 // bad request parameters
	StIOErr        St = 20000 // compiler missing, timed out or failed to start
	StServerErr    St = 20002 // unexpected server error
	StCompileErr   St = 20003 // compiler rejected the source
	StMalformedErr St = 20004 // AST JSON could not be decoded or converted
	StNotFound     St = 40004 // snapshot does not exist
)

// String returns the default message for a status.
func (s St) String() string {
	switch s {
	case StOk:
		return ""
	case StParamErr:
		return "invalid parameters"
	case StIOErr:
		return "compiler unavailable"
	case StServerErr:
		return "server error"
	case StCompileErr:
		return "compilation failed"
	case StMalformedErr:
		return "malformed AST"
	case StNotFound:
		return "not found"
	}
	return "unknown status"
}

// Envelope is the JSON body of every API response except raw artifacts.
type Envelope struct {
	St   St     `json:"st"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// statusFor maps an error to its envelope status.
func statusFor(err error) St {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return StParamErr
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat:
		return StParamErr
	case errors.ErrCodeMalformedInput, errors.ErrCodeUnknownVariant:
		return StMalformedErr
	case errors.ErrCodeCompileFailed:
		return StCompileErr
	case errors.ErrCodeTimeout, errors.ErrCodeUnavailable:
		return StIOErr
	case errors.ErrCodeNotFound:
		return StNotFound
	}
	return StServerErr
}

// writeData writes a successful envelope.
//
// Envelopes are always sent with HTTP 200; the front end inspects st.
func writeData(w http.ResponseWriter, data any) {
	writeEnvelope(w, Envelope{St: StOk, Data: data})
}

// writeStatus writes an error envelope with a status and message.
func writeStatus(w http.ResponseWriter, st St, msg string) {
	if msg == "" {
		msg = st.String()
	}
	writeEnvelope(w, Envelope{St: st, Msg: msg})
}

// writeError writes the envelope for err.
func writeError(w http.ResponseWriter, err error) {
	st := statusFor(err)
	msg := errors.UserMessage(err)
	if st == StServerErr {
		msg = st.String()
	}
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		msg = "request body too large"
	}
	writeStatus(w, st, msg)
}

func writeEnvelope(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(env)
}
