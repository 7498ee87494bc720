package protocol

import "encoding/json"

const (
	CodeSuccess = "success"
	CodeError   = "error"
)

// Response acknowledges one request. Resp is present only for read requests.
type Response struct {
	Code    string `json:"code"`
	Resp    any    `json:"resp,omitempty"`
	Message string `json:"message,omitempty"`
}

func EncodeSuccess(resp any) ([]byte, error) {
	return json.Marshal(Response{Code: CodeSuccess, Resp: resp})
}

func EncodeError(err error) []byte {
	data, _ := json.Marshal(Response{Code: CodeError, Message: err.Error()})
	return data
}
