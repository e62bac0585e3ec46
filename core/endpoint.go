package core

type Endpoint struct {
	Path      string
	Method    string
	Protected bool
	Metadata  EndpointMetadata
}

type EndpointMetadata struct {
	OperationID string
	Description string
	SuccessCode int
}

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func Success(message string, data any) Envelope {
	return Envelope{Status: StatusSuccess, Message: message, Data: data}
}

func Failure(message string, err error) Envelope {
	msg := err.Error()
	return Envelope{Status: StatusError, Message: message, Error: &msg}
}
