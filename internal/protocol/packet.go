package protocol

// CurrentVersion is the protocol version the server replies with.
// Version 0 marks a placeholder message that carries no requests.
const CurrentVersion uint32 = 1

// PacketType identifies a packet on the wire.
type PacketType uint8

const (
	TypeNone          PacketType = 0
	TypeTryPut        PacketType = 1
	TypeTryGet        PacketType = 2
	TypeTryDelete     PacketType = 3
	TypePutSuccess    PacketType = 4
	TypeGetSuccess    PacketType = 5
	TypeDeleteSuccess PacketType = 6
	TypeErrorResponse PacketType = 7
)

// String returns the packet type name.
func (t PacketType) String() string {
	switch t {
	case TypeTryPut:
		return "TryPut"
	case TypeTryGet:
		return "TryGet"
	case TypeTryDelete:
		return "TryDelete"
	case TypePutSuccess:
		return "PutSuccess"
	case TypeGetSuccess:
		return "GetSuccess"
	case TypeDeleteSuccess:
		return "DeleteSuccess"
	case TypeErrorResponse:
		return "ErrorResponse"
	default:
		return "Unsupported"
	}
}

// IsResponse reports whether this type is only sent by the server.
func (t PacketType) IsResponse() bool {
	return t >= TypePutSuccess && t <= TypeErrorResponse
}

// Message is the envelope exchanged in each direction. A decoded message
// without packets has a nil Packets slice.
type Message struct {
	Version uint32
	Packets []Packet
}

// Packet is one operation or result inside a Message.
// Implemented by TryPut, TryGet, TryDelete, PutSuccess, GetSuccess,
// DeleteSuccess, ErrorResponse and Unsupported.
type Packet interface {
	Type() PacketType
}

// TryPut asks the server to store Payload, an encoded document, under a
// key derived from Pattern. Nil fields were absent on the wire.
type TryPut struct {
	Pattern *string
	Payload []byte
}

// TryGet asks for the payload stored under Pattern.
type TryGet struct {
	Pattern *string
}

// TryDelete asks the server to drop the record under Pattern if
// Capability matches the one issued when it was stored.
type TryDelete struct {
	Pattern    *string
	Capability []byte
}

// PutSuccess returns the capability for a stored record. When the stored
// root document was an entity, SanitizedEntity holds the encoded
// replacement that was stored instead.
type PutSuccess struct {
	Capability      []byte
	SanitizedEntity []byte
}

// GetSuccess carries a stored payload.
type GetSuccess struct {
	Payload []byte
}

// DeleteSuccess acknowledges a TryDelete.
type DeleteSuccess struct{}

// ErrorResponse reports a failed request with an HTTP-style code.
type ErrorResponse struct {
	Code    uint16
	Message string
}

// Unsupported is a packet whose type byte this version does not know.
// Raw holds the undecoded packet body.
type Unsupported struct {
	RawType byte
	Raw     []byte
}

func (TryPut) Type() PacketType        { return TypeTryPut }
func (TryGet) Type() PacketType        { return TypeTryGet }
func (TryDelete) Type() PacketType     { return TypeTryDelete }
func (PutSuccess) Type() PacketType    { return TypePutSuccess }
func (GetSuccess) Type() PacketType    { return TypeGetSuccess }
func (DeleteSuccess) Type() PacketType { return TypeDeleteSuccess }
func (ErrorResponse) Type() PacketType { return TypeErrorResponse }
func (u Unsupported) Type() PacketType { return PacketType(u.RawType) }

// Str returns a pointer to s, for optional string fields.
func Str(s string) *string {
	return &s
}

// Error builds an ErrorResponse.
func Error(code uint16, message string) ErrorResponse {
	return ErrorResponse{Code: code, Message: message}
}
