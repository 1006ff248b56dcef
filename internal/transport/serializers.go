// Package transport provides message serialization for the 3DS mock server.
//
// Transaction records cross process boundaries in two places, the Redis/Postgres
// stores (JSON values, wire compatible with the original server keyspace) and the
// boltdb store (CBOR values). Both go through the Serializer interface so that the
// storage backends do not hardcode an encoding.
package transport

// Serializer is an interface that provides methods to Marshal/Unmarshal messages.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Checker is an interface that provides a method Check to validate messages.
type Checker interface {
	Check() error
}

// A SafeSerializer wraps a Serializer ensuring that marshaled/unmarshaled messages
// are validated whenever they implement Checker.
type SafeSerializer struct {
	Serializer
}

// WrapInSafeSerializer returns a SafeSerializer wrapping s.
func WrapInSafeSerializer(s Serializer) SafeSerializer {
	if c, isSafeSerializer := s.(SafeSerializer); isSafeSerializer {
		return c
	}

	return SafeSerializer{Serializer: s}
}

// Marshal validates v if it has a Check method and marshals it using the wrapped
// Serializer.
func (self SafeSerializer) Marshal(v any) ([]byte, error) {
	if c, validate := v.(Checker); validate {
		err := c.Check()
		if nil != err {
			return nil, wrapError(ValidationError, "invalid, Check returned %v", err)
		}
	}

	srzmsg, err := self.Serializer.Marshal(v)
	if nil != err {
		return nil, wrapError(SerializationError, "failed marshalling msg, got error %v", err)
	}

	return srzmsg, nil
}

// Unmarshal unmarshals data in v using the wrapped Serializer and validates v if
// it has a Check method.
func (self SafeSerializer) Unmarshal(data []byte, v any) error {
	err := self.Serializer.Unmarshal(data, v)
	if nil != err {
		return wrapError(SerializationError, "failed unmarshaling message, got error %v", err)
	}

	if c, checkable := v.(Checker); checkable {
		err = c.Check()
		if nil != err {
			return wrapError(ValidationError, "invalid, Check returned %v", err)
		}
	}

	return nil
}

var _ Serializer = SafeSerializer{}
