package threeds

import (
	"github.com/google/uuid"

	"github.com/ArushKapoorJuspay/mock-three-ds-server/pkg/acscrypt"
)

// Transaction is the stored state of one 3DS flow, created by the authenticate
// operation and enriched when results arrive. The JSON field names match the
// original server keyspace so a redis deployment can be shared.
type Transaction struct {
	AuthenticateRequest   AuthenticateRequest    `json:"authenticate_request" cbor:"1,keyasint"`
	ACSTransID            uuid.UUID              `json:"acs_trans_id" cbor:"2,keyasint"`
	DSTransID             uuid.UUID              `json:"ds_trans_id" cbor:"3,keyasint"`
	SDKTransID            *uuid.UUID             `json:"sdk_trans_id" cbor:"4,keyasint,omitempty"`
	ResultsRequest        *ResultsRequest        `json:"results_request" cbor:"5,keyasint,omitempty"`
	EphemeralKey          *acscrypt.EphemeralKey `json:"ephemeral_keys" cbor:"6,keyasint,omitempty"`
	RedirectURL           string                 `json:"redirect_url" cbor:"7,keyasint,omitempty"`
	SDKEphemeralPublicKey *acscrypt.JWK          `json:"sdk_ephemeral_public_key" cbor:"8,keyasint,omitempty"`
}

// Key implements store.Keyed, the threeDSServerTransID carried by the
// authenticate request.
func (self Transaction) Key() uuid.UUID {
	return self.AuthenticateRequest.ThreeDSServerTransID
}

// ACSKey implements store.Keyed.
func (self Transaction) ACSKey() uuid.UUID {
	return self.ACSTransID
}

// Check validates the Transaction before it is persisted.
func (self Transaction) Check() error {
	if uuid.Nil == self.Key() {
		return flagError(ErrValidation, "missing threeDSServerTransID")
	}
	if uuid.Nil == self.ACSTransID {
		return flagError(ErrValidation, "missing acsTransID")
	}
	if uuid.Nil == self.DSTransID {
		return flagError(ErrValidation, "missing dsTransID")
	}
	return nil
}

// MobileKeys returns the key agreement material of a mobile challenge flow.
// It errors if either side of the agreement is missing.
func (self *Transaction) MobileKeys() (*acscrypt.EphemeralKey, acscrypt.JWK, error) {
	if nil == self.EphemeralKey || nil == self.SDKEphemeralPublicKey {
		return nil, acscrypt.JWK{}, newError("missing ephemeral keys for key agreement")
	}
	return self.EphemeralKey, *self.SDKEphemeralPublicKey, nil
}
