// Package threeds implements the 3DS 2.2.0 message flows of the mock ACS: card
// range lookup, authentication with the challenge decision, the browser OTP
// challenge, the encrypted mobile challenge channel and the results exchange.
package threeds

import (
	"github.com/google/uuid"

	"github.com/ArushKapoorJuspay/mock-three-ds-server/pkg/acscrypt"
)

// MessageVersion is the only protocol version the mock ACS speaks.
const MessageVersion = "2.2.0"

// VersionRequest is the card range lookup request.
type VersionRequest struct {
	CardNumber string `json:"cardNumber"`
}

// Check validates the VersionRequest.
func (self *VersionRequest) Check() error {
	if "" == self.CardNumber {
		return flagError(ErrValidation, "missing cardNumber")
	}
	return nil
}

// VersionResponse carries the protocol versions supported for a card range.
type VersionResponse struct {
	ThreeDSServerTransID uuid.UUID   `json:"threeDSServerTransID"`
	CardRanges           []CardRange `json:"cardRanges"`
}

type CardRange struct {
	ACSInfoInd              []string `json:"acsInfoInd"`
	StartRange              string   `json:"startRange"`
	ACSEndProtocolVersion   string   `json:"acsEndProtocolVersion"`
	ACSStartProtocolVersion string   `json:"acsStartProtocolVersion"`
	EndRange                string   `json:"endRange"`
}

// AuthenticateRequest is the inbound AReq as posted by the 3DS server
// integration. The SDK ephemeral public key arrives either nested under
// sdkEphemeralPublicKey or as capitalized top level fields, both shapes are
// accepted.
type AuthenticateRequest struct {
	ThreeDSServerTransID            uuid.UUID           `json:"threeDSServerTransID"`
	SDKTransID                      *uuid.UUID          `json:"sdkTransId,omitempty"`
	DeviceChannel                   string              `json:"deviceChannel"`
	MessageCategory                 string              `json:"messageCategory"`
	PreferredProtocolVersion        string              `json:"preferredProtocolVersion"`
	EnforcePreferredProtocolVersion bool                `json:"enforcePreferredProtocolVersion"`
	ThreeDSCompInd                  string              `json:"threeDSCompInd"`
	ThreeDSRequestor                ThreeDSRequestor    `json:"threeDSRequestor"`
	CardholderAccount               CardholderAccount   `json:"cardholderAccount"`
	Cardholder                      Cardholder          `json:"cardholder"`
	Purchase                        Purchase            `json:"purchase"`
	Acquirer                        Acquirer            `json:"acquirer"`
	Merchant                        Merchant            `json:"merchant"`
	BrowserInformation              *BrowserInformation `json:"browserInformation,omitempty"`
	DeviceRenderOptions             DeviceRenderOptions `json:"deviceRenderOptions"`
	SDKEphemeralPublicKey           *acscrypt.JWK       `json:"sdkEphemeralPublicKey,omitempty"`

	// top level SDK key fields, alternative to SDKEphemeralPublicKey
	Kty string `json:"Kty,omitempty"`
	Crv string `json:"Crv,omitempty"`
	X   string `json:"X,omitempty"`
	Y   string `json:"Y,omitempty"`
}

// Check validates the AuthenticateRequest.
func (self *AuthenticateRequest) Check() error {
	if uuid.Nil == self.ThreeDSServerTransID {
		return flagError(ErrValidation, "missing threeDSServerTransID")
	}
	if "" == self.DeviceChannel {
		return flagError(ErrValidation, "missing deviceChannel")
	}
	if "" == self.CardholderAccount.AcctNumber {
		return flagError(ErrValidation, "missing acctNumber")
	}
	return nil
}

// SDKKey returns the SDK ephemeral public key, whatever shape it arrived in.
// The bool flag is false when the request carries none.
func (self *AuthenticateRequest) SDKKey() (acscrypt.JWK, bool) {
	if nil != self.SDKEphemeralPublicKey {
		return *self.SDKEphemeralPublicKey, true
	}
	if "" != self.Kty && "" != self.Crv && "" != self.X && "" != self.Y {
		return acscrypt.JWK{Kty: self.Kty, Crv: self.Crv, X: self.X, Y: self.Y}, true
	}
	return acscrypt.JWK{}, false
}

type ThreeDSRequestor struct {
	ThreeDSRequestorAuthenticationInd  string                             `json:"threeDSRequestorAuthenticationInd"`
	ThreeDSRequestorAuthenticationInfo ThreeDSRequestorAuthenticationInfo `json:"threeDSRequestorAuthenticationInfo"`
	ThreeDSRequestorChallengeInd       string                             `json:"threeDSRequestorChallengeInd"`
}

type ThreeDSRequestorAuthenticationInfo struct {
	ThreeDSReqAuthMethod    string `json:"threeDSReqAuthMethod"`
	ThreeDSReqAuthTimestamp string `json:"threeDSReqAuthTimestamp"`
}

type CardholderAccount struct {
	AcctType         string `json:"acctType"`
	CardExpiryDate   string `json:"cardExpiryDate"`
	SchemeID         string `json:"schemeId"`
	AcctNumber       string `json:"acctNumber"`
	CardSecurityCode string `json:"cardSecurityCode"`
}

type Cardholder struct {
	AddrMatch        string `json:"addrMatch"`
	BillAddrCity     string `json:"billAddrCity"`
	BillAddrCountry  string `json:"billAddrCountry"`
	BillAddrLine1    string `json:"billAddrLine1"`
	BillAddrLine2    string `json:"billAddrLine2"`
	BillAddrLine3    string `json:"billAddrLine3"`
	BillAddrPostCode string `json:"billAddrPostCode"`
	Email            string `json:"email"`
	HomePhone        Phone  `json:"homePhone"`
	MobilePhone      Phone  `json:"mobilePhone"`
	WorkPhone        Phone  `json:"workPhone"`
	CardholderName   string `json:"cardholderName"`
	ShipAddrCity     string `json:"shipAddrCity"`
	ShipAddrCountry  string `json:"shipAddrCountry"`
	ShipAddrLine1    string `json:"shipAddrLine1"`
	ShipAddrLine2    string `json:"shipAddrLine2"`
	ShipAddrLine3    string `json:"shipAddrLine3"`
	ShipAddrPostCode string `json:"shipAddrPostCode"`
}

type Phone struct {
	CC         string `json:"cc"`
	Subscriber string `json:"subscriber"`
}

type Purchase struct {
	PurchaseInstalData uint32 `json:"purchaseInstalData"`
	PurchaseAmount     uint64 `json:"purchaseAmount"`
	PurchaseCurrency   string `json:"purchaseCurrency"`
	PurchaseExponent   uint32 `json:"purchaseExponent"`
	PurchaseDate       string `json:"purchaseDate"`
	RecurringExpiry    string `json:"recurringExpiry"`
	RecurringFrequency uint32 `json:"recurringFrequency"`
	TransType          string `json:"transType"`
}

type Acquirer struct {
	AcquirerBIN        string `json:"acquirerBin"`
	AcquirerMerchantID string `json:"acquirerMerchantId"`
}

type Merchant struct {
	MCC                            string `json:"mcc"`
	MerchantCountryCode            string `json:"merchantCountryCode"`
	ThreeDSRequestorID             string `json:"threeDSRequestorId"`
	ThreeDSRequestorName           string `json:"threeDSRequestorName"`
	MerchantName                   string `json:"merchantName"`
	ResultsResponseNotificationURL string `json:"resultsResponseNotificationUrl"`
	NotificationURL                string `json:"notificationUrl"`
}

type BrowserInformation struct {
	BrowserAcceptHeader      string `json:"browserAcceptHeader"`
	BrowserIP                string `json:"browserIP"`
	BrowserLanguage          string `json:"browserLanguage"`
	BrowserColorDepth        string `json:"browserColorDepth"`
	BrowserScreenHeight      uint32 `json:"browserScreenHeight"`
	BrowserScreenWidth       uint32 `json:"browserScreenWidth"`
	BrowserTZ                uint32 `json:"browserTZ"`
	BrowserUserAgent         string `json:"browserUserAgent"`
	ChallengeWindowSize      string `json:"challengeWindowSize"`
	BrowserJavaEnabled       bool   `json:"browserJavaEnabled"`
	BrowserJavascriptEnabled bool   `json:"browserJavascriptEnabled"`
}

type DeviceRenderOptions struct {
	SDKInterface          string   `json:"sdkInterface"`
	SDKUIType             []string `json:"sdkUiType"`
	SDKAuthenticationType []string `json:"sdkAuthenticationType"`
}

// AuthenticateResponse is the outbound answer of the authenticate operation.
type AuthenticateResponse struct {
	PurchaseDate                  string                 `json:"purchaseDate"`
	Base64EncodedChallengeRequest string                 `json:"base64EncodedChallengeRequest,omitempty"`
	ACSURL                        string                 `json:"acsUrl,omitempty"`
	ThreeDSServerTransID          uuid.UUID              `json:"threeDSServerTransID"`
	AuthenticationResponse        AuthenticationResponse `json:"authenticationResponse"`
	ChallengeRequest              ChallengeRequest       `json:"challengeRequest"`
	ACSChallengeMandated          string                 `json:"acsChallengeMandated"`
	TransStatus                   string                 `json:"transStatus"`
	AuthenticationRequest         map[string]any         `json:"authenticationRequest"`
}

// AuthenticationResponse mirrors the ARes message embedded in the
// AuthenticateResponse.
type AuthenticationResponse struct {
	ThreeDSRequestorAppURLInd   string                    `json:"threeDSRequestorAppUrlInd,omitempty"`
	ACSOperatorID               string                    `json:"acsOperatorID"`
	DSReferenceNumber           string                    `json:"dsReferenceNumber"`
	ECI                         string                    `json:"eci"`
	ACSSignedContent            string                    `json:"acsSignedContent,omitempty"`
	DSTransID                   uuid.UUID                 `json:"dsTransId"`
	ACSRenderingType            *ACSRenderingTypeResponse `json:"acsRenderingType,omitempty"`
	MessageType                 string                    `json:"messageType"`
	ThreeDSServerTransID        uuid.UUID                 `json:"threeDSServerTransID"`
	ACSTransID                  uuid.UUID                 `json:"acsTransId"`
	BroadInfo                   *BroadInfo                `json:"broadInfo,omitempty"`
	AuthenticationMethod        string                    `json:"authenticationMethod,omitempty"`
	TransStatusReason           string                    `json:"transStatusReason,omitempty"`
	DeviceInfoRecognisedVersion string                    `json:"deviceInfoRecognisedVersion,omitempty"`
	ACSChallengeMandated        string                    `json:"acsChallengeMandated"`
	AuthenticationType          string                    `json:"authenticationType"`
	SDKTransID                  *uuid.UUID                `json:"sdkTransId,omitempty"`
	AuthenticationValue         string                    `json:"authenticationValue"`
	TransStatus                 string                    `json:"transStatus"`
	MessageVersion              string                    `json:"messageVersion"`
	ACSReferenceNumber          string                    `json:"acsReferenceNumber"`
	ACSURL                      string                    `json:"acsUrl,omitempty"`
}

type ACSRenderingTypeResponse struct {
	DeviceUserInterfaceMode string `json:"deviceUserInterfaceMode"`
	ACSInterface            string `json:"acsInterface"`
	ACSUITemplate           string `json:"acsUiTemplate"`
}

type BroadInfo struct {
	Category    string               `json:"category"`
	Severity    string               `json:"severity"`
	Source      string               `json:"source"`
	Recipients  []string             `json:"recipients"`
	Description BroadInfoDescription `json:"description"`
	ExpDate     string               `json:"expDate"`
}

type BroadInfoDescription struct {
	Message string `json:"message"`
}

// ChallengeRequest is the browser CReq handed to the requestor, base64 encoded
// in the AuthenticateResponse.
type ChallengeRequest struct {
	MessageType          string    `json:"messageType"`
	ThreeDSServerTransID uuid.UUID `json:"threeDSServerTransID"`
	ACSTransID           uuid.UUID `json:"acsTransId"`
	ChallengeWindowSize  string    `json:"challengeWindowSize"`
	MessageVersion       string    `json:"messageVersion"`
}

// ResultsRequest is the RReq posted by the directory server, or produced
// internally when an OTP submission completes a challenge.
type ResultsRequest struct {
	ACSTransID           uuid.UUID        `json:"acsTransId"`
	MessageCategory      string           `json:"messageCategory"`
	ECI                  string           `json:"eci"`
	MessageType          string           `json:"messageType"`
	ACSRenderingType     ACSRenderingType `json:"acsRenderingType"`
	DSTransID            uuid.UUID        `json:"dsTransId"`
	AuthenticationMethod string           `json:"authenticationMethod"`
	AuthenticationType   string           `json:"authenticationType"`
	MessageVersion       string           `json:"messageVersion"`
	SDKTransID           *uuid.UUID       `json:"sdkTransId"`
	InteractionCounter   string           `json:"interactionCounter"`
	AuthenticationValue  string           `json:"authenticationValue"`
	TransStatus          string           `json:"transStatus"`
	ThreeDSServerTransID uuid.UUID        `json:"threeDSServerTransID"`
}

// Check validates the ResultsRequest.
func (self *ResultsRequest) Check() error {
	if uuid.Nil == self.ThreeDSServerTransID {
		return flagError(ErrValidation, "missing threeDSServerTransID")
	}
	if "" == self.TransStatus {
		return flagError(ErrValidation, "missing transStatus")
	}
	return nil
}

type ACSRenderingType struct {
	ACSUITemplate string `json:"acsUiTemplate"`
	ACSInterface  string `json:"acsInterface"`
}

// ResultsResponse is the RRes acknowledgment.
type ResultsResponse struct {
	DSTransID            uuid.UUID  `json:"dsTransId"`
	MessageType          string     `json:"messageType"`
	ThreeDSServerTransID uuid.UUID  `json:"threeDSServerTransID"`
	ACSTransID           uuid.UUID  `json:"acsTransId"`
	SDKTransID           *uuid.UUID `json:"sdkTransId"`
	ResultsStatus        string     `json:"resultsStatus"`
	MessageVersion       string     `json:"messageVersion"`
}

// FinalRequest asks for the final outcome of a transaction.
type FinalRequest struct {
	ThreeDSServerTransID uuid.UUID `json:"threeDSServerTransID"`
}

// Check validates the FinalRequest.
func (self *FinalRequest) Check() error {
	if uuid.Nil == self.ThreeDSServerTransID {
		return flagError(ErrValidation, "missing threeDSServerTransID")
	}
	return nil
}

// FinalResponse reports the final outcome of a completed transaction.
type FinalResponse struct {
	ECI                  string          `json:"eci"`
	AuthenticationValue  string          `json:"authenticationValue"`
	ThreeDSServerTransID uuid.UUID       `json:"threeDSServerTransID"`
	ResultsResponse      ResultsResponse `json:"resultsResponse"`
	ResultsRequest       ResultsRequest  `json:"resultsRequest"`
	TransStatus          string          `json:"transStatus"`
}

// MobileChallengeRequest is the decrypted CReq of the mobile channel. A nil
// ChallengeDataEntry distinguishes the initial challenge from an OTP
// submission, an empty submitted value still counts as a submission.
type MobileChallengeRequest struct {
	MessageType          string  `json:"messageType"`
	MessageVersion       string  `json:"messageVersion"`
	ThreeDSServerTransID string  `json:"threeDSServerTransID,omitempty"`
	ACSTransID           string  `json:"acsTransID,omitempty"`
	SDKTransID           string  `json:"sdkTransID,omitempty"`
	SDKCounterStoA       string  `json:"sdkCounterStoA"`
	ChallengeWindowSize  string  `json:"challengeWindowSize,omitempty"`
	ChallengeNoEntry     string  `json:"challengeNoEntry,omitempty"`
	ChallengeDataEntry   *string `json:"challengeDataEntry,omitempty"`
}

// MobileChallengeResponse is the CRes of the mobile channel, encrypted back to
// the SDK. Initial responses carry the OTP form fields, final responses the
// transaction status.
type MobileChallengeResponse struct {
	ACSCounterAtoS            string `json:"acsCounterAtoS"`
	ACSTransID                string `json:"acsTransID"`
	ACSUIType                 string `json:"acsUiType,omitempty"`
	ChallengeCompletionInd    string `json:"challengeCompletionInd"`
	ChallengeInfoHeader       string `json:"challengeInfoHeader,omitempty"`
	ChallengeInfoLabel        string `json:"challengeInfoLabel,omitempty"`
	MessageType               string `json:"messageType"`
	MessageVersion            string `json:"messageVersion"`
	SDKTransID                string `json:"sdkTransID"`
	ThreeDSServerTransID      string `json:"threeDSServerTransID"`
	SubmitAuthenticationLabel string `json:"submitAuthenticationLabel,omitempty"`
	TransStatus               string `json:"transStatus,omitempty"`
}
