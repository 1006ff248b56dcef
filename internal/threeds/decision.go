package threeds

import (
	"encoding/base64"
)

// Challenge indicator values with a fixed outcome.
const (
	challengeIndMandate  = "04"
	challengeIndNoPrompt = "05"
	challengeCardSuffix  = "4001"
	mobileDeviceChannel  = "01"
)

// ACS identities advertised in authentication responses. The exemption flow
// (challengeInd 05) reports the alternate identity.
const (
	acsOperatorIDDefault   = "MOCK_ACS"
	acsOperatorIDExemption = "MOCK_ACS_NEW"
	acsRefNumberDefault    = "issuer1"
	acsRefNumberExemption  = "issuer2"
	dsReferenceNumber      = "MOCK_DS"
)

// 3DS server identity echoed in the authenticationRequest copy.
const (
	threeDSServerRefNumber  = "3DS_LOA_SER_JTPL_020200_00841"
	threeDSServerOperatorID = "10073246"
	threeDSServerURL        = "https://visa.3ds.certification.juspay.in/3ds/results"
)

// validOTP is the only accepted challenge code.
const validOTP = "1234"

// frictionlessAuthValue is the placeholder authenticationValue of an ARes that
// did not go through a challenge.
const frictionlessAuthValue = "QWErty123+/ABCD5678ghijklmn=="

// ChallengeDecision is the outcome of the authenticate flow decision.
type ChallengeDecision struct {
	Challenge bool
	Mobile    bool

	ACSOperatorID      string
	ACSReferenceNumber string
}

// TransStatus returns the ARes transStatus for the decision, C when a
// challenge is required, Y otherwise.
func (self ChallengeDecision) TransStatus() string {
	if self.Challenge {
		return "C"
	}
	return "Y"
}

// ChallengeMandated returns the acsChallengeMandated indicator.
func (self ChallengeDecision) ChallengeMandated() string {
	if self.Challenge {
		return "Y"
	}
	return "N"
}

// DecideChallenge applies the flow decision rules: challengeInd 04 forces a
// challenge, 05 forces frictionless, anything else challenges the cards whose
// number ends in 4001.
func DecideChallenge(req *AuthenticateRequest) ChallengeDecision {
	var challenge bool
	switch ind := req.ThreeDSRequestor.ThreeDSRequestorChallengeInd; ind {
	case challengeIndMandate:
		challenge = true
	case challengeIndNoPrompt:
		challenge = false
	default:
		challenge = hasChallengeSuffix(req.CardholderAccount.AcctNumber)
	}

	decision := ChallengeDecision{
		Challenge:          challenge,
		Mobile:             mobileDeviceChannel == req.DeviceChannel,
		ACSOperatorID:      acsOperatorIDDefault,
		ACSReferenceNumber: acsRefNumberDefault,
	}
	if challengeIndNoPrompt == req.ThreeDSRequestor.ThreeDSRequestorChallengeInd {
		decision.ACSOperatorID = acsOperatorIDExemption
		decision.ACSReferenceNumber = acsRefNumberExemption
	}

	return decision
}

func hasChallengeSuffix(acctNumber string) bool {
	n := len(acctNumber)
	return n >= len(challengeCardSuffix) && challengeCardSuffix == acctNumber[n-len(challengeCardSuffix):]
}

// AuthenticAuthValue returns the CAVV of a successful authentication, a 20
// byte value with the version and method indicators followed by a fixed
// pseudo random fill, standard base64 encoded.
func AuthenticAuthValue() string {
	cavv := make([]byte, 20)
	cavv[0] = 0x02 // version indicator
	cavv[1] = 0x01 // authentication method indicator
	for i := 2; i < len(cavv); i++ {
		cavv[i] = byte((i*17 + 13 + 0x4A) % 256)
	}
	return base64.StdEncoding.EncodeToString(cavv)
}

// FailedAuthValue returns the authenticationValue reported for a failed
// authentication.
func FailedAuthValue() string {
	return "AAAAAAAAAAAAAAAAAAAAAA=="
}

// OTPOutcome maps a submitted challenge code to the final transaction status.
func OTPOutcome(otp string) (transStatus, eci, authValue string) {
	if validOTP == otp {
		return "Y", "02", AuthenticAuthValue()
	}
	return "N", "07", FailedAuthValue()
}
