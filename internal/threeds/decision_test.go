package threeds

import (
	"encoding/base64"
	"testing"
)

func TestDecideChallenge(t *testing.T) {
	testcases := []struct {
		name          string
		challengeInd  string
		acctNumber    string
		deviceChannel string
		challenge     bool
		mobile        bool
		operatorID    string
		refNumber     string
	}{
		{
			name:          "challengeInd 04 forces challenge",
			challengeInd:  "04",
			acctNumber:    "4000000000000000",
			deviceChannel: "01",
			challenge:     true,
			mobile:        true,
			operatorID:    "MOCK_ACS",
			refNumber:     "issuer1",
		},
		{
			name:          "challengeInd 05 forces frictionless",
			challengeInd:  "05",
			acctNumber:    "4000000000004001",
			deviceChannel: "01",
			challenge:     false,
			mobile:        true,
			operatorID:    "MOCK_ACS_NEW",
			refNumber:     "issuer2",
		},
		{
			name:          "card suffix 4001 challenges",
			challengeInd:  "01",
			acctNumber:    "4000000000004001",
			deviceChannel: "02",
			challenge:     true,
			mobile:        false,
			operatorID:    "MOCK_ACS",
			refNumber:     "issuer1",
		},
		{
			name:          "other cards are frictionless",
			challengeInd:  "01",
			acctNumber:    "4000000000000000",
			deviceChannel: "02",
			challenge:     false,
			mobile:        false,
			operatorID:    "MOCK_ACS",
			refNumber:     "issuer1",
		},
		{
			name:          "short account number is frictionless",
			challengeInd:  "",
			acctNumber:    "401",
			deviceChannel: "02",
			challenge:     false,
			mobile:        false,
			operatorID:    "MOCK_ACS",
			refNumber:     "issuer1",
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			req := AuthenticateRequest{
				DeviceChannel: tc.deviceChannel,
				ThreeDSRequestor: ThreeDSRequestor{
					ThreeDSRequestorChallengeInd: tc.challengeInd,
				},
				CardholderAccount: CardholderAccount{AcctNumber: tc.acctNumber},
			}
			decision := DecideChallenge(&req)
			if tc.challenge != decision.Challenge {
				t.Errorf("Failed challenge decision, got %v", decision.Challenge)
			}
			if tc.mobile != decision.Mobile {
				t.Errorf("Failed mobile detection, got %v", decision.Mobile)
			}
			if tc.operatorID != decision.ACSOperatorID {
				t.Errorf("Failed operator selection, got %s", decision.ACSOperatorID)
			}
			if tc.refNumber != decision.ACSReferenceNumber {
				t.Errorf("Failed reference number selection, got %s", decision.ACSReferenceNumber)
			}
		})
	}
}

func TestChallengeDecisionIndicators(t *testing.T) {
	challenged := ChallengeDecision{Challenge: true}
	if "C" != challenged.TransStatus() || "Y" != challenged.ChallengeMandated() {
		t.Errorf(
			"Failed challenged indicators, got %s/%s",
			challenged.TransStatus(), challenged.ChallengeMandated(),
		)
	}
	frictionless := ChallengeDecision{}
	if "Y" != frictionless.TransStatus() || "N" != frictionless.ChallengeMandated() {
		t.Errorf(
			"Failed frictionless indicators, got %s/%s",
			frictionless.TransStatus(), frictionless.ChallengeMandated(),
		)
	}
}

func TestAuthenticAuthValue(t *testing.T) {
	authValue := AuthenticAuthValue()

	cavv, err := base64.StdEncoding.DecodeString(authValue)
	if nil != err {
		t.Fatalf("Failed decoding auth value, got error %v", err)
	}
	if 20 != len(cavv) {
		t.Errorf("Failed auth value size check, got %d", len(cavv))
	}
	if 0x02 != cavv[0] || 0x01 != cavv[1] {
		t.Errorf("Failed auth value indicator check, got % x", cavv[:2])
	}
	if authValue != AuthenticAuthValue() {
		t.Error("Failed auth value determinism check")
	}
}

func TestOTPOutcome(t *testing.T) {
	transStatus, eci, authValue := OTPOutcome("1234")
	if "Y" != transStatus || "02" != eci || AuthenticAuthValue() != authValue {
		t.Errorf("Failed valid OTP outcome, got %s/%s/%s", transStatus, eci, authValue)
	}

	for _, otp := range []string{"0000", "", "12345", "abcd"} {
		transStatus, eci, authValue = OTPOutcome(otp)
		if "N" != transStatus || "07" != eci || FailedAuthValue() != authValue {
			t.Errorf("Failed invalid OTP outcome for %q, got %s/%s/%s", otp, transStatus, eci, authValue)
		}
	}
}
