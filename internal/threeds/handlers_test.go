package threeds

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ArushKapoorJuspay/mock-three-ds-server/internal/observability"
	"github.com/ArushKapoorJuspay/mock-three-ds-server/internal/store"
	"github.com/ArushKapoorJuspay/mock-three-ds-server/pkg/acscrypt"
)

const testBaseURL = "http://acs.test"

func newTestService(t *testing.T) (*Service, *store.MemStore[Transaction]) {
	t.Helper()

	st, err := store.NewMemStore[Transaction](15 * time.Minute)
	if nil != err {
		t.Fatalf("Failed creating store, got error %v", err)
	}
	svc, err := NewService(st, acscrypt.NewSigner(testKeyMaterial(t)), testBaseURL)
	if nil != err {
		t.Fatalf("Failed creating service, got error %v", err)
	}
	return svc, st
}

func testKeyMaterial(t *testing.T) *acscrypt.KeyMaterial {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if nil != err {
		t.Fatalf("Failed generating RSA key, got error %v", err)
	}
	tpl := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "acs.test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, &tpl, &tpl, &key.PublicKey, key)
	if nil != err {
		t.Fatalf("Failed creating certificate, got error %v", err)
	}
	return &acscrypt.KeyMaterial{CertDER: der, PrivateKey: key}
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, req any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(req)
	if nil != err {
		t.Fatalf("Failed encoding request, got error %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()

	err := json.Unmarshal(w.Body.Bytes(), dst)
	if nil != err {
		t.Fatalf("Failed decoding response %q, got error %v", w.Body.String(), err)
	}
}

func authRequest(deviceChannel, challengeInd, acctNumber string) AuthenticateRequest {
	return AuthenticateRequest{
		ThreeDSServerTransID: uuid.New(),
		DeviceChannel:        deviceChannel,
		MessageCategory:      "01",
		ThreeDSRequestor: ThreeDSRequestor{
			ThreeDSRequestorAuthenticationInd: "01",
			ThreeDSRequestorChallengeInd:      challengeInd,
		},
		CardholderAccount: CardholderAccount{
			AcctNumber:     acctNumber,
			CardExpiryDate: "2512",
			SchemeID:       "Mastercard",
		},
		Purchase: Purchase{
			PurchaseAmount:   1000,
			PurchaseCurrency: "356",
			PurchaseExponent: 2,
			PurchaseDate:     "20260829064523",
			TransType:        "01",
		},
		Merchant: Merchant{
			MerchantName:    "Test Merchant",
			NotificationURL: "https://merchant.test/return",
		},
	}
}

func TestVersionEndpoint(t *testing.T) {
	svc, _ := newTestService(t)
	mux := NewMux(svc)

	testcases := []struct {
		name       string
		cardNumber string
		startRange string
		endRange   string
	}{
		{"dedicated range", "5155010000000000", "5155010000000000", "5155019999999999"},
		{"default range", "4000000000000000", "4000000000000000", "4999999999999999"},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, mux, "/3ds/version", VersionRequest{CardNumber: tc.cardNumber})
			if http.StatusOK != w.Code {
				t.Fatalf("Failed version request, got status %d", w.Code)
			}
			var resp VersionResponse
			decodeResponse(t, w, &resp)
			if uuid.Nil == resp.ThreeDSServerTransID {
				t.Error("Failed transaction id check")
			}
			if 1 != len(resp.CardRanges) {
				t.Fatalf("Failed card range count check, got %d", len(resp.CardRanges))
			}
			cr := resp.CardRanges[0]
			if tc.startRange != cr.StartRange || tc.endRange != cr.EndRange {
				t.Errorf("Failed card range check, got %s-%s", cr.StartRange, cr.EndRange)
			}
			if MessageVersion != cr.ACSStartProtocolVersion || MessageVersion != cr.ACSEndProtocolVersion {
				t.Errorf(
					"Failed protocol version check, got %s-%s",
					cr.ACSStartProtocolVersion, cr.ACSEndProtocolVersion,
				)
			}
		})
	}

	t.Run("missing card number", func(t *testing.T) {
		w := postJSON(t, mux, "/3ds/version", VersionRequest{})
		if http.StatusBadRequest != w.Code {
			t.Errorf("Failed rejecting empty request, got status %d", w.Code)
		}
	})
}

func TestAuthenticateBrowserFrictionless(t *testing.T) {
	svc, _ := newTestService(t)
	mux := NewMux(svc)

	req := authRequest("02", "01", "4000000000000000")
	w := postJSON(t, mux, "/3ds/authenticate", req)
	if http.StatusOK != w.Code {
		t.Fatalf("Failed authenticate request, got status %d: %s", w.Code, w.Body.String())
	}
	var resp AuthenticateResponse
	decodeResponse(t, w, &resp)

	if "Y" != resp.TransStatus || "N" != resp.ACSChallengeMandated {
		t.Errorf("Failed frictionless status check, got %s/%s", resp.TransStatus, resp.ACSChallengeMandated)
	}
	if "" != resp.ACSURL || "" != resp.Base64EncodedChallengeRequest {
		t.Error("Failed frictionless response check, got challenge fields")
	}
	if req.Purchase.PurchaseDate != resp.PurchaseDate {
		t.Errorf("Failed purchase date echo, got %s", resp.PurchaseDate)
	}

	ares := resp.AuthenticationResponse
	if "Y" != ares.TransStatus || "05" != ares.ECI {
		t.Errorf("Failed ARes status check, got %s/%s", ares.TransStatus, ares.ECI)
	}
	if "MOCK_ACS" != ares.ACSOperatorID || "issuer1" != ares.ACSReferenceNumber {
		t.Errorf("Failed ACS identity check, got %s/%s", ares.ACSOperatorID, ares.ACSReferenceNumber)
	}
	if "" == ares.AuthenticationValue {
		t.Error("Failed authentication value check")
	}

	areq := resp.AuthenticationRequest
	if "AReq" != areq["messageType"] || MessageVersion != areq["messageVersion"] {
		t.Errorf("Failed AReq echo check, got %v/%v", areq["messageType"], areq["messageVersion"])
	}
	if req.CardholderAccount.AcctNumber != areq["acctNumber"] {
		t.Errorf("Failed AReq account echo, got %v", areq["acctNumber"])
	}
}

func TestAuthenticateBrowserChallenge(t *testing.T) {
	svc, st := newTestService(t)
	mux := NewMux(svc)

	req := authRequest("02", "01", "4000000000004001")
	w := postJSON(t, mux, "/3ds/authenticate", req)
	if http.StatusOK != w.Code {
		t.Fatalf("Failed authenticate request, got status %d: %s", w.Code, w.Body.String())
	}
	var resp AuthenticateResponse
	decodeResponse(t, w, &resp)

	if "C" != resp.TransStatus || "Y" != resp.ACSChallengeMandated {
		t.Errorf("Failed challenge status check, got %s/%s", resp.TransStatus, resp.ACSChallengeMandated)
	}
	if testBaseURL+"/processor/mock/acs/trigger-otp" != resp.ACSURL {
		t.Errorf("Failed acsUrl check, got %s", resp.ACSURL)
	}

	srzcreq, err := base64.StdEncoding.DecodeString(resp.Base64EncodedChallengeRequest)
	if nil != err {
		t.Fatalf("Failed decoding challenge request, got error %v", err)
	}
	var creq ChallengeRequest
	err = json.Unmarshal(srzcreq, &creq)
	if nil != err {
		t.Fatalf("Failed unmarshaling challenge request, got error %v", err)
	}
	if "CReq" != creq.MessageType || req.ThreeDSServerTransID != creq.ThreeDSServerTransID {
		t.Errorf("Failed challenge request check, got %+v", creq)
	}
	if creq.ACSTransID != resp.AuthenticationResponse.ACSTransID {
		t.Error("Failed acsTransId consistency check")
	}

	// transaction record must be retrievable under both ids
	tx, err := st.Load(t.Context(), req.ThreeDSServerTransID)
	if nil != err {
		t.Fatalf("Failed loading stored transaction, got error %v", err)
	}
	if req.Merchant.NotificationURL != tx.RedirectURL {
		t.Errorf("Failed stored redirect check, got %s", tx.RedirectURL)
	}
	if nil != tx.EphemeralKey {
		t.Error("Failed browser transaction check, got ephemeral keys")
	}
	_, err = st.FindByACSKey(t.Context(), creq.ACSTransID)
	if nil != err {
		t.Errorf("Failed acs key lookup, got error %v", err)
	}
}

func TestAuthenticateMobileRequiresSDKTransID(t *testing.T) {
	svc, _ := newTestService(t)
	mux := NewMux(svc)

	req := authRequest("01", "04", "4000000000000000")
	w := postJSON(t, mux, "/3ds/authenticate", req)
	if http.StatusBadRequest != w.Code {
		t.Fatalf("Failed rejecting mobile request, got status %d", w.Code)
	}
	var resp map[string]string
	decodeResponse(t, w, &resp)
	if "sdkTransId is required for mobile flows (deviceChannel=01)" != resp["error"] {
		t.Errorf("Failed error message check, got %q", resp["error"])
	}
}

// TestMobileChallengeFlow walks the complete mobile challenge: authenticate,
// derive the session key from the SDK side, exchange encrypted CReq/CRes
// messages and close with the final outcome.
func TestMobileChallengeFlow(t *testing.T) {
	observability.SetTestDebugLogging(t)
	svc, _ := newTestService(t)
	mux := NewMux(svc)

	sdkKey, err := acscrypt.GenerateEphemeralKey()
	if nil != err {
		t.Fatalf("Failed generating SDK key, got error %v", err)
	}
	sdkTransID := uuid.New()
	sdkJWK := sdkKey.PublicJWK()

	req := authRequest("01", "04", "4000000000000000")
	req.SDKTransID = &sdkTransID
	req.SDKEphemeralPublicKey = &sdkJWK
	req.DeviceRenderOptions = DeviceRenderOptions{
		SDKInterface: "01",
		SDKUIType:    []string{"01"},
	}

	w := postJSON(t, mux, "/3ds/authenticate", req)
	if http.StatusOK != w.Code {
		t.Fatalf("Failed authenticate request, got status %d: %s", w.Code, w.Body.String())
	}
	var resp AuthenticateResponse
	decodeResponse(t, w, &resp)

	ares := resp.AuthenticationResponse
	if "C" != ares.TransStatus {
		t.Fatalf("Failed challenge status check, got %s", ares.TransStatus)
	}
	if "" != ares.ACSURL {
		t.Errorf("Failed mobile ARes check, got acsUrl %s", ares.ACSURL)
	}
	if nil == ares.ACSRenderingType || nil == ares.BroadInfo {
		t.Error("Failed mobile ARes extension check")
	}

	// recover the ACS ephemeral public key from the signed content
	token, _, err := jwt.NewParser().ParseUnverified(ares.ACSSignedContent, &acscrypt.SignedContentClaims{})
	if nil != err {
		t.Fatalf("Failed parsing acsSignedContent, got error %v", err)
	}
	claims := token.Claims.(*acscrypt.SignedContentClaims)
	if testBaseURL+"/challenge" != claims.ACSURL {
		t.Errorf("Failed acsURL claim check, got %s", claims.ACSURL)
	}
	if claims.ACSTransID != ares.ACSTransID.String() {
		t.Error("Failed acsTransID claim check")
	}

	derived, err := acscrypt.DeriveKey(sdkKey, claims.ACSEphemPubKey, acscrypt.PlatformAndroid)
	if nil != err {
		t.Fatalf("Failed deriving session key, got error %v", err)
	}

	exchange := func(creq MobileChallengeRequest) MobileChallengeResponse {
		t.Helper()

		plaintext, err := json.Marshal(creq)
		if nil != err {
			t.Fatalf("Failed encoding challenge request, got error %v", err)
		}
		compact, err := acscrypt.Encrypt(plaintext, ares.ACSTransID.String(), derived, acscrypt.PlatformAndroid)
		if nil != err {
			t.Fatalf("Failed encrypting challenge request, got error %v", err)
		}

		r := httptest.NewRequest(http.MethodPost, "/challenge", strings.NewReader(compact))
		r.Header.Set("Content-Type", joseContentType)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		if http.StatusOK != w.Code {
			t.Fatalf("Failed challenge exchange, got status %d: %s", w.Code, w.Body.String())
		}
		if joseContentType != w.Header().Get("Content-Type") {
			t.Errorf("Failed content type check, got %s", w.Header().Get("Content-Type"))
		}

		decrypted, err := acscrypt.Decrypt(w.Body.String(), derived)
		if nil != err {
			t.Fatalf("Failed decrypting challenge response, got error %v", err)
		}
		var cres MobileChallengeResponse
		err = json.Unmarshal(decrypted, &cres)
		if nil != err {
			t.Fatalf("Failed decoding challenge response, got error %v", err)
		}
		return cres
	}

	initial := exchange(MobileChallengeRequest{
		MessageType:    "CReq",
		MessageVersion: MessageVersion,
		ACSTransID:     ares.ACSTransID.String(),
		SDKCounterStoA: "000",
	})
	if "000" != initial.ACSCounterAtoS || "N" != initial.ChallengeCompletionInd {
		t.Errorf("Failed initial CRes check, got %s/%s", initial.ACSCounterAtoS, initial.ChallengeCompletionInd)
	}
	if "01" != initial.ACSUIType || "" == initial.ChallengeInfoLabel {
		t.Errorf("Failed initial CRes form check, got %s/%q", initial.ACSUIType, initial.ChallengeInfoLabel)
	}
	if "" != initial.TransStatus {
		t.Errorf("Failed initial CRes status check, got %s", initial.TransStatus)
	}
	if sdkTransID.String() != initial.SDKTransID {
		t.Errorf("Failed sdkTransID echo, got %s", initial.SDKTransID)
	}

	otp := "1234"
	final := exchange(MobileChallengeRequest{
		MessageType:        "CReq",
		MessageVersion:     MessageVersion,
		ACSTransID:         ares.ACSTransID.String(),
		SDKCounterStoA:     "001",
		ChallengeDataEntry: &otp,
	})
	if "001" != final.ACSCounterAtoS || "Y" != final.ChallengeCompletionInd {
		t.Errorf("Failed final CRes check, got %s/%s", final.ACSCounterAtoS, final.ChallengeCompletionInd)
	}
	if "Y" != final.TransStatus {
		t.Errorf("Failed final transStatus check, got %s", final.TransStatus)
	}

	// the OTP submission recorded results, /3ds/final reports them
	w = postJSON(t, mux, "/3ds/final", FinalRequest{ThreeDSServerTransID: req.ThreeDSServerTransID})
	if http.StatusOK != w.Code {
		t.Fatalf("Failed final request, got status %d: %s", w.Code, w.Body.String())
	}
	var finalResp FinalResponse
	decodeResponse(t, w, &finalResp)
	if "Y" != finalResp.TransStatus || "02" != finalResp.ECI {
		t.Errorf("Failed final outcome check, got %s/%s", finalResp.TransStatus, finalResp.ECI)
	}
	if AuthenticAuthValue() != finalResp.AuthenticationValue {
		t.Errorf("Failed final auth value check, got %s", finalResp.AuthenticationValue)
	}
}

// TestAuthenticateFallbackSignedContent drives a mobile challenge authenticate
// through a service without signing key material: the response must carry the
// fallback acsSignedContent and the request logger must record the warning.
func TestAuthenticateFallbackSignedContent(t *testing.T) {
	st, err := store.NewMemStore[Transaction](15 * time.Minute)
	if nil != err {
		t.Fatalf("Failed creating store, got error %v", err)
	}
	svc, err := NewService(st, acscrypt.NewSigner(nil), testBaseURL)
	if nil != err {
		t.Fatalf("Failed creating service, got error %v", err)
	}

	var logbuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logbuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	handler := observability.Middleware{Logger: logger}.Wrap(NewMux(svc))

	sdkKey, err := acscrypt.GenerateEphemeralKey()
	if nil != err {
		t.Fatalf("Failed generating SDK key, got error %v", err)
	}
	sdkTransID := uuid.New()
	sdkJWK := sdkKey.PublicJWK()

	req := authRequest("01", "04", "4000000000000000")
	req.SDKTransID = &sdkTransID
	req.SDKEphemeralPublicKey = &sdkJWK

	body, err := json.Marshal(req)
	if nil != err {
		t.Fatalf("Failed encoding request, got error %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, "/3ds/authenticate", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if http.StatusOK != w.Code {
		t.Fatalf("Failed authenticate request, got status %d: %s", w.Code, w.Body.String())
	}

	var resp AuthenticateResponse
	decodeResponse(t, w, &resp)
	signed := resp.AuthenticationResponse.ACSSignedContent
	if "" == signed || 3 != len(strings.Split(signed, ".")) {
		t.Errorf("Failed fallback signed content check, got %q", signed)
	}
	token, _, err := jwt.NewParser().ParseUnverified(signed, jwt.MapClaims{})
	if nil != err {
		t.Fatalf("Failed parsing fallback signed content, got error %v", err)
	}
	if "PS256" != token.Header["alg"] {
		t.Errorf("Failed fallback alg check, got %v", token.Header["alg"])
	}

	if !strings.Contains(logbuf.String(), "serving fallback acsSignedContent") {
		t.Errorf("Failed fallback warning check, logs: %s", logbuf.String())
	}
}

func TestMobileChallengeWrongOTP(t *testing.T) {
	svc, st := newTestService(t)
	mux := NewMux(svc)

	sdkKey, err := acscrypt.GenerateEphemeralKey()
	if nil != err {
		t.Fatalf("Failed generating SDK key, got error %v", err)
	}
	sdkTransID := uuid.New()
	sdkJWK := sdkKey.PublicJWK()

	req := authRequest("01", "04", "4000000000000000")
	req.SDKTransID = &sdkTransID
	req.SDKEphemeralPublicKey = &sdkJWK
	w := postJSON(t, mux, "/3ds/authenticate", req)
	if http.StatusOK != w.Code {
		t.Fatalf("Failed authenticate request, got status %d", w.Code)
	}
	var resp AuthenticateResponse
	decodeResponse(t, w, &resp)

	tx, err := st.Load(t.Context(), req.ThreeDSServerTransID)
	if nil != err {
		t.Fatalf("Failed loading transaction, got error %v", err)
	}
	derived, err := acscrypt.DeriveKey(sdkKey, tx.EphemeralKey.PublicJWK(), acscrypt.PlatformAndroid)
	if nil != err {
		t.Fatalf("Failed deriving session key, got error %v", err)
	}

	otp := "9999"
	plaintext, _ := json.Marshal(MobileChallengeRequest{
		MessageType:        "CReq",
		MessageVersion:     MessageVersion,
		SDKCounterStoA:     "001",
		ChallengeDataEntry: &otp,
	})
	compact, err := acscrypt.Encrypt(plaintext, tx.ACSTransID.String(), derived, acscrypt.PlatformAndroid)
	if nil != err {
		t.Fatalf("Failed encrypting challenge request, got error %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, "/challenge", strings.NewReader(compact))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if http.StatusOK != w.Code {
		t.Fatalf("Failed challenge exchange, got status %d: %s", w.Code, w.Body.String())
	}

	decrypted, err := acscrypt.Decrypt(w.Body.String(), derived)
	if nil != err {
		t.Fatalf("Failed decrypting challenge response, got error %v", err)
	}
	var cres MobileChallengeResponse
	err = json.Unmarshal(decrypted, &cres)
	if nil != err {
		t.Fatalf("Failed decoding challenge response, got error %v", err)
	}
	if "N" != cres.TransStatus {
		t.Errorf("Failed wrong OTP status check, got %s", cres.TransStatus)
	}

	tx, err = st.Load(t.Context(), req.ThreeDSServerTransID)
	if nil != err {
		t.Fatalf("Failed reloading transaction, got error %v", err)
	}
	if nil == tx.ResultsRequest || "N" != tx.ResultsRequest.TransStatus || "07" != tx.ResultsRequest.ECI {
		t.Errorf("Failed recorded results check, got %+v", tx.ResultsRequest)
	}
}

func TestChallengeEndpointErrors(t *testing.T) {
	svc, _ := newTestService(t)
	mux := NewMux(svc)

	post := func(body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/challenge", strings.NewReader(body))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		return w
	}

	t.Run("JSON body", func(t *testing.T) {
		w := post(`{"errorCode":"302"}`)
		if http.StatusBadRequest != w.Code {
			t.Fatalf("Failed rejecting JSON body, got status %d", w.Code)
		}
		var resp map[string]string
		decodeResponse(t, w, &resp)
		if "Received JSON error response instead of JWE" != resp["errorDescription"] {
			t.Errorf("Failed error description check, got %q", resp["errorDescription"])
		}
	})

	t.Run("garbage body", func(t *testing.T) {
		w := post("not-a-jwe")
		if http.StatusBadRequest != w.Code {
			t.Errorf("Failed rejecting garbage, got status %d", w.Code)
		}
	})

	t.Run("unknown transaction", func(t *testing.T) {
		k1, _ := acscrypt.GenerateEphemeralKey()
		k2, _ := acscrypt.GenerateEphemeralKey()
		derived, err := acscrypt.DeriveKey(k1, k2.PublicJWK(), acscrypt.PlatformAndroid)
		if nil != err {
			t.Fatalf("Failed deriving key, got error %v", err)
		}
		compact, err := acscrypt.Encrypt([]byte(`{}`), uuid.NewString(), derived, acscrypt.PlatformAndroid)
		if nil != err {
			t.Fatalf("Failed encrypting, got error %v", err)
		}
		w := post(compact)
		if http.StatusNotFound != w.Code {
			t.Fatalf("Failed rejecting unknown transaction, got status %d", w.Code)
		}
		var resp map[string]string
		decodeResponse(t, w, &resp)
		if "404" != resp["errorCode"] {
			t.Errorf("Failed error code check, got %q", resp["errorCode"])
		}
	})
}

func TestResultsEndpoint(t *testing.T) {
	svc, _ := newTestService(t)
	mux := NewMux(svc)

	req := authRequest("02", "01", "4000000000004001")
	w := postJSON(t, mux, "/3ds/authenticate", req)
	var authResp AuthenticateResponse
	decodeResponse(t, w, &authResp)

	results := ResultsRequest{
		ACSTransID:           authResp.AuthenticationResponse.ACSTransID,
		DSTransID:            authResp.AuthenticationResponse.DSTransID,
		MessageCategory:      "01",
		MessageType:          "RReq",
		MessageVersion:       MessageVersion,
		ECI:                  "02",
		AuthenticationValue:  AuthenticAuthValue(),
		TransStatus:          "Y",
		InteractionCounter:   "01",
		ThreeDSServerTransID: req.ThreeDSServerTransID,
	}
	w = postJSON(t, mux, "/3ds/results", results)
	if http.StatusOK != w.Code {
		t.Fatalf("Failed results request, got status %d: %s", w.Code, w.Body.String())
	}
	var resp ResultsResponse
	decodeResponse(t, w, &resp)
	if "RRes" != resp.MessageType || "01" != resp.ResultsStatus {
		t.Errorf("Failed RRes check, got %s/%s", resp.MessageType, resp.ResultsStatus)
	}
	if req.ThreeDSServerTransID != resp.ThreeDSServerTransID {
		t.Error("Failed RRes transaction id check")
	}

	t.Run("unknown transaction", func(t *testing.T) {
		unknown := results
		unknown.ThreeDSServerTransID = uuid.New()
		w := postJSON(t, mux, "/3ds/results", unknown)
		if http.StatusBadRequest != w.Code {
			t.Fatalf("Failed rejecting unknown transaction, got status %d", w.Code)
		}
		var resp map[string]string
		decodeResponse(t, w, &resp)
		if "Transaction not found" != resp["error"] {
			t.Errorf("Failed error message check, got %q", resp["error"])
		}
	})

	t.Run("final returns recorded results", func(t *testing.T) {
		w := postJSON(t, mux, "/3ds/final", FinalRequest{ThreeDSServerTransID: req.ThreeDSServerTransID})
		if http.StatusOK != w.Code {
			t.Fatalf("Failed final request, got status %d: %s", w.Code, w.Body.String())
		}
		var resp FinalResponse
		decodeResponse(t, w, &resp)
		if "Y" != resp.TransStatus || "02" != resp.ECI {
			t.Errorf("Failed final outcome check, got %s/%s", resp.TransStatus, resp.ECI)
		}
		if "RRes" != resp.ResultsResponse.MessageType {
			t.Errorf("Failed embedded RRes check, got %s", resp.ResultsResponse.MessageType)
		}
	})
}

func TestFinalEndpointWithoutResults(t *testing.T) {
	svc, _ := newTestService(t)
	mux := NewMux(svc)

	req := authRequest("02", "01", "4000000000004001")
	w := postJSON(t, mux, "/3ds/authenticate", req)
	if http.StatusOK != w.Code {
		t.Fatalf("Failed authenticate request, got status %d", w.Code)
	}

	w = postJSON(t, mux, "/3ds/final", FinalRequest{ThreeDSServerTransID: req.ThreeDSServerTransID})
	if http.StatusBadRequest != w.Code {
		t.Fatalf("Failed rejecting incomplete transaction, got status %d", w.Code)
	}
	var resp map[string]string
	decodeResponse(t, w, &resp)
	if "Results not found for this transaction" != resp["error"] {
		t.Errorf("Failed error message check, got %q", resp["error"])
	}
}

func TestTriggerOTPEndpoint(t *testing.T) {
	svc, _ := newTestService(t)
	mux := NewMux(svc)

	req := authRequest("02", "01", "4000000000004001")
	w := postJSON(t, mux, "/3ds/authenticate", req)
	var authResp AuthenticateResponse
	decodeResponse(t, w, &authResp)

	srzcreq, err := json.Marshal(authResp.ChallengeRequest)
	if nil != err {
		t.Fatalf("Failed encoding creq, got error %v", err)
	}

	postForm := func(target, creq string) *httptest.ResponseRecorder {
		form := url.Values{"creq": {creq}}
		r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		return w
	}

	t.Run("stored redirect", func(t *testing.T) {
		w := postForm("/processor/mock/acs/trigger-otp", string(srzcreq))
		if http.StatusOK != w.Code {
			t.Fatalf("Failed trigger request, got status %d: %s", w.Code, w.Body.String())
		}
		page := w.Body.String()
		want := testBaseURL + "/processor/mock/acs/verify-otp?redirectUrl=" +
			url.QueryEscape(req.Merchant.NotificationURL)
		if !strings.Contains(page, want) {
			t.Errorf("Failed pay endpoint check, page misses %q", want)
		}
		if !strings.Contains(page, req.ThreeDSServerTransID.String()) {
			t.Error("Failed transaction id check in form")
		}
	})

	t.Run("query redirect wins", func(t *testing.T) {
		w := postForm("/processor/mock/acs/trigger-otp?redirectUrl=https://other.test/done", string(srzcreq))
		if http.StatusOK != w.Code {
			t.Fatalf("Failed trigger request, got status %d", w.Code)
		}
		want := "redirectUrl=" + url.QueryEscape("https://other.test/done")
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("Failed redirect override check, page misses %q", want)
		}
	})

	t.Run("base64 creq accepted", func(t *testing.T) {
		w := postForm("/processor/mock/acs/trigger-otp", base64.StdEncoding.EncodeToString(srzcreq))
		if http.StatusOK != w.Code {
			t.Errorf("Failed base64 creq request, got status %d", w.Code)
		}
	})

	t.Run("invalid creq", func(t *testing.T) {
		w := postForm("/processor/mock/acs/trigger-otp", "###")
		if http.StatusBadRequest != w.Code {
			t.Errorf("Failed rejecting invalid creq, got status %d", w.Code)
		}
	})
}

func TestVerifyOTPEndpoint(t *testing.T) {
	svc, _ := newTestService(t)
	mux := NewMux(svc)

	req := authRequest("02", "01", "4000000000004001")
	w := postJSON(t, mux, "/3ds/authenticate", req)
	if http.StatusOK != w.Code {
		t.Fatalf("Failed authenticate request, got status %d", w.Code)
	}

	postOTP := func(target, otp, transID string) *httptest.ResponseRecorder {
		form := url.Values{"otp": {otp}, "threeDSServerTransID": {transID}}
		r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		return w
	}

	t.Run("valid OTP", func(t *testing.T) {
		target := "/processor/mock/acs/verify-otp?redirectUrl=" + url.QueryEscape("https://merchant.test/return")
		w := postOTP(target, "1234", req.ThreeDSServerTransID.String())
		if http.StatusFound != w.Code {
			t.Fatalf("Failed OTP redirect, got status %d", w.Code)
		}
		loc, err := url.Parse(w.Header().Get("Location"))
		if nil != err {
			t.Fatalf("Failed parsing redirect location, got error %v", err)
		}
		q := loc.Query()
		if "Y" != q.Get("transStatus") || "02" != q.Get("eci") {
			t.Errorf("Failed redirect outcome check, got %s/%s", q.Get("transStatus"), q.Get("eci"))
		}
		if req.ThreeDSServerTransID.String() != q.Get("threeDSServerTransID") {
			t.Error("Failed redirect transaction id check")
		}
		if AuthenticAuthValue() != q.Get("authenticationValue") {
			t.Errorf("Failed redirect auth value check, got %q", q.Get("authenticationValue"))
		}
	})

	t.Run("wrong OTP", func(t *testing.T) {
		w := postOTP("/processor/mock/acs/verify-otp", "0000", req.ThreeDSServerTransID.String())
		if http.StatusFound != w.Code {
			t.Fatalf("Failed OTP redirect, got status %d", w.Code)
		}
		loc, _ := url.Parse(w.Header().Get("Location"))
		if "N" != loc.Query().Get("transStatus") {
			t.Errorf("Failed wrong OTP redirect check, got %s", loc.Query().Get("transStatus"))
		}
		if !strings.HasPrefix(loc.String(), defaultRedirectURL) {
			t.Errorf("Failed default redirect check, got %s", loc.String())
		}
	})

	t.Run("invalid transaction id", func(t *testing.T) {
		w := postOTP("/processor/mock/acs/verify-otp", "1234", "not-a-uuid")
		if http.StatusFound != w.Code {
			t.Fatalf("Failed error redirect, got status %d", w.Code)
		}
		loc := w.Header().Get("Location")
		if !strings.Contains(loc, "transStatus=U") || !strings.Contains(loc, "error=processing_error") {
			t.Errorf("Failed error redirect check, got %s", loc)
		}
	})

	t.Run("unknown transaction", func(t *testing.T) {
		w := postOTP("/processor/mock/acs/verify-otp", "1234", uuid.NewString())
		if http.StatusFound != w.Code {
			t.Fatalf("Failed error redirect, got status %d", w.Code)
		}
		if !strings.Contains(w.Header().Get("Location"), "error=processing_error") {
			t.Errorf("Failed error redirect check, got %s", w.Header().Get("Location"))
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	svc, _ := newTestService(t)
	mux := NewMux(svc)

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if http.StatusOK != w.Code {
		t.Fatalf("Failed health request, got status %d", w.Code)
	}
	var resp map[string]string
	decodeResponse(t, w, &resp)
	if "healthy" != resp["status"] || "3ds-mock-server" != resp["service"] {
		t.Errorf("Failed health payload check, got %v", resp)
	}
	if "" == resp["timestamp"] {
		t.Error("Failed health timestamp check")
	}
}
