package threeds

import (
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ArushKapoorJuspay/mock-three-ds-server/internal/observability"
	"github.com/ArushKapoorJuspay/mock-three-ds-server/internal/store"
	"github.com/ArushKapoorJuspay/mock-three-ds-server/internal/transport"
	"github.com/ArushKapoorJuspay/mock-three-ds-server/pkg/acscrypt"
)

const (
	maxRequestBodySize = 1 << 20
	joseContentType    = "application/jose"

	defaultRedirectURL = "https://juspay.api.in.end"
)

// jsonSrz serializes API messages, validating any that implement Check.
var jsonSrz = transport.WrapInSafeSerializer(transport.JSONSerializer{})

//go:embed templates/acs-challenge.html
var challengeTplSrc string

var challengeTpl = template.Must(template.New("acs-challenge.html").Parse(challengeTplSrc))

// Service bundles the dependencies shared by the HTTP endpoints.
type Service struct {
	Store         store.Store[Transaction]
	Signer        *acscrypt.Signer
	PublicBaseURL string
}

// NewService constructs a Service. signer may be nil, challenge content then
// uses the fallback form.
func NewService(st store.Store[Transaction], signer *acscrypt.Signer, publicBaseURL string) (*Service, error) {
	if nil == st {
		return nil, newError("nil store")
	}
	if nil == signer {
		signer = acscrypt.NewSigner(nil)
	}
	return &Service{
		Store:         st,
		Signer:        signer,
		PublicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

// NewMux returns an http.ServeMux with all the 3DS routes registered.
func NewMux(svc *Service) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/3ds/version", &VersionEndpoint{})
	mux.Handle("/3ds/authenticate", &AuthenticateEndpoint{svc: svc})
	mux.Handle("/3ds/results", &ResultsEndpoint{svc: svc})
	mux.Handle("/3ds/final", &FinalEndpoint{svc: svc})
	mux.Handle("/challenge", &ChallengeEndpoint{svc: svc})
	mux.Handle("/processor/mock/acs/trigger-otp", &TriggerOTPEndpoint{svc: svc})
	mux.Handle("/processor/mock/acs/verify-otp", &VerifyOTPEndpoint{svc: svc})
	mux.Handle("/health", &HealthEndpoint{})
	return mux
}

func (self *Service) triggerOTPURL() string {
	return self.PublicBaseURL + "/processor/mock/acs/trigger-otp"
}

func (self *Service) challengeURL() string {
	return self.PublicBaseURL + "/challenge"
}

func (self *Service) verifyOTPURL(redirectURL string) string {
	return self.PublicBaseURL + "/processor/mock/acs/verify-otp?redirectUrl=" + url.QueryEscape(redirectURL)
}

// applyResults attaches req to its transaction and acknowledges with an RRes.
// It errors with store.ErrNotFound if the transaction is unknown.
func (self *Service) applyResults(ctx context.Context, req ResultsRequest) (ResultsResponse, error) {
	tx, err := self.Store.Load(ctx, req.ThreeDSServerTransID)
	if nil != err {
		return ResultsResponse{}, err
	}

	tx.ResultsRequest = &req
	err = self.Store.Update(ctx, tx)
	if nil != err {
		return ResultsResponse{}, err
	}

	return ResultsResponse{
		DSTransID:            tx.DSTransID,
		MessageType:          "RRes",
		ThreeDSServerTransID: tx.Key(),
		ACSTransID:           tx.ACSTransID,
		SDKTransID:           tx.SDKTransID,
		ResultsStatus:        "01",
		MessageVersion:       MessageVersion,
	}, nil
}

// challengeResults builds the RReq generated internally when an OTP submission
// completes a challenge.
func challengeResults(tx Transaction, transStatus, eci, authValue, messageVersion string) ResultsRequest {
	if "" == messageVersion {
		messageVersion = MessageVersion
	}
	return ResultsRequest{
		ACSTransID:           tx.ACSTransID,
		MessageCategory:      "01",
		ECI:                  eci,
		MessageType:          "RReq",
		ACSRenderingType:     ACSRenderingType{ACSUITemplate: "01", ACSInterface: "01"},
		DSTransID:            tx.DSTransID,
		AuthenticationMethod: "02",
		AuthenticationType:   "02",
		MessageVersion:       messageVersion,
		SDKTransID:           tx.SDKTransID,
		InteractionCounter:   "01",
		AuthenticationValue:  authValue,
		TransStatus:          transStatus,
		ThreeDSServerTransID: tx.Key(),
	}
}

// VersionEndpoint implements the card range lookup, POST /3ds/version.
type VersionEndpoint struct{}

func (self *VersionEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req VersionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// cards in 515501... fall in the dedicated test range
	var cardRange CardRange
	if strings.HasPrefix(req.CardNumber, "515501") {
		cardRange = CardRange{
			ACSInfoInd:              []string{"01", "02"},
			StartRange:              "5155010000000000",
			EndRange:                "5155019999999999",
			ACSStartProtocolVersion: MessageVersion,
			ACSEndProtocolVersion:   MessageVersion,
		}
	} else {
		cardRange = CardRange{
			ACSInfoInd:              []string{"01", "02"},
			StartRange:              "4000000000000000",
			EndRange:                "4999999999999999",
			ACSStartProtocolVersion: MessageVersion,
			ACSEndProtocolVersion:   MessageVersion,
		}
	}

	writeJSON(w, http.StatusOK, VersionResponse{
		ThreeDSServerTransID: uuid.New(),
		CardRanges:           []CardRange{cardRange},
	})
}

// AuthenticateEndpoint implements POST /3ds/authenticate: the challenge
// decision, ephemeral key generation for mobile challenge flows and the
// transaction record creation.
type AuthenticateEndpoint struct {
	svc *Service
}

func (self *AuthenticateEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := observability.GetObservability(r.Context()).Log()

	var req AuthenticateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	decision := DecideChallenge(&req)
	log.Info(
		"processing authentication request",
		"threeDSServerTransID", req.ThreeDSServerTransID,
		"deviceChannel", req.DeviceChannel,
		"challengeInd", req.ThreeDSRequestor.ThreeDSRequestorChallengeInd,
		"transStatus", decision.TransStatus(),
	)

	if decision.Mobile && nil == req.SDKTransID {
		log.Error("missing sdkTransId for mobile flow")
		writeError(w, http.StatusBadRequest, "sdkTransId is required for mobile flows (deviceChannel=01)")
		return
	}

	acsTransID := uuid.New()
	dsTransID := uuid.New()

	// mobile challenge flows need a fresh key pair and signed content carrying it
	var ephemKey *acscrypt.EphemeralKey
	var signedContent string
	if decision.Mobile && decision.Challenge {
		var err error
		ephemKey, err = acscrypt.GenerateEphemeralKey()
		if nil != err {
			log.Error("failed ephemeral key generation", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to generate ephemeral keys")
			return
		}

		content := self.svc.Signer.Sign(acscrypt.SignedContentClaims{
			ACSTransID:     acsTransID.String(),
			ACSRefNumber:   decision.ACSReferenceNumber,
			ACSURL:         self.svc.challengeURL(),
			ACSEphemPubKey: ephemKey.PublicJWK(),
		})
		if acscrypt.SourceFallback == content.Source {
			log.Warn("serving fallback acsSignedContent", "reason", content.Reason)
		}
		signedContent = content.JWT
	}

	var sdkKey *acscrypt.JWK
	if decision.Mobile {
		if jwk, present := req.SDKKey(); present {
			sdkKey = &jwk
		} else {
			log.Warn("mobile flow without SDK ephemeral public key")
		}
	}

	tx := Transaction{
		AuthenticateRequest:   req,
		ACSTransID:            acsTransID,
		DSTransID:             dsTransID,
		SDKTransID:            req.SDKTransID,
		EphemeralKey:          ephemKey,
		RedirectURL:           req.Merchant.NotificationURL,
		SDKEphemeralPublicKey: sdkKey,
	}
	err := self.svc.Store.Save(r.Context(), tx)
	if nil != err {
		log.Error("failed storing transaction", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store transaction data")
		return
	}

	creq := ChallengeRequest{
		MessageType:          "CReq",
		ThreeDSServerTransID: req.ThreeDSServerTransID,
		ACSTransID:           acsTransID,
		ChallengeWindowSize:  "01",
		MessageVersion:       MessageVersion,
	}
	srzcreq, err := json.Marshal(creq)
	if nil != err {
		writeError(w, http.StatusInternalServerError, "failed to encode challenge request")
		return
	}

	ares := AuthenticationResponse{
		ACSOperatorID:        decision.ACSOperatorID,
		DSReferenceNumber:    dsReferenceNumber,
		ECI:                  "05",
		DSTransID:            dsTransID,
		MessageType:          "ARes",
		ThreeDSServerTransID: req.ThreeDSServerTransID,
		ACSTransID:           acsTransID,
		ACSChallengeMandated: decision.ChallengeMandated(),
		AuthenticationType:   "02",
		AuthenticationValue:  frictionlessAuthValue,
		TransStatus:          decision.TransStatus(),
		MessageVersion:       MessageVersion,
		ACSReferenceNumber:   decision.ACSReferenceNumber,
	}
	if decision.Mobile {
		ares.ThreeDSRequestorAppURLInd = "N"
		ares.ACSSignedContent = signedContent
		ares.ACSRenderingType = &ACSRenderingTypeResponse{
			DeviceUserInterfaceMode: "01",
			ACSInterface:            "01",
			ACSUITemplate:           "01",
		}
		ares.BroadInfo = &BroadInfo{
			Category:    "01",
			Severity:    "04",
			Source:      "03",
			Recipients:  []string{"02", "01", "03"},
			Description: BroadInfoDescription{Message: "TLS 1.x will be turned off starting summer 2019"},
			ExpDate:     "20241231",
		}
		ares.AuthenticationMethod = "02"
		ares.TransStatusReason = "15"
		ares.DeviceInfoRecognisedVersion = "1.3"
		ares.SDKTransID = req.SDKTransID
	} else if decision.Challenge {
		ares.ACSURL = self.svc.triggerOTPURL()
	}

	resp := AuthenticateResponse{
		PurchaseDate:           req.Purchase.PurchaseDate,
		ThreeDSServerTransID:   req.ThreeDSServerTransID,
		AuthenticationResponse: ares,
		ChallengeRequest:       creq,
		ACSChallengeMandated:   decision.ChallengeMandated(),
		TransStatus:            decision.TransStatus(),
		AuthenticationRequest:  BuildAuthenticationRequest(&req),
	}
	if decision.Challenge {
		resp.Base64EncodedChallengeRequest = base64.StdEncoding.EncodeToString(srzcreq)
		if !decision.Mobile {
			resp.ACSURL = self.svc.triggerOTPURL()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ResultsEndpoint implements POST /3ds/results, the RReq/RRes exchange.
type ResultsEndpoint struct {
	svc *Service
}

func (self *ResultsEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ResultsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := self.svc.applyResults(r.Context(), req)
	if nil != err {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Transaction not found")
			return
		}
		observability.GetObservability(r.Context()).Log().Error("failed applying results", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update transaction data")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// FinalEndpoint implements POST /3ds/final, reporting the stored outcome of a
// completed transaction.
type FinalEndpoint struct {
	svc *Service
}

func (self *FinalEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req FinalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tx, err := self.svc.Store.Load(r.Context(), req.ThreeDSServerTransID)
	if nil != err {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Transaction not found")
			return
		}
		observability.GetObservability(r.Context()).Log().Error("failed loading transaction", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to retrieve transaction data")
		return
	}
	if nil == tx.ResultsRequest {
		writeError(w, http.StatusBadRequest, "Results not found for this transaction")
		return
	}

	writeJSON(w, http.StatusOK, FinalResponse{
		ECI:                  tx.ResultsRequest.ECI,
		AuthenticationValue:  tx.ResultsRequest.AuthenticationValue,
		ThreeDSServerTransID: req.ThreeDSServerTransID,
		ResultsResponse: ResultsResponse{
			DSTransID:            tx.DSTransID,
			MessageType:          "RRes",
			ThreeDSServerTransID: req.ThreeDSServerTransID,
			ACSTransID:           tx.ACSTransID,
			SDKTransID:           tx.SDKTransID,
			ResultsStatus:        "01",
			MessageVersion:       MessageVersion,
		},
		ResultsRequest: *tx.ResultsRequest,
		TransStatus:    tx.ResultsRequest.TransStatus,
	})
}

// ChallengeEndpoint implements POST /challenge, the encrypted mobile challenge
// channel. Requests and responses are compact JWEs, application/jose.
type ChallengeEndpoint struct {
	svc *Service
}

func (self *ChallengeEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := observability.GetObservability(r.Context()).Log()

	if http.MethodPost != r.Method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if nil != err {
		writeChallengeError(w, http.StatusBadRequest, "Invalid request body encoding")
		return
	}
	defer r.Body.Close()

	compact := strings.TrimSpace(string(body))

	// some SDK builds post their own JSON error document here instead of a JWE
	if strings.HasPrefix(compact, "{") && strings.HasSuffix(compact, "}") {
		log.Warn("received JSON instead of JWE on challenge channel")
		writeChallengeError(w, http.StatusBadRequest, "Received JSON error response instead of JWE")
		return
	}

	env, err := acscrypt.ParseEnvelope(compact)
	if nil != err {
		log.Error("failed parsing challenge envelope", "error", err)
		writeChallengeError(w, http.StatusBadRequest, "Invalid JWE format")
		return
	}
	if "" == env.Header.Kid {
		writeChallengeError(w, http.StatusBadRequest, "Missing kid in JWE header")
		return
	}
	acsTransID, err := uuid.Parse(env.Header.Kid)
	if nil != err {
		log.Error("invalid kid in challenge envelope", "kid", env.Header.Kid, "error", err)
		writeChallengeError(w, http.StatusBadRequest, "Invalid kid format: "+env.Header.Kid)
		return
	}

	tx, err := self.svc.Store.FindByACSKey(r.Context(), acsTransID)
	if nil != err {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("no transaction for challenge envelope", "acsTransID", acsTransID)
			writeChallengeError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		log.Error("failed transaction lookup", "error", err)
		writeChallengeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	platform, err := env.Platform()
	if nil != err {
		log.Error("unsupported enc in challenge envelope", "enc", env.Header.Enc)
		writeChallengeError(w, http.StatusBadRequest, "Unsupported encryption algorithm")
		return
	}
	log.Info("processing mobile challenge", "acsTransID", acsTransID, "platform", platform)

	ephemKey, sdkKey, err := tx.MobileKeys()
	if nil != err {
		log.Error("missing key agreement material", "error", err)
		writeChallengeError(w, http.StatusBadRequest, "Missing ephemeral keys for ECDH")
		return
	}
	derived, err := acscrypt.DeriveKey(ephemKey, sdkKey, platform)
	if nil != err {
		log.Error("failed key derivation", "error", err)
		writeChallengeError(w, http.StatusBadRequest, "Failed to derive shared key")
		return
	}

	plaintext, err := acscrypt.DecryptEnvelope(env, derived)
	if nil != err {
		log.Error("failed challenge decryption", "error", err)
		writeChallengeError(w, http.StatusBadRequest, "Failed to decrypt challenge request")
		return
	}

	var creq MobileChallengeRequest
	err = json.Unmarshal(plaintext, &creq)
	if nil != err {
		log.Error("failed decoding challenge request", "error", err)
		writeChallengeError(w, http.StatusBadRequest, "Invalid challenge request")
		return
	}

	var cres MobileChallengeResponse
	if nil != creq.ChallengeDataEntry {
		// OTP submission, close the challenge
		transStatus, eci, authValue := OTPOutcome(*creq.ChallengeDataEntry)
		log.Info("challenge OTP submitted", "transStatus", transStatus, "sdkCounterStoA", creq.SDKCounterStoA)

		results := challengeResults(tx, transStatus, eci, authValue, creq.MessageVersion)
		_, err = self.svc.applyResults(r.Context(), results)
		if nil != err {
			log.Warn("failed recording challenge results", "error", err)
		}

		cres = MobileChallengeResponse{
			ACSCounterAtoS:         "001",
			ACSTransID:             acsTransID.String(),
			ChallengeCompletionInd: "Y",
			MessageType:            "CRes",
			MessageVersion:         messageVersionOrDefault(creq.MessageVersion),
			SDKTransID:             uuidString(tx.SDKTransID),
			ThreeDSServerTransID:   tx.Key().String(),
			TransStatus:            transStatus,
		}
	} else {
		// initial challenge, serve the OTP form fields
		log.Info("initial challenge request", "sdkCounterStoA", creq.SDKCounterStoA)
		cres = MobileChallengeResponse{
			ACSCounterAtoS:            "000",
			ACSTransID:                acsTransID.String(),
			ACSUIType:                 "01",
			ChallengeCompletionInd:    "N",
			ChallengeInfoHeader:       "Authentication Required",
			ChallengeInfoLabel:        "Enter OTP:",
			MessageType:               "CRes",
			MessageVersion:            MessageVersion,
			SDKTransID:                uuidString(tx.SDKTransID),
			ThreeDSServerTransID:      tx.Key().String(),
			SubmitAuthenticationLabel: "Submit",
		}
	}

	srzcres, err := json.Marshal(cres)
	if nil != err {
		writeChallengeError(w, http.StatusInternalServerError, "Failed to encrypt response")
		return
	}
	encrypted, err := acscrypt.Encrypt(srzcres, acsTransID.String(), derived, platform)
	if nil != err {
		log.Error("failed challenge encryption", "error", err)
		writeChallengeError(w, http.StatusInternalServerError, "Failed to encrypt response")
		return
	}

	w.Header().Set("Content-Type", joseContentType)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, encrypted)
}

// TriggerOTPEndpoint implements POST /processor/mock/acs/trigger-otp, serving
// the browser challenge form.
type TriggerOTPEndpoint struct {
	svc *Service
}

func (self *TriggerOTPEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := observability.GetObservability(r.Context()).Log()

	if http.MethodPost != r.Method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	err := r.ParseForm()
	if nil != err {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	creq, err := parseChallengeRequestForm(r.PostFormValue("creq"))
	if nil != err {
		log.Error("invalid creq form field", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON in challenge request")
		return
	}

	// redirect priority: query parameter, stored transaction, default
	redirectURL := r.URL.Query().Get("redirectUrl")
	if "" == redirectURL {
		tx, err := self.svc.Store.Load(r.Context(), creq.ThreeDSServerTransID)
		if nil == err && "" != tx.RedirectURL {
			redirectURL = tx.RedirectURL
		} else {
			redirectURL = defaultRedirectURL
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = challengeTpl.Execute(w, struct {
		FallbackRedirectURL  string
		ThreeDSServerTransID string
		PayEndpoint          string
	}{
		FallbackRedirectURL:  self.svc.PublicBaseURL,
		ThreeDSServerTransID: creq.ThreeDSServerTransID.String(),
		PayEndpoint:          self.svc.verifyOTPURL(redirectURL),
	})
	if nil != err {
		log.Error("failed rendering challenge form", "error", err)
	}
}

// parseChallengeRequestForm decodes the creq form field, accepting the JSON
// text of a ChallengeRequest or its base64 encoding.
func parseChallengeRequestForm(raw string) (ChallengeRequest, error) {
	var creq ChallengeRequest
	if "" == raw {
		return creq, newError("missing creq")
	}
	err := json.Unmarshal([]byte(raw), &creq)
	if nil == err {
		return creq, nil
	}
	decoded, decErr := base64.StdEncoding.DecodeString(raw)
	if nil != decErr {
		return creq, wrapError(err, "creq is neither JSON nor base64")
	}
	err = json.Unmarshal(decoded, &creq)
	if nil != err {
		return creq, wrapError(err, "invalid base64 encoded creq")
	}
	return creq, nil
}

// VerifyOTPEndpoint implements POST /processor/mock/acs/verify-otp, closing a
// browser challenge and redirecting back to the merchant.
type VerifyOTPEndpoint struct {
	svc *Service
}

func (self *VerifyOTPEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := observability.GetObservability(r.Context()).Log()

	if http.MethodPost != r.Method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	err := r.ParseForm()
	if nil != err {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	redirectURL := r.URL.Query().Get("redirectUrl")
	if "" == redirectURL {
		redirectURL = defaultRedirectURL
	}
	errorRedirect := redirectURL + "?transStatus=U&error=processing_error"

	transID, err := uuid.Parse(r.PostFormValue("threeDSServerTransID"))
	if nil != err {
		log.Error("invalid threeDSServerTransID in OTP form", "error", err)
		http.Redirect(w, r, errorRedirect, http.StatusFound)
		return
	}

	tx, err := self.svc.Store.Load(r.Context(), transID)
	if nil != err {
		log.Warn("no transaction for OTP submission", "threeDSServerTransID", transID, "error", err)
		http.Redirect(w, r, errorRedirect, http.StatusFound)
		return
	}

	transStatus, eci, authValue := OTPOutcome(r.PostFormValue("otp"))
	log.Info("browser OTP validated", "transStatus", transStatus, "eci", eci)

	results := challengeResults(tx, transStatus, eci, authValue, MessageVersion)
	_, err = self.svc.applyResults(r.Context(), results)
	if nil != err {
		// redirect anyway, the merchant retry path goes through /3ds/final
		log.Warn("failed recording challenge results", "error", err)
	}

	redirect := redirectURL +
		"?transStatus=" + transStatus +
		"&threeDSServerTransID=" + transID.String() +
		"&eci=" + eci +
		"&authenticationValue=" + url.QueryEscape(authValue)
	http.Redirect(w, r, redirect, http.StatusFound)
}

// HealthEndpoint implements GET /health.
type HealthEndpoint struct{}

func (self *HealthEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "3ds-mock-server",
	})
}

// decodeJSON enforces POST, reads the request body and unmarshals it into dst,
// validating it when it implements Check. It writes the error response itself
// and reports success through the bool flag.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if http.MethodPost != r.Method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if nil != err {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	defer r.Body.Close()

	err = jsonSrz.Unmarshal(body, dst)
	if nil != err {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if nil != err {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeChallengeError(w http.ResponseWriter, status int, desc string) {
	writeJSON(w, status, map[string]string{
		"errorCode":        errorCode(status),
		"errorDescription": desc,
	})
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "400"
	case http.StatusNotFound:
		return "404"
	default:
		return "500"
	}
}

func uuidString(id *uuid.UUID) string {
	if nil == id {
		return ""
	}
	return id.String()
}

func messageVersionOrDefault(v string) string {
	if "" == v {
		return MessageVersion
	}
	return v
}
